package runs

import "errors"

var (
	ErrNotFound        = errors.New("run not found")
	ErrNoCrossAnalysis = errors.New("run has no cross analysis yet")
)
