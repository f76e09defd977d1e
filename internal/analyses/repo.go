package analyses

import "context"

// Repo defines persistence operations for analyses. A document holds at most
// one analysis row; Upsert replaces the previous attempt.
type Repo interface {
	Upsert(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	GetByDocument(ctx context.Context, documentID string) (Analysis, error)
	ListByRun(ctx context.Context, runID string) ([]Analysis, error)
	DeleteByRun(ctx context.Context, runID string) error
}
