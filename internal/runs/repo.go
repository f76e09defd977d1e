package runs

import (
	"context"
	"time"

	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/memory"
)

// Repo defines persistence for runs and their documents. Derived artifacts
// (cross analysis, technical memory) occupy dedicated slots written whole,
// last writer wins.
type Repo interface {
	CreateRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, runID string) (Run, error)
	Touch(ctx context.Context, runID string, at time.Time) error
	AppendDocument(ctx context.Context, doc Document) error
	ListDocuments(ctx context.Context, runID string) ([]Document, error)
	SetCrossAnalysis(ctx context.Context, runID string, cross crossanalysis.CrossAnalysis) error
	SetMemory(ctx context.Context, runID string, mem memory.TechnicalMemory) error
	ListPurgeable(ctx context.Context, lastAccessBefore time.Time) ([]string, error)
	DeleteRun(ctx context.Context, runID string) error
}
