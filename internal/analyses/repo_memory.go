package analyses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu         sync.RWMutex
	byID       map[string]Analysis
	byDocument map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:       make(map[string]Analysis),
		byDocument: make(map[string]string),
	}
}

var _ Repo = (*MemoryRepo)(nil)

// Upsert stores the analysis, replacing any earlier attempt for the same
// document.
func (r *MemoryRepo) Upsert(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prevID, ok := r.byDocument[analysis.DocumentID]; ok && prevID != analysis.ID {
		delete(r.byID, prevID)
	}
	r.byID[analysis.ID] = analysis
	r.byDocument[analysis.DocumentID] = analysis.ID
	return nil
}

// GetByID returns an analysis by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// GetByDocument returns the latest analysis for a document.
func (r *MemoryRepo) GetByDocument(ctx context.Context, documentID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byDocument[documentID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return r.byID[id], nil
}

// ListByRun returns all analyses for a run ordered by creation time.
func (r *MemoryRepo) ListByRun(ctx context.Context, runID string) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Analysis
	for _, a := range r.byID {
		if a.RunID == runID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteByRun removes every analysis belonging to a run.
func (r *MemoryRepo) DeleteByRun(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.byID {
		if a.RunID == runID {
			delete(r.byID, id)
			delete(r.byDocument, a.DocumentID)
		}
	}
	return nil
}
