package runs

import (
	"context"
	"sort"
	"sync"
	"time"

	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/memory"
)

// MemoryRepo stores runs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	runs      map[string]Run
	documents map[string][]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		runs:      make(map[string]Run),
		documents: make(map[string][]Document),
	}
}

var _ Repo = (*MemoryRepo)(nil)

// CreateRun stores the run.
func (r *MemoryRepo) CreateRun(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run.Documents = nil
	r.runs[run.ID] = run
	return nil
}

// GetRun returns the run with its documents.
func (r *MemoryRepo) GetRun(ctx context.Context, runID string) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runID]
	if !ok {
		return Run{}, ErrNotFound
	}
	run.Documents = append([]Document(nil), r.documents[runID]...)
	return run, nil
}

// Touch updates the run's last access timestamp.
func (r *MemoryRepo) Touch(ctx context.Context, runID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.LastAccessAt = at
	r.runs[runID] = run
	return nil
}

// AppendDocument adds a document to its run.
func (r *MemoryRepo) AppendDocument(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[doc.RunID]; !ok {
		return ErrNotFound
	}
	r.documents[doc.RunID] = append(r.documents[doc.RunID], doc)
	return nil
}

// ListDocuments returns a run's documents in creation order.
func (r *MemoryRepo) ListDocuments(ctx context.Context, runID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := append([]Document(nil), r.documents[runID]...)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

// SetCrossAnalysis replaces the run's cross-analysis slot.
func (r *MemoryRepo) SetCrossAnalysis(ctx context.Context, runID string, cross crossanalysis.CrossAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.CrossAnalysis = &cross
	r.runs[runID] = run
	return nil
}

// SetMemory replaces the run's technical memory slot.
func (r *MemoryRepo) SetMemory(ctx context.Context, runID string, mem memory.TechnicalMemory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Memory = &mem
	r.runs[runID] = run
	return nil
}

// ListPurgeable returns run IDs whose last access is before the cutoff.
func (r *MemoryRepo) ListPurgeable(ctx context.Context, lastAccessBefore time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, run := range r.runs {
		if run.LastAccessAt.Before(lastAccessBefore) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteRun removes the run and its documents.
func (r *MemoryRepo) DeleteRun(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runs, runID)
	delete(r.documents, runID)
	return nil
}
