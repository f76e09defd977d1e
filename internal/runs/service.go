package runs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tender-backend/internal/analyses"
	"tender-backend/internal/classify"
	"tender-backend/internal/company"
	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/extract"
	"tender-backend/internal/llm"
	"tender-backend/internal/memory"
	"tender-backend/internal/shared/metrics"
	"tender-backend/internal/shared/telemetry"
	"tender-backend/internal/vector"
)

const defaultWorkers = 4

// Service orchestrates the full pipeline over stored runs: upload and
// classification, parallel role analysis, synthesis, memory generation,
// retention.
type Service struct {
	Repo          Repo
	AnalysesRepo  analyses.Repo
	Analyzer      *analyses.Service
	Cross         *crossanalysis.Service
	Memory        *memory.Service
	LLM           llm.Client
	Index         *vector.Index
	Workers       int
	RetentionDays int

	// runLocks serializes regeneration of a run's derived artifacts.
	runLocks sync.Map
}

// CreateRun starts a new empty run.
func (s *Service) CreateRun(ctx context.Context) (Run, error) {
	now := time.Now().UTC()
	run := Run{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastAccessAt: now,
	}
	if err := s.Repo.CreateRun(ctx, run); err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}
	metrics.IncRunCreated()
	telemetry.Info("run.created", map[string]any{"run_id": run.ID})
	return run, nil
}

// AddDocument extracts, classifies and persists one uploaded document.
// Extraction failure still records the document, with a failed analysis row,
// and is never fatal to the run.
func (s *Service) AddDocument(ctx context.Context, runID, fileName, mediaType string, data []byte) (Document, error) {
	if runID == "" {
		return Document{}, errors.New("runID is required")
	}

	doc := Document{
		ID:        uuid.NewString(),
		RunID:     runID,
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
	}

	result, extractErr := extract.FromBytes(ctx, data, mediaType, fileName)
	if extractErr == nil {
		doc.Text = result.Text
		doc.Tables = result.Tables
	}
	doc.Role, doc.Source = classify.Classify(fileName, doc.Text)

	if err := s.Repo.AppendDocument(ctx, doc); err != nil {
		return Document{}, fmt.Errorf("append document: %w", err)
	}
	metrics.IncDocumentClassified()

	if extractErr != nil {
		msg := extractErr.Error()
		now := time.Now().UTC()
		record := analyses.Analysis{
			ID:           uuid.NewString(),
			RunID:        runID,
			DocumentID:   doc.ID,
			Role:         doc.Role,
			Status:       analyses.StatusFailed,
			ErrorCode:    analyses.ErrorCodeExtraction,
			ErrorMessage: &msg,
			CreatedAt:    now,
			CompletedAt:  &now,
		}
		if err := s.AnalysesRepo.Upsert(ctx, record); err != nil {
			return Document{}, fmt.Errorf("record extraction failure: %w", err)
		}
		telemetry.Info("document.unusable", map[string]any{
			"run_id":      runID,
			"document_id": doc.ID,
			"file_name":   fileName,
			"error":       msg,
		})
		return doc, nil
	}

	telemetry.Info("document.classified", map[string]any{
		"run_id":      runID,
		"document_id": doc.ID,
		"file_name":   fileName,
		"role":        string(doc.Role),
		"source":      string(doc.Source),
	})
	return doc, nil
}

// AnalyzeAll runs the role analyzer over every analyzable document of the
// run on a bounded worker pool and waits for all of them to settle. An auth
// failure or caller cancellation stops scheduling new documents but lets
// in-flight analyses complete and persist. The first run-fatal error is
// returned after the barrier.
func (s *Service) AnalyzeAll(ctx context.Context, runID string) ([]analyses.Analysis, error) {
	docs, err := s.Repo.ListDocuments(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		g       errgroup.Group
		stop    atomic.Bool
		fatalMu sync.Mutex
		fatal   error
	)
	g.SetLimit(workers)

	for _, doc := range docs {
		if !doc.Analyzable() {
			continue
		}
		if stop.Load() || ctx.Err() != nil {
			break
		}
		doc := doc
		g.Go(func() error {
			if stop.Load() || ctx.Err() != nil {
				return nil
			}
			// Once started, an analysis runs to completion and persists
			// even if the caller cancels. Cancellation only gates
			// scheduling, above and at the top of this goroutine.
			_, analyzeErr := s.Analyzer.Analyze(context.WithoutCancel(ctx), analyses.AnalyzeRequest{
				RunID:      runID,
				DocumentID: doc.ID,
				Role:       doc.Role,
				FileName:   doc.FileName,
				Text:       doc.Text,
			})
			if analyzeErr != nil {
				stop.Store(true)
				fatalMu.Lock()
				if fatal == nil {
					fatal = analyzeErr
				}
				fatalMu.Unlock()
			}
			return nil
		})
	}

	// Barrier: every scheduled analysis settles before anything else runs.
	_ = g.Wait()

	results, listErr := s.AnalysesRepo.ListByRun(context.WithoutCancel(ctx), runID)
	if listErr != nil {
		return nil, fmt.Errorf("list analyses: %w", listErr)
	}
	if fatal != nil {
		return results, fatal
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	s.indexAnalyses(ctx, runID, docs, results)
	return results, nil
}

// indexAnalyses adds each successful analysis to the similarity corpus.
// Indexing failures are logged and never block results already stored.
func (s *Service) indexAnalyses(ctx context.Context, runID string, docs []Document, results []analyses.Analysis) {
	if s.Index == nil || s.LLM == nil {
		return
	}
	fileNames := make(map[string]string, len(docs))
	for _, doc := range docs {
		fileNames[doc.ID] = doc.FileName
	}
	for _, a := range results {
		if !a.Succeeded() {
			continue
		}
		embedding, err := s.LLM.Embed(ctx, a.Payload.FlatText())
		if err != nil {
			telemetry.Error("run.index_embed", map[string]any{
				"run_id":      runID,
				"analysis_id": a.ID,
				"error":       err.Error(),
			})
			continue
		}
		entry := vector.Entry{
			ID:         a.ID,
			RunID:      runID,
			DocumentID: a.DocumentID,
			Role:       string(a.Role),
			FileName:   fileNames[a.DocumentID],
			Payload:    a.Payload.Encode(),
			Embedding:  embedding,
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.Index.Add(ctx, entry); err != nil {
			telemetry.Error("run.index_add", map[string]any{
				"run_id":      runID,
				"analysis_id": a.ID,
				"error":       err.Error(),
			})
		}
	}
}

// Get returns the run and refreshes its last access timestamp.
func (s *Service) Get(ctx context.Context, runID string) (Run, error) {
	run, err := s.Repo.GetRun(ctx, runID)
	if err != nil {
		return Run{}, err
	}
	now := time.Now().UTC()
	if err := s.Repo.Touch(ctx, runID, now); err != nil {
		return Run{}, fmt.Errorf("touch run: %w", err)
	}
	run.LastAccessAt = now
	return run, nil
}

// Analyses returns the run's current analysis rows.
func (s *Service) Analyses(ctx context.Context, runID string) ([]analyses.Analysis, error) {
	return s.AnalysesRepo.ListByRun(ctx, runID)
}

// Synthesize recomputes the run's cross-analysis and replaces the stored
// slot. Concurrent calls for the same run serialize, last writer wins.
func (s *Service) Synthesize(ctx context.Context, runID string) (crossanalysis.CrossAnalysis, error) {
	unlock := s.lockRun(runID)
	defer unlock()

	results, err := s.AnalysesRepo.ListByRun(ctx, runID)
	if err != nil {
		return crossanalysis.CrossAnalysis{}, fmt.Errorf("list analyses: %w", err)
	}
	cross, err := s.Cross.Synthesize(ctx, runID, results)
	if err != nil {
		return crossanalysis.CrossAnalysis{}, err
	}
	if err := s.Repo.SetCrossAnalysis(ctx, runID, cross); err != nil {
		return crossanalysis.CrossAnalysis{}, fmt.Errorf("store cross analysis: %w", err)
	}
	return cross, nil
}

// GenerateMemory builds the technical memory from the stored cross-analysis
// and replaces the stored slot. Requires a prior Synthesize.
func (s *Service) GenerateMemory(ctx context.Context, runID string, profile company.Profile) (memory.TechnicalMemory, error) {
	unlock := s.lockRun(runID)
	defer unlock()

	run, err := s.Repo.GetRun(ctx, runID)
	if err != nil {
		return memory.TechnicalMemory{}, err
	}
	if run.CrossAnalysis == nil {
		return memory.TechnicalMemory{}, ErrNoCrossAnalysis
	}
	mem, err := s.Memory.Generate(ctx, *run.CrossAnalysis, profile)
	if err != nil {
		return memory.TechnicalMemory{}, err
	}
	if err := s.Repo.SetMemory(ctx, runID, mem); err != nil {
		return memory.TechnicalMemory{}, fmt.Errorf("store memory: %w", err)
	}
	return mem, nil
}

// PurgeOlderThan removes every run whose last access is older than the given
// retention window, with its analyses and vector entries. Returns the number
// of purged runs.
func (s *Service) PurgeOlderThan(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = s.RetentionDays
	}
	if days <= 0 {
		return 0, errors.New("retention window is not configured")
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	ids, err := s.Repo.ListPurgeable(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list purgeable: %w", err)
	}
	purged := 0
	for _, id := range ids {
		if err := s.AnalysesRepo.DeleteByRun(ctx, id); err != nil {
			return purged, fmt.Errorf("purge analyses run=%s: %w", id, err)
		}
		if s.Index != nil {
			if err := s.Index.DeleteByRun(ctx, id); err != nil {
				return purged, fmt.Errorf("purge vectors run=%s: %w", id, err)
			}
		}
		if err := s.Repo.DeleteRun(ctx, id); err != nil {
			return purged, fmt.Errorf("purge run=%s: %w", id, err)
		}
		metrics.IncRunPurged()
		purged++
	}
	if purged > 0 {
		telemetry.Info("run.purged", map[string]any{"count": purged, "cutoff": cutoff})
	}
	return purged, nil
}

func (s *Service) lockRun(runID string) func() {
	muAny, _ := s.runLocks.LoadOrStore(runID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
