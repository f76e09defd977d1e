package runs

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"tender-backend/internal/analyses"
	"tender-backend/internal/classify"
	"tender-backend/internal/company"
	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/llm"
	"tender-backend/internal/memory"
	"tender-backend/internal/vector"
)

func newTestService(t *testing.T, client llm.Client) (*Service, *analyses.MemoryRepo) {
	t.Helper()
	idx, err := vector.Open(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })

	analysesRepo := analyses.NewMemoryRepo()
	svc := &Service{
		Repo:         NewMemoryRepo(),
		AnalysesRepo: analysesRepo,
		Analyzer: &analyses.Service{
			Repo:      analysesRepo,
			LLM:       client,
			Model:     "gpt-4o-mini",
			MaxTokens: 2000,
		},
		Cross: &crossanalysis.Service{
			LLM:   client,
			Index: idx,
			Scope: crossanalysis.ScopeGlobal,
		},
		Memory:        &memory.Service{LLM: client},
		LLM:           client,
		Index:         idx,
		Workers:       2,
		RetentionDays: 30,
	}
	return svc, analysesRepo
}

func TestFullDossierPipeline(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, dossierLLM{})

	run, err := svc.CreateRun(ctx)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	for _, d := range fixtureDossier() {
		if _, err := svc.AddDocument(ctx, run.ID, d.fileName, "text/plain", []byte(d.content)); err != nil {
			t.Fatalf("AddDocument %s: %v", d.fileName, err)
		}
	}

	docs, err := svc.Repo.ListDocuments(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 5 {
		t.Fatalf("expected 5 documents, got %d", len(docs))
	}
	seen := make(map[classify.Role]string)
	for _, doc := range docs {
		if doc.Role == classify.RoleUnknown {
			t.Errorf("document %s classified as unknown", doc.FileName)
		}
		if prev, dup := seen[doc.Role]; dup {
			t.Errorf("role %s assigned to both %s and %s", doc.Role, prev, doc.FileName)
		}
		seen[doc.Role] = doc.FileName
	}
	if len(seen) != 5 {
		t.Fatalf("expected one document per role, got roles %v", seen)
	}

	results, err := svc.AnalyzeAll(ctx, run.ID)
	if err != nil {
		t.Fatalf("AnalyzeAll: %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("expected 5 analyses, got %d", len(results))
	}
	for _, a := range results {
		if a.Status != analyses.StatusCompleted {
			t.Errorf("analysis for role %s: status %s (code %s)", a.Role, a.Status, a.ErrorCode)
		}
	}
	var dpgf *analyses.Analysis
	for i := range results {
		if results[i].Role == classify.RoleDPGF {
			dpgf = &results[i]
		}
	}
	if dpgf == nil || dpgf.Payload == nil {
		t.Fatal("no completed DPGF analysis")
	}
	if total, ok := dpgf.Payload.FindNumber("total_ht"); !ok || total != 26300.00 {
		t.Errorf("total_ht = %v, %v; want 26300.00", total, ok)
	}

	cross, err := svc.Synthesize(ctx, run.ID)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(cross.Partial) != 0 {
		t.Errorf("unexpected partial documents: %+v", cross.Partial)
	}
	if len(cross.Environmental) == 0 {
		t.Error("expected environmental concerns from the CCTP clauses")
	}
	foundPenalty := false
	for _, hit := range cross.AdministrativeRisks {
		if hit.Category == "penalites" {
			foundPenalty = true
		}
	}
	if !foundPenalty {
		t.Errorf("expected a penalty risk from the CCAP, got %+v", cross.AdministrativeRisks)
	}
	if !cross.RecommendationsAvailable || cross.Recommendations == nil {
		t.Error("expected recommendations to be available")
	}

	mem, err := svc.GenerateMemory(ctx, run.ID, company.Profile{})
	if err != nil {
		t.Fatalf("GenerateMemory: %v", err)
	}
	if len(mem.Sections) != 9 {
		t.Fatalf("expected 9 sections, got %d", len(mem.Sections))
	}
	if !mem.Complete() {
		t.Error("expected every section to be available")
	}

	stored, err := svc.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.CrossAnalysis == nil || stored.Memory == nil {
		t.Error("expected cross-analysis and memory to be persisted on the run")
	}
}

func TestSynthesizeExcludesOwnRunFromSimilarity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, dossierLLM{})

	// A prior run's analysis already sits in the corpus.
	priorEmbedding, err := dossierLLM{}.Embed(ctx, "[cctp] restauration de façade en pierre de taille")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if err := svc.Index.Add(ctx, vector.Entry{
		ID:         "prior-analysis",
		RunID:      "run-prior",
		DocumentID: "doc-prior",
		Role:       "cctp",
		FileName:   "cctp.pdf",
		Payload:    `{"analyse": "ok"}`,
		Embedding:  priorEmbedding,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	run, err := svc.CreateRun(ctx)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	for _, d := range fixtureDossier() {
		if _, err := svc.AddDocument(ctx, run.ID, d.fileName, "text/plain", []byte(d.content)); err != nil {
			t.Fatalf("AddDocument %s: %v", d.fileName, err)
		}
	}
	results, err := svc.AnalyzeAll(ctx, run.ID)
	if err != nil {
		t.Fatalf("AnalyzeAll: %v", err)
	}
	own := make(map[string]bool, len(results))
	for _, a := range results {
		own[a.ID] = true
	}

	// AnalyzeAll indexed this run's analyses, so an unfiltered search would
	// return them as near-perfect matches of themselves.
	cross, err := svc.Synthesize(ctx, run.ID)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	foundPrior := false
	for _, m := range cross.Similar {
		if own[m.RefID] {
			t.Errorf("similarity match %s (score %.2f) belongs to the run under synthesis", m.RefID, m.Score)
		}
		if m.RefID == "prior-analysis" {
			foundPrior = true
		}
	}
	if !foundPrior {
		t.Errorf("expected the prior run's entry among similar matches, got %+v", cross.Similar)
	}
}

func TestAddDocumentExtractionFailureIsContained(t *testing.T) {
	ctx := context.Background()
	svc, analysesRepo := newTestService(t, dossierLLM{})

	run, err := svc.CreateRun(ctx)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	doc, err := svc.AddDocument(ctx, run.ID, "02_CCTP_techniques.pdf", "application/pdf", []byte("not a pdf"))
	if err != nil {
		t.Fatalf("AddDocument should contain extraction failures, got %v", err)
	}
	if doc.Text != "" {
		t.Errorf("expected empty text, got %q", doc.Text)
	}
	if doc.Role != classify.RoleCCTP {
		t.Errorf("role = %s, want cctp from the file name", doc.Role)
	}

	record, err := analysesRepo.GetByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetByDocument: %v", err)
	}
	if record.Status != analyses.StatusFailed || record.ErrorCode != analyses.ErrorCodeExtraction {
		t.Errorf("got status %s code %s, want failed/%s", record.Status, record.ErrorCode, analyses.ErrorCodeExtraction)
	}

	// The unusable document must not reach the analyzer.
	results, err := svc.AnalyzeAll(ctx, run.ID)
	if err != nil {
		t.Fatalf("AnalyzeAll: %v", err)
	}
	if len(results) != 1 || results[0].Status != analyses.StatusFailed {
		t.Errorf("expected the single failed record to survive, got %+v", results)
	}
}

type authLLM struct {
	calls atomic.Int32
}

func (c *authLLM) Complete(ctx context.Context, input llm.CompleteInput) (string, error) {
	c.calls.Add(1)
	return "", llm.ErrAuth
}

func (c *authLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}

func TestAnalyzeAllStopsSchedulingOnAuthFailure(t *testing.T) {
	ctx := context.Background()
	client := &authLLM{}
	svc, _ := newTestService(t, client)
	svc.Workers = 1
	svc.Analyzer.LLM = client
	svc.LLM = client

	run, err := svc.CreateRun(ctx)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	for _, d := range fixtureDossier() {
		if _, err := svc.AddDocument(ctx, run.ID, d.fileName, "text/plain", []byte(d.content)); err != nil {
			t.Fatalf("AddDocument %s: %v", d.fileName, err)
		}
	}

	results, err := svc.AnalyzeAll(ctx, run.ID)
	if !errors.Is(err, llm.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if got := client.calls.Load(); got != 1 {
		t.Errorf("llm called %d times, want 1: auth failure must stop scheduling", got)
	}
	failed := 0
	for _, a := range results {
		if a.Status == analyses.StatusCompleted {
			t.Errorf("unexpected completed analysis for role %s", a.Role)
		}
		if a.Status == analyses.StatusFailed {
			failed++
			if a.ErrorCode != analyses.ErrorCodeAuth {
				t.Errorf("error code = %s, want %s", a.ErrorCode, analyses.ErrorCodeAuth)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected exactly one failed record, got %d", failed)
	}
}

// cancelingLLM cancels the caller's context from inside the first
// completion, mimicking a client that gives up mid-run.
type cancelingLLM struct {
	cancel context.CancelFunc
	calls  atomic.Int32
}

func (c *cancelingLLM) Complete(ctx context.Context, input llm.CompleteInput) (string, error) {
	c.calls.Add(1)
	c.cancel()
	return dossierLLM{}.Complete(ctx, input)
}

func (c *cancelingLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return dossierLLM{}.Embed(ctx, text)
}

func TestAnalyzeAllLetsInFlightAnalysisFinishOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &cancelingLLM{cancel: cancel}
	svc, _ := newTestService(t, client)
	svc.Workers = 1
	svc.Analyzer.LLM = client
	svc.LLM = client

	run, err := svc.CreateRun(ctx)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	for _, d := range fixtureDossier() {
		if _, err := svc.AddDocument(ctx, run.ID, d.fileName, "text/plain", []byte(d.content)); err != nil {
			t.Fatalf("AddDocument %s: %v", d.fileName, err)
		}
	}

	results, err := svc.AnalyzeAll(ctx, run.ID)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := client.calls.Load(); got != 1 {
		t.Errorf("llm called %d times, want 1: cancellation must stop scheduling", got)
	}
	completed := 0
	for _, a := range results {
		if a.Status == analyses.StatusCompleted {
			completed++
			if a.Payload == nil {
				t.Errorf("completed analysis for role %s has no payload", a.Role)
			}
		}
	}
	if completed != 1 {
		t.Errorf("completed analyses = %d, want 1: the in-flight analysis finishes and persists", completed)
	}
}

func TestGenerateMemoryRequiresCrossAnalysis(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, dossierLLM{})

	run, err := svc.CreateRun(ctx)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if _, err := svc.GenerateMemory(ctx, run.ID, company.Profile{}); !errors.Is(err, ErrNoCrossAnalysis) {
		t.Fatalf("err = %v, want ErrNoCrossAnalysis", err)
	}
}

func TestPurgeOlderThanRemovesExpiredRuns(t *testing.T) {
	ctx := context.Background()
	svc, analysesRepo := newTestService(t, dossierLLM{})

	stale, err := svc.CreateRun(ctx)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if _, err := svc.AddDocument(ctx, stale.ID, "04_DPGF_quantitatif.txt", "text/plain", []byte(fixtureDPGF)); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if _, err := svc.AnalyzeAll(ctx, stale.ID); err != nil {
		t.Fatalf("AnalyzeAll: %v", err)
	}
	if err := svc.Repo.Touch(ctx, stale.ID, time.Now().UTC().AddDate(0, 0, -40)); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	fresh, err := svc.CreateRun(ctx)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	purged, err := svc.PurgeOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}
	if _, err := svc.Repo.GetRun(ctx, stale.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale run still present: %v", err)
	}
	if _, err := svc.Repo.GetRun(ctx, fresh.ID); err != nil {
		t.Errorf("fresh run was purged: %v", err)
	}
	remaining, err := analysesRepo.ListByRun(ctx, stale.ID)
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected analyses of the purged run to be gone, got %d", len(remaining))
	}
	matches, err := svc.Index.Search(ctx, []float32{1, 0, 0, 0, 0, 0, 0, 0}, 10, vector.Filter{RunID: stale.ID})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected vector entries of the purged run to be gone, got %d", len(matches))
	}
}

func TestPurgeOlderThanFallsBackToConfiguredRetention(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, dossierLLM{})
	svc.RetentionDays = 0

	if _, err := svc.PurgeOlderThan(ctx, 0); err == nil {
		t.Fatal("expected an error without a configured retention window")
	}
}
