package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tender-backend/internal/classify"
	"tender-backend/internal/llm"
	"tender-backend/internal/payload"
	"tender-backend/internal/shared/metrics"
	"tender-backend/internal/shared/telemetry"
)

// Service runs role-specific analyses over classified documents.
type Service struct {
	Repo        Repo
	LLM         llm.Client
	Model       string
	MaxTokens   int
	Temperature float32
}

// AnalyzeRequest identifies one classified document to analyze.
type AnalyzeRequest struct {
	RunID      string
	DocumentID string
	Role       classify.Role
	FileName   string
	Text       string
}

// Analyze performs the full role analysis for one document and persists each
// state transition. Failures are contained in the returned Analysis; the
// error return is non-nil only when the whole run must stop (auth failure,
// context cancellation) or record keeping itself failed.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	if req.RunID == "" || req.DocumentID == "" {
		return Analysis{}, errors.New("runID and documentID are required")
	}
	if !req.Role.Valid() || req.Role == classify.RoleUnknown {
		return Analysis{}, fmt.Errorf("role %q is not analyzable", req.Role)
	}
	if s.LLM == nil {
		return Analysis{}, errors.New("missing llm client")
	}

	analysis := Analysis{
		ID:         uuid.NewString(),
		RunID:      req.RunID,
		DocumentID: req.DocumentID,
		Role:       req.Role,
		Status:     StatusQueued,
		Attempt:    1,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Upsert(ctx, analysis); err != nil {
		return Analysis{}, fmt.Errorf("create analysis: %w", err)
	}

	startedAt := time.Now().UTC()
	analysis.Status = StatusProcessing
	analysis.StartedAt = &startedAt
	if err := s.Repo.Upsert(ctx, analysis); err != nil {
		return Analysis{}, fmt.Errorf("set processing: %w", err)
	}
	metrics.IncAnalysisStarted()
	s.logStatus(analysis, "queued->processing", nil)

	prompt, truncated, err := buildRolePrompt(req.Role, req.Text)
	if err != nil {
		return s.failAnalysis(ctx, analysis, err), nil
	}
	if truncated {
		analysis.Trace = append(analysis.Trace, fmt.Sprintf("contenu tronqué à %d caractères (début et fin conservés)", maxPromptRunes))
	}

	client := newRetryingLLM(s.LLM, analysis.ID)
	input := llm.CompleteInput{
		System:      systemPromptAnalysis,
		Prompt:      prompt,
		SchemaHint:  SchemaHint(req.Role),
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	}

	raw, err := client.Complete(ctx, input)
	if err != nil {
		failed := s.failAnalysis(ctx, analysis, fmt.Errorf("llm analyze: %w", err))
		if errors.Is(err, llm.ErrAuth) || errors.Is(err, context.Canceled) {
			return failed, err
		}
		return failed, nil
	}
	analysis.Trace = append(analysis.Trace, raw)

	node, parseErr := parseAndValidate(req.Role, raw)
	if parseErr != nil {
		// One repair round trip before giving up on the response shape.
		analysis.Attempt++
		fixInput := input
		fixInput.System = systemPromptFixJSON
		fixInput.Prompt = buildFixPrompt(req.Role, raw)
		rawRetry, retryErr := client.Complete(ctx, fixInput)
		if retryErr != nil {
			failed := s.failAnalysis(ctx, analysis, fmt.Errorf("llm analyze retry: %w", retryErr))
			if errors.Is(retryErr, llm.ErrAuth) || errors.Is(retryErr, context.Canceled) {
				return failed, retryErr
			}
			return failed, nil
		}
		analysis.Trace = append(analysis.Trace, rawRetry)
		node, parseErr = parseAndValidate(req.Role, rawRetry)
		if parseErr != nil {
			return s.failAnalysis(ctx, analysis, fmt.Errorf("llm output invalid: %w", parseErr)), nil
		}
	}

	completedAt := time.Now().UTC()
	analysis.Status = StatusCompleted
	analysis.Payload = node
	analysis.CompletedAt = &completedAt
	if err := s.Repo.Upsert(ctx, analysis); err != nil {
		return Analysis{}, fmt.Errorf("set analysis result: %w", err)
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(analysis.StartedAt, analysis.CompletedAt))
	s.logStatus(analysis, "processing->completed", nil)
	return analysis, nil
}

func parseAndValidate(role classify.Role, raw string) (*payload.Node, error) {
	node, err := payload.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchema(role, node); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *Service) failAnalysis(ctx context.Context, analysis Analysis, cause error) Analysis {
	code := classifyFailure(cause)
	msg := sanitizeError(cause)
	completedAt := time.Now().UTC()
	analysis.Status = StatusFailed
	analysis.ErrorCode = code
	analysis.ErrorMessage = &msg
	analysis.CompletedAt = &completedAt
	// Failure records survive caller cancellation.
	if err := s.Repo.Upsert(context.WithoutCancel(ctx), analysis); err != nil {
		telemetry.Error("analysis.fail_update", map[string]any{
			"analysis_id": analysis.ID,
			"error":       sanitizeError(err),
			"cause":       msg,
		})
	}
	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(durationMs(analysis.StartedAt, &completedAt))
	s.logStatus(analysis, "processing->failed", cause)
	return analysis
}

func (s *Service) logStatus(analysis Analysis, transition string, cause error) {
	fields := map[string]any{
		"run_id":            analysis.RunID,
		"document_id":       analysis.DocumentID,
		"analysis_id":       analysis.ID,
		"role":              string(analysis.Role),
		"status":            analysis.Status,
		"status_transition": transition,
	}
	if analysis.StartedAt != nil && analysis.CompletedAt != nil {
		fields["duration_ms"] = durationMs(analysis.StartedAt, analysis.CompletedAt)
	}
	if cause != nil {
		fields["error_code"] = analysis.ErrorCode
		fields["error"] = sanitizeError(cause)
	}
	telemetry.Info("analysis.status", fields)
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) string {
	switch {
	case err == nil:
		return ErrorCodeInternal
	case errors.Is(err, llm.ErrAuth):
		return ErrorCodeAuth
	case errors.Is(err, llm.ErrRateLimited):
		return ErrorCodeLLMRateLimited
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeLLMTimeout
	case errors.Is(err, llm.ErrMalformed):
		return ErrorCodeLLMSchemaMismatch
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "schema") || strings.Contains(msg, "llm output invalid"):
		return ErrorCodeLLMSchemaMismatch
	case strings.Contains(msg, "extract"):
		return ErrorCodeExtraction
	case strings.Contains(msg, "storage") || strings.Contains(msg, "analysis result") || strings.Contains(msg, "set processing"):
		return ErrorCodeStorage
	default:
		return ErrorCodeInternal
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
