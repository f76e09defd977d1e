package analyses

import (
	"context"
	"time"

	"tender-backend/internal/llm"
	"tender-backend/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM retries a failed completion exactly once for transient
// failures. Auth failures pass through untouched.
type retryingLLM struct {
	base       llm.Client
	analysisID string
}

func newRetryingLLM(base llm.Client, analysisID string) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{base: base, analysisID: analysisID}
}

func (r retryingLLM) Complete(ctx context.Context, input llm.CompleteInput) (string, error) {
	resp, err := r.base.Complete(ctx, input)
	if err == nil || !llm.Retryable(err) {
		return resp, err
	}

	telemetry.Info("llm.retry", map[string]any{
		"analysis_id": r.analysisID,
		"attempt":     1,
		"error":       sanitizeError(err),
	})
	select {
	case <-time.After(llmRetryBaseDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.Complete(ctx, input)
}

func (r retryingLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return r.base.Embed(ctx, text)
}
