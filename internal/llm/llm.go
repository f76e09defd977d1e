package llm

import (
	"context"
	"errors"
)

// Client abstracts the completion and embedding capability the analyzers
// depend on.
type Client interface {
	Complete(ctx context.Context, input CompleteInput) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompleteInput captures one structured-completion request.
type CompleteInput struct {
	System      string
	Prompt      string
	SchemaHint  string
	MaxTokens   int
	Temperature float32
}

// Failure modes callers branch on. ErrAuth is run-fatal; the others are
// retried at most once per call site.
var (
	ErrAuth        = errors.New("llm auth failure")
	ErrRateLimited = errors.New("llm rate limited")
	ErrTimeout     = errors.New("llm timeout")
	ErrMalformed   = errors.New("llm malformed response")
)

// Retryable reports whether err warrants the single automatic retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrMalformed)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, input CompleteInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotImplemented
}

// Embed returns ErrNotImplemented.
func (PlaceholderClient) Embed(ctx context.Context, text string) ([]float32, error) {
	_ = ctx
	_ = text
	return nil, ErrNotImplemented
}
