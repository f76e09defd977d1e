package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tender-backend/internal/llm"
	"tender-backend/internal/shared/telemetry"
)

const (
	chatURL       = "https://api.openai.com/v1/chat/completions"
	embeddingsURL = "https://api.openai.com/v1/embeddings"
)

// Client implements llm.Client using OpenAI Chat Completions and Embeddings.
type Client struct {
	apiKey         string
	model          string
	embeddingModel string
	httpClient     *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(apiKey, model, embeddingModel string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		model:          model,
		embeddingModel: embeddingModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_completion_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete issues a structured-completion request. The schema hint is folded
// into the system message so the model answers with conforming JSON.
func (c *Client) Complete(ctx context.Context, input llm.CompleteInput) (string, error) {
	system := input.System
	if strings.TrimSpace(input.SchemaHint) != "" {
		system = system + "\n\nSchéma de sortie attendu:\n" + input.SchemaHint
	}
	messages := []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: input.Prompt},
	}

	temp := input.Temperature
	reqBody := chatRequest{
		Model:          c.model,
		Messages:       messages,
		Temperature:    &temp,
		MaxTokens:      input.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	body, err := c.post(ctx, chatURL, payload)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: response parse: %v", llm.ErrMalformed, err)
	}
	if parsed.Error != nil {
		if strings.Contains(strings.ToLower(parsed.Error.Type), "auth") {
			return "", fmt.Errorf("%w: %s", llm.ErrAuth, parsed.Error.Message)
		}
		return "", fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: missing choices", llm.ErrMalformed)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content", llm.ErrMalformed)
	}
	logUsage(c.model, parsed.Usage)
	return content, nil
}

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(c.embeddingModel) == "" {
		return nil, fmt.Errorf("EMBEDDING_MODEL is required for OpenAI embeddings")
	}
	payload, err := json.Marshal(embeddingsRequest{Model: c.embeddingModel, Input: text})
	if err != nil {
		return nil, err
	}

	body, err := c.post(ctx, embeddingsURL, payload)
	if err != nil {
		return nil, err
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: embeddings parse: %v", llm.ErrMalformed, err)
	}
	if parsed.Error != nil {
		if strings.Contains(strings.ToLower(parsed.Error.Type), "auth") {
			return nil, fmt.Errorf("%w: %s", llm.ErrAuth, parsed.Error.Message)
		}
		return nil, fmt.Errorf("openai embeddings error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%w: missing embedding data", llm.ErrMalformed)
	}
	return parsed.Data[0].Embedding, nil
}

func (c *Client) post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("%w: %v", llm.ErrTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: http status %d", llm.ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: http status %d", llm.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: http status %d", llm.ErrTimeout, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("openai http status %d: %s", resp.StatusCode, truncateBody(body))
	}
	return body, nil
}

func truncateBody(body []byte) string {
	const maxLen = 300
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}

func logUsage(model string, usage *struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}) {
	if usage == nil {
		telemetry.Info("llm.response", map[string]any{"model": model})
		return
	}
	telemetry.Info("llm.response", map[string]any{
		"model":             model,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
	})
}

var _ llm.Client = (*Client)(nil)
