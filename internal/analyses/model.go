package analyses

import (
	"time"

	"tender-backend/internal/classify"
	"tender-backend/internal/payload"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis is the structured result of one role-specific analysis pass over
// one classified document. A retry replaces the prior result; the store keeps
// only the latest attempt.
type Analysis struct {
	ID           string        `json:"id"`
	RunID        string        `json:"runId"`
	DocumentID   string        `json:"documentId"`
	Role         classify.Role `json:"role"`
	Status       string        `json:"status"`
	Attempt      int           `json:"attempt"`
	Payload      *payload.Node `json:"payload,omitempty"`
	Trace        []string      `json:"trace,omitempty"`
	ErrorCode    string        `json:"errorCode,omitempty"`
	ErrorMessage *string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	StartedAt    *time.Time    `json:"startedAt,omitempty"`
	CompletedAt  *time.Time    `json:"completedAt,omitempty"`
}

// Succeeded reports whether this is a current successful result.
func (a Analysis) Succeeded() bool {
	return a.Status == StatusCompleted && a.Payload != nil
}
