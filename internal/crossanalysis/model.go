package crossanalysis

import (
	"time"

	"tender-backend/internal/classify"
	"tender-backend/internal/payload"
)

// CrossAnalysis is the run-level synthesis across all per-document analyses.
type CrossAnalysis struct {
	RunID       string        `json:"runId"`
	DocumentIDs []string      `json:"documentIds"`
	Partial     []PartialDoc  `json:"partial,omitempty"`
	Merged      *payload.Node `json:"merged"`

	Environmental       []ConcernHit `json:"environmental,omitempty"`
	Logistics           []ConcernHit `json:"logistics,omitempty"`
	AdministrativeRisks []ConcernHit `json:"administrativeRisks,omitempty"`

	Similar []Match `json:"similar,omitempty"`

	Recommendations          *payload.Node `json:"recommendations,omitempty"`
	RecommendationsAvailable bool          `json:"recommendationsAvailable"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// PartialDoc flags a document whose analysis failed and therefore
// contributed nothing to the merged payload.
type PartialDoc struct {
	DocumentID string        `json:"documentId"`
	Role       classify.Role `json:"role"`
	ErrorCode  string        `json:"errorCode,omitempty"`
}

// ConcernHit records one predefined concern category detected in a
// document's analysis payload.
type ConcernHit struct {
	Category   string        `json:"category"`
	Keyword    string        `json:"keyword"`
	DocumentID string        `json:"documentId"`
	Role       classify.Role `json:"role"`
}

// Match is one comparable historical project from the similarity corpus.
type Match struct {
	RefID  string   `json:"refId"`
	Score  float64  `json:"score"`
	Fields []string `json:"fields,omitempty"`
}
