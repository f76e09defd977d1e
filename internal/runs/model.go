package runs

import (
	"time"

	"tender-backend/internal/classify"
	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/memory"
)

// Run is one complete analysis session over a set of uploaded documents.
type Run struct {
	ID            string                       `json:"id"`
	Documents     []Document                   `json:"documents"`
	CrossAnalysis *crossanalysis.CrossAnalysis `json:"crossAnalysis,omitempty"`
	Memory        *memory.TechnicalMemory      `json:"memory,omitempty"`
	CreatedAt     time.Time                    `json:"createdAt"`
	LastAccessAt  time.Time                    `json:"lastAccessAt"`
}

// Document is one classified upload within a run. Role is the natural sort
// key for presentation, creation order for storage.
type Document struct {
	ID        string          `json:"id"`
	RunID     string          `json:"runId"`
	FileName  string          `json:"fileName"`
	Role      classify.Role   `json:"role"`
	Source    classify.Source `json:"source"`
	Text      string          `json:"-"`
	Tables    [][]string      `json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Analyzable reports whether the document can be fed to the role analyzer.
func (d Document) Analyzable() bool {
	return d.Role != classify.RoleUnknown && d.Text != ""
}
