package memory

import (
	"fmt"
	"strings"
)

// ExportMarkdown renders the memory as a single portable markdown document,
// nine numbered sections in fixed order.
func ExportMarkdown(m TechnicalMemory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Mémoire Technique - %s\n\n", workTypeLabels[m.WorkType])
	generatedAt := m.GeneratedAt
	fmt.Fprintf(&b, "*Générée le %s*\n", generatedAt.Format("02/01/2006 15:04"))

	for i, section := range m.Sections {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, section.Title)
		if section.Available {
			b.WriteString(section.Content)
		} else {
			b.WriteString(unavailablePlaceholder)
		}
		b.WriteString("\n")
	}
	return b.String()
}
