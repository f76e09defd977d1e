package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tender-backend/internal/classify"
	"tender-backend/internal/company"
	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/llm"
	"tender-backend/internal/shared/metrics"
	"tender-backend/internal/shared/telemetry"
)

const (
	systemPromptMemory = "Tu es un rédacteur de mémoires techniques pour les réponses aux appels d'offres BTP. Rédige en français professionnel, en paragraphes clairs, sans markdown."

	// unavailablePlaceholder renders in place of a section whose generation
	// failed.
	unavailablePlaceholder = "Section indisponible — à régénérer."

	// maxSectionContextRunes bounds the cross-analysis excerpt fed to each
	// section prompt.
	maxSectionContextRunes = 10000
)

// Service generates technical memories from a run's cross-analysis.
type Service struct {
	LLM         llm.Client
	MaxTokens   int
	Temperature float32
}

// Generate produces the nine-section technical memory. Sections are
// generated independently; a failed section keeps its slot with an explicit
// placeholder. The executive summary is synthesized last from the other
// eight. An authentication failure aborts generation immediately instead of
// filling the remaining sections with placeholders.
func (s *Service) Generate(ctx context.Context, cross crossanalysis.CrossAnalysis, profile company.Profile) (TechnicalMemory, error) {
	if s.LLM == nil {
		return TechnicalMemory{}, errors.New("missing llm client")
	}
	if cross.RunID == "" {
		return TechnicalMemory{}, errors.New("cross analysis has no run")
	}

	profile = profile.OrDefault()
	workType := inferWorkType(cross)

	memory := TechnicalMemory{
		RunID:    cross.RunID,
		WorkType: workType,
	}

	projectContext := buildProjectContext(cross)
	companyContext := buildCompanyContext(profile)

	for i, kind := range SectionOrder {
		if kind == SectionExecutiveSummary {
			continue
		}
		section, err := s.generateSection(ctx, cross.RunID, kind, workType, projectContext, companyContext)
		if err != nil {
			return TechnicalMemory{}, err
		}
		memory.Sections[i] = section
	}

	summaryIdx := len(SectionOrder) - 1
	summary, err := s.generateSummary(ctx, cross.RunID, memory.Sections[:summaryIdx])
	if err != nil {
		return TechnicalMemory{}, err
	}
	memory.Sections[summaryIdx] = summary

	memory.GeneratedAt = time.Now().UTC()
	memory.Markdown = ExportMarkdown(memory)
	metrics.IncMemoryGenerated()
	telemetry.Info("memory.generated", map[string]any{
		"run_id":    cross.RunID,
		"work_type": string(workType),
		"complete":  memory.Complete(),
	})
	return memory, nil
}

func (s *Service) generateSection(ctx context.Context, runID string, kind SectionKind, workType WorkType, projectContext, companyContext string) (Section, error) {
	tmpl := sectionTemplates[kind]
	section := Section{Kind: kind, Title: tmpl.title}

	var b strings.Builder
	fmt.Fprintf(&b, "Génère la section %q d'une mémoire technique.\n\n", tmpl.title)
	if tmpl.companyFed {
		b.WriteString("INFORMATIONS ENTREPRISE :\n")
		b.WriteString(companyContext)
	} else {
		b.WriteString("ANALYSE DU PROJET :\n")
		b.WriteString(projectContext)
	}
	b.WriteString("\n\nLa section doit couvrir :\n")
	b.WriteString(tmpl.instructions)
	if kind == SectionMethodology || kind == SectionPlanning {
		b.WriteString("\n\n")
		b.WriteString(workTypeEmphasis[workType])
	}

	content, err := s.LLM.Complete(ctx, llm.CompleteInput{
		System:      systemPromptMemory,
		Prompt:      b.String(),
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	if err != nil || strings.TrimSpace(content) == "" {
		if errors.Is(err, llm.ErrAuth) {
			return Section{}, fmt.Errorf("section %s: %w", kind, err)
		}
		if err == nil {
			err = errors.New("empty section content")
		}
		telemetry.Error("memory.section", map[string]any{
			"run_id":  runID,
			"section": string(kind),
			"error":   err.Error(),
		})
		section.Content = unavailablePlaceholder
		section.Error = err.Error()
		return section, nil
	}
	section.Content = strings.TrimSpace(content)
	section.Available = true
	return section, nil
}

// generateSummary synthesizes the executive summary from the eight produced
// sections, unavailable ones named as such.
func (s *Service) generateSummary(ctx context.Context, runID string, produced []Section) (Section, error) {
	var b strings.Builder
	b.WriteString("Génère le résumé exécutif de cette mémoire technique à partir de ses sections :\n")
	for _, sec := range produced {
		fmt.Fprintf(&b, "\n## %s\n", sec.Title)
		if sec.Available {
			b.WriteString(sec.Content)
		} else {
			b.WriteString("(section indisponible)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nLe résumé doit couvrir :\n")
	b.WriteString(sectionTemplates[SectionExecutiveSummary].instructions)

	tmpl := sectionTemplates[SectionExecutiveSummary]
	section := Section{Kind: SectionExecutiveSummary, Title: tmpl.title}
	content, err := s.LLM.Complete(ctx, llm.CompleteInput{
		System:      systemPromptMemory,
		Prompt:      b.String(),
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	if err != nil || strings.TrimSpace(content) == "" {
		if errors.Is(err, llm.ErrAuth) {
			return Section{}, fmt.Errorf("section %s: %w", SectionExecutiveSummary, err)
		}
		if err == nil {
			err = errors.New("empty section content")
		}
		telemetry.Error("memory.section", map[string]any{
			"run_id":  runID,
			"section": string(SectionExecutiveSummary),
			"error":   err.Error(),
		})
		section.Content = unavailablePlaceholder
		section.Error = err.Error()
		return section, nil
	}
	section.Content = strings.TrimSpace(content)
	section.Available = true
	return section, nil
}

// inferWorkType scans the merged technical payload for work-type signals.
// Two keyword hits select a type; otherwise the generic template applies.
func inferWorkType(cross crossanalysis.CrossAnalysis) WorkType {
	if cross.Merged == nil {
		return WorkGeneric
	}
	text := classify.Fold(cross.Merged.FlatText())
	best := WorkGeneric
	bestHits := 1
	for _, sig := range workTypeSignals {
		hits := 0
		for _, kw := range sig.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = sig.workType
			bestHits = hits
		}
	}
	return best
}

func buildProjectContext(cross crossanalysis.CrossAnalysis) string {
	var b strings.Builder
	if cross.Merged != nil {
		b.WriteString(cross.Merged.Encode())
	}
	appendConcerns := func(label string, hits []crossanalysis.ConcernHit) {
		if len(hits) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n\n%s :\n", label)
		for _, h := range hits {
			fmt.Fprintf(&b, "- %s (%s)\n", h.Category, h.Keyword)
		}
	}
	appendConcerns("CONTRAINTES ENVIRONNEMENTALES", cross.Environmental)
	appendConcerns("CONTRAINTES LOGISTIQUES", cross.Logistics)
	appendConcerns("RISQUES ADMINISTRATIFS", cross.AdministrativeRisks)
	if cross.RecommendationsAvailable && cross.Recommendations != nil {
		b.WriteString("\n\nRECOMMANDATIONS :\n")
		b.WriteString(cross.Recommendations.Encode())
	}

	text := b.String()
	if runes := []rune(text); len(runes) > maxSectionContextRunes {
		text = string(runes[:maxSectionContextRunes])
	}
	return text
}

func buildCompanyContext(profile company.Profile) string {
	data, err := json.Marshal(profile)
	if err != nil {
		return profile.Name
	}
	return string(data)
}
