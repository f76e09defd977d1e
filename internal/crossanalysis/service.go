package crossanalysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tender-backend/internal/analyses"
	"tender-backend/internal/classify"
	"tender-backend/internal/llm"
	"tender-backend/internal/payload"
	"tender-backend/internal/shared/telemetry"
	"tender-backend/internal/vector"
)

// ErrNoCompletedAnalyses is returned when a run has nothing to synthesize.
var ErrNoCompletedAnalyses = errors.New("run has no completed analyses")

const (
	systemPromptRecommendations = "Tu es un conseiller stratégique pour les réponses aux appels d'offres BTP. Réponds uniquement en JSON. La sortie doit respecter le schéma exactement."

	similarTopK = 5

	// maxRecommendationRunes bounds the merged payload injected into the
	// recommendations prompt.
	maxRecommendationRunes = 16000
)

// SimilarityScope selects the corpus a similarity query runs against.
type SimilarityScope string

const (
	ScopeGlobal SimilarityScope = "global"
	ScopeRole   SimilarityScope = "role"
	ScopeRun    SimilarityScope = "run"
)

// Service produces the run-level synthesis.
type Service struct {
	LLM         llm.Client
	Index       *vector.Index
	Scope       SimilarityScope
	MaxTokens   int
	Temperature float32
}

// Synthesize aggregates all per-document analyses of a run. Failed analyses
// surface as explicitly flagged partial entries, never merged. The result is
// a pure function of its inputs apart from similarity scores, which move as
// the historical corpus grows. Recommendation failures degrade the result,
// except authentication failures which abort the synthesis.
func (s *Service) Synthesize(ctx context.Context, runID string, results []analyses.Analysis) (CrossAnalysis, error) {
	if runID == "" {
		return CrossAnalysis{}, errors.New("runID is required")
	}

	var completed []analyses.Analysis
	cross := CrossAnalysis{RunID: runID}
	for _, a := range results {
		if a.Succeeded() {
			completed = append(completed, a)
			cross.DocumentIDs = append(cross.DocumentIDs, a.DocumentID)
			continue
		}
		cross.Partial = append(cross.Partial, PartialDoc{
			DocumentID: a.DocumentID,
			Role:       a.Role,
			ErrorCode:  a.ErrorCode,
		})
	}
	if len(completed) == 0 {
		return CrossAnalysis{}, ErrNoCompletedAnalyses
	}

	cross.Merged = mergeByRole(completed)

	for _, a := range completed {
		switch a.Role {
		case classify.RoleCCTP:
			cross.Environmental = append(cross.Environmental, scanConcerns(environmentalCategories, a.DocumentID, a.Role, a.Payload)...)
			cross.Logistics = append(cross.Logistics, scanConcerns(logisticsCategories, a.DocumentID, a.Role, a.Payload)...)
		case classify.RoleCCAP:
			cross.Environmental = append(cross.Environmental, scanConcerns(environmentalCategories, a.DocumentID, a.Role, a.Payload)...)
			cross.Logistics = append(cross.Logistics, scanConcerns(logisticsCategories, a.DocumentID, a.Role, a.Payload)...)
			cross.AdministrativeRisks = append(cross.AdministrativeRisks, scanConcerns(administrativeRiskCategories, a.DocumentID, a.Role, a.Payload)...)
		}
	}

	cross.Similar = s.findSimilar(ctx, runID, completed)

	recommendations, err := s.recommend(ctx, cross.Merged, cross.Similar)
	if err != nil {
		if errors.Is(err, llm.ErrAuth) {
			return CrossAnalysis{}, err
		}
		telemetry.Error("crossanalysis.recommendations", map[string]any{
			"run_id": runID,
			"error":  err.Error(),
		})
		cross.RecommendationsAvailable = false
	} else {
		cross.Recommendations = recommendations
		cross.RecommendationsAvailable = true
	}

	cross.GeneratedAt = time.Now().UTC()
	return cross, nil
}

// mergeByRole groups completed payloads under their role key, in role
// priority order.
func mergeByRole(completed []analyses.Analysis) *payload.Node {
	byRole := make(map[classify.Role][]*payload.Node)
	for _, a := range completed {
		byRole[a.Role] = append(byRole[a.Role], a.Payload)
	}
	var entries []payload.Entry
	for _, role := range classify.Roles() {
		nodes, ok := byRole[role]
		if !ok {
			continue
		}
		entries = append(entries, payload.E(string(role), payload.ListOf(nodes...)))
	}
	return payload.Map(entries...)
}

// findSimilar embeds role-tagged excerpts of the run and queries the
// historical corpus. Any failure degrades to no matches.
func (s *Service) findSimilar(ctx context.Context, runID string, completed []analyses.Analysis) []Match {
	if s.Index == nil || s.LLM == nil {
		return nil
	}

	var excerpts []string
	for _, a := range completed {
		text := a.Payload.FlatText()
		if len(text) > 2000 {
			text = text[:2000]
		}
		excerpts = append(excerpts, fmt.Sprintf("[%s] %s", a.Role, text))
	}
	embedding, err := s.LLM.Embed(ctx, strings.Join(excerpts, "\n"))
	if err != nil {
		telemetry.Error("crossanalysis.embed", map[string]any{
			"run_id": runID,
			"error":  err.Error(),
		})
		return nil
	}

	var raw []vector.Match
	switch s.Scope {
	case ScopeRun:
		raw, err = s.Index.Search(ctx, embedding, similarTopK, vector.Filter{RunID: runID})
	case ScopeRole:
		for _, role := range classify.Roles() {
			matches, searchErr := s.Index.Search(ctx, embedding, similarTopK, vector.Filter{Role: string(role), ExcludeRunID: runID})
			if searchErr != nil {
				err = searchErr
				break
			}
			raw = append(raw, matches...)
		}
	default:
		raw, err = s.Index.Search(ctx, embedding, similarTopK, vector.Filter{ExcludeRunID: runID})
	}
	if err != nil {
		telemetry.Error("crossanalysis.search", map[string]any{
			"run_id": runID,
			"error":  err.Error(),
		})
		return nil
	}

	sort.Slice(raw, func(i, j int) bool {
		if raw[i].Score == raw[j].Score {
			return raw[i].Entry.ID < raw[j].Entry.ID
		}
		return raw[i].Score > raw[j].Score
	})
	if len(raw) > similarTopK {
		raw = raw[:similarTopK]
	}

	matches := make([]Match, 0, len(raw))
	for _, m := range raw {
		matches = append(matches, Match{
			RefID:  m.Entry.ID,
			Score:  m.Score,
			Fields: []string{m.Entry.Role, m.Entry.FileName},
		})
	}
	return matches
}

func (s *Service) recommend(ctx context.Context, merged *payload.Node, similar []Match) (*payload.Node, error) {
	if s.LLM == nil {
		return nil, errors.New("missing llm client")
	}

	summary := merged.Encode()
	if runes := []rune(summary); len(runes) > maxRecommendationRunes {
		summary = string(runes[:maxRecommendationRunes])
	}
	if len(similar) > 0 {
		var refs []string
		for _, m := range similar {
			refs = append(refs, fmt.Sprintf("- %s (score %.2f)", m.RefID, m.Score))
		}
		summary += "\n\nCHANTIERS SIMILAIRES :\n" + strings.Join(refs, "\n")
	}

	prompt := strings.NewReplacer("{{ANALYSES}}", summary).Replace(llm.RecommendationsPrompt())
	raw, err := s.LLM.Complete(ctx, llm.CompleteInput{
		System:      systemPromptRecommendations,
		Prompt:      prompt,
		SchemaHint:  `Objet JSON avec les clés "strategie_reponse", "planning_ressources", "gestion_risques", "optimisations", "similitudes_experiences".`,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	node, err := payload.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("recommendations parse: %w", err)
	}
	return node, nil
}
