package analyses

import (
	"fmt"
	"strings"

	"tender-backend/internal/classify"
	"tender-backend/internal/llm"
)

const (
	systemPromptAnalysis = "Tu es un moteur d'analyse de dossiers d'appel d'offres BTP. Réponds uniquement en JSON. Pas de markdown. N'omets jamais de clé. La sortie doit respecter le schéma exactement."
	systemPromptFixJSON  = "Tu es un outil de réparation JSON. Retourne uniquement du JSON valide respectant le schéma exactement."
)

// maxPromptRunes bounds the document text injected into a role prompt. Long
// documents keep the head and tail, where tender documents concentrate
// identification and totals, and drop the middle.
const maxPromptRunes = 24000

// buildRolePrompt renders the role template with the (possibly truncated)
// document text. The second return reports whether truncation happened.
func buildRolePrompt(role classify.Role, text string) (string, bool, error) {
	template, ok := llm.RolePrompt(string(role))
	if !ok {
		return "", false, fmt.Errorf("no prompt template for role %q", role)
	}
	content, truncated := truncateHeadTail(text, maxPromptRunes)
	replacer := strings.NewReplacer("{{CONTENT}}", content)
	return replacer.Replace(template), truncated, nil
}

func buildFixPrompt(role classify.Role, raw string) string {
	return fmt.Sprintf("La réponse précédente pour ce document %s ne respecte pas le schéma. Corrige ce JSON pour qu'il respecte le schéma exactement. Retourne uniquement le JSON :\n%s", strings.ToUpper(string(role)), raw)
}

// truncateHeadTail keeps the leading two thirds and trailing third of the
// limit when text exceeds it.
func truncateHeadTail(text string, limit int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	head := limit * 2 / 3
	tail := limit - head
	return string(runes[:head]) + "\n[... contenu tronqué ...]\n" + string(runes[len(runes)-tail:]), true
}
