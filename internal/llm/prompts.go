package llm

import _ "embed"

var (
	//go:embed prompts/reglement.txt
	promptReglement string
	//go:embed prompts/cctp.txt
	promptCCTP string
	//go:embed prompts/ccap.txt
	promptCCAP string
	//go:embed prompts/dpgf.txt
	promptDPGF string
	//go:embed prompts/planning.txt
	promptPlanning string
	//go:embed prompts/recommendations.txt
	promptRecommendations string
)

// RolePrompt returns the analysis prompt template for a document role and
// whether the role was recognized.
func RolePrompt(role string) (string, bool) {
	switch role {
	case "reglement":
		return promptReglement, true
	case "cctp":
		return promptCCTP, true
	case "ccap":
		return promptCCAP, true
	case "dpgf":
		return promptDPGF, true
	case "planning":
		return promptPlanning, true
	default:
		return "", false
	}
}

// RecommendationsPrompt returns the cross-run strategic recommendations template.
func RecommendationsPrompt() string {
	return promptRecommendations
}
