package analyses

import (
	"fmt"
	"strings"

	"tender-backend/internal/classify"
	"tender-backend/internal/payload"
)

// roleSchemas lists the top-level keys each role analysis must produce.
// The keys mirror the section headings of the role prompts.
var roleSchemas = map[classify.Role][]string{
	classify.RoleReglement: {
		"criteres_selection",
		"delais_importants",
		"modalites_administratives",
		"conditions_particulieres",
		"documents_requis",
		"risques_identifies",
	},
	classify.RoleCCTP: {
		"exigences_techniques",
		"materiaux_methodes",
		"contraintes_specifiques",
		"normes_references",
		"contraintes_environnementales",
		"similitudes_chantiers",
	},
	classify.RoleCCAP: {
		"risques_penalites",
		"delais_critiques",
		"obligations_administratives",
		"conditions_paiement",
		"garanties_assurances",
		"contraintes_logistiques",
	},
	classify.RoleDPGF: {
		"quantites_estimations",
		"detail_prestations",
		"couts_unitaires",
		"repartition_lots",
		"planning_previsionnel",
		"analyse_economique",
	},
	classify.RolePlanning: {
		"historique_edifice",
		"interventions_passees",
		"description_architecturale",
		"elements_proteges",
		"releves_disponibles",
	},
}

// SchemaHint renders the expected output shape for a role, suitable for
// inclusion in the system message.
func SchemaHint(role classify.Role) string {
	keys, ok := roleSchemas[role]
	if !ok {
		return ""
	}
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return fmt.Sprintf("Objet JSON avec les clés de premier niveau : %s. Chaque valeur est un objet ou une liste détaillant la section.", strings.Join(quoted, ", "))
}

// ValidateSchema checks that the parsed payload is a map carrying every
// required top-level key for the role. Extra keys are allowed.
func ValidateSchema(role classify.Role, node *payload.Node) error {
	keys, ok := roleSchemas[role]
	if !ok {
		return fmt.Errorf("no schema for role %q", role)
	}
	if node == nil || node.Kind != payload.KindMap {
		return fmt.Errorf("schema mismatch: top-level value is not an object")
	}
	var missing []string
	for _, k := range keys {
		if node.Get(k) == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema mismatch: missing keys %s", strings.Join(missing, ", "))
	}
	return nil
}
