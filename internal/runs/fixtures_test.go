package runs

import (
	"context"
	"fmt"
	"strings"

	"tender-backend/internal/llm"
)

// Sample tender dossier for the façade restoration of the Saint-Pierre
// church, one document per role.

const fixtureReglement = `RÈGLEMENT DE CONSULTATION
Appel d'offres pour la restauration de la façade de l'église Saint-Pierre

Article 2 - Critères de sélection
- Expérience dans la restauration de monuments historiques (40%)
- Capacité technique et références (30%)
- Prix de l'offre (30%)

Article 3 - Délais
- Date limite de dépôt des offres : 15 mars 2024 à 12h00
- Durée du chantier : 6 mois maximum

Article 4 - Modalités administratives
- Garantie : 5% du montant HT
- Assurance décennale obligatoire
- Cautionnement : 3% du montant HT
`

const fixtureCCTP = `CAHIER DES CLAUSES TECHNIQUES PARTICULIÈRES
Restauration façade église Saint-Pierre

1.1 Matériaux
- Pierre de taille : Pierre de Bourgogne ou équivalent
- Mortier : Chaux hydraulique NHL 3.5

1.3 Contraintes spécifiques
- Protection des vitraux existants
- Accès limité par échafaudage

2. NORMES ET RÉFÉRENCES
- DTU 20.1 - Maçonnerie de pierre
- Norme NF EN 998-2 - Mortiers de maçonnerie

3. CONTRAINTES ENVIRONNEMENTALES
- Gestion des poussières
- Protection de la biodiversité (nichoirs)
- Tri et recyclage des déchets
- Limitation des nuisances sonores
`

const fixtureCCAP = `CAHIER DES CLAUSES ADMINISTRATIVES PARTICULIÈRES

1.1 Retards
- Pénalité de retard : 1/1000 du montant HT par jour
- Résiliation automatique après 30 jours de retard

4. CONDITIONS DE PAIEMENT
- Retenue de garantie : 10%
- Paiement sous 30 jours

5. GARANTIES ET ASSURANCES
- Garantie de parfait achèvement : 1 an
- Assurance décennale : 10 ans
`

const fixtureDPGF = `DÉTAIL QUANTITATIF ET ESTIMATIF

LOT 1 - MAÇONNERIE DE PIERRE
1.1 Démontage pierres existantes m² 150 45,00 € 6 750,00 €
1.3 Remplacement pierres dégradées m² 25 180,00 € 4 500,00 €

LOT 2 - ÉCHAFAUDAGE ET PROTECTION
2.1 Échafaudage façade m² 200 12,00 € 2 400,00 €

TOTAL HT : 26 300,00 €
TVA 20% : 5 260,00 €
TOTAL TTC : 31 560,00 €
`

const fixturePlans = `PLANS ET NOTES HISTORIQUES
Église Saint-Pierre, plan de situation et relevés de façade

Note historique : édifice du XIIe siècle, façade remaniée au XVe siècle,
classé Monument Historique en 1906. Restauration partielle des contreforts
en 1978. Relevé photogrammétrique complet réalisé en 2022.
`

type fixtureDoc struct {
	fileName string
	content  string
}

func fixtureDossier() []fixtureDoc {
	return []fixtureDoc{
		{"01_reglement_consultation.txt", fixtureReglement},
		{"02_CCTP_techniques.txt", fixtureCCTP},
		{"03_CCAP_administratif.txt", fixtureCCAP},
		{"04_DPGF_quantitatif.txt", fixtureDPGF},
		{"05_plans_note_historique.txt", fixturePlans},
	}
}

// rolePayloads answers each role prompt with a valid payload derived from
// the fixture dossier.
var rolePayloads = map[string]string{
	"reglement": `{
		"criteres_selection": {"experience_mh": "40%", "capacite_technique": "30%", "prix": "30%"},
		"delais_importants": {"depot_offres": "15 mars 2024", "duree_chantier": "6 mois"},
		"modalites_administratives": {"garantie": "5% du montant HT", "cautionnement": "3%"},
		"conditions_particulieres": {"site": "monument historique classé"},
		"documents_requis": {"memoire_technique": true},
		"risques_identifies": {"delais": "durée plafonnée à 6 mois"}
	}`,
	"cctp": `{
		"exigences_techniques": {"pierre": "pierre de Bourgogne", "mortier": "chaux NHL 3.5"},
		"materiaux_methodes": {"demontage": "pierre par pierre", "echafaudage": "échafaudage de pied"},
		"contraintes_specifiques": {"vitraux": "protection des vitraux existants"},
		"normes_references": {"dtu": "DTU 20.1"},
		"contraintes_environnementales": {
			"poussieres": "gestion des poussières par arrosage",
			"biodiversite": "protection des nichoirs en façade",
			"dechets": "tri et recyclage des déchets"
		},
		"similitudes_chantiers": {"type": "restauration façade monument historique"}
	}`,
	"ccap": `{
		"risques_penalites": {"retard": "pénalité de 1/1000 du montant HT par jour de retard"},
		"delais_critiques": {"achevement": "30 septembre 2024"},
		"obligations_administratives": {"plan_prevention": true},
		"conditions_paiement": {"retenue de garantie": "10%"},
		"garanties_assurances": {"decennale": "10 ans"},
		"contraintes_logistiques": {"livraisons": "accès au chantier par la place"}
	}`,
	"dpgf": `{
		"quantites_estimations": {"lot_1": "maçonnerie 150 m²", "lot_2": "échafaudage 200 m²"},
		"detail_prestations": {"demontage": "démontage pierres existantes"},
		"couts_unitaires": {"total_ht": 26300.00},
		"repartition_lots": {"lot_1": 20250.00, "lot_2": 3800.00},
		"planning_previsionnel": {"duree": "24 semaines"},
		"analyse_economique": {"poste_principal": "remplacement pierres"}
	}`,
	"planning": `{
		"historique_edifice": {"construction": "XIIe siècle", "classement": "1906"},
		"interventions_passees": {"contreforts": "restauration partielle 1978"},
		"description_architecturale": {"facade": "remaniée au XVe siècle"},
		"elements_proteges": {"classement": "Monument Historique"},
		"releves_disponibles": {"photogrammetrie": "relevé complet 2022"}
	}`,
}

const fixtureRecommendations = `{
	"strategie_reponse": {"points_forts": ["références monuments historiques"]},
	"planning_ressources": {"delais": "6 mois plafonnés"},
	"gestion_risques": {"penalites": "1/1000 par jour"},
	"optimisations": {"echafaudage": "mutualisation des lots"},
	"similitudes_experiences": {"chantiers": ["restauration façade"]}
}`

// dossierLLM routes each completion to a canned response by inspecting the
// schema hint, and answers memory section prompts with plain text.
type dossierLLM struct{}

func (dossierLLM) Complete(ctx context.Context, input llm.CompleteInput) (string, error) {
	_ = ctx
	switch {
	case strings.Contains(input.SchemaHint, "criteres_selection"):
		return rolePayloads["reglement"], nil
	case strings.Contains(input.SchemaHint, "exigences_techniques"):
		return rolePayloads["cctp"], nil
	case strings.Contains(input.SchemaHint, "risques_penalites"):
		return rolePayloads["ccap"], nil
	case strings.Contains(input.SchemaHint, "quantites_estimations"):
		return rolePayloads["dpgf"], nil
	case strings.Contains(input.SchemaHint, "historique_edifice"):
		return rolePayloads["planning"], nil
	case strings.Contains(input.SchemaHint, "strategie_reponse"):
		return fixtureRecommendations, nil
	default:
		return "Contenu rédigé pour la section demandée.", nil
	}
}

func (dossierLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	_ = ctx
	// Deterministic toy embedding so similarity search stays exercised.
	v := make([]float32, 8)
	for i, r := range text {
		v[i%8] += float32(r%13) / 13
	}
	var norm float32
	for _, f := range v {
		norm += f * f
	}
	if norm == 0 {
		return nil, fmt.Errorf("empty embedding input")
	}
	return v, nil
}
