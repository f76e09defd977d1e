package crossanalysis

import (
	"strings"

	"tender-backend/internal/classify"
	"tender-backend/internal/payload"
)

// concernCategory groups the keyword signals of one predefined concern.
// Keywords are pre-folded: lowercase, no diacritics.
type concernCategory struct {
	name     string
	keywords []string
}

var environmentalCategories = []concernCategory{
	{name: "gestion_nuisances", keywords: []string{"nuisance", "sonore", "bruit", "poussiere", "vibration", "olfactive"}},
	{name: "protection_biodiversite", keywords: []string{"biodiversite", "espece protegee", "nichoir", "chiroptere", "faune", "habitat", "nidification"}},
	{name: "gestion_dechets", keywords: []string{"dechet", "tri selectif", "recyclage", "evacuation", "tracabilite"}},
	{name: "economie_circulaire", keywords: []string{"economie circulaire", "reemploi", "reutilisation", "approvisionnement local"}},
}

var logisticsCategories = []concernCategory{
	{name: "acces_chantier", keywords: []string{"acces au chantier", "voie d'acces", "circulation", "emprise", "echafaudage"}},
	{name: "stationnement_livraisons", keywords: []string{"livraison", "stationnement", "approvisionnement", "flux"}},
	{name: "horaires_travail", keywords: []string{"horaire", "plage horaire", "travail de nuit", "jours ouvres"}},
	{name: "voisinage", keywords: []string{"riverain", "voisinage", "habitation", "etablissement sensible"}},
}

var administrativeRiskCategories = []concernCategory{
	{name: "penalites", keywords: []string{"penalite", "retard", "1/1000", "resiliation", "indemnite"}},
	{name: "garanties_financieres", keywords: []string{"retenue de garantie", "cautionnement", "garantie de bonne fin"}},
	{name: "assurances", keywords: []string{"decennale", "responsabilite civile", "parfait achevement"}},
}

// scanConcerns flattens the analysis payload and reports each category whose
// keywords appear. One hit per category per document, keyed by the first
// matching keyword.
func scanConcerns(categories []concernCategory, documentID string, role classify.Role, node *payload.Node) []ConcernHit {
	if node == nil {
		return nil
	}
	text := classify.Fold(node.FlatText())
	var hits []ConcernHit
	for _, cat := range categories {
		for _, kw := range cat.keywords {
			if containsFolded(text, kw) {
				hits = append(hits, ConcernHit{
					Category:   cat.name,
					Keyword:    kw,
					DocumentID: documentID,
					Role:       role,
				})
				break
			}
		}
	}
	return hits
}

func containsFolded(foldedText, foldedKeyword string) bool {
	return strings.Contains(foldedText, foldedKeyword)
}
