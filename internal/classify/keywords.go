package classify

// Keyword sets are stored pre-folded (lowercase, no diacritics); Classify
// folds its inputs before matching.

var nameKeywords = map[Role][]string{
	RoleReglement: {"reglement", "consultation", "rc"},
	RoleCCTP:      {"cctp", "technique", "techniques"},
	RoleCCAP:      {"ccap", "administratif", "administratives"},
	RoleDPGF:      {"dpgf", "quantitatif", "estimatif", "quantite"},
	RolePlanning:  {"plan", "plans", "historique", "note"},
}

type weightedKeyword struct {
	term   string
	weight int
}

var contentKeywords = map[Role][]weightedKeyword{
	RoleReglement: {
		{"criteres de selection", 3},
		{"reglement de consultation", 3},
		{"attribution", 2},
		{"modalites", 1},
		{"depot des offres", 2},
	},
	RoleCCTP: {
		{"clauses techniques", 3},
		{"exigences techniques", 3},
		{"materiaux", 2},
		{"methodes", 1},
		{"normes", 1},
	},
	RoleCCAP: {
		{"clauses administratives", 3},
		{"penalites", 2},
		{"delais", 1},
		{"obligations administratives", 3},
		{"retenue de garantie", 2},
	},
	RoleDPGF: {
		{"quantitatif", 3},
		{"estimatif", 3},
		{"quantites", 2},
		{"couts unitaires", 2},
		{"prix unitaires", 2},
		{"total ht", 2},
	},
	RolePlanning: {
		{"plan de situation", 3},
		{"note historique", 3},
		{"historique", 1},
		{"releve", 1},
	},
}
