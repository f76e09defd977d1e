package memory

// workTypeSignals maps folded keyword signals to a work type. Scanned over
// the merged technical payload; first type reaching two hits wins, ties
// resolve in declaration order.
var workTypeSignals = []struct {
	workType WorkType
	keywords []string
}{
	{WorkFacadeRestoration, []string{"facade", "pierre de taille", "echafaudage", "vitraux", "ravalement", "joints"}},
	{WorkInteriorRenovation, []string{"interieur", "peinture", "conservation", "acces limite", "decor", "boiseries"}},
	{WorkStructuralConsolidation, []string{"structure", "consolidation", "renforcement", "etaiement", "fissure", "stabilite"}},
}

// workTypeLabels gives the French display name used in the export header.
var workTypeLabels = map[WorkType]string{
	WorkFacadeRestoration:       "Restauration de façade",
	WorkInteriorRenovation:      "Rénovation intérieure",
	WorkStructuralConsolidation: "Consolidation de structure",
	WorkGeneric:                 "Projet de restauration",
}

// workTypeEmphasis adds per-type instructions to the methodology and
// planning prompts.
var workTypeEmphasis = map[WorkType]string{
	WorkFacadeRestoration:       "Insiste sur les échafaudages, la taille de pierre, le traitement des joints et la protection des vitraux.",
	WorkInteriorRenovation:      "Insiste sur la conservation des décors existants, la gestion des accès limités et la protection des éléments en place.",
	WorkStructuralConsolidation: "Insiste sur le diagnostic structurel, l'étaiement provisoire et les contrôles de stabilité.",
	WorkGeneric:                 "Adapte la méthodologie aux spécificités relevées dans l'analyse du dossier.",
}

// sectionTemplate drives the per-section prompt.
type sectionTemplate struct {
	title        string
	instructions string
	companyFed   bool
}

var sectionTemplates = map[SectionKind]sectionTemplate{
	SectionCompanyPresentation: {
		title:      "Présentation de l'entreprise",
		companyFed: true,
		instructions: `- Présentation générale de l'entreprise
- Expérience et références
- Certifications et qualifications
- Équipe et compétences
- Valeurs et engagement qualité`,
	},
	SectionProjectUnderstanding: {
		title: "Compréhension du projet",
		instructions: `- Contexte et enjeux du projet
- Contraintes identifiées
- Objectifs techniques
- Risques principaux
- Opportunités d'optimisation`,
	},
	SectionMethodology: {
		title: "Méthodologie de travail",
		instructions: `- Approche générale
- Phases de travail détaillées
- Techniques et matériaux
- Contrôles qualité
- Gestion des imprévus`,
	},
	SectionPlanning: {
		title: "Planning détaillé",
		instructions: `- Phases principales du chantier
- Jalons et livrables
- Délais critiques
- Marges de sécurité`,
	},
	SectionResources: {
		title: "Moyens humains et matériels",
		instructions: `- Équipe et responsabilités
- Matériel et équipements
- Logistique d'approvisionnement
- Coordination et communication`,
	},
	SectionQualitySafety: {
		title: "Qualité et sécurité",
		instructions: `- Mesures de sécurité
- Plan de prévention
- Contrôles et essais
- Formation et sensibilisation`,
	},
	SectionEnvironmentalCommitments: {
		title: "Engagements environnementaux",
		instructions: `- Protection de l'environnement
- Gestion des déchets
- Limitation des nuisances
- Protection de la biodiversité`,
	},
	SectionGuaranteesInsurance: {
		title:      "Garanties et assurances",
		companyFed: true,
		instructions: `- Garanties contractuelles
- Assurances obligatoires
- Garantie de parfait achèvement
- Garantie décennale`,
	},
	SectionExecutiveSummary: {
		title: "Résumé exécutif",
		instructions: `- Points clés du projet
- Approche proposée
- Avantages concurrentiels
- Engagements
- Conclusion`,
	},
}
