package memory

import "time"

// SectionKind identifies one of the nine fixed sections of a technical
// memory.
type SectionKind string

const (
	SectionCompanyPresentation      SectionKind = "company_presentation"
	SectionProjectUnderstanding     SectionKind = "project_understanding"
	SectionMethodology              SectionKind = "methodology"
	SectionPlanning                 SectionKind = "planning"
	SectionResources                SectionKind = "resources"
	SectionQualitySafety            SectionKind = "quality_safety"
	SectionEnvironmentalCommitments SectionKind = "environmental_commitments"
	SectionGuaranteesInsurance      SectionKind = "guarantees_insurance"
	SectionExecutiveSummary         SectionKind = "executive_summary"
)

// SectionOrder is the fixed presentation order. The executive summary comes
// last because it is synthesized from the other eight.
var SectionOrder = [9]SectionKind{
	SectionCompanyPresentation,
	SectionProjectUnderstanding,
	SectionMethodology,
	SectionPlanning,
	SectionResources,
	SectionQualitySafety,
	SectionEnvironmentalCommitments,
	SectionGuaranteesInsurance,
	SectionExecutiveSummary,
}

// Section is one generated part of the memory. A failed generation keeps its
// slot with Available false.
type Section struct {
	Kind      SectionKind `json:"kind"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Available bool        `json:"available"`
	Error     string      `json:"error,omitempty"`
}

// WorkType is the detected category of the tendered works.
type WorkType string

const (
	WorkFacadeRestoration       WorkType = "restauration_facade"
	WorkInteriorRenovation      WorkType = "renovation_interieur"
	WorkStructuralConsolidation WorkType = "consolidation_structure"
	WorkGeneric                 WorkType = "generique"
)

// TechnicalMemory is the generated response document for one run.
type TechnicalMemory struct {
	RunID       string     `json:"runId"`
	WorkType    WorkType   `json:"workType"`
	Sections    [9]Section `json:"sections"`
	Markdown    string     `json:"markdown"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

// Complete reports whether every section generated successfully.
func (m TechnicalMemory) Complete() bool {
	for _, s := range m.Sections {
		if !s.Available {
			return false
		}
	}
	return true
}
