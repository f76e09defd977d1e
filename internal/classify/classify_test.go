package classify

import (
	"strings"
	"testing"
)

func TestClassifyByFileName(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
		want     Role
	}{
		{"reglement", "01_reglement_consultation.pdf", RoleReglement},
		{"rc token", "RC_eglise.pdf", RoleReglement},
		{"cctp", "02_CCTP_techniques.pdf", RoleCCTP},
		{"ccap", "03_CCAP_administratif.pdf", RoleCCAP},
		{"dpgf", "04_DPGF_quantitatif.xlsx", RoleDPGF},
		{"plans", "05_plans_historique.pdf", RolePlanning},
		{"accented", "pièces_administratives.pdf", RoleCCAP},
		{"no match", "document.pdf", RoleUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			role, source := Classify(tc.fileName, "")
			if role != tc.want {
				t.Fatalf("Classify(%q) role = %q, want %q", tc.fileName, role, tc.want)
			}
			if tc.want != RoleUnknown && source != SourceName {
				t.Fatalf("Classify(%q) source = %q, want %q", tc.fileName, source, SourceName)
			}
		})
	}
}

func TestClassifyByContent(t *testing.T) {
	text := "Les critères de sélection et les modalités d'attribution sont définis ci-après."
	role, source := Classify("document.pdf", text)
	if role != RoleReglement {
		t.Fatalf("role = %q, want %q", role, RoleReglement)
	}
	if source != SourceContent {
		t.Fatalf("source = %q, want %q", source, SourceContent)
	}
}

// Accented French text roughly doubles the byte length of its rune count,
// so the scan window must be counted in runes to keep keywords near the
// window's end visible.
func TestClassifyContentScansRunesNotBytes(t *testing.T) {
	padding := strings.Repeat("é", 3900)
	text := padding + " Les critères de sélection et les modalités d'attribution sont définis ci-après."
	role, source := Classify("document.pdf", text)
	if role != RoleReglement || source != SourceContent {
		t.Fatalf("got (%q, %q), want (%q, %q)", role, source, RoleReglement, SourceContent)
	}
}

func TestClassifyContentBelowThreshold(t *testing.T) {
	role, source := Classify("document.pdf", "delais")
	if role != RoleUnknown || source != SourceNone {
		t.Fatalf("got (%q, %q), want (%q, %q)", role, source, RoleUnknown, SourceNone)
	}
}

// A filename matching both the reglement and cctp keyword sets resolves by
// priority to reglement.
func TestClassifyPriorityTieBreak(t *testing.T) {
	role, _ := Classify("reglement_technique.pdf", "")
	if role != RoleReglement {
		t.Fatalf("role = %q, want %q", role, RoleReglement)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	fileName := "04_DPGF_quantitatif.xlsx"
	text := "quantités estimées, coûts unitaires"
	firstRole, firstSource := Classify(fileName, text)
	for i := 0; i < 10; i++ {
		role, source := Classify(fileName, text)
		if role != firstRole || source != firstSource {
			t.Fatalf("iteration %d: got (%q, %q), want (%q, %q)", i, role, source, firstRole, firstSource)
		}
	}
}

func TestFold(t *testing.T) {
	if got := Fold("Pénalités DÉTAIL Œuvre"); got != "penalites detail œuvre" && got != "penalites detail oeuvre" {
		t.Fatalf("Fold = %q", got)
	}
	if got := Fold("quantité"); got != "quantite" {
		t.Fatalf("Fold(quantité) = %q", got)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleReglement, RoleCCTP, RoleCCAP, RoleDPGF, RolePlanning, RoleUnknown} {
		if !r.Valid() {
			t.Errorf("Role %q should be valid", r)
		}
	}
	if Role("resume").Valid() {
		t.Error("unexpected valid role")
	}
}
