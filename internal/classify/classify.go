package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Role is the functional category of a tender document.
type Role string

const (
	RoleReglement Role = "reglement"
	RoleCCTP      Role = "cctp"
	RoleCCAP      Role = "ccap"
	RoleDPGF      Role = "dpgf"
	RolePlanning  Role = "planning"
	RoleUnknown   Role = "unknown"
)

// Source records which pass produced the classification.
type Source string

const (
	SourceName    Source = "name"
	SourceContent Source = "content"
	SourceNone    Source = "none"
)

// contentScanLimit bounds the content pass to the leading runes of the
// document.
const contentScanLimit = 4000

// minContentHits is the weighted hit count below which the content pass
// resolves to unknown.
const minContentHits = 2

// rolePriority breaks ties when a filename matches several keyword sets.
var rolePriority = []Role{RoleReglement, RoleCCTP, RoleCCAP, RoleDPGF, RolePlanning}

// Roles returns the analyzable roles in priority order.
func Roles() []Role {
	return append([]Role(nil), rolePriority...)
}

// Label returns the human-readable French name of the role.
func (r Role) Label() string {
	switch r {
	case RoleReglement:
		return "Règlement de consultation"
	case RoleCCTP:
		return "Cahier des Clauses Techniques Particulières"
	case RoleCCAP:
		return "Cahier des Clauses Administratives Particulières"
	case RoleDPGF:
		return "Détail Quantitatif et Estimatif"
	case RolePlanning:
		return "Plans et notes historiques"
	default:
		return "Autre document"
	}
}

// Valid reports whether r is one of the known roles, unknown included.
func (r Role) Valid() bool {
	switch r {
	case RoleReglement, RoleCCTP, RoleCCAP, RoleDPGF, RolePlanning, RoleUnknown:
		return true
	}
	return false
}

// Classify maps a document to a role. Pass 1 matches the filename against
// per-role keyword sets; pass 2 scans the head of the extracted text for
// weighted keyword hits. It is a pure function and never fails; the worst
// case is (RoleUnknown, SourceNone).
func Classify(fileName, text string) (Role, Source) {
	name := Fold(fileName)
	for _, role := range rolePriority {
		for _, kw := range nameKeywords[role] {
			if containsToken(name, kw) {
				return role, SourceName
			}
		}
	}

	if strings.TrimSpace(text) == "" {
		return RoleUnknown, SourceNone
	}
	head := text
	if r := []rune(head); len(r) > contentScanLimit {
		head = string(r[:contentScanLimit])
	}
	head = Fold(head)

	best := RoleUnknown
	bestScore := 0
	for _, role := range rolePriority {
		score := 0
		for _, kw := range contentKeywords[role] {
			score += kw.weight * strings.Count(head, kw.term)
		}
		if score > bestScore {
			best, bestScore = role, score
		}
	}
	if bestScore < minContentHits {
		return RoleUnknown, SourceNone
	}
	return best, SourceContent
}

var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and strips diacritics so keyword matching is robust to
// accent variants ("pénalités" vs "penalites").
func Fold(s string) string {
	out, _, err := transform.String(foldTransform, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// containsToken matches kw against name on token boundaries for very short
// keywords, and by substring otherwise. "rc" must not match "marche".
func containsToken(name, kw string) bool {
	if len(kw) > 3 {
		return strings.Contains(name, kw)
	}
	isSep := func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	for _, tok := range strings.FieldsFunc(name, isSep) {
		if tok == kw {
			return true
		}
	}
	return false
}
