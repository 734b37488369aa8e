package entities

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Corporate suffixes stripped during name normalization. Checked against
// the end of the already-lowercased, punctuation-collapsed name, longest
// first.
var nameSuffixes = []string{
	"national association",
	"corporation",
	"incorporated",
	"company",
	"bancorp",
	"corp",
	"and company",
	"and co",
	"co",
	"inc",
	"n a",
	"na",
	"fsb",
	"ssb",
	"sa",
}

var nameFolder = cases.Fold()

// NormalizeName canonicalizes an institution or person name for identity
// comparison: case folded, diacritics stripped, punctuation removed,
// whitespace collapsed, and common corporate suffixes stripped.
func NormalizeName(name string) string {
	// NFD decomposition splits accented letters into base letter plus
	// combining marks, so "Générale" and "Generale" normalize alike.
	folded := norm.NFD.String(nameFolder.String(name))

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true
	for _, r := range folded {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining marks are dropped outright, not treated as
			// separators.
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case r == '&':
			if !lastSpace {
				b.WriteByte(' ')
			}
			b.WriteString("and")
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	normalized := strings.TrimSpace(b.String())

	// Strip suffixes repeatedly: "X Bank Corp N.A." -> "x bank".
	for stripped := true; stripped; {
		stripped = false
		for _, suffix := range nameSuffixes {
			if normalized == suffix {
				continue
			}
			if strings.HasSuffix(normalized, " "+suffix) {
				normalized = strings.TrimSpace(strings.TrimSuffix(normalized, " "+suffix))
				stripped = true
			}
		}
	}

	return normalized
}
