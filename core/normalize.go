package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader reduces a column name to its comparable form: diacritics
// stripped, case folded, and every rune that is not a letter or digit removed.
// "Unit-Price ", "unit_price" and "Ûnit Price" all normalize to "unitprice".
func NormalizeHeader(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	decomposed := norm.NFD.String(cases.Fold().String(header))

	var out strings.Builder
	out.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// fieldAliasSet returns the normalized names a raw header may take for field.
func fieldAliasSet(field CanonicalField) map[string]struct{} {
	set := make(map[string]struct{}, len(field.Aliases)+2)
	for _, name := range append([]string{field.Key, field.Label}, field.Aliases...) {
		normalized := NormalizeHeader(name)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	return set
}
