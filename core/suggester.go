package core

import (
	"strings"

	"github.com/agext/levenshtein"
)

type MappingSuggesterOption func(*MappingSuggester)

// WithMinSimilarity enables the fuzzy fallback pass. A field without an exact
// alias match claims the unused header whose normalized similarity is the
// highest at or above threshold. Zero disables the pass.
func WithMinSimilarity(threshold float64) MappingSuggesterOption {
	return func(s *MappingSuggester) {
		if s == nil || threshold < 0 || threshold > 1 {
			return
		}
		s.minSimilarity = threshold
	}
}

type MappingSuggester struct {
	catalog       FieldCatalog
	minSimilarity float64
}

func NewMappingSuggester(catalog FieldCatalog, opts ...MappingSuggesterOption) *MappingSuggester {
	s := &MappingSuggester{catalog: catalog}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Suggest proposes a mapping for rawHeaders. Fields are visited in catalog
// order and each claims the first unused header whose normalized form belongs
// to the field's alias set; a claimed header leaves the pool. The result only
// depends on rawHeaders and the catalog.
func (s *MappingSuggester) Suggest(rawHeaders []string) Mapping {
	mapping := Mapping{}
	if s == nil || s.catalog == nil || len(rawHeaders) == 0 {
		return mapping
	}

	normalized := make([]string, len(rawHeaders))
	for i, header := range rawHeaders {
		normalized[i] = NormalizeHeader(header)
	}
	claimed := make(map[string]struct{}, len(rawHeaders))
	available := func(i int) bool {
		if normalized[i] == "" {
			return false
		}
		_, taken := claimed[rawHeaders[i]]
		return !taken
	}

	for _, field := range s.catalog.Fields() {
		aliases := fieldAliasSet(field)
		match := -1
		for i := range rawHeaders {
			if !available(i) {
				continue
			}
			if _, ok := aliases[normalized[i]]; ok {
				match = i
				break
			}
		}
		if match < 0 && s.minSimilarity > 0 {
			match = s.closestHeader(aliases, normalized, available)
		}
		if match < 0 {
			continue
		}
		mapping[field.Key] = rawHeaders[match]
		claimed[rawHeaders[match]] = struct{}{}
	}
	return mapping
}

func (s *MappingSuggester) closestHeader(
	aliases map[string]struct{},
	normalized []string,
	available func(int) bool,
) int {
	best := -1
	bestScore := 0.0
	for i, header := range normalized {
		if !available(i) {
			continue
		}
		for alias := range aliases {
			score := levenshtein.Similarity(header, alias, nil)
			if score < s.minSimilarity {
				continue
			}
			if score > bestScore {
				best = i
				bestScore = score
			}
		}
	}
	return best
}

// IsEmptyHeaderRow reports whether a file carries no usable columns.
func IsEmptyHeaderRow(rawHeaders []string) bool {
	for _, header := range rawHeaders {
		if strings.TrimSpace(header) != "" {
			return false
		}
	}
	return true
}
