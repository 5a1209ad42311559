package core

import (
	"sort"
	"strings"
)

// Mapping assigns a raw header to canonical field keys. A key that is absent
// or holds a blank header is unmapped. Nothing stops two keys from pointing at
// the same header; the validator reports that.
type Mapping map[string]string

func (m Mapping) Header(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	header, ok := m[key]
	if !ok || strings.TrimSpace(header) == "" {
		return "", false
	}
	return header, true
}

func (m Mapping) IsMapped(key string) bool {
	_, ok := m.Header(key)
	return ok
}

func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for key, header := range m {
		out[key] = header
	}
	return out
}

// Compact drops unmapped keys and trims key whitespace. Header values are kept
// verbatim because they must match the file's raw header text.
func (m Mapping) Compact() Mapping {
	out := make(Mapping, len(m))
	for key, header := range m {
		key = strings.TrimSpace(key)
		if key == "" || strings.TrimSpace(header) == "" {
			continue
		}
		out[key] = header
	}
	return out
}

// orderedKeys lists the mapping's keys in catalog order; keys the catalog does
// not know sort after it alphabetically.
func (m Mapping) orderedKeys(catalog FieldCatalog) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sortByCatalog(keys, catalog)
	return keys
}

func sortByCatalog(keys []string, catalog FieldCatalog) {
	position := func(key string) int {
		if catalog == nil {
			return -1
		}
		return catalog.Index(key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		left, right := position(keys[i]), position(keys[j])
		switch {
		case left >= 0 && right >= 0:
			return left < right
		case left >= 0:
			return true
		case right >= 0:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}
