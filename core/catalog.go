package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GroupID tags an optional data group such as sales or impressions.
type GroupID string

const (
	GroupSales       GroupID = "sales"
	GroupImpressions GroupID = "impressions"
)

// CanonicalField is a named slot in the schema downstream storage expects.
type CanonicalField struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Aliases     []string  `json:"aliases,omitempty"`
	Required    bool      `json:"required"`
	Groups      []GroupID `json:"groups,omitempty"`
}

// GroupDefinition is one row of the requirement rule table: mapping any
// indicator field activates the group, which makes its required fields
// mandatory.
type GroupDefinition struct {
	ID              GroupID  `json:"id"`
	Label           string   `json:"label"`
	IndicatorFields []string `json:"indicator_fields"`
	RequiredFields  []string `json:"required_fields"`
}

// FieldCatalog is the read-only registry of canonical fields and optional
// groups. Field order drives every deterministic tie-break.
type FieldCatalog interface {
	Fields() []CanonicalField
	Groups() []GroupDefinition
	Field(key string) (CanonicalField, bool)
	Index(key string) int
	BaseRequired() []string
}

type StaticCatalog struct {
	fields []CanonicalField
	groups []GroupDefinition
	index  map[string]int
}

func NewFieldCatalog(fields []CanonicalField, groups []GroupDefinition) (*StaticCatalog, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("core: catalog requires at least one field")
	}
	catalog := &StaticCatalog{
		fields: make([]CanonicalField, 0, len(fields)),
		groups: make([]GroupDefinition, 0, len(groups)),
		index:  make(map[string]int, len(fields)),
	}
	for _, field := range fields {
		field.Key = strings.TrimSpace(field.Key)
		if field.Key == "" {
			return nil, fmt.Errorf("core: catalog field key is required")
		}
		if _, exists := catalog.index[field.Key]; exists {
			return nil, fmt.Errorf("core: duplicate catalog field %q", field.Key)
		}
		field.Label = strings.TrimSpace(field.Label)
		if field.Label == "" {
			field.Label = defaultFieldLabel(field.Key)
		}
		field.Description = strings.TrimSpace(field.Description)
		field.Aliases = trimStrings(field.Aliases)
		field.Groups = nil
		catalog.index[field.Key] = len(catalog.fields)
		catalog.fields = append(catalog.fields, field)
	}

	seenGroups := make(map[GroupID]struct{}, len(groups))
	for _, group := range groups {
		group.ID = GroupID(strings.TrimSpace(strings.ToLower(string(group.ID))))
		if group.ID == "" {
			return nil, fmt.Errorf("core: catalog group id is required")
		}
		if _, exists := seenGroups[group.ID]; exists {
			return nil, fmt.Errorf("core: duplicate catalog group %q", group.ID)
		}
		seenGroups[group.ID] = struct{}{}
		group.Label = strings.TrimSpace(group.Label)
		if group.Label == "" {
			group.Label = defaultFieldLabel(string(group.ID))
		}
		group.IndicatorFields = dedupeStrings(trimStrings(group.IndicatorFields))
		group.RequiredFields = dedupeStrings(trimStrings(group.RequiredFields))
		if len(group.IndicatorFields) == 0 {
			return nil, fmt.Errorf("core: group %q requires at least one indicator field", group.ID)
		}
		for _, key := range append(append([]string(nil), group.IndicatorFields...), group.RequiredFields...) {
			idx, ok := catalog.index[key]
			if !ok {
				return nil, fmt.Errorf("core: group %q references unknown field %q", group.ID, key)
			}
			if !containsGroup(catalog.fields[idx].Groups, group.ID) {
				catalog.fields[idx].Groups = append(catalog.fields[idx].Groups, group.ID)
			}
		}
		catalog.groups = append(catalog.groups, group)
	}
	return catalog, nil
}

func (c *StaticCatalog) Fields() []CanonicalField {
	if c == nil {
		return nil
	}
	out := make([]CanonicalField, len(c.fields))
	for i, field := range c.fields {
		out[i] = cloneCanonicalField(field)
	}
	return out
}

func (c *StaticCatalog) Groups() []GroupDefinition {
	if c == nil {
		return nil
	}
	out := make([]GroupDefinition, len(c.groups))
	for i, group := range c.groups {
		out[i] = GroupDefinition{
			ID:              group.ID,
			Label:           group.Label,
			IndicatorFields: append([]string(nil), group.IndicatorFields...),
			RequiredFields:  append([]string(nil), group.RequiredFields...),
		}
	}
	return out
}

func (c *StaticCatalog) Field(key string) (CanonicalField, bool) {
	if c == nil {
		return CanonicalField{}, false
	}
	idx, ok := c.index[strings.TrimSpace(key)]
	if !ok {
		return CanonicalField{}, false
	}
	return cloneCanonicalField(c.fields[idx]), true
}

// Index returns the catalog position of key, or -1.
func (c *StaticCatalog) Index(key string) int {
	if c == nil {
		return -1
	}
	idx, ok := c.index[strings.TrimSpace(key)]
	if !ok {
		return -1
	}
	return idx
}

func (c *StaticCatalog) BaseRequired() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.fields))
	for _, field := range c.fields {
		if field.Required {
			out = append(out, field.Key)
		}
	}
	return out
}

// DefaultRoyaltyCatalog returns the royalty/sales schema used by the
// analytics storage: title is always required, sales and impression columns
// pull in their own mandatory fields.
func DefaultRoyaltyCatalog() *StaticCatalog {
	catalog, err := NewFieldCatalog(defaultRoyaltyFields(), defaultRoyaltyGroups())
	if err != nil {
		panic(err)
	}
	return catalog
}

func defaultRoyaltyFields() []CanonicalField {
	return []CanonicalField{
		{
			Key:      "title",
			Label:    "Title",
			Aliases:  []string{"name", "program_name", "title name", "product_name", "product name"},
			Required: true,
		},
		{Key: "impressions", Label: "Impressions", Aliases: []string{"impression", "views", "view_count", "view count"}},
		{Key: "ecpm", Label: "eCPM", Aliases: []string{"cpm", "revenue_per_mille", "rpm", "earnings_per_mille"}},
		{Key: "unit_price", Label: "Unit Price", Aliases: []string{"price", "cost", "amount"}},
		{
			Key:         "unit_price_currency",
			Label:       "Unit Price Currency",
			Description: "Optional - defaults to USD.",
			Aliases:     []string{"currency", "price_currency"},
		},
		{Key: "quantity", Label: "Quantity", Aliases: []string{"qty", "count", "units", "number"}},
		{Key: "consumption_type", Label: "Consumption Type", Aliases: []string{"type", "purchase_type"}},
		{Key: "is_refund", Label: "Is Refund", Aliases: []string{"refund", "refunded"}},
		{Key: "royalty_amount", Label: "Royalty Amount", Aliases: []string{"royalty", "earnings", "revenue"}},
		{
			Key:         "royalty_currency",
			Label:       "Royalty Currency",
			Description: "Optional - defaults to USD.",
			Aliases:     []string{"earnings_currency"},
		},
		{Key: "period_start", Label: "Period Start", Aliases: []string{"start_date", "from_date", "start"}},
		{Key: "period_end", Label: "Period End", Aliases: []string{"end_date", "to_date", "end"}},
	}
}

func defaultRoyaltyGroups() []GroupDefinition {
	return []GroupDefinition{
		{
			ID:              GroupSales,
			Label:           "Sales",
			IndicatorFields: []string{"unit_price", "quantity", "royalty_amount"},
			RequiredFields:  []string{"unit_price", "quantity", "royalty_amount", "period_start", "period_end"},
		},
		{
			ID:              GroupImpressions,
			Label:           "Impressions",
			IndicatorFields: []string{"impressions", "ecpm"},
			RequiredFields:  []string{"impressions", "period_start", "period_end"},
		},
	}
}

func cloneCanonicalField(field CanonicalField) CanonicalField {
	field.Aliases = append([]string(nil), field.Aliases...)
	field.Groups = append([]GroupID(nil), field.Groups...)
	return field
}

// defaultFieldLabel title-cases each word of a key. A Caser keeps state, so
// each call builds its own.
func defaultFieldLabel(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	caser := cases.Title(language.Und, cases.NoLower)
	for i, part := range parts {
		parts[i] = caser.String(part)
	}
	return strings.Join(parts, " ")
}

func containsGroup(groups []GroupID, id GroupID) bool {
	for _, candidate := range groups {
		if candidate == id {
			return true
		}
	}
	return false
}

func trimStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
