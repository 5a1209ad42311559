package core

// RequirementKind tags why a field is, or could become, mandatory.
type RequirementKind string

const (
	RequirementNone         RequirementKind = "none"
	RequirementBaseRequired RequirementKind = "base_required"
	RequirementActive       RequirementKind = "active"
	RequirementPotential    RequirementKind = "potential"
)

// FieldRequirement is the per-field outcome of a resolution. Group is set for
// the active and potential variants.
type FieldRequirement struct {
	Kind  RequirementKind `json:"kind"`
	Group GroupID         `json:"group,omitempty"`
}

func (r FieldRequirement) Enforced() bool {
	return r.Kind == RequirementBaseRequired || r.Kind == RequirementActive
}

// RequirementSet holds the keys that must be mapped, kept in catalog order.
type RequirementSet struct {
	keys  []string
	index map[string]struct{}
}

func NewRequirementSet(keys ...string) RequirementSet {
	set := RequirementSet{index: make(map[string]struct{}, len(keys))}
	for _, key := range keys {
		set.add(key)
	}
	return set
}

func (s *RequirementSet) add(key string) {
	if s.index == nil {
		s.index = map[string]struct{}{}
	}
	if _, exists := s.index[key]; exists {
		return
	}
	s.index[key] = struct{}{}
	s.keys = append(s.keys, key)
}

func (s RequirementSet) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

func (s RequirementSet) Keys() []string {
	return append([]string(nil), s.keys...)
}

func (s RequirementSet) Len() int {
	return len(s.keys)
}

// Resolution is everything derived from one mapping snapshot.
type Resolution struct {
	Required     RequirementSet
	ActiveGroups []GroupID
	// Potential lists fields an inactive group would make mandatory once one
	// of its indicators is mapped. Advisory only.
	Potential map[string]GroupID
	Fields    map[string]FieldRequirement
}

type RequirementResolver struct {
	catalog FieldCatalog
}

func NewRequirementResolver(catalog FieldCatalog) *RequirementResolver {
	return &RequirementResolver{catalog: catalog}
}

// Resolve recomputes the requirement set from scratch. Base-required fields
// come first; each group with any mapped indicator adds its required fields.
// Union only ever grows, so edit order cannot change the result.
func (r *RequirementResolver) Resolve(mapping Mapping) Resolution {
	resolution := Resolution{
		Potential: map[string]GroupID{},
		Fields:    map[string]FieldRequirement{},
	}
	if r == nil || r.catalog == nil {
		return resolution
	}

	required := map[string]struct{}{}
	for _, key := range r.catalog.BaseRequired() {
		required[key] = struct{}{}
		resolution.Fields[key] = FieldRequirement{Kind: RequirementBaseRequired}
	}

	var inactive []GroupDefinition
	for _, group := range r.catalog.Groups() {
		if !groupActive(group, mapping) {
			inactive = append(inactive, group)
			continue
		}
		resolution.ActiveGroups = append(resolution.ActiveGroups, group.ID)
		for _, key := range group.RequiredFields {
			required[key] = struct{}{}
			if _, seen := resolution.Fields[key]; !seen {
				resolution.Fields[key] = FieldRequirement{Kind: RequirementActive, Group: group.ID}
			}
		}
	}

	for _, group := range inactive {
		for _, key := range group.RequiredFields {
			if _, enforced := required[key]; enforced {
				continue
			}
			if _, seen := resolution.Potential[key]; seen {
				continue
			}
			resolution.Potential[key] = group.ID
			resolution.Fields[key] = FieldRequirement{Kind: RequirementPotential, Group: group.ID}
		}
	}

	keys := make([]string, 0, len(required))
	for _, field := range r.catalog.Fields() {
		if _, ok := required[field.Key]; ok {
			keys = append(keys, field.Key)
		}
		if _, ok := resolution.Fields[field.Key]; !ok {
			resolution.Fields[field.Key] = FieldRequirement{Kind: RequirementNone}
		}
	}
	resolution.Required = NewRequirementSet(keys...)
	return resolution
}

// Classify returns the tagged requirement of a single field.
func (r *RequirementResolver) Classify(mapping Mapping, key string) FieldRequirement {
	requirement, ok := r.Resolve(mapping).Fields[key]
	if !ok {
		return FieldRequirement{Kind: RequirementNone}
	}
	return requirement
}

func groupActive(group GroupDefinition, mapping Mapping) bool {
	for _, key := range group.IndicatorFields {
		if mapping.IsMapped(key) {
			return true
		}
	}
	return false
}
