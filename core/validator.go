package core

import (
	"fmt"
	"strings"
)

type ValidationErrorKind string

const (
	ValidationMissingRequiredField      ValidationErrorKind = "missing_required_field"
	ValidationDuplicateColumnAssignment ValidationErrorKind = "duplicate_column_assignment"
	ValidationUnknownColumnReference    ValidationErrorKind = "unknown_column_reference"
	ValidationEmptyMappedColumn         ValidationErrorKind = "empty_mapped_column"
)

// ValidationJoinSeparator joins messages for clients that only show a string.
// Field labels and headers may contain it, so the joined form is display only.
const ValidationJoinSeparator = "; "

type ValidationError struct {
	Kind      ValidationErrorKind `json:"kind"`
	FieldKey  string              `json:"field_key,omitempty"`
	FieldKeys []string            `json:"field_keys,omitempty"`
	Header    string              `json:"header,omitempty"`
	Group     GroupID             `json:"group,omitempty"`
	Message   string              `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Message
}

func (e ValidationError) identity() string {
	return strings.Join([]string{
		string(e.Kind),
		e.FieldKey,
		strings.Join(e.FieldKeys, ","),
		e.Header,
	}, "\x00")
}

func JoinValidationMessages(issues []ValidationError) string {
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	return strings.Join(messages, ValidationJoinSeparator)
}

type MappingValidator struct {
	catalog FieldCatalog
}

func NewMappingValidator(catalog FieldCatalog) *MappingValidator {
	return &MappingValidator{catalog: catalog}
}

// Validate runs every check and returns all violations: missing required
// fields, then headers claimed by several fields, then headers the file does
// not have. An empty result is the only valid outcome.
func (v *MappingValidator) Validate(mapping Mapping, required RequirementSet, rawHeaders []string) []ValidationError {
	var issues []ValidationError
	seen := map[string]struct{}{}
	emit := func(issue ValidationError) {
		id := issue.identity()
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		issues = append(issues, issue)
	}

	for _, issue := range v.missingRequired(mapping, required) {
		emit(issue)
	}
	for _, issue := range v.duplicateAssignments(mapping) {
		emit(issue)
	}
	for _, issue := range v.unknownColumns(mapping, rawHeaders) {
		emit(issue)
	}
	return issues
}

func (v *MappingValidator) missingRequired(mapping Mapping, required RequirementSet) []ValidationError {
	resolution := NewRequirementResolver(v.catalog).Resolve(mapping)
	keys := required.Keys()
	sortByCatalog(keys, v.catalog)
	var issues []ValidationError
	for _, key := range keys {
		if mapping.IsMapped(key) {
			continue
		}
		requirement := resolution.Fields[key]
		issue := ValidationError{
			Kind:     ValidationMissingRequiredField,
			FieldKey: key,
		}
		label := v.fieldLabel(key)
		if requirement.Kind == RequirementActive {
			issue.Group = requirement.Group
			groupLabel := v.groupLabel(requirement.Group)
			issue.Message = fmt.Sprintf(
				"%s data detected but '%s' is not mapped - required for %s records",
				groupLabel,
				label,
				strings.ToLower(groupLabel),
			)
		} else {
			issue.Message = fmt.Sprintf("%s field is required - please map a column to '%s'", label, label)
		}
		issues = append(issues, issue)
	}
	return issues
}

func (v *MappingValidator) duplicateAssignments(mapping Mapping) []ValidationError {
	byHeader := map[string][]string{}
	var headers []string
	for _, key := range mapping.orderedKeys(v.catalog) {
		header, ok := mapping.Header(key)
		if !ok {
			continue
		}
		if _, exists := byHeader[header]; !exists {
			headers = append(headers, header)
		}
		byHeader[header] = append(byHeader[header], key)
	}

	var issues []ValidationError
	for _, header := range headers {
		keys := byHeader[header]
		if len(keys) < 2 {
			continue
		}
		labels := make([]string, len(keys))
		for i, key := range keys {
			labels[i] = "'" + v.fieldLabel(key) + "'"
		}
		issues = append(issues, ValidationError{
			Kind:      ValidationDuplicateColumnAssignment,
			FieldKeys: append([]string(nil), keys...),
			Header:    header,
			Message: fmt.Sprintf(
				"Column '%s' is mapped to more than one field: %s",
				header,
				strings.Join(labels, ", "),
			),
		})
	}
	return issues
}

func (v *MappingValidator) unknownColumns(mapping Mapping, rawHeaders []string) []ValidationError {
	known := make(map[string]struct{}, len(rawHeaders))
	for _, header := range rawHeaders {
		known[header] = struct{}{}
	}
	var issues []ValidationError
	for _, key := range mapping.orderedKeys(v.catalog) {
		header, ok := mapping.Header(key)
		if !ok {
			continue
		}
		if _, exists := known[header]; exists {
			continue
		}
		issues = append(issues, ValidationError{
			Kind:     ValidationUnknownColumnReference,
			FieldKey: key,
			Header:   header,
			Message: fmt.Sprintf(
				"Mapped column '%s' for '%s' not found in file",
				header,
				v.fieldLabel(key),
			),
		})
	}
	return issues
}

// PreviewWarnings flags mapped columns that are blank in every preview row.
// Warnings never block confirmation.
func (v *MappingValidator) PreviewWarnings(mapping Mapping, rawHeaders []string, previewRows [][]string) []ValidationError {
	if len(previewRows) == 0 {
		return nil
	}
	position := make(map[string]int, len(rawHeaders))
	for i, header := range rawHeaders {
		if _, exists := position[header]; !exists {
			position[header] = i
		}
	}
	var warnings []ValidationError
	for _, key := range mapping.orderedKeys(v.catalog) {
		header, ok := mapping.Header(key)
		if !ok {
			continue
		}
		column, exists := position[header]
		if !exists {
			continue
		}
		hasData := false
		for _, row := range previewRows {
			if column < len(row) && strings.TrimSpace(row[column]) != "" {
				hasData = true
				break
			}
		}
		if hasData {
			continue
		}
		warnings = append(warnings, ValidationError{
			Kind:     ValidationEmptyMappedColumn,
			FieldKey: key,
			Header:   header,
			Message: fmt.Sprintf(
				"Column '%s' mapped to '%s' appears to be empty",
				header,
				v.fieldLabel(key),
			),
		})
	}
	return warnings
}

func (v *MappingValidator) fieldLabel(key string) string {
	if v != nil && v.catalog != nil {
		if field, ok := v.catalog.Field(key); ok {
			return field.Label
		}
	}
	return defaultFieldLabel(key)
}

func (v *MappingValidator) groupLabel(id GroupID) string {
	if v != nil && v.catalog != nil {
		for _, group := range v.catalog.Groups() {
			if group.ID == id {
				return group.Label
			}
		}
	}
	return defaultFieldLabel(string(id))
}
