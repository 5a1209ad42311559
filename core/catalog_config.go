package core

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
)

type CatalogFieldConfig struct {
	Key         string   `koanf:"key" mapstructure:"key"`
	Label       string   `koanf:"label" mapstructure:"label"`
	Description string   `koanf:"description" mapstructure:"description"`
	Aliases     []string `koanf:"aliases" mapstructure:"aliases"`
	Required    bool     `koanf:"required" mapstructure:"required"`
}

type CatalogGroupConfig struct {
	ID              string   `koanf:"id" mapstructure:"id"`
	Label           string   `koanf:"label" mapstructure:"label"`
	IndicatorFields []string `koanf:"indicator_fields" mapstructure:"indicator_fields"`
	RequiredFields  []string `koanf:"required_fields" mapstructure:"required_fields"`
}

// CatalogConfig is the declarative form of a FieldCatalog. New optional data
// groups are added here, the resolver iterates them generically.
type CatalogConfig struct {
	Fields []CatalogFieldConfig `koanf:"fields" mapstructure:"fields"`
	Groups []CatalogGroupConfig `koanf:"groups" mapstructure:"groups"`
}

func (c CatalogConfig) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("core: catalog fields are required")
	}
	for idx, field := range c.Fields {
		if strings.TrimSpace(field.Key) == "" {
			return fmt.Errorf("core: catalog field %d key is required", idx)
		}
	}
	for idx, group := range c.Groups {
		if strings.TrimSpace(group.ID) == "" {
			return fmt.Errorf("core: catalog group %d id is required", idx)
		}
	}
	return nil
}

// LoadCatalogConfig decodes a raw configuration tree, e.g. a parsed YAML or
// JSON document, into a catalog definition.
func LoadCatalogConfig(raw map[string]any) (CatalogConfig, error) {
	return cfgx.Build[CatalogConfig](raw,
		cfgx.WithValidator[CatalogConfig]((*CatalogConfig).Validate),
	)
}

func NewFieldCatalogFromConfig(cfg CatalogConfig) (*StaticCatalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fields := make([]CanonicalField, 0, len(cfg.Fields))
	for _, field := range cfg.Fields {
		fields = append(fields, CanonicalField{
			Key:         field.Key,
			Label:       field.Label,
			Description: field.Description,
			Aliases:     append([]string(nil), field.Aliases...),
			Required:    field.Required,
		})
	}
	groups := make([]GroupDefinition, 0, len(cfg.Groups))
	for _, group := range cfg.Groups {
		groups = append(groups, GroupDefinition{
			ID:              GroupID(group.ID),
			Label:           group.Label,
			IndicatorFields: append([]string(nil), group.IndicatorFields...),
			RequiredFields:  append([]string(nil), group.RequiredFields...),
		})
	}
	return NewFieldCatalog(fields, groups)
}

// CatalogConfigFrom renders an existing catalog back into its declarative form.
func CatalogConfigFrom(catalog FieldCatalog) CatalogConfig {
	if catalog == nil {
		return CatalogConfig{}
	}
	cfg := CatalogConfig{}
	for _, field := range catalog.Fields() {
		cfg.Fields = append(cfg.Fields, CatalogFieldConfig{
			Key:         field.Key,
			Label:       field.Label,
			Description: field.Description,
			Aliases:     field.Aliases,
			Required:    field.Required,
		})
	}
	for _, group := range catalog.Groups() {
		cfg.Groups = append(cfg.Groups, CatalogGroupConfig{
			ID:              string(group.ID),
			Label:           group.Label,
			IndicatorFields: group.IndicatorFields,
			RequiredFields:  group.RequiredFields,
		})
	}
	return cfg
}
