package imports

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-imports/core"
)

// CatalogPack is a named field catalog, usually one per reporting platform.
type CatalogPack struct {
	Name    string
	Catalog core.FieldCatalog
}

// ExtensionHooks lets hosts register platform catalogs before building
// services.
type ExtensionHooks struct {
	mu           sync.RWMutex
	catalogPacks map[string]CatalogPack
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{catalogPacks: map[string]CatalogPack{}}
}

func (h *ExtensionHooks) RegisterCatalogPack(pack CatalogPack) error {
	if h == nil {
		return fmt.Errorf("imports: extension hooks are nil")
	}
	name := strings.TrimSpace(strings.ToLower(pack.Name))
	if name == "" {
		return fmt.Errorf("imports: catalog pack name is required")
	}
	if pack.Catalog == nil || len(pack.Catalog.Fields()) == 0 {
		return fmt.Errorf("imports: catalog pack %q has no fields", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.catalogPacks[name]; exists {
		return fmt.Errorf("imports: catalog pack %q already registered", name)
	}
	h.catalogPacks[name] = CatalogPack{Name: name, Catalog: pack.Catalog}
	return nil
}

// RegisterCatalogConfig builds a catalog from its config form and registers
// it under name.
func (h *ExtensionHooks) RegisterCatalogConfig(name string, cfg core.CatalogConfig) error {
	catalog, err := core.NewFieldCatalogFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("imports: catalog pack %q: %w", strings.TrimSpace(name), err)
	}
	return h.RegisterCatalogPack(CatalogPack{Name: name, Catalog: catalog})
}

func (h *ExtensionHooks) Catalog(name string) (core.FieldCatalog, bool) {
	if h == nil {
		return nil, false
	}
	name = strings.TrimSpace(strings.ToLower(name))
	h.mu.RLock()
	defer h.mu.RUnlock()
	pack, ok := h.catalogPacks[name]
	if !ok {
		return nil, false
	}
	return pack.Catalog, true
}

func (h *ExtensionHooks) CatalogPacks() []CatalogPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.catalogPacks))
	for name := range h.catalogPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CatalogPack, 0, len(names))
	for _, name := range names {
		out = append(out, h.catalogPacks[name])
	}
	return out
}

// NewServiceForCatalog builds a service bound to the named catalog pack.
func (h *ExtensionHooks) NewServiceForCatalog(name string, cfg Config, opts ...Option) (*Service, error) {
	catalog, ok := h.Catalog(name)
	if !ok {
		return nil, fmt.Errorf("imports: catalog pack %q is not registered", strings.TrimSpace(name))
	}
	withCatalog := append(append([]Option{}, opts...), core.WithCatalog(catalog))
	return core.NewService(cfg, withCatalog...)
}

// BuildFacades builds one service and facade per registered catalog pack,
// keyed by pack name. opts apply to every service; the pack's catalog wins
// over any WithCatalog among them.
func (h *ExtensionHooks) BuildFacades(cfg Config, opts ...Option) (map[string]*Facade, error) {
	packs := h.CatalogPacks()
	out := make(map[string]*Facade, len(packs))
	for _, pack := range packs {
		svc, err := h.NewServiceForCatalog(pack.Name, cfg, opts...)
		if err != nil {
			return nil, err
		}
		facade, err := NewFacade(svc)
		if err != nil {
			return nil, fmt.Errorf("imports: catalog pack %q: %w", pack.Name, err)
		}
		out[pack.Name] = facade
	}
	return out, nil
}
