package imports

import (
	"context"
	"testing"

	"github.com/goliatone/go-imports/core"
	importsquery "github.com/goliatone/go-imports/query"
)

func streamingCatalogConfig() core.CatalogConfig {
	return core.CatalogConfig{
		Fields: []core.CatalogFieldConfig{
			{Key: "track", Label: "Track", Aliases: []string{"song", "track_name"}, Required: true},
			{Key: "streams", Label: "Streams", Aliases: []string{"plays"}},
			{Key: "payout", Label: "Payout", Aliases: []string{"earnings"}},
		},
		Groups: []core.CatalogGroupConfig{
			{ID: "streaming", Label: "Streaming", IndicatorFields: []string{"streams"}, RequiredFields: []string{"streams", "payout"}},
		},
	}
}

func TestExtensionHooks_RegisterCatalogPacks(t *testing.T) {
	hooks := NewExtensionHooks()
	if err := hooks.RegisterCatalogConfig("Streaming", streamingCatalogConfig()); err != nil {
		t.Fatalf("register streaming catalog: %v", err)
	}
	if err := hooks.RegisterCatalogPack(CatalogPack{Name: "royalty", Catalog: DefaultRoyaltyCatalog()}); err != nil {
		t.Fatalf("register royalty catalog: %v", err)
	}
	if err := hooks.RegisterCatalogPack(CatalogPack{Name: "streaming", Catalog: DefaultRoyaltyCatalog()}); err == nil {
		t.Fatalf("expected duplicate pack name to be rejected")
	}
	if err := hooks.RegisterCatalogPack(CatalogPack{Name: "empty"}); err == nil {
		t.Fatalf("expected pack without catalog to be rejected")
	}
	if err := hooks.RegisterCatalogConfig("broken", core.CatalogConfig{}); err == nil {
		t.Fatalf("expected invalid catalog config to be rejected")
	}

	packs := hooks.CatalogPacks()
	if len(packs) != 2 || packs[0].Name != "royalty" || packs[1].Name != "streaming" {
		t.Fatalf("expected sorted packs, got %#v", packs)
	}
	catalog, ok := hooks.Catalog(" STREAMING ")
	if !ok || len(catalog.Fields()) != 3 {
		t.Fatalf("expected streaming catalog lookup")
	}
}

func TestExtensionHooks_NewServiceForCatalog(t *testing.T) {
	hooks := NewExtensionHooks()
	if err := hooks.RegisterCatalogConfig("streaming", streamingCatalogConfig()); err != nil {
		t.Fatalf("register streaming catalog: %v", err)
	}
	svc, err := hooks.NewServiceForCatalog("streaming", DefaultConfig())
	if err != nil {
		t.Fatalf("new service for catalog: %v", err)
	}
	suggestion, err := svc.SuggestMapping(context.Background(), SuggestMappingRequest{
		RawHeaders: []string{"Song", "Plays"},
	})
	if err != nil {
		t.Fatalf("suggest mapping: %v", err)
	}
	if suggestion.Mapping["track"] != "Song" || suggestion.Mapping["streams"] != "Plays" {
		t.Fatalf("expected streaming catalog suggestion, got %#v", suggestion.Mapping)
	}
	if _, err := hooks.NewServiceForCatalog("missing", DefaultConfig()); err == nil {
		t.Fatalf("expected unknown catalog to fail")
	}
}

func TestExtensionHooks_BuildFacadesPerPack(t *testing.T) {
	hooks := NewExtensionHooks()
	if err := hooks.RegisterCatalogConfig("streaming", streamingCatalogConfig()); err != nil {
		t.Fatalf("register streaming: %v", err)
	}
	if err := hooks.RegisterCatalogPack(CatalogPack{Name: "royalty", Catalog: DefaultRoyaltyCatalog()}); err != nil {
		t.Fatalf("register royalty: %v", err)
	}

	facades, err := hooks.BuildFacades(DefaultConfig(), WithCatalog(DefaultRoyaltyCatalog()))
	if err != nil {
		t.Fatalf("build facades: %v", err)
	}
	if len(facades) != 2 {
		t.Fatalf("expected a facade per pack, got %d", len(facades))
	}

	ctx := context.Background()
	fields, err := facades["streaming"].Queries().ExpectedFields.Query(ctx, importsquery.ExpectedFieldsMessage{})
	if err != nil {
		t.Fatalf("streaming expected fields: %v", err)
	}
	if len(fields) == 0 || fields[0].Key != "track" {
		t.Fatalf("expected streaming catalog to win over WithCatalog, got %#v", fields)
	}
	royalty, err := facades["royalty"].Queries().ExpectedFields.Query(ctx, importsquery.ExpectedFieldsMessage{})
	if err != nil {
		t.Fatalf("royalty expected fields: %v", err)
	}
	if royalty[0].Key != "title" {
		t.Fatalf("expected royalty catalog, got %#v", royalty[0])
	}

	empty, err := NewExtensionHooks().BuildFacades(DefaultConfig())
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no facades without packs, got %d err=%v", len(empty), err)
	}
}
