package core

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

type fixedStoreFactory struct {
	store  SessionStore
	client any
}

func (f *fixedStoreFactory) BuildSessionStore(client any) (SessionStore, error) {
	f.client = client
	return f.store, nil
}

func TestNewService_DefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.LoggerProvider == nil {
		t.Fatalf("expected default logger provider")
	}
	if deps.ErrorFactory == nil {
		t.Fatalf("expected default error factory")
	}
	if deps.ErrorMapper == nil {
		t.Fatalf("expected default error mapper")
	}
	if deps.ConfigProvider == nil {
		t.Fatalf("expected default config provider")
	}
	if deps.OptionsResolver == nil {
		t.Fatalf("expected default options resolver")
	}
	if deps.Catalog == nil || len(deps.Catalog.Fields()) != 12 {
		t.Fatalf("expected default royalty catalog")
	}
	if _, ok := deps.SessionStore.(*MemorySessionStore); !ok {
		t.Fatalf("expected memory session store by default, got %T", deps.SessionStore)
	}
	cfg := svc.Config()
	if cfg.ServiceName != "imports" {
		t.Fatalf("expected default config service_name=imports, got %q", cfg.ServiceName)
	}
	if cfg.Session.PreviewRows != defaultPreviewRows || cfg.Report.MaxErrors != defaultReportMaxErrors {
		t.Fatalf("expected default preview/report limits, got %#v", cfg)
	}
}

func TestNewService_WithXOverrides(t *testing.T) {
	customLogger := stubLogger{}
	customProvider := stubLoggerProvider{logger: customLogger}
	customFactory := func(message string, category ...goerrors.Category) *goerrors.Error {
		return goerrors.New("custom:"+message, category...)
	}
	sentinel := errors.New("sentinel")
	customMapper := func(error) *goerrors.Error {
		return goerrors.Wrap(sentinel, goerrors.CategoryOperation, "mapped")
	}
	persistenceClient := &struct{ Name string }{Name: "persistence"}
	store := NewMemorySessionStore()
	factory := &fixedStoreFactory{store: store}
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{ServiceName: "resolved"}}
	catalog := exampleCatalog(t)
	processor := &recordingProcessor{}

	svc, err := NewService(Config{ServiceName: "runtime"},
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithErrorFactory(customFactory),
		WithErrorMapper(customMapper),
		WithPersistenceClient(persistenceClient),
		WithRepositoryFactory(factory),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithCatalog(catalog),
		WithRowProcessor(processor),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.Logger != customLogger {
		t.Fatalf("expected custom logger override")
	}
	if resolved := deps.LoggerProvider.GetLogger("imports.override"); resolved != customLogger {
		t.Fatalf("expected logger provider to resolve custom logger")
	}
	if deps.PersistenceClient != persistenceClient {
		t.Fatalf("expected custom persistence client override")
	}
	if deps.RepositoryFactory != factory {
		t.Fatalf("expected custom repository factory override")
	}
	if deps.SessionStore != store || factory.client != persistenceClient {
		t.Fatalf("expected session store built from factory with the persistence client")
	}
	if deps.ConfigProvider != configProvider {
		t.Fatalf("expected custom config provider override")
	}
	if deps.OptionsResolver != optionsResolver {
		t.Fatalf("expected custom options resolver override")
	}
	if deps.Catalog != catalog {
		t.Fatalf("expected custom catalog override")
	}
	if deps.RowProcessor != processor {
		t.Fatalf("expected custom row processor override")
	}
	if got := svc.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected options resolver output config, got %q", got)
	}
}

func TestNewService_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-config",
		"suggester": map[string]any{
			"min_similarity": 0.8,
		},
		"report": map[string]any{
			"max_errors": 10,
		},
	}})

	svc, err := NewService(Config{
		ServiceName: "from-runtime",
		Processing:  ProcessingConfig{Timeout: 2 * time.Second},
	}, WithConfigProvider(provider))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cfg := svc.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if cfg.Suggester.MinSimilarity != 0.8 {
		t.Fatalf("expected config layer similarity, got %v", cfg.Suggester.MinSimilarity)
	}
	if cfg.Report.MaxErrors != 10 {
		t.Fatalf("expected config layer max_errors, got %d", cfg.Report.MaxErrors)
	}
	if cfg.Session.PreviewRows != defaultPreviewRows {
		t.Fatalf("expected default preview rows to survive layering, got %d", cfg.Session.PreviewRows)
	}
	if cfg.Processing.Timeout != 2*time.Second {
		t.Fatalf("expected runtime timeout, got %v", cfg.Processing.Timeout)
	}
}

func TestNewService_RejectsInvalidConfig(t *testing.T) {
	_, err := NewService(Config{Suggester: SuggesterConfig{MinSimilarity: 1.5}})
	if err == nil {
		t.Fatalf("expected invalid similarity to be rejected")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
}
