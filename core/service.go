package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	catalog           FieldCatalog
	suggester         *MappingSuggester
	resolver          *RequirementResolver
	validator         *MappingValidator
	sessionStore      SessionStore
	rowProcessor      RowProcessor
	idGenerator       func() string
	clock             func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Catalog           FieldCatalog
	SessionStore      SessionStore
	RowProcessor      RowProcessor
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("imports", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("imports"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.catalog == nil {
		builder.catalog = DefaultRoyaltyCatalog()
	}
	if builder.idGenerator == nil {
		builder.idGenerator = uuid.NewString
	}
	if builder.clock == nil {
		builder.clock = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.sessionStore == nil && builder.repositoryFactory != nil {
		if factory, ok := builder.repositoryFactory.(SessionStoreFactory); ok {
			store, buildErr := factory.BuildSessionStore(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			builder.sessionStore = store
		} else if provider, ok := builder.repositoryFactory.(interface{ SessionStore() SessionStore }); ok {
			builder.sessionStore = provider.SessionStore()
		}
	}
	if builder.sessionStore == nil {
		builder.sessionStore = NewMemorySessionStore()
	}

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		catalog:           builder.catalog,
		suggester: NewMappingSuggester(
			builder.catalog,
			WithMinSimilarity(finalConfig.Suggester.MinSimilarity),
		),
		resolver:     NewRequirementResolver(builder.catalog),
		validator:    NewMappingValidator(builder.catalog),
		sessionStore: builder.sessionStore,
		rowProcessor: builder.rowProcessor,
		idGenerator:  builder.idGenerator,
		clock:        builder.clock,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Catalog() FieldCatalog {
	if s == nil {
		return nil
	}
	return s.catalog
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Catalog:           s.catalog,
		SessionStore:      s.sessionStore,
		RowProcessor:      s.rowProcessor,
	}
}

// ExpectedFields lists the catalog with the requirements that hold before
// anything is mapped. Group-required fields carry a hint instead of the
// required flag.
func (s *Service) ExpectedFields(ctx context.Context) (fields []ExpectedField, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		s.observeOperation(ctx, startedAt, "expected_fields", err, map[string]any{"field_count": len(fields)})
	}()
	if s == nil || s.catalog == nil {
		return nil, s.mapError(fmt.Errorf("core: field catalog is required"))
	}

	resolution := s.resolver.Resolve(Mapping{})
	requiredFor := map[string][]GroupID{}
	groupLabels := map[GroupID]string{}
	for _, group := range s.catalog.Groups() {
		groupLabels[group.ID] = group.Label
		for _, key := range group.RequiredFields {
			requiredFor[key] = append(requiredFor[key], group.ID)
		}
	}

	for _, field := range s.catalog.Fields() {
		requirement := resolution.Fields[field.Key]
		expected := ExpectedField{
			Key:         field.Key,
			Label:       field.Label,
			Description: expectedFieldDescription(field),
			Aliases:     append([]string(nil), field.Aliases...),
			Required:    requirement.Enforced(),
			RequiredFor: append([]GroupID(nil), requiredFor[field.Key]...),
		}
		if requirement.Kind == RequirementPotential {
			expected.Hint = fmt.Sprintf("Required when %s data is mapped", strings.ToLower(groupLabels[requirement.Group]))
		}
		fields = append(fields, expected)
	}
	return fields, nil
}

const describedAliasLimit = 3

func expectedFieldDescription(field CanonicalField) string {
	parts := make([]string, 0, 2)
	if len(field.Aliases) > 0 {
		shown := field.Aliases
		suffix := ""
		if len(shown) > describedAliasLimit {
			shown = shown[:describedAliasLimit]
			suffix = "..."
		}
		parts = append(parts, "Maps to: "+strings.Join(shown, ", ")+suffix)
	}
	if field.Description != "" {
		parts = append(parts, field.Description)
	}
	return strings.Join(parts, " ")
}

// SuggestMapping runs the suggester without opening a session. The preview is
// capped at session.preview_rows.
func (s *Service) SuggestMapping(ctx context.Context, req SuggestMappingRequest) (result SuggestMappingResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"header_count": len(req.RawHeaders)}
	defer func() {
		fields["mapped_count"] = len(result.Mapping)
		s.observeOperation(ctx, startedAt, "suggest_mapping", err, fields)
	}()
	if s == nil || s.suggester == nil {
		return SuggestMappingResult{}, s.mapError(fmt.Errorf("core: suggester is required"))
	}
	if IsEmptyHeaderRow(req.RawHeaders) {
		return SuggestMappingResult{}, EmptyFileError("")
	}
	return SuggestMappingResult{
		Mapping:    s.suggester.Suggest(req.RawHeaders),
		CSVHeaders: append([]string(nil), req.RawHeaders...),
		CSVPreview: s.capPreview(req.PreviewRows),
	}, nil
}

func (s *Service) capPreview(rows [][]string) [][]string {
	limit := len(rows)
	if s != nil && s.config.Session.PreviewRows > 0 && s.config.Session.PreviewRows < limit {
		limit = s.config.Session.PreviewRows
	}
	out := make([][]string, 0, limit)
	for _, row := range rows[:limit] {
		out = append(out, append([]string(nil), row...))
	}
	return out
}

func (s *Service) now() time.Time {
	if s == nil || s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
