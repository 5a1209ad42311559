package imports

import "github.com/goliatone/go-imports/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type FieldCatalog = core.FieldCatalog
type CanonicalField = core.CanonicalField
type GroupDefinition = core.GroupDefinition
type CatalogConfig = core.CatalogConfig
type Mapping = core.Mapping
type Session = core.Session
type SessionStatus = core.SessionStatus
type SessionStore = core.SessionStore
type ImportReport = core.ImportReport
type RowOutcome = core.RowOutcome
type RowProcessor = core.RowProcessor
type RowProcessorFunc = core.RowProcessorFunc
type ImportJob = core.ImportJob
type ValidationError = core.ValidationError

type SuggestMappingRequest = core.SuggestMappingRequest
type OpenSessionRequest = core.OpenSessionRequest
type ReplaceMappingRequest = core.ReplaceMappingRequest
type SetFieldMappingRequest = core.SetFieldMappingRequest
type ConfirmMappingRequest = core.ConfirmMappingRequest

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithCatalog           = core.WithCatalog
	WithSessionStore      = core.WithSessionStore
	WithRowProcessor      = core.WithRowProcessor
	WithIDGenerator       = core.WithIDGenerator
	WithClock             = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func DefaultRoyaltyCatalog() FieldCatalog {
	return core.DefaultRoyaltyCatalog()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
