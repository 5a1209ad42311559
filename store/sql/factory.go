package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goliatone/go-imports/core"
	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

type RepositoryFactory struct {
	db     *bun.DB
	cache  repositorycache.CacheService
	logger glog.Logger

	sessionStore *SessionStore
	cachedStore  *CachedSessionStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildSessionStore(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildSessionStore(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// WithCache makes SessionStore return a read-through cached store. It must be
// called before the stores are built.
func (f *RepositoryFactory) WithCache(cacheService repositorycache.CacheService) *RepositoryFactory {
	if f == nil {
		return nil
	}
	f.cache = cacheService
	return f
}

// WithLogger sets the logger handed to the cached store. It must be called
// before the stores are built.
func (f *RepositoryFactory) WithLogger(logger glog.Logger) *RepositoryFactory {
	if f == nil {
		return nil
	}
	f.logger = logger
	return f
}

func (f *RepositoryFactory) BuildSessionStore(persistenceClient any) (core.SessionStore, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.sessionStore == nil {
		if err := f.initStores(); err != nil {
			return nil, err
		}
	}
	return f.SessionStore(), nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) SessionStore() core.SessionStore {
	if f == nil || f.sessionStore == nil {
		return nil
	}
	if f.cachedStore != nil {
		return f.cachedStore
	}
	return f.sessionStore
}

// SQLSessionStore exposes the uncached store for listing and maintenance.
func (f *RepositoryFactory) SQLSessionStore() *SessionStore {
	if f == nil {
		return nil
	}
	return f.sessionStore
}

func (f *RepositoryFactory) initStores() error {
	sessionStore, err := NewSessionStore(f.db)
	if err != nil {
		return err
	}
	f.sessionStore = sessionStore
	if f.cache != nil {
		cached, err := NewCachedSessionStore(sessionStore, f.cache)
		if err != nil {
			return err
		}
		f.cachedStore = cached.WithLogger(f.logger)
	}
	return nil
}

// OpenDB opens a bun database for a postgres or sqlite driver name.
func OpenDB(driver, dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}
	var (
		sqlDriver string
		dialect   schema.Dialect
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pq":
		sqlDriver = "postgres"
		dialect = pgdialect.New()
	case "sqlite", "sqlite3":
		sqlDriver = "sqlite3"
		dialect = sqlitedialect.New()
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
	sqlDB, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, err
	}
	if sqlDriver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}
	return bun.NewDB(sqlDB, dialect), nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
