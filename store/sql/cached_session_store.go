package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-imports/core"
	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const sessionCacheKeyPrefix = "go-imports::import_session::v1"

// CachedSessionStore serves Get from a read-through cache and drops the
// cached entry after every write, successful or not. A failed drop is logged
// and never masks the base store result.
type CachedSessionStore struct {
	base   core.SessionStore
	cache  repositorycache.CacheService
	logger glog.Logger
}

func NewCachedSessionStore(base core.SessionStore, cacheService repositorycache.CacheService) (*CachedSessionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base session store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: session cache service is required")
	}
	return &CachedSessionStore{base: base, cache: cacheService, logger: glog.Nop()}, nil
}

// WithLogger sets the logger used to report cache invalidation failures.
func (s *CachedSessionStore) WithLogger(logger glog.Logger) *CachedSessionStore {
	if s != nil && logger != nil {
		s.logger = logger
	}
	return s
}

// SessionCacheKey returns go-imports::import_session::v1::<file_id> with the
// file id URL-path escaped.
func SessionCacheKey(fileID string) (string, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return "", fmt.Errorf("sqlstore: file id is required")
	}
	return sessionCacheKeyPrefix + "::" + url.PathEscape(fileID), nil
}

func (s *CachedSessionStore) Create(ctx context.Context, session core.Session) (core.Session, error) {
	if err := s.ready(); err != nil {
		return core.Session{}, err
	}
	created, err := s.base.Create(ctx, session)
	s.invalidate(ctx, session.FileID)
	return created, err
}

func (s *CachedSessionStore) Get(ctx context.Context, fileID string) (core.Session, error) {
	if err := s.ready(); err != nil {
		return core.Session{}, err
	}
	cacheKey, err := SessionCacheKey(fileID)
	if err != nil {
		return core.Session{}, err
	}
	fileID = strings.TrimSpace(fileID)
	session, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Session, error) {
		fetched, fetchErr := s.base.Get(ctx, fileID)
		if fetchErr != nil {
			return core.Session{}, fetchErr
		}
		return fetched.Clone(), nil
	})
	if err != nil {
		return core.Session{}, err
	}
	return session.Clone(), nil
}

func (s *CachedSessionStore) UpdateMapping(ctx context.Context, fileID string, mapping core.Mapping) (core.Session, error) {
	if err := s.ready(); err != nil {
		return core.Session{}, err
	}
	updated, err := s.base.UpdateMapping(ctx, fileID, mapping)
	s.invalidate(ctx, fileID)
	return updated, err
}

func (s *CachedSessionStore) CompareAndSetStatus(ctx context.Context, transition core.StatusTransition) (core.Session, error) {
	if err := s.ready(); err != nil {
		return core.Session{}, err
	}
	updated, err := s.base.CompareAndSetStatus(ctx, transition)
	s.invalidate(ctx, transition.FileID)
	return updated, err
}

func (s *CachedSessionStore) DeletePending(ctx context.Context, fileID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.base.DeletePending(ctx, fileID)
	s.invalidate(ctx, fileID)
	return err
}

// ListByStatus reads straight from the base store when it can list.
func (s *CachedSessionStore) ListByStatus(ctx context.Context, status core.SessionStatus, limit, offset int) ([]core.Session, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	lister, ok := s.base.(core.SessionLister)
	if !ok {
		return nil, 0, fmt.Errorf("sqlstore: base session store cannot list sessions")
	}
	return lister.ListByStatus(ctx, status, limit, offset)
}

func (s *CachedSessionStore) ready() error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached session store is not configured")
	}
	return nil
}

func (s *CachedSessionStore) invalidate(ctx context.Context, fileID string) {
	cacheKey, err := SessionCacheKey(fileID)
	if err != nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil && s.logger != nil {
		s.logger.Warn("import session cache invalidation failed",
			"file_id", strings.TrimSpace(fileID),
			"cache_key", cacheKey,
			"error", err,
		)
	}
}
