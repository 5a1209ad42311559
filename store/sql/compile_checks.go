package sqlstore

import "github.com/goliatone/go-imports/core"

var (
	_ core.SessionStore        = (*SessionStore)(nil)
	_ core.SessionStore        = (*CachedSessionStore)(nil)
	_ core.SessionLister       = (*SessionStore)(nil)
	_ core.SessionLister       = (*CachedSessionStore)(nil)
	_ core.SessionStoreFactory = (*RepositoryFactory)(nil)
)
