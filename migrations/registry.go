// Package migrations registers the import session schema with a migration
// runner, one SQL tree per database dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	imports "github.com/goliatone/go-imports"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	DefaultLabel = "go-imports"

	rootPath = "data/sql/migrations"
)

// Source is one dialect's migration tree.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Plan is what Register handed, or would hand, to the runner.
type Plan struct {
	Label    string
	Dialects []string
	Sources  []Source
}

// RegisterFunc receives each selected source. With go-persistence-bun it
// typically forwards fsys to client.RegisterSQLMigrations.
type RegisterFunc func(ctx context.Context, dialect string, label string, fsys fs.FS) error

type Option func(*Plan)

func WithLabel(label string) Option {
	return func(p *Plan) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			p.Label = trimmed
		}
	}
}

// WithDialects limits registration to the given dialects.
func WithDialects(dialects ...string) Option {
	return func(p *Plan) {
		if selected := normalizeDialects(dialects); len(selected) > 0 {
			p.Dialects = selected
		}
	}
}

// ForDriver limits registration to the dialect of a database/sql driver.
// Unknown drivers leave the plan unchanged; Register rejects them only when
// no dialect remains.
func ForDriver(driver string) Option {
	return func(p *Plan) {
		if dialect, err := DialectForDriver(driver); err == nil {
			p.Dialects = []string{dialect}
		}
	}
}

// WithSources replaces the embedded trees, e.g. with a host's own copy.
func WithSources(sources ...Source) Option {
	return func(p *Plan) {
		kept := make([]Source, 0, len(sources))
		for _, source := range sources {
			dialect := strings.TrimSpace(strings.ToLower(source.Dialect))
			if dialect == "" || source.FS == nil {
				continue
			}
			source.Dialect = dialect
			kept = append(kept, source)
		}
		if len(kept) > 0 {
			p.Sources = kept
		}
	}
}

// DialectForDriver maps a database/sql driver name to its migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "postgresql", "pgx", "pq":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}

// Sources splits a migration tree by dialect. SQL files at the root of
// data/sql/migrations are postgres; a subdirectory named after a dialect
// holds that dialect's variant. A nil root means the embedded schema.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = imports.GetMigrationsFS()
	}
	base, basePath, err := locateRoot(root)
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(base, ".")
	if err != nil {
		return nil, fmt.Errorf("migrations: read %s: %w", basePath, err)
	}
	sources := []Source{{Dialect: DialectPostgres, Path: basePath, FS: base}}
	for _, entry := range entries {
		if !entry.IsDir() || !knownDialect(entry.Name()) || entry.Name() == DialectPostgres {
			continue
		}
		sub, err := fs.Sub(base, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("migrations: resolve %s tree: %w", entry.Name(), err)
		}
		sources = append(sources, Source{
			Dialect: entry.Name(),
			Path:    joinPath(basePath, entry.Name()),
			FS:      sub,
		})
	}

	for _, source := range sources {
		ups, err := fs.Glob(source.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", source.Path, err)
		}
		if len(ups) == 0 {
			return nil, fmt.Errorf("migrations: %s tree %q has no *.up.sql files", source.Dialect, source.Path)
		}
	}
	return sources, nil
}

// Register resolves the plan and calls registerFn once per selected dialect,
// in source order.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Plan, error) {
	plan := Plan{
		Label:    DefaultLabel,
		Dialects: []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&plan)
		}
	}
	if registerFn == nil {
		return plan, fmt.Errorf("migrations: register function is required")
	}
	if len(plan.Dialects) == 0 {
		return plan, fmt.Errorf("migrations: at least one dialect is required")
	}
	if len(plan.Sources) == 0 {
		sources, err := Sources(nil)
		if err != nil {
			return plan, err
		}
		plan.Sources = sources
	}

	registered := 0
	for _, source := range plan.Sources {
		if !slices.Contains(plan.Dialects, source.Dialect) {
			continue
		}
		if err := registerFn(ctx, source.Dialect, plan.Label, source.FS); err != nil {
			return plan, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Path, err)
		}
		registered++
	}
	if registered == 0 {
		return plan, fmt.Errorf("migrations: no sources for dialects %v", plan.Dialects)
	}
	return plan, nil
}

func locateRoot(root fs.FS) (fs.FS, string, error) {
	if info, err := fs.Stat(root, rootPath); err == nil && info.IsDir() {
		sub, err := fs.Sub(root, rootPath)
		if err != nil {
			return nil, "", fmt.Errorf("migrations: resolve %s: %w", rootPath, err)
		}
		return sub, rootPath, nil
	}
	if ups, err := fs.Glob(root, "*.up.sql"); err == nil && len(ups) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", rootPath)
}

func knownDialect(name string) bool {
	return name == DialectPostgres || name == DialectSQLite
}

func normalizeDialects(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		dialect := strings.TrimSpace(strings.ToLower(value))
		if dialect == "" || slices.Contains(out, dialect) {
			continue
		}
		out = append(out, dialect)
	}
	return out
}

func joinPath(base string, name string) string {
	if base == "." {
		return name
	}
	return strings.TrimSuffix(base, "/") + "/" + name
}
