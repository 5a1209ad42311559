package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/goliatone/go-imports/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// SessionStore persists import sessions in the import_sessions table. Status
// changes are conditional updates guarded by the expected current status.
type SessionStore struct {
	db    *bun.DB
	repo  repository.Repository[*sessionRecord]
	nowFn func() time.Time
}

func NewSessionStore(db *bun.DB) (*SessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*sessionRecord](db, sessionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session repository wiring: %w", err)
		}
	}
	return &SessionStore{
		db:    db,
		repo:  repo,
		nowFn: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SessionStore) Create(ctx context.Context, session core.Session) (core.Session, error) {
	if s == nil || s.repo == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	if strings.TrimSpace(session.FileID) == "" {
		return core.Session{}, fmt.Errorf("sqlstore: file id is required")
	}
	if session.Status != "" && !session.Status.Valid() {
		return core.Session{}, fmt.Errorf("sqlstore: invalid session status %q", session.Status)
	}

	record := newSessionRecord(session, s.nowFn())
	if parseUUID(record.ID) == uuid.Nil {
		record.ID = uuid.NewString()
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Session{}, core.ErrSessionExists
		}
		return core.Session{}, err
	}
	return created.toDomain(), nil
}

func (s *SessionStore) Get(ctx context.Context, fileID string) (core.Session, error) {
	if s == nil || s.db == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	record, err := selectSession(ctx, s.db, fileID)
	if err != nil {
		return core.Session{}, err
	}
	return record.toDomain(), nil
}

func (s *SessionStore) UpdateMapping(ctx context.Context, fileID string, mapping core.Mapping) (core.Session, error) {
	if s == nil || s.db == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return core.Session{}, fmt.Errorf("sqlstore: file id is required")
	}

	compacted := map[string]string(mapping.Compact())
	if compacted == nil {
		compacted = map[string]string{}
	}
	record := &sessionRecord{
		Mapping:   compacted,
		UpdatedAt: s.nowFn(),
	}
	return s.conditionalUpdate(ctx, fileID, core.SessionStatusPending, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Model(record).Column("mapping", "updated_at")
	})
}

func (s *SessionStore) CompareAndSetStatus(ctx context.Context, transition core.StatusTransition) (core.Session, error) {
	if s == nil || s.db == nil {
		return core.Session{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	transition.FileID = strings.TrimSpace(transition.FileID)
	if err := transition.Validate(); err != nil {
		return core.Session{}, err
	}

	at := transition.At
	if at.IsZero() {
		at = s.nowFn()
	}
	at = at.UTC()

	record := &sessionRecord{
		Status:        string(transition.To),
		FailureReason: strings.TrimSpace(transition.FailureReason),
		UpdatedAt:     at,
	}
	columns := []string{"status", "failure_reason", "updated_at"}
	if transition.Report != nil {
		report := *transition.Report
		report.Errors = append([]string{}, transition.Report.Errors...)
		record.Report = &report
		columns = append(columns, "report")
	} else if transition.To == core.SessionStatusPending {
		columns = append(columns, "report")
	}
	if transition.To.Terminal() {
		confirmedAt := at
		record.ConfirmedAt = &confirmedAt
		columns = append(columns, "confirmed_at")
	}

	return s.conditionalUpdate(ctx, transition.FileID, transition.From, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Model(record).Column(columns...)
	})
}

func (s *SessionStore) DeletePending(ctx context.Context, fileID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return fmt.Errorf("sqlstore: file id is required")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*sessionRecord)(nil)).
			Where("file_id = ?", fileID).
			Where("status = ?", string(core.SessionStatusPending)).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			return nil
		}
		if _, err := selectSession(ctx, tx, fileID); err != nil {
			return err
		}
		return core.ErrSessionStatusConflict
	})
}

// ListByStatus pages through sessions in one status, oldest update first.
// It returns the page and the total number of matching sessions.
func (s *SessionStore) ListByStatus(ctx context.Context, status core.SessionStatus, limit, offset int) ([]core.Session, int, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("sqlstore: session store is not configured")
	}
	if !status.Valid() {
		return nil, 0, fmt.Errorf("sqlstore: invalid session status %q", status)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	records, total, err := s.repo.List(ctx,
		repository.SelectBy("status", "=", string(status)),
		repository.OrderBy("updated_at ASC"),
		repository.SelectPaginate(limit, offset),
	)
	if err != nil {
		return nil, 0, err
	}
	out := make([]core.Session, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, total, nil
}

// conditionalUpdate applies the update only while the session is in the
// expected status and bumps its version. A miss reports the current session
// together with ErrSessionStatusConflict.
func (s *SessionStore) conditionalUpdate(
	ctx context.Context,
	fileID string,
	expected core.SessionStatus,
	build func(*bun.UpdateQuery) *bun.UpdateQuery,
) (core.Session, error) {
	var out core.Session
	var conflict bool
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := build(tx.NewUpdate()).
			Set("version = version + 1").
			Where("file_id = ?", fileID).
			Where("status = ?", string(expected)).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, _ := res.RowsAffected()
		record, err := selectSession(ctx, tx, fileID)
		if err != nil {
			return err
		}
		out = record.toDomain()
		conflict = affected == 0
		return nil
	})
	if err != nil {
		return core.Session{}, err
	}
	if conflict {
		return out, core.ErrSessionStatusConflict
	}
	return out, nil
}

func selectSession(ctx context.Context, db bun.IDB, fileID string) (*sessionRecord, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, fmt.Errorf("sqlstore: file id is required")
	}
	record := &sessionRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.file_id = ?", fileID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrSessionNotFound
		}
		return nil, err
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
