package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-imports/core"
	"github.com/uptrace/bun"
)

type sessionRecord struct {
	bun.BaseModel `bun:"table:import_sessions,alias:isess"`

	ID            string             `bun:"id,pk"`
	FileID        string             `bun:"file_id,notnull"`
	Status        string             `bun:"status,notnull"`
	Version       int64              `bun:"version,notnull"`
	RawHeaders    []string           `bun:"raw_headers,type:jsonb,notnull"`
	PreviewRows   [][]string         `bun:"preview_rows,type:jsonb,notnull"`
	Mapping       map[string]string  `bun:"mapping,type:jsonb,notnull"`
	Report        *core.ImportReport `bun:"report,type:jsonb"`
	FailureReason string             `bun:"failure_reason,notnull"`
	CreatedAt     time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time          `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	ConfirmedAt   *time.Time         `bun:"confirmed_at,nullzero"`
}

func newSessionRecord(session core.Session, now time.Time) *sessionRecord {
	status := session.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.SessionStatusPending
	}
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	record := &sessionRecord{
		ID:          strings.TrimSpace(session.ID),
		FileID:      strings.TrimSpace(session.FileID),
		Status:      string(status),
		Version:     1,
		RawHeaders:  append([]string{}, session.RawHeaders...),
		PreviewRows: copyRows(session.PreviewRows),
		Mapping:     map[string]string(session.Mapping.Compact()),
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   now,
	}
	if record.Mapping == nil {
		record.Mapping = map[string]string{}
	}
	return record
}

func (r *sessionRecord) toDomain() core.Session {
	if r == nil {
		return core.Session{}
	}
	session := core.Session{
		ID:            r.ID,
		FileID:        r.FileID,
		RawHeaders:    append([]string{}, r.RawHeaders...),
		PreviewRows:   copyRows(r.PreviewRows),
		Mapping:       core.Mapping(r.Mapping).Clone(),
		Status:        core.SessionStatus(r.Status),
		Version:       r.Version,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if session.Mapping == nil {
		session.Mapping = core.Mapping{}
	}
	if r.Report != nil {
		report := *r.Report
		report.Errors = append([]string{}, r.Report.Errors...)
		session.Report = &report
	}
	if r.ConfirmedAt != nil {
		confirmedAt := r.ConfirmedAt.UTC()
		session.ConfirmedAt = &confirmedAt
	}
	return session
}

func copyRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string{}, row...)
	}
	return out
}
