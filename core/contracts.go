package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// ImportJob is handed to the row processor once a mapping is confirmed.
type ImportJob struct {
	FileID     string
	RawHeaders []string
	Mapping    Mapping
}

// RowProcessor reads the full file behind job and reports one outcome per
// data row through emit. A returned error, a panic or a context failure marks
// the import failed.
type RowProcessor interface {
	ProcessRows(ctx context.Context, job ImportJob, emit func(RowOutcome)) error
}

type RowProcessorFunc func(ctx context.Context, job ImportJob, emit func(RowOutcome)) error

func (f RowProcessorFunc) ProcessRows(ctx context.Context, job ImportJob, emit func(RowOutcome)) error {
	return f(ctx, job, emit)
}

// SessionStoreFactory builds a session store from a persistence client.
type SessionStoreFactory interface {
	BuildSessionStore(persistenceClient any) (SessionStore, error)
}

type ExpectedField struct {
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Aliases     []string  `json:"aliases,omitempty"`
	Required    bool      `json:"required"`
	RequiredFor []GroupID `json:"required_for,omitempty"`
	Hint        string    `json:"hint,omitempty"`
}

type SuggestMappingRequest struct {
	RawHeaders  []string   `json:"raw_headers"`
	PreviewRows [][]string `json:"preview_rows"`
}

type SuggestMappingResult struct {
	Mapping    Mapping    `json:"mapping"`
	CSVHeaders []string   `json:"csv_headers"`
	CSVPreview [][]string `json:"csv_preview"`
}

type OpenSessionRequest struct {
	FileID      string     `json:"file_id"`
	RawHeaders  []string   `json:"raw_headers"`
	PreviewRows [][]string `json:"preview_rows"`
}

type ReplaceMappingRequest struct {
	FileID  string  `json:"file_id"`
	Mapping Mapping `json:"mapping"`
}

type SetFieldMappingRequest struct {
	FileID   string `json:"file_id"`
	FieldKey string `json:"field_key"`
	// Header is the raw header to assign; blank clears the field.
	Header string `json:"header"`
}

type ConfirmMappingRequest struct {
	FileID string `json:"file_id"`
	// Mapping replaces the pending mapping before confirming. Nil keeps the
	// stored one.
	Mapping Mapping `json:"mapping,omitempty"`
}

type ConfirmMappingResult struct {
	Session Session      `json:"session"`
	Report  ImportReport `json:"report"`
}

type FieldHint struct {
	Key         string           `json:"key"`
	Label       string           `json:"label"`
	Header      string           `json:"header,omitempty"`
	Requirement FieldRequirement `json:"requirement"`
}

type MappingPreview struct {
	FileID       string              `json:"file_id"`
	Status       SessionStatus       `json:"status"`
	Mapping      Mapping             `json:"mapping"`
	Required     []string            `json:"required"`
	ActiveGroups []GroupID           `json:"active_groups"`
	Fields       []FieldHint         `json:"fields"`
	Errors       []ValidationError   `json:"errors"`
	Warnings     []ValidationError   `json:"warnings"`
	Rows         []map[string]string `json:"rows"`
}

func (p MappingPreview) Valid() bool {
	return len(p.Errors) == 0
}

type ImportService interface {
	ExpectedFields(ctx context.Context) ([]ExpectedField, error)
	SuggestMapping(ctx context.Context, req SuggestMappingRequest) (SuggestMappingResult, error)
	OpenSession(ctx context.Context, req OpenSessionRequest) (Session, error)
	GetSession(ctx context.Context, fileID string) (Session, error)
	ReplaceMapping(ctx context.Context, req ReplaceMappingRequest) (Session, error)
	SetFieldMapping(ctx context.Context, req SetFieldMappingRequest) (Session, error)
	PreviewMapping(ctx context.Context, fileID string) (MappingPreview, error)
	ConfirmMapping(ctx context.Context, req ConfirmMappingRequest) (ConfirmMappingResult, error)
	DiscardSession(ctx context.Context, fileID string) error
	RecoverStaleSessions(ctx context.Context, olderThan time.Duration) ([]Session, error)
}
