package command

import (
	"strings"
	"time"

	"github.com/goliatone/go-imports/core"
)

const (
	TypeOpenSession     = "imports.command.session.open"
	TypeReplaceMapping  = "imports.command.mapping.replace"
	TypeSetFieldMapping = "imports.command.mapping.set_field"
	TypeConfirmMapping  = "imports.command.mapping.confirm"
	TypeDiscardSession  = "imports.command.session.discard"
	TypeRecoverSessions = "imports.command.session.recover_stale"
)

type OpenSessionMessage struct {
	Request core.OpenSessionRequest
}

func (OpenSessionMessage) Type() string { return TypeOpenSession }

// Validate leaves empty header rows to the service, which reports them as an
// empty file rather than bad input.
func (m OpenSessionMessage) Validate() error {
	if m.Request.FileID != "" && strings.TrimSpace(m.Request.FileID) == "" {
		return commandValidationError("file_id", "file id must not be blank")
	}
	return nil
}

type ReplaceMappingMessage struct {
	Request core.ReplaceMappingRequest
}

func (ReplaceMappingMessage) Type() string { return TypeReplaceMapping }

func (m ReplaceMappingMessage) Validate() error {
	return validateFileID(m.Request.FileID)
}

type SetFieldMappingMessage struct {
	Request core.SetFieldMappingRequest
}

func (SetFieldMappingMessage) Type() string { return TypeSetFieldMapping }

func (m SetFieldMappingMessage) Validate() error {
	if err := validateFileID(m.Request.FileID); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.FieldKey) == "" {
		return commandValidationError("field_key", "field key is required")
	}
	return nil
}

type ConfirmMappingMessage struct {
	Request core.ConfirmMappingRequest
}

func (ConfirmMappingMessage) Type() string { return TypeConfirmMapping }

func (m ConfirmMappingMessage) Validate() error {
	return validateFileID(m.Request.FileID)
}

type DiscardSessionMessage struct {
	FileID string
}

func (DiscardSessionMessage) Type() string { return TypeDiscardSession }

func (m DiscardSessionMessage) Validate() error {
	return validateFileID(m.FileID)
}

// RecoverStaleSessionsMessage fails sessions stuck in processing for at
// least OlderThan.
type RecoverStaleSessionsMessage struct {
	OlderThan time.Duration
}

func (RecoverStaleSessionsMessage) Type() string { return TypeRecoverSessions }

func (m RecoverStaleSessionsMessage) Validate() error {
	if m.OlderThan <= 0 {
		return commandValidationError("older_than", "older than must be positive")
	}
	return nil
}

func validateFileID(fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return commandValidationError("file_id", "file id is required")
	}
	return nil
}
