package query

import (
	"strings"

	"github.com/goliatone/go-imports/core"
)

const (
	TypeExpectedFields = "imports.query.fields.expected"
	TypeSuggestMapping = "imports.query.mapping.suggest"
	TypeGetSession     = "imports.query.session.get"
	TypePreviewMapping = "imports.query.mapping.preview"
)

type ExpectedFieldsMessage struct{}

func (ExpectedFieldsMessage) Type() string { return TypeExpectedFields }

func (ExpectedFieldsMessage) Validate() error { return nil }

type SuggestMappingMessage struct {
	Request core.SuggestMappingRequest
}

func (SuggestMappingMessage) Type() string { return TypeSuggestMapping }

func (SuggestMappingMessage) Validate() error { return nil }

type GetSessionMessage struct {
	FileID string
}

func (GetSessionMessage) Type() string { return TypeGetSession }

func (m GetSessionMessage) Validate() error {
	return validateFileID(m.FileID)
}

type PreviewMappingMessage struct {
	FileID string
}

func (PreviewMappingMessage) Type() string { return TypePreviewMapping }

func (m PreviewMappingMessage) Validate() error {
	return validateFileID(m.FileID)
}

func validateFileID(fileID string) error {
	if strings.TrimSpace(fileID) == "" {
		return queryValidationError("file_id", "file id is required")
	}
	return nil
}
