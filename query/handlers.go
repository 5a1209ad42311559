package query

import (
	"context"

	"github.com/goliatone/go-imports/core"
)

type FieldReader interface {
	ExpectedFields(ctx context.Context) ([]core.ExpectedField, error)
	SuggestMapping(ctx context.Context, req core.SuggestMappingRequest) (core.SuggestMappingResult, error)
}

type SessionReader interface {
	GetSession(ctx context.Context, fileID string) (core.Session, error)
	PreviewMapping(ctx context.Context, fileID string) (core.MappingPreview, error)
}

type ExpectedFieldsQuery struct {
	reader FieldReader
}

func NewExpectedFieldsQuery(reader FieldReader) *ExpectedFieldsQuery {
	return &ExpectedFieldsQuery{reader: reader}
}

func (q *ExpectedFieldsQuery) Query(ctx context.Context, _ ExpectedFieldsMessage) ([]core.ExpectedField, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: field reader is required")
	}
	return q.reader.ExpectedFields(ctx)
}

type SuggestMappingQuery struct {
	reader FieldReader
}

func NewSuggestMappingQuery(reader FieldReader) *SuggestMappingQuery {
	return &SuggestMappingQuery{reader: reader}
}

func (q *SuggestMappingQuery) Query(ctx context.Context, msg SuggestMappingMessage) (core.SuggestMappingResult, error) {
	if q == nil || q.reader == nil {
		return core.SuggestMappingResult{}, queryDependencyError("query: field reader is required")
	}
	return q.reader.SuggestMapping(ctx, msg.Request)
}

type GetSessionQuery struct {
	reader SessionReader
}

func NewGetSessionQuery(reader SessionReader) *GetSessionQuery {
	return &GetSessionQuery{reader: reader}
}

func (q *GetSessionQuery) Query(ctx context.Context, msg GetSessionMessage) (core.Session, error) {
	if q == nil || q.reader == nil {
		return core.Session{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.GetSession(ctx, msg.FileID)
}

type PreviewMappingQuery struct {
	reader SessionReader
}

func NewPreviewMappingQuery(reader SessionReader) *PreviewMappingQuery {
	return &PreviewMappingQuery{reader: reader}
}

func (q *PreviewMappingQuery) Query(ctx context.Context, msg PreviewMappingMessage) (core.MappingPreview, error) {
	if q == nil || q.reader == nil {
		return core.MappingPreview{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.PreviewMapping(ctx, msg.FileID)
}
