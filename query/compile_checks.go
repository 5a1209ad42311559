package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-imports/core"
)

var (
	_ gocmd.Querier[ExpectedFieldsMessage, []core.ExpectedField]     = (*ExpectedFieldsQuery)(nil)
	_ gocmd.Querier[SuggestMappingMessage, core.SuggestMappingResult] = (*SuggestMappingQuery)(nil)
	_ gocmd.Querier[GetSessionMessage, core.Session]                  = (*GetSessionQuery)(nil)
	_ gocmd.Querier[PreviewMappingMessage, core.MappingPreview]       = (*PreviewMappingQuery)(nil)
)
