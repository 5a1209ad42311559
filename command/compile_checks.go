package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[OpenSessionMessage]     = (*OpenSessionCommand)(nil)
	_ gocmd.Commander[ReplaceMappingMessage]  = (*ReplaceMappingCommand)(nil)
	_ gocmd.Commander[SetFieldMappingMessage] = (*SetFieldMappingCommand)(nil)
	_ gocmd.Commander[ConfirmMappingMessage]  = (*ConfirmMappingCommand)(nil)
	_ gocmd.Commander[DiscardSessionMessage]  = (*DiscardSessionCommand)(nil)

	_ gocmd.Commander[RecoverStaleSessionsMessage] = (*RecoverStaleSessionsCommand)(nil)
)
