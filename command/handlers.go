package command

import (
	"context"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-imports/core"
)

// MutatingService is the write side of core.ImportService.
type MutatingService interface {
	OpenSession(ctx context.Context, req core.OpenSessionRequest) (core.Session, error)
	ReplaceMapping(ctx context.Context, req core.ReplaceMappingRequest) (core.Session, error)
	SetFieldMapping(ctx context.Context, req core.SetFieldMappingRequest) (core.Session, error)
	ConfirmMapping(ctx context.Context, req core.ConfirmMappingRequest) (core.ConfirmMappingResult, error)
	DiscardSession(ctx context.Context, fileID string) error
	RecoverStaleSessions(ctx context.Context, olderThan time.Duration) ([]core.Session, error)
}

type OpenSessionCommand struct {
	service MutatingService
}

func NewOpenSessionCommand(service MutatingService) *OpenSessionCommand {
	return &OpenSessionCommand{service: service}
}

func (c *OpenSessionCommand) Execute(ctx context.Context, msg OpenSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: open session service is required")
	}
	out, err := c.service.OpenSession(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ReplaceMappingCommand struct {
	service MutatingService
}

func NewReplaceMappingCommand(service MutatingService) *ReplaceMappingCommand {
	return &ReplaceMappingCommand{service: service}
}

func (c *ReplaceMappingCommand) Execute(ctx context.Context, msg ReplaceMappingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: replace mapping service is required")
	}
	out, err := c.service.ReplaceMapping(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SetFieldMappingCommand struct {
	service MutatingService
}

func NewSetFieldMappingCommand(service MutatingService) *SetFieldMappingCommand {
	return &SetFieldMappingCommand{service: service}
}

func (c *SetFieldMappingCommand) Execute(ctx context.Context, msg SetFieldMappingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: set field mapping service is required")
	}
	out, err := c.service.SetFieldMapping(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ConfirmMappingCommand struct {
	service MutatingService
}

func NewConfirmMappingCommand(service MutatingService) *ConfirmMappingCommand {
	return &ConfirmMappingCommand{service: service}
}

// Execute stores the result even when processing failed so callers can read
// the partial report next to the error.
func (c *ConfirmMappingCommand) Execute(ctx context.Context, msg ConfirmMappingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: confirm mapping service is required")
	}
	out, err := c.service.ConfirmMapping(ctx, msg.Request)
	if out.Session.FileID != "" {
		storeResult(ctx, out)
	}
	return err
}

type DiscardSessionCommand struct {
	service MutatingService
}

func NewDiscardSessionCommand(service MutatingService) *DiscardSessionCommand {
	return &DiscardSessionCommand{service: service}
}

func (c *DiscardSessionCommand) Execute(ctx context.Context, msg DiscardSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: discard session service is required")
	}
	return c.service.DiscardSession(ctx, msg.FileID)
}

type RecoverStaleSessionsCommand struct {
	service MutatingService
}

func NewRecoverStaleSessionsCommand(service MutatingService) *RecoverStaleSessionsCommand {
	return &RecoverStaleSessionsCommand{service: service}
}

// Execute stores the sessions recovered before any error.
func (c *RecoverStaleSessionsCommand) Execute(ctx context.Context, msg RecoverStaleSessionsMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: recover stale sessions service is required")
	}
	out, err := c.service.RecoverStaleSessions(ctx, msg.OlderThan)
	if out != nil {
		storeResult(ctx, out)
	}
	return err
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
