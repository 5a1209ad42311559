package imports

import (
	"fmt"

	importscommand "github.com/goliatone/go-imports/command"
	importsquery "github.com/goliatone/go-imports/query"
)

type CommandQueryService interface {
	importscommand.MutatingService
	importsquery.FieldReader
	importsquery.SessionReader
}

type Commands struct {
	OpenSession     *importscommand.OpenSessionCommand
	ReplaceMapping  *importscommand.ReplaceMappingCommand
	SetFieldMapping *importscommand.SetFieldMappingCommand
	ConfirmMapping  *importscommand.ConfirmMappingCommand
	DiscardSession  *importscommand.DiscardSessionCommand
	RecoverStale    *importscommand.RecoverStaleSessionsCommand
}

type Queries struct {
	ExpectedFields *importsquery.ExpectedFieldsQuery
	SuggestMapping *importsquery.SuggestMappingQuery
	GetSession     *importsquery.GetSessionQuery
	PreviewMapping *importsquery.PreviewMappingQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("imports: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		OpenSession:     importscommand.NewOpenSessionCommand(service),
		ReplaceMapping:  importscommand.NewReplaceMappingCommand(service),
		SetFieldMapping: importscommand.NewSetFieldMappingCommand(service),
		ConfirmMapping:  importscommand.NewConfirmMappingCommand(service),
		DiscardSession:  importscommand.NewDiscardSessionCommand(service),
		RecoverStale:    importscommand.NewRecoverStaleSessionsCommand(service),
	}
	facade.queries = Queries{
		ExpectedFields: importsquery.NewExpectedFieldsQuery(service),
		SuggestMapping: importsquery.NewSuggestMappingQuery(service),
		GetSession:     importsquery.NewGetSessionQuery(service),
		PreviewMapping: importsquery.NewPreviewMappingQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
