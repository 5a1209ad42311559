package imports

import (
	"context"
	"testing"

	gocmd "github.com/goliatone/go-command"
	importscommand "github.com/goliatone/go-imports/command"
	"github.com/goliatone/go-imports/core"
	importsquery "github.com/goliatone/go-imports/query"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc, err := NewService(DefaultConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.OpenSession == nil || commands.ConfirmMapping == nil || commands.DiscardSession == nil || commands.RecoverStale == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.ExpectedFields == nil || queries.PreviewMapping == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Service() == nil {
		t.Fatalf("expected facade service")
	}
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected nil service to be rejected")
	}
}

func TestFacade_OpenEditConfirmRoundTrip(t *testing.T) {
	ctx := context.Background()
	var received core.ImportJob
	processor := RowProcessorFunc(func(_ context.Context, job ImportJob, emit func(RowOutcome)) error {
		received = job
		emit(core.Accepted(1))
		emit(core.Accepted(2))
		return nil
	})
	svc, err := NewService(DefaultConfig(), WithRowProcessor(processor))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	opened := gocmd.NewResult[core.Session]()
	err = facade.Commands().OpenSession.Execute(gocmd.ContextWithResult(ctx, opened), importscommand.OpenSessionMessage{
		Request: OpenSessionRequest{
			FileID:      "file_round_trip",
			RawHeaders:  []string{"Program Name", "Start Date", "End Date", "Views"},
			PreviewRows: [][]string{{"Show", "2024-01-01", "2024-01-31", "1200"}},
		},
	})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	session, ok := opened.Load()
	if !ok || session.Mapping["impressions"] != "Views" {
		t.Fatalf("expected suggested impressions mapping, got %#v", session.Mapping)
	}

	preview, err := facade.Queries().PreviewMapping.Query(ctx, importsquery.PreviewMappingMessage{FileID: "file_round_trip"})
	if err != nil {
		t.Fatalf("preview mapping: %v", err)
	}
	if !preview.Valid() {
		t.Fatalf("expected valid preview, got errors %#v", preview.Errors)
	}

	if err := facade.Commands().SetFieldMapping.Execute(ctx, importscommand.SetFieldMappingMessage{
		Request: SetFieldMappingRequest{FileID: "file_round_trip", FieldKey: "period_end", Header: ""},
	}); err != nil {
		t.Fatalf("clear period_end: %v", err)
	}
	err = facade.Commands().ConfirmMapping.Execute(ctx, importscommand.ConfirmMappingMessage{
		Request: ConfirmMappingRequest{FileID: "file_round_trip"},
	})
	if err == nil {
		t.Fatalf("expected confirm without period_end to fail validation")
	}

	if err := facade.Commands().SetFieldMapping.Execute(ctx, importscommand.SetFieldMappingMessage{
		Request: SetFieldMappingRequest{FileID: "file_round_trip", FieldKey: "period_end", Header: "End Date"},
	}); err != nil {
		t.Fatalf("restore period_end: %v", err)
	}
	confirmed := gocmd.NewResult[core.ConfirmMappingResult]()
	err = facade.Commands().ConfirmMapping.Execute(gocmd.ContextWithResult(ctx, confirmed), importscommand.ConfirmMappingMessage{
		Request: ConfirmMappingRequest{FileID: "file_round_trip"},
	})
	if err != nil {
		t.Fatalf("confirm mapping: %v", err)
	}
	result, ok := confirmed.Load()
	if !ok || result.Report.AcceptedRowCount != 2 || result.Session.Status != core.SessionStatusConfirmed {
		t.Fatalf("unexpected confirm result %#v", result)
	}
	if received.Mapping["period_end"] != "End Date" || received.FileID != "file_round_trip" {
		t.Fatalf("expected processor to receive the confirmed mapping, got %#v", received)
	}

	stored, err := facade.Queries().GetSession.Query(ctx, importsquery.GetSessionMessage{FileID: "file_round_trip"})
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Status != core.SessionStatusConfirmed || stored.Report == nil {
		t.Fatalf("expected stored confirmed session, got %#v", stored)
	}
}

func TestFacade_ExpectedFieldsAndSuggestion(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(DefaultConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	fields, err := facade.Queries().ExpectedFields.Query(ctx, importsquery.ExpectedFieldsMessage{})
	if err != nil {
		t.Fatalf("expected fields: %v", err)
	}
	if len(fields) != len(DefaultRoyaltyCatalog().Fields()) {
		t.Fatalf("expected one entry per catalog field, got %d", len(fields))
	}

	suggestion, err := facade.Queries().SuggestMapping.Query(ctx, importsquery.SuggestMappingMessage{
		Request: SuggestMappingRequest{RawHeaders: []string{"Title", "Qty"}},
	})
	if err != nil {
		t.Fatalf("suggest mapping: %v", err)
	}
	if suggestion.Mapping["quantity"] != "Qty" || suggestion.Mapping["title"] != "Title" {
		t.Fatalf("unexpected suggestion %#v", suggestion.Mapping)
	}
}
