package command

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-imports/core"
)

func TestConfirmMappingMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ConfirmMappingMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.ImportErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.ImportErrorBadInput, rich.TextCode)
	}
	validation := rich.AllValidationErrors()
	if len(validation) != 1 || validation[0].Field != "file_id" {
		t.Fatalf("expected file_id field error, got %#v", validation)
	}
}

func TestMessages_Validate(t *testing.T) {
	if err := (SetFieldMappingMessage{Request: core.SetFieldMappingRequest{FileID: "f"}}).Validate(); err == nil {
		t.Fatalf("expected missing field key to fail")
	}
	if err := (SetFieldMappingMessage{Request: core.SetFieldMappingRequest{FileID: "f", FieldKey: "title"}}).Validate(); err != nil {
		t.Fatalf("expected blank header to be allowed for clearing, got %v", err)
	}
	if err := (OpenSessionMessage{}).Validate(); err != nil {
		t.Fatalf("expected empty open request to reach the service, got %v", err)
	}
	if err := (OpenSessionMessage{Request: core.OpenSessionRequest{FileID: "  "}}).Validate(); err == nil {
		t.Fatalf("expected blank explicit file id to fail")
	}
	if err := (DiscardSessionMessage{}).Validate(); err == nil {
		t.Fatalf("expected missing file id to fail")
	}
}

func TestOpenSessionCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *OpenSessionCommand
	err := cmd.Execute(context.Background(), OpenSessionMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
