package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ImportErrorBadInput         = "IMPORT_BAD_INPUT"
	ImportErrorEmptyFile        = "IMPORT_EMPTY_FILE"
	ImportErrorMappingInvalid   = "IMPORT_MAPPING_INVALID"
	ImportErrorAlreadyProcessed = "IMPORT_ALREADY_PROCESSED"
	ImportErrorSessionNotFound  = "IMPORT_SESSION_NOT_FOUND"
	ImportErrorSessionExists    = "IMPORT_SESSION_EXISTS"
	ImportErrorProcessingFailed = "IMPORT_PROCESSING_FAILED"
	ImportErrorInternal         = "IMPORT_INTERNAL_ERROR"
)

var (
	ErrSessionNotFound       = errors.New("core: import session not found")
	ErrSessionExists         = errors.New("core: import session already exists")
	ErrSessionStatusConflict = errors.New("core: import session status changed")
)

func importErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureImportErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrSessionNotFound):
		return newImportError(err.Error(), goerrors.CategoryNotFound, ImportErrorSessionNotFound)
	case errors.Is(err, ErrSessionExists):
		return newImportError(err.Error(), goerrors.CategoryConflict, ImportErrorSessionExists)
	case errors.Is(err, ErrSessionStatusConflict):
		return newImportError(err.Error(), goerrors.CategoryConflict, ImportErrorAlreadyProcessed)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "unknown"):
		return newImportError(err.Error(), goerrors.CategoryBadInput, ImportErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureImportErrorEnvelope(mapped)
}

func newImportError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureImportErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureImportErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = importHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultImportTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultImportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return ImportErrorBadInput
	case goerrors.CategoryValidation:
		return ImportErrorMappingInvalid
	case goerrors.CategoryNotFound:
		return ImportErrorSessionNotFound
	case goerrors.CategoryConflict:
		return ImportErrorAlreadyProcessed
	case goerrors.CategoryExternal:
		return ImportErrorProcessingFailed
	default:
		return ImportErrorInternal
	}
}

func importHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// EmptyFileError is returned when an uploaded file has no header row.
func EmptyFileError(fileID string) *goerrors.Error {
	err := newImportError("core: file has no columns", goerrors.CategoryBadInput, ImportErrorEmptyFile)
	if strings.TrimSpace(fileID) != "" {
		err.WithMetadata(map[string]any{"file_id": strings.TrimSpace(fileID)})
	}
	return err
}

// AlreadyProcessedError reports a session that left the pending state.
func AlreadyProcessedError(fileID string, status SessionStatus) *goerrors.Error {
	return newImportError(
		"core: file "+strings.TrimSpace(fileID)+" has already been processed",
		goerrors.CategoryConflict,
		ImportErrorAlreadyProcessed,
	).WithMetadata(map[string]any{
		"file_id": strings.TrimSpace(fileID),
		"status":  string(status),
	})
}

// MappingInvalidError wraps every validation violation into one envelope, one
// field error per violation, preserving order. The full violations, with kind,
// field keys and header, are kept under the "violations" metadata key.
func MappingInvalidError(fileID string, issues []ValidationError) *goerrors.Error {
	fieldErrors := make([]goerrors.FieldError, 0, len(issues))
	messages := make([]string, 0, len(issues))
	violations := make([]ValidationError, 0, len(issues))
	for _, issue := range issues {
		issue.FieldKeys = append([]string(nil), issue.FieldKeys...)
		violations = append(violations, issue)
		field := issue.FieldKey
		if field == "" {
			field = issue.Header
		}
		fieldErrors = append(fieldErrors, goerrors.FieldError{
			Field:   field,
			Message: issue.Message,
		})
		messages = append(messages, issue.Message)
	}
	err := goerrors.NewValidation(JoinValidationMessages(issues), fieldErrors...).
		WithCode(http.StatusBadRequest).
		WithTextCode(ImportErrorMappingInvalid).
		WithSeverity(goerrors.SeverityError)
	err.WithMetadata(map[string]any{
		"file_id":    strings.TrimSpace(fileID),
		"errors":     messages,
		"violations": violations,
	})
	return err
}

func processingFailedError(fileID string, cause error) *goerrors.Error {
	message := "core: row processing failed for file " + strings.TrimSpace(fileID)
	var err *goerrors.Error
	if cause == nil {
		err = goerrors.New(message, goerrors.CategoryExternal)
	} else {
		err = goerrors.Wrap(cause, goerrors.CategoryExternal, message)
	}
	return err.
		WithCode(http.StatusBadGateway).
		WithTextCode(ImportErrorProcessingFailed).
		WithMetadata(map[string]any{"file_id": strings.TrimSpace(fileID)})
}

func badInputError(message string, metadata map[string]any) *goerrors.Error {
	err := newImportError(message, goerrors.CategoryBadInput, ImportErrorBadInput)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}
