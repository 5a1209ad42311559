package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

func (s *Service) OpenSession(ctx context.Context, req OpenSessionRequest) (session Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"file_id":      strings.TrimSpace(req.FileID),
		"header_count": len(req.RawHeaders),
	}
	defer func() {
		if session.FileID != "" {
			fields["file_id"] = session.FileID
			fields["mapped_count"] = len(session.Mapping)
		}
		s.observeOperation(ctx, startedAt, "open_session", err, fields)
	}()

	if err = s.requireSessionStore(); err != nil {
		return Session{}, err
	}
	fileID := strings.TrimSpace(req.FileID)
	if IsEmptyHeaderRow(req.RawHeaders) {
		return Session{}, EmptyFileError(fileID)
	}
	if fileID == "" {
		fileID = s.idGenerator()
	}

	now := s.now()
	session, err = s.sessionStore.Create(ctx, Session{
		ID:          s.idGenerator(),
		FileID:      fileID,
		RawHeaders:  append([]string(nil), req.RawHeaders...),
		PreviewRows: s.capPreview(req.PreviewRows),
		Mapping:     s.suggester.Suggest(req.RawHeaders),
		Status:      SessionStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		err = s.mapError(err)
		return Session{}, err
	}
	return session, nil
}

func (s *Service) GetSession(ctx context.Context, fileID string) (session Session, err error) {
	if err = s.requireSessionStore(); err != nil {
		return Session{}, err
	}
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return Session{}, s.mapError(fmt.Errorf("core: file id is required"))
	}
	session, err = s.sessionStore.Get(ctx, fileID)
	if err != nil {
		return Session{}, s.mapError(err)
	}
	return session, nil
}

// ReplaceMapping overwrites the whole pending mapping.
func (s *Service) ReplaceMapping(ctx context.Context, req ReplaceMappingRequest) (session Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"file_id": strings.TrimSpace(req.FileID)}
	defer func() {
		s.observeOperation(ctx, startedAt, "replace_mapping", err, fields)
	}()

	if err = s.requireSessionStore(); err != nil {
		return Session{}, err
	}
	fileID := strings.TrimSpace(req.FileID)
	if fileID == "" {
		return Session{}, s.mapError(fmt.Errorf("core: file id is required"))
	}
	if err = s.checkMappingKeys(fileID, req.Mapping); err != nil {
		return Session{}, err
	}
	session, err = s.updateMapping(ctx, fileID, req.Mapping.Compact())
	if err != nil {
		return Session{}, err
	}
	fields["mapped_count"] = len(session.Mapping)
	return session, nil
}

// SetFieldMapping assigns one field; a blank header clears it.
func (s *Service) SetFieldMapping(ctx context.Context, req SetFieldMappingRequest) (session Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"file_id":   strings.TrimSpace(req.FileID),
		"field_key": strings.TrimSpace(req.FieldKey),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "set_field_mapping", err, fields)
	}()

	if err = s.requireSessionStore(); err != nil {
		return Session{}, err
	}
	fileID := strings.TrimSpace(req.FileID)
	key := strings.TrimSpace(req.FieldKey)
	if fileID == "" {
		return Session{}, s.mapError(fmt.Errorf("core: file id is required"))
	}
	if key == "" {
		return Session{}, s.mapError(fmt.Errorf("core: field key is required"))
	}
	if err = s.checkMappingKeys(fileID, Mapping{key: req.Header}); err != nil {
		return Session{}, err
	}

	current, err := s.sessionStore.Get(ctx, fileID)
	if err != nil {
		return Session{}, s.mapError(err)
	}
	if current.Status != SessionStatusPending {
		return Session{}, AlreadyProcessedError(fileID, current.Status)
	}
	mapping := current.Mapping.Clone()
	if strings.TrimSpace(req.Header) == "" {
		delete(mapping, key)
	} else {
		mapping[key] = req.Header
	}
	return s.updateMapping(ctx, fileID, mapping)
}

// ConfirmMapping is the single commit point for a session. The pending to
// processing transition happens before validation, so concurrent callers see
// exactly one winner and the rest get AlreadyProcessed without side effects.
func (s *Service) ConfirmMapping(ctx context.Context, req ConfirmMappingRequest) (result ConfirmMappingResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"file_id": strings.TrimSpace(req.FileID)}
	defer func() {
		if result.Session.Status != "" {
			fields["session_status"] = string(result.Session.Status)
			fields["accepted_rows"] = result.Report.AcceptedRowCount
			fields["skipped_rows"] = result.Report.SkippedRowCount
		}
		s.observeOperation(ctx, startedAt, "confirm_mapping", err, fields)
	}()

	if err = s.requireSessionStore(); err != nil {
		return ConfirmMappingResult{}, err
	}
	fileID := strings.TrimSpace(req.FileID)
	if fileID == "" {
		return ConfirmMappingResult{}, s.mapError(fmt.Errorf("core: file id is required"))
	}
	if s.rowProcessor == nil {
		return ConfirmMappingResult{}, s.mapError(fmt.Errorf("core: row processor is not configured"))
	}
	if req.Mapping != nil {
		if err = s.checkMappingKeys(fileID, req.Mapping); err != nil {
			return ConfirmMappingResult{}, err
		}
		if _, err = s.updateMapping(ctx, fileID, req.Mapping.Compact()); err != nil {
			return ConfirmMappingResult{}, err
		}
	}

	session, err := s.setStatus(ctx, StatusTransition{
		FileID: fileID,
		From:   SessionStatusPending,
		To:     SessionStatusProcessing,
		At:     s.now(),
	})
	if err != nil {
		err = s.transitionError(ctx, fileID, session, err)
		return ConfirmMappingResult{}, err
	}

	// Store writes after this point must land even if the caller gave up, or
	// the session would stay in processing.
	storeCtx := context.WithoutCancel(ctx)

	resolution := s.resolver.Resolve(session.Mapping)
	issues := s.validator.Validate(session.Mapping, resolution.Required, session.RawHeaders)
	if len(issues) > 0 {
		fields["validation_errors"] = len(issues)
		if _, revertErr := s.setStatus(storeCtx, StatusTransition{
			FileID: fileID,
			From:   SessionStatusProcessing,
			To:     SessionStatusPending,
			At:     s.now(),
		}); revertErr != nil {
			err = s.mapError(revertErr)
			return ConfirmMappingResult{}, err
		}
		err = MappingInvalidError(fileID, issues)
		return ConfirmMappingResult{}, err
	}

	report, procErr := s.processRows(ctx, session)
	if procErr != nil {
		failed, storeErr := s.setStatus(storeCtx, StatusTransition{
			FileID:        fileID,
			From:          SessionStatusProcessing,
			To:            SessionStatusFailed,
			Report:        &report,
			FailureReason: procErr.Error(),
			At:            s.now(),
		})
		if storeErr != nil {
			err = s.mapError(storeErr)
			return ConfirmMappingResult{}, err
		}
		result = ConfirmMappingResult{Session: failed, Report: report}
		err = processingFailedError(fileID, procErr)
		return result, err
	}

	confirmed, err := s.setStatus(storeCtx, StatusTransition{
		FileID: fileID,
		From:   SessionStatusProcessing,
		To:     SessionStatusConfirmed,
		Report: &report,
		At:     s.now(),
	})
	if err != nil {
		err = s.mapError(err)
		return ConfirmMappingResult{}, err
	}
	return ConfirmMappingResult{Session: confirmed, Report: report}, nil
}

// DiscardSession abandons a pending session.
func (s *Service) DiscardSession(ctx context.Context, fileID string) (err error) {
	startedAt := time.Now().UTC()
	fileID = strings.TrimSpace(fileID)
	defer func() {
		s.observeOperation(ctx, startedAt, "discard_session", err, map[string]any{"file_id": fileID})
	}()

	if err = s.requireSessionStore(); err != nil {
		return err
	}
	if fileID == "" {
		return s.mapError(fmt.Errorf("core: file id is required"))
	}
	if err = s.sessionStore.DeletePending(ctx, fileID); err != nil {
		err = s.transitionError(ctx, fileID, Session{}, err)
		return err
	}
	return nil
}

// PreviewMapping reports what confirming now would find, without changing the
// session.
func (s *Service) PreviewMapping(ctx context.Context, fileID string) (preview MappingPreview, err error) {
	session, err := s.GetSession(ctx, fileID)
	if err != nil {
		return MappingPreview{}, err
	}
	resolution := s.resolver.Resolve(session.Mapping)

	preview = MappingPreview{
		FileID:       session.FileID,
		Status:       session.Status,
		Mapping:      session.Mapping.Clone(),
		Required:     resolution.Required.Keys(),
		ActiveGroups: append([]GroupID{}, resolution.ActiveGroups...),
		Errors:       s.validator.Validate(session.Mapping, resolution.Required, session.RawHeaders),
		Warnings:     s.validator.PreviewWarnings(session.Mapping, session.RawHeaders, session.PreviewRows),
		Rows:         projectPreviewRows(session),
	}
	if preview.Errors == nil {
		preview.Errors = []ValidationError{}
	}
	if preview.Warnings == nil {
		preview.Warnings = []ValidationError{}
	}
	for _, field := range s.catalog.Fields() {
		header, _ := session.Mapping.Header(field.Key)
		preview.Fields = append(preview.Fields, FieldHint{
			Key:         field.Key,
			Label:       field.Label,
			Header:      header,
			Requirement: resolution.Fields[field.Key],
		})
	}
	return preview, nil
}

func (s *Service) processRows(ctx context.Context, session Session) (ImportReport, error) {
	procCtx := ctx
	if timeout := s.config.Processing.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		procCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	aggregator := NewImportReportAggregator(s.config.Report.MaxErrors)
	var (
		mu     sync.Mutex
		closed bool
	)
	emit := func(outcome RowOutcome) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		aggregator.Add(outcome)
	}

	job := ImportJob{
		FileID:     session.FileID,
		RawHeaders: append([]string(nil), session.RawHeaders...),
		Mapping:    session.Mapping.Clone(),
	}
	err := func() (err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				err = fmt.Errorf("core: row processor panicked: %v", recovered)
			}
		}()
		return s.rowProcessor.ProcessRows(procCtx, job, emit)
	}()
	// A processor that returns nil after the caller went away still finished
	// the file. Only the processing timeout turns a clean return into a failure.
	if err == nil && ctx.Err() == nil {
		err = procCtx.Err()
	}

	mu.Lock()
	closed = true
	if err != nil {
		aggregator.Fail(err.Error())
	}
	report := aggregator.Report()
	mu.Unlock()
	return report, err
}

func (s *Service) updateMapping(ctx context.Context, fileID string, mapping Mapping) (Session, error) {
	session, err := s.sessionStore.UpdateMapping(ctx, fileID, mapping)
	if err != nil {
		return Session{}, s.transitionError(ctx, fileID, session, err)
	}
	return session, nil
}

// setStatus applies a status transition. A store that reports an error but
// hands back the session already in the target status has committed the
// write, so the session is settled and the error only logged.
func (s *Service) setStatus(ctx context.Context, transition StatusTransition) (Session, error) {
	session, err := s.sessionStore.CompareAndSetStatus(ctx, transition)
	if err == nil || errors.Is(err, ErrSessionStatusConflict) || errors.Is(err, ErrSessionNotFound) {
		return session, err
	}
	if session.FileID == "" || session.Status != transition.To {
		return session, err
	}
	s.logWarn(ctx, "import session transition committed with store error", map[string]any{
		"file_id": session.FileID,
		"from":    string(transition.From),
		"to":      string(transition.To),
		"error":   err.Error(),
	})
	return session, nil
}

// transitionError turns a store conflict into AlreadyProcessed carrying the
// session's current status.
func (s *Service) transitionError(ctx context.Context, fileID string, current Session, err error) error {
	if !errors.Is(err, ErrSessionStatusConflict) {
		return s.mapError(err)
	}
	status := current.Status
	if status == "" {
		if latest, getErr := s.sessionStore.Get(ctx, fileID); getErr == nil {
			status = latest.Status
		}
	}
	return AlreadyProcessedError(fileID, status)
}

func (s *Service) checkMappingKeys(fileID string, mapping Mapping) error {
	var unknown []string
	for key := range mapping {
		key = strings.TrimSpace(key)
		if _, ok := s.catalog.Field(key); !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return badInputError(
		"core: unknown field key(s): "+strings.Join(unknown, ", "),
		map[string]any{"file_id": fileID, "unknown_fields": unknown},
	)
}

func (s *Service) requireSessionStore() error {
	if s == nil || s.sessionStore == nil {
		return fmt.Errorf("core: session store is required")
	}
	return nil
}

func projectPreviewRows(session Session) []map[string]string {
	position := make(map[string]int, len(session.RawHeaders))
	for i, header := range session.RawHeaders {
		if _, exists := position[header]; !exists {
			position[header] = i
		}
	}
	rows := make([]map[string]string, 0, len(session.PreviewRows))
	for _, raw := range session.PreviewRows {
		row := map[string]string{}
		for key := range session.Mapping {
			header, ok := session.Mapping.Header(key)
			if !ok {
				continue
			}
			column, exists := position[header]
			if !exists || column >= len(raw) {
				continue
			}
			row[key] = raw[column]
		}
		rows = append(rows, row)
	}
	return rows
}
