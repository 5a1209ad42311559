package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	recoveryPageSize       = 50
	abandonedFailureReason = "processing abandoned"
)

// RecoverStaleSessions fails every session that has sat in processing for at
// least olderThan. A confirm that died between claiming a session and
// settling it leaves it there, and no other call can move it on. The store
// must implement SessionLister.
func (s *Service) RecoverStaleSessions(ctx context.Context, olderThan time.Duration) (recovered []Session, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"older_than_ms": olderThan.Milliseconds()}
	defer func() {
		fields["recovered"] = len(recovered)
		s.observeOperation(ctx, startedAt, "recover_stale_sessions", err, fields)
	}()

	if err = s.requireSessionStore(); err != nil {
		return nil, err
	}
	lister, ok := s.sessionStore.(SessionLister)
	if !ok {
		return nil, s.mapError(fmt.Errorf("core: session store cannot list sessions"))
	}
	if olderThan <= 0 {
		return nil, badInputError("core: stale session age must be positive", map[string]any{
			"older_than_ms": olderThan.Milliseconds(),
		})
	}
	cutoff := s.now().Add(-olderThan)

	recovered = []Session{}
	seen := map[string]struct{}{}
	for {
		page, _, listErr := lister.ListByStatus(ctx, SessionStatusProcessing, recoveryPageSize, 0)
		if listErr != nil {
			err = s.mapError(listErr)
			return recovered, err
		}
		progressed := false
		for _, session := range page {
			if !session.UpdatedAt.Before(cutoff) {
				return recovered, nil
			}
			if _, dup := seen[session.FileID]; dup {
				continue
			}
			seen[session.FileID] = struct{}{}
			progressed = true

			failed, failErr := s.abandon(ctx, session.FileID)
			if errors.Is(failErr, ErrSessionStatusConflict) || errors.Is(failErr, ErrSessionNotFound) {
				continue
			}
			if failErr != nil {
				err = s.mapError(failErr)
				return recovered, err
			}
			recovered = append(recovered, failed)
		}
		if !progressed || len(page) < recoveryPageSize {
			return recovered, nil
		}
	}
}

func (s *Service) abandon(ctx context.Context, fileID string) (Session, error) {
	aggregator := NewImportReportAggregator(s.config.Report.MaxErrors)
	aggregator.Fail(abandonedFailureReason)
	report := aggregator.Report()
	return s.setStatus(ctx, StatusTransition{
		FileID:        fileID,
		From:          SessionStatusProcessing,
		To:            SessionStatusFailed,
		Report:        &report,
		FailureReason: abandonedFailureReason,
		At:            s.now(),
	})
}
