package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusConfirmed  SessionStatus = "confirmed"
	SessionStatusFailed     SessionStatus = "failed"
)

const defaultListLimit = 50

func (s SessionStatus) Terminal() bool {
	return s == SessionStatusConfirmed || s == SessionStatusFailed
}

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusPending, SessionStatusProcessing, SessionStatusConfirmed, SessionStatusFailed:
		return true
	default:
		return false
	}
}

// Session is the mutable state of one uploaded file between header detection
// and confirmation. Version grows by one on every stored change.
type Session struct {
	ID            string        `json:"id"`
	FileID        string        `json:"file_id"`
	RawHeaders    []string      `json:"raw_headers"`
	PreviewRows   [][]string    `json:"preview_rows"`
	Mapping       Mapping       `json:"mapping"`
	Status        SessionStatus `json:"status"`
	Version       int64         `json:"version"`
	Report        *ImportReport `json:"report,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	ConfirmedAt   *time.Time    `json:"confirmed_at,omitempty"`
}

// StatusTransition moves a session from From to To only if it is still in
// From. Report and FailureReason are written with the new status.
type StatusTransition struct {
	FileID        string
	From          SessionStatus
	To            SessionStatus
	Report        *ImportReport
	FailureReason string
	At            time.Time
}

func (t StatusTransition) Validate() error {
	if strings.TrimSpace(t.FileID) == "" {
		return fmt.Errorf("core: file id is required for status transition")
	}
	if !t.From.Valid() || !t.To.Valid() {
		return fmt.Errorf("core: invalid status transition %q -> %q", t.From, t.To)
	}
	if t.From.Terminal() {
		return fmt.Errorf("core: invalid status transition from terminal status %q", t.From)
	}
	return nil
}

// SessionStore persists sessions. Every mutating call checks the current
// status atomically and returns ErrSessionStatusConflict when it has moved.
type SessionStore interface {
	Create(ctx context.Context, session Session) (Session, error)
	Get(ctx context.Context, fileID string) (Session, error)
	UpdateMapping(ctx context.Context, fileID string, mapping Mapping) (Session, error)
	CompareAndSetStatus(ctx context.Context, transition StatusTransition) (Session, error)
	DeletePending(ctx context.Context, fileID string) error
}

// SessionLister is implemented by stores that can page through sessions in
// one status, least recently updated first. total counts every match.
type SessionLister interface {
	ListByStatus(ctx context.Context, status SessionStatus, limit, offset int) (sessions []Session, total int, err error)
}

type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	nowFn    func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[string]Session{},
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemorySessionStore) Create(_ context.Context, session Session) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("core: session store is not configured")
	}
	session.FileID = strings.TrimSpace(session.FileID)
	if session.FileID == "" {
		return Session{}, fmt.Errorf("core: file id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.FileID]; exists {
		return Session{}, ErrSessionExists
	}
	now := s.nowFn()
	if session.ID == "" {
		session.ID = session.FileID
	}
	if session.Status == "" {
		session.Status = SessionStatusPending
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	session.Version = 1
	session = cloneSession(session)
	s.sessions[session.FileID] = session
	return cloneSession(session), nil
}

func (s *MemorySessionStore) Get(_ context.Context, fileID string) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("core: session store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[strings.TrimSpace(fileID)]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *MemorySessionStore) UpdateMapping(_ context.Context, fileID string, mapping Mapping) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("core: session store is not configured")
	}
	fileID = strings.TrimSpace(fileID)
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[fileID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if session.Status != SessionStatusPending {
		return cloneSession(session), ErrSessionStatusConflict
	}
	session.Mapping = mapping.Compact()
	session.Version++
	session.UpdatedAt = s.nowFn()
	s.sessions[fileID] = session
	return cloneSession(session), nil
}

func (s *MemorySessionStore) CompareAndSetStatus(_ context.Context, transition StatusTransition) (Session, error) {
	if s == nil {
		return Session{}, fmt.Errorf("core: session store is not configured")
	}
	if err := transition.Validate(); err != nil {
		return Session{}, err
	}
	fileID := strings.TrimSpace(transition.FileID)
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[fileID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if session.Status != transition.From {
		return cloneSession(session), ErrSessionStatusConflict
	}
	at := transition.At
	if at.IsZero() {
		at = s.nowFn()
	}
	applyTransition(&session, transition, at)
	s.sessions[fileID] = session
	return cloneSession(session), nil
}

func (s *MemorySessionStore) ListByStatus(_ context.Context, status SessionStatus, limit, offset int) ([]Session, int, error) {
	if s == nil {
		return nil, 0, fmt.Errorf("core: session store is not configured")
	}
	if !status.Valid() {
		return nil, 0, fmt.Errorf("core: invalid session status %q", status)
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset = max(offset, 0)

	s.mu.Lock()
	matches := make([]Session, 0)
	for _, session := range s.sessions {
		if session.Status == status {
			matches = append(matches, cloneSession(session))
		}
	}
	s.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.Before(matches[j].UpdatedAt)
		}
		return matches[i].FileID < matches[j].FileID
	})
	total := len(matches)
	if offset >= total {
		return []Session{}, total, nil
	}
	end := min(offset+limit, total)
	return matches[offset:end], total, nil
}

func (s *MemorySessionStore) DeletePending(_ context.Context, fileID string) error {
	if s == nil {
		return fmt.Errorf("core: session store is not configured")
	}
	fileID = strings.TrimSpace(fileID)
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[fileID]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Status != SessionStatusPending {
		return ErrSessionStatusConflict
	}
	delete(s.sessions, fileID)
	return nil
}

// applyTransition is shared by stores that keep sessions in memory.
func applyTransition(session *Session, transition StatusTransition, at time.Time) {
	session.Status = transition.To
	session.Version++
	session.UpdatedAt = at
	if transition.Report != nil {
		report := cloneReport(*transition.Report)
		session.Report = &report
	} else if transition.To == SessionStatusPending {
		session.Report = nil
	}
	session.FailureReason = strings.TrimSpace(transition.FailureReason)
	if transition.To.Terminal() {
		confirmedAt := at
		session.ConfirmedAt = &confirmedAt
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s Session) Clone() Session {
	return cloneSession(s)
}

func cloneSession(session Session) Session {
	session.RawHeaders = append([]string(nil), session.RawHeaders...)
	if session.PreviewRows != nil {
		rows := make([][]string, len(session.PreviewRows))
		for i, row := range session.PreviewRows {
			rows[i] = append([]string(nil), row...)
		}
		session.PreviewRows = rows
	}
	session.Mapping = session.Mapping.Clone()
	if session.Report != nil {
		report := cloneReport(*session.Report)
		session.Report = &report
	}
	if session.ConfirmedAt != nil {
		confirmedAt := *session.ConfirmedAt
		session.ConfirmedAt = &confirmedAt
	}
	return session
}

func cloneReport(report ImportReport) ImportReport {
	report.Errors = append([]string{}, report.Errors...)
	return report
}
