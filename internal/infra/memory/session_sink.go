package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

// SessionSink keeps finalized solo sessions in memory. It backs the server
// when no Postgres is configured, and doubles as a test spy.
type SessionSink struct {
	mu        sync.Mutex
	open      map[string]domain.QuestionQuery
	finalized map[string]domain.SessionSummary
}

func NewSessionSink() *SessionSink {
	return &SessionSink{
		open:      make(map[string]domain.QuestionQuery),
		finalized: make(map[string]domain.SessionSummary),
	}
}

func (s *SessionSink) Open(_ context.Context, query domain.QuestionQuery) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.open[id] = query
	return id, nil
}

func (s *SessionSink) Finalize(_ context.Context, sessionID string, summary domain.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.finalized[sessionID] = summary
	return nil
}

// Finalized returns the stored summary for a session, if any.
func (s *SessionSink) Finalized(sessionID string) (domain.SessionSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.finalized[sessionID]
	return summary, ok
}
