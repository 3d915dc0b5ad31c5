package memory

import (
	"context"
	"sync"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

// MatchStore is an in-memory implementation of app.MatchStore.
type MatchStore struct {
	mu      sync.RWMutex
	records map[string]domain.Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{records: make(map[string]domain.Match)}
}

func (s *MatchStore) Save(_ context.Context, match domain.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[match.ID] = match
	return nil
}

func (s *MatchStore) Get(_ context.Context, id string) (domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.records[id]
	if !ok {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	return match, nil
}
