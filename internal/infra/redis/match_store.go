package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

// MatchStore keeps match registry records as JSON values with a TTL, so
// lobby/result screens can fetch them after the live match is gone.
type MatchStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewMatchStore(client *redis.Client, ttl time.Duration) *MatchStore {
	return &MatchStore{client: client, ttl: ttl}
}

func (s *MatchStore) Save(ctx context.Context, match domain.Match) error {
	raw, err := json.Marshal(match)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	return s.client.Set(ctx, s.key(match.ID), raw, s.ttl).Err()
}

func (s *MatchStore) Get(ctx context.Context, id string) (domain.Match, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return domain.Match{}, domain.ErrMatchNotFound
	}
	if err != nil {
		return domain.Match{}, fmt.Errorf("load match: %w", err)
	}
	var match domain.Match
	if err := json.Unmarshal(raw, &match); err != nil {
		return domain.Match{}, fmt.Errorf("unmarshal match: %w", err)
	}
	return match, nil
}

func (s *MatchStore) key(id string) string {
	return "match:" + id
}
