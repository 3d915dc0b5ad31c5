package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question batches from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error)
}

// QuestionBank caches marshalled question batches in Redis and falls back to
// a loader on cache miss. Batches are stored as:
// SET questions:{cacheKey} {json} EX ttl
type QuestionBank struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Fetch(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	key := b.key(query)

	if questions, ok := b.cached(ctx, key); ok {
		return trim(questions, query.Count), nil
	}

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if questions, ok := b.cached(ctx, key); ok {
			return questions, nil
		}

		questions, err := b.loader.LoadQuestions(ctx, query)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("marshal batch: %w", err)
		}
		_ = b.client.Set(ctx, key, raw, b.ttlWithJitter()).Err()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return trim(result.([]domain.Question), query.Count), nil
}

func (b *QuestionBank) cached(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := b.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, false
	}
	return questions, len(questions) > 0
}

func (b *QuestionBank) key(query domain.QuestionQuery) string {
	return "questions:" + query.CacheKey()
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func trim(questions []domain.Question, count int) []domain.Question {
	if count > 0 && len(questions) > count {
		return questions[:count]
	}
	return questions
}
