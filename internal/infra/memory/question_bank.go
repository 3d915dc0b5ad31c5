package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question batches from a backing store (e.g., Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error)
}

// QuestionBank caches batches with TTL to avoid repeated provider hits.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBatch
}

type cachedBatch struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBatch),
	}
}

func (b *QuestionBank) Fetch(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	key := query.CacheKey()
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return trim(entry.questions, query.Count), nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do(key, func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.cache[key]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.questions, nil
		}
		b.mu.RUnlock()

		questions, err := b.loader.LoadQuestions(ctx, query)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[key] = cachedBatch{
			questions: questions,
			expiresAt: now.Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return trim(result.([]domain.Question), query.Count), nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

func trim(questions []domain.Question, count int) []domain.Question {
	if count > 0 && len(questions) > count {
		return questions[:count]
	}
	return questions
}

// StaticQuestionLoader serves batches from an in-memory map keyed by
// QuestionQuery.CacheKey (useful for tests/demos).
type StaticQuestionLoader struct {
	batches map[string][]domain.Question
}

func NewStaticQuestionLoader(batches map[string][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{batches: batches}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	if questions, ok := l.batches[query.CacheKey()]; ok {
		return questions, nil
	}
	return nil, domain.ErrEmptyBatch
}
