package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[string][]domain.Question{
			sampleQuery().CacheKey(): sampleBatch(),
		}),
	}
	bank := NewQuestionBank(loader, time.Minute)

	if _, err := bank.Fetch(context.Background(), sampleQuery()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := bank.Fetch(context.Background(), sampleQuery()); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionBankTrimsToCount(t *testing.T) {
	bank := NewQuestionBank(NewStaticQuestionLoader(map[string][]domain.Question{
		sampleQuery().CacheKey(): sampleBatch(),
	}), time.Minute)

	query := sampleQuery()
	query.Count = 1
	questions, err := bank.Fetch(context.Background(), query)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected trimmed batch of 1, got %d", len(questions))
	}
}

func TestQuestionBankMissingBatch(t *testing.T) {
	bank := NewQuestionBank(NewStaticQuestionLoader(nil), time.Minute)
	_, err := bank.Fetch(context.Background(), sampleQuery())
	if !errors.Is(err, domain.ErrEmptyBatch) {
		t.Fatalf("expected empty-batch error, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, query)
}

func sampleQuery() domain.QuestionQuery {
	return domain.QuestionQuery{
		GameType:   "capitals",
		Count:      2,
		Difficulty: domain.DifficultyMedium,
		Mode:       domain.ModeChoice,
	}
}

func sampleBatch() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			Prompt:        "What is the capital of France?",
			Options:       []string{"Paris", "Lyon"},
			CorrectAnswer: "Paris",
		},
		{
			ID:            "q2",
			Prompt:        "What is the capital of Spain?",
			Options:       []string{"Madrid", "Seville"},
			CorrectAnswer: "Madrid",
		},
	}
}
