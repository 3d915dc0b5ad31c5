package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

// QuestionLoader loads question batches stored as JSONB in Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, query domain.QuestionQuery) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx,
		`SELECT data FROM question_batches
		 WHERE game_type=$1 AND difficulty=$2 AND region=$3 AND mode=$4`,
		query.GameType, string(query.Difficulty), query.Region, string(query.Mode),
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrEmptyBatch
	}
	if err != nil {
		return nil, fmt.Errorf("load question batch: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal question batch: %w", err)
	}
	if len(questions) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	return questions, nil
}
