package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
)

// SessionSink durably records solo sessions: one row on open, updated in
// place on finalize.
type SessionSink struct {
	pool *pgxpool.Pool
}

func NewSessionSink(pool *pgxpool.Pool) *SessionSink {
	return &SessionSink{pool: pool}
}

func (s *SessionSink) Open(ctx context.Context, query domain.QuestionQuery) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO play_sessions (id, game_type, difficulty, region, mode)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, query.GameType, string(query.Difficulty), query.Region, string(query.Mode),
	)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	return id, nil
}

func (s *SessionSink) Finalize(ctx context.Context, sessionID string, summary domain.SessionSummary) error {
	answers, err := json.Marshal(summary.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE play_sessions
		 SET score=$2, xp_earned=$3, correct_count=$4, average_time_ms=$5,
		     answers=$6::jsonb, finalized_at=now()
		 WHERE id=$1 AND finalized_at IS NULL`,
		sessionID, summary.Score, summary.XPEarned, summary.CorrectCount,
		summary.AverageTimeMs, string(answers),
	)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
