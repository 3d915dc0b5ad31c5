package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createEngineTablesSQL = `
CREATE TABLE IF NOT EXISTS question_batches (
	id BIGSERIAL PRIMARY KEY,
	game_type TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	region TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL DEFAULT '',
	data JSONB NOT NULL,
	UNIQUE (game_type, difficulty, region, mode)
);

CREATE TABLE IF NOT EXISTS play_sessions (
	id UUID PRIMARY KEY,
	game_type TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	region TEXT NOT NULL DEFAULT '',
	mode TEXT NOT NULL DEFAULT '',
	score INT NOT NULL DEFAULT 0,
	xp_earned INT NOT NULL DEFAULT 0,
	correct_count INT NOT NULL DEFAULT 0,
	average_time_ms INT NOT NULL DEFAULT 0,
	answers JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	finalized_at TIMESTAMPTZ
);
`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createEngineTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS play_sessions; DROP TABLE IF EXISTS question_batches`)
			return err
		},
	)
}
