package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

var createUserProgressSQL = []string{
	`CREATE TABLE IF NOT EXISTS user_aggregates (
		uid             TEXT PRIMARY KEY,
		display_name    TEXT NOT NULL DEFAULT '',
		email           TEXT NOT NULL DEFAULT '',
		photo_url       TEXT NOT NULL DEFAULT '',
		total_completed INTEGER NOT NULL DEFAULT 0,
		correct_count   INTEGER NOT NULL DEFAULT 0,
		incorrect_count INTEGER NOT NULL DEFAULT 0,
		languages       JSONB NOT NULL DEFAULT '{}',
		topics          JSONB NOT NULL DEFAULT '{}',
		show_avatar     BOOLEAN NOT NULL DEFAULT TRUE,
		socials         JSONB NOT NULL DEFAULT '{}',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_login      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_completed_questions (
		uid            TEXT NOT NULL REFERENCES user_aggregates (uid) ON DELETE CASCADE,
		question_title TEXT NOT NULL,
		completed_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (uid, question_title)
	)`,
	`CREATE TABLE IF NOT EXISTS user_submissions (
		seq            BIGSERIAL PRIMARY KEY,
		id             UUID NOT NULL UNIQUE,
		uid            TEXT NOT NULL,
		question_title TEXT NOT NULL,
		status         TEXT NOT NULL CHECK (status IN ('correct', 'incorrect')),
		difficulty     TEXT NOT NULL DEFAULT '',
		topic          TEXT NOT NULL DEFAULT '',
		language       TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS user_submissions_uid_seq_idx ON user_submissions (uid, seq DESC)`,
}

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			for _, stmt := range createUserProgressSQL {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS user_submissions, user_completed_questions, user_aggregates`)
			return err
		},
	)
}
