package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"getlowlevel-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
)

// QuestionLoader loads the question bank JSONB from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM questions ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	Title     string          `bun:"title,pk"`
	Data      domain.Question `bun:"data,type:jsonb"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ImportQuestions upserts the bank by title; existing rows get the new content.
// When the input repeats a title the last entry wins.
func ImportQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	rows := questionRows(questions, time.Now().UTC())
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (title) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("import questions: %w", err)
	}
	return len(rows), nil
}

// questionRows builds one row per title. A single INSERT ... ON CONFLICT cannot
// touch the same row twice, so later duplicates replace earlier ones in place.
func questionRows(questions []domain.Question, now time.Time) []questionRow {
	rows := make([]questionRow, 0, len(questions))
	index := make(map[string]int, len(questions))
	for _, q := range questions {
		row := questionRow{Title: q.Title, Data: q, UpdatedAt: now}
		if i, ok := index[q.Title]; ok {
			rows[i] = row
			continue
		}
		index[q.Title] = len(rows)
		rows = append(rows, row)
	}
	return rows
}
