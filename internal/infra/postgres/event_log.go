package postgres

import (
	"context"
	"fmt"

	"getlowlevel-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// EventLog appends submissions to user_submissions; seq keeps insertion order.
type EventLog struct {
	pool *pgxpool.Pool
}

func NewEventLog(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

func (l *EventLog) Append(ctx context.Context, ev domain.SubmissionEvent) error {
	_, err := l.pool.Exec(ctx, `
INSERT INTO user_submissions (id, uid, question_title, status, difficulty, topic, language, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.UserID, ev.QuestionTitle, string(ev.Status), ev.Difficulty, ev.Topic, ev.Language, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func (l *EventLog) ListByUser(ctx context.Context, uid string, limit int) ([]domain.SubmissionEvent, error) {
	out := []domain.SubmissionEvent{}
	if limit <= 0 {
		return out, nil
	}
	rows, err := l.pool.Query(ctx, `
SELECT id::text, uid, question_title, status, difficulty, topic, language, created_at
FROM user_submissions
WHERE uid = $1
ORDER BY seq DESC
LIMIT $2`, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ev     domain.SubmissionEvent
			status string
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.QuestionTitle, &status, &ev.Difficulty, &ev.Topic, &ev.Language, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		ev.Status = domain.SubmissionStatus(status)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (l *EventLog) DeleteByUser(ctx context.Context, uid string) error {
	if _, err := l.pool.Exec(ctx, `DELETE FROM user_submissions WHERE uid = $1`, uid); err != nil {
		return fmt.Errorf("delete submissions: %w", err)
	}
	return nil
}
