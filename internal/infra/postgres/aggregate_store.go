package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"getlowlevel-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AggregateStore keeps user aggregates in user_aggregates, with the completed
// set normalized into user_completed_questions so membership checks are a
// primary-key conflict.
type AggregateStore struct {
	pool *pgxpool.Pool
}

func NewAggregateStore(pool *pgxpool.Pool) *AggregateStore {
	return &AggregateStore{pool: pool}
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const selectAggregate = `
SELECT a.uid, a.display_name, a.email, a.photo_url,
       a.total_completed, a.correct_count, a.incorrect_count,
       a.languages, a.topics, a.show_avatar, a.socials,
       a.created_at, a.last_login,
       COALESCE((SELECT array_agg(c.question_title ORDER BY c.question_title)
                 FROM user_completed_questions c WHERE c.uid = a.uid), '{}')
FROM user_aggregates a`

func (s *AggregateStore) Provision(ctx context.Context, seed domain.UserAggregate) (domain.UserAggregate, error) {
	_, err := s.pool.Exec(ctx, `
INSERT INTO user_aggregates (uid, display_name, email, photo_url, show_avatar, created_at, last_login)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (uid) DO UPDATE
SET email = EXCLUDED.email, photo_url = EXCLUDED.photo_url, last_login = EXCLUDED.last_login`,
		seed.UID, seed.DisplayName, seed.Email, seed.PhotoURL, seed.Settings.ShowAvatar, seed.CreatedAt, seed.LastLogin)
	if err != nil {
		return domain.UserAggregate{}, fmt.Errorf("provision aggregate: %w", err)
	}
	return s.Get(ctx, seed.UID)
}

func (s *AggregateStore) Get(ctx context.Context, uid string) (domain.UserAggregate, error) {
	return getAggregate(ctx, s.pool, uid)
}

func (s *AggregateStore) List(ctx context.Context) ([]domain.UserAggregate, error) {
	rows, err := s.pool.Query(ctx, selectAggregate+` ORDER BY a.uid`)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	defer rows.Close()

	out := []domain.UserAggregate{}
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

// ApplySubmission locks the aggregate row so concurrent submissions for the
// same user serialize; the completed-question insert decides first-time credit.
func (s *AggregateStore) ApplySubmission(ctx context.Context, uid string, outcome domain.Outcome) (domain.ApplyResult, error) {
	var result domain.ApplyResult
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT uid FROM user_aggregates WHERE uid = $1 FOR UPDATE`, uid).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		if !outcome.Correct {
			if _, err := tx.Exec(ctx, `UPDATE user_aggregates SET incorrect_count = incorrect_count + 1 WHERE uid = $1`, uid); err != nil {
				return err
			}
		} else {
			tag, err := tx.Exec(ctx, `
INSERT INTO user_completed_questions (uid, question_title) VALUES ($1, $2)
ON CONFLICT (uid, question_title) DO NOTHING`, uid, outcome.QuestionTitle)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 1 {
				result.FirstTimeCorrect = true
				_, err = tx.Exec(ctx, `
UPDATE user_aggregates
SET correct_count = correct_count + 1,
    total_completed = total_completed + 1,
    languages = CASE WHEN $2::text = '' THEN languages
                ELSE jsonb_set(languages, ARRAY[$2::text], to_jsonb(COALESCE((languages ->> $2::text)::int, 0) + 1)) END,
    topics = CASE WHEN $3::text = '' THEN topics
             ELSE jsonb_set(topics, ARRAY[$3::text], to_jsonb(COALESCE((topics ->> $3::text)::int, 0) + 1)) END
WHERE uid = $1`, uid, outcome.Language, outcome.Topic)
				if err != nil {
					return err
				}
			}
		}

		agg, err := getAggregate(ctx, tx, uid)
		if err != nil {
			return err
		}
		result.Aggregate = agg
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ApplyResult{}, err
		}
		return domain.ApplyResult{}, fmt.Errorf("apply submission: %w", err)
	}
	return result, nil
}

func (s *AggregateStore) UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (domain.UserAggregate, error) {
	var showAvatar *bool
	if update.Settings != nil {
		showAvatar = &update.Settings.ShowAvatar
	}
	var socials *string
	if update.Socials != nil {
		raw, err := json.Marshal(update.Socials)
		if err != nil {
			return domain.UserAggregate{}, err
		}
		encoded := string(raw)
		socials = &encoded
	}

	tag, err := s.pool.Exec(ctx, `
UPDATE user_aggregates
SET display_name = COALESCE($2::text, display_name),
    show_avatar = COALESCE($3::boolean, show_avatar),
    socials = COALESCE($4::jsonb, socials)
WHERE uid = $1`, uid, update.DisplayName, showAvatar, socials)
	if err != nil {
		return domain.UserAggregate{}, fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	return s.Get(ctx, uid)
}

// Delete removes the aggregate; completed questions cascade.
func (s *AggregateStore) Delete(ctx context.Context, uid string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM user_aggregates WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete aggregate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func getAggregate(ctx context.Context, q queryer, uid string) (domain.UserAggregate, error) {
	agg, err := scanAggregate(q.QueryRow(ctx, selectAggregate+` WHERE a.uid = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	return agg, err
}

func scanAggregate(row pgx.Row) (domain.UserAggregate, error) {
	var (
		agg                        domain.UserAggregate
		languages, topics, socials []byte
	)
	err := row.Scan(
		&agg.UID, &agg.DisplayName, &agg.Email, &agg.PhotoURL,
		&agg.Stats.TotalCompleted, &agg.Stats.CorrectCount, &agg.Stats.IncorrectCount,
		&languages, &topics, &agg.Settings.ShowAvatar, &socials,
		&agg.CreatedAt, &agg.LastLogin,
		&agg.CompletedQuestions,
	)
	if err != nil {
		return domain.UserAggregate{}, err
	}
	if err := json.Unmarshal(languages, &agg.Stats.Languages); err != nil {
		return domain.UserAggregate{}, fmt.Errorf("decode languages: %w", err)
	}
	if err := json.Unmarshal(topics, &agg.Stats.Topics); err != nil {
		return domain.UserAggregate{}, fmt.Errorf("decode topics: %w", err)
	}
	if err := json.Unmarshal(socials, &agg.Socials); err != nil {
		return domain.UserAggregate{}, fmt.Errorf("decode socials: %w", err)
	}
	return agg.Clone(), nil
}
