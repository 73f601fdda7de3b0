package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository caches the question bank in Redis and falls back to a loader on miss.
// Questions are stored as: HSET questions:bank {title} {question json}
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

const bankKey = "questions:bank"

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, title string) (domain.Question, error) {
	raw, err := r.client.HGet(ctx, bankKey, title).Result()
	if err == nil {
		return decodeQuestion(raw)
	}
	if !errors.Is(err, redis.Nil) {
		return domain.Question{}, err
	}

	// miss: either the title is unknown or the bank expired
	exists, err := r.client.Exists(ctx, bankKey).Result()
	if err != nil {
		return domain.Question{}, err
	}
	if exists == 1 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	bank, err := r.warm(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range bank {
		if q.Title == title {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	cached, err := r.client.HGetAll(ctx, bankKey).Result()
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		out := make([]domain.Question, 0, len(cached))
		for _, raw := range cached {
			q, err := decodeQuestion(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		}
		return out, nil
	}
	return r.warm(ctx)
}

func (r *QuestionRepository) warm(ctx context.Context) ([]domain.Question, error) {
	result, err, _ := r.sf.Do(bankKey, func() (interface{}, error) {
		bank, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}
		if len(bank) == 0 {
			return bank, nil
		}

		values := make([]interface{}, 0, len(bank)*2)
		for _, q := range bank {
			raw, err := json.Marshal(q)
			if err != nil {
				return nil, fmt.Errorf("encode question %q: %w", q.Title, err)
			}
			values = append(values, q.Title, raw)
		}
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, bankKey)
		pipe.HSet(ctx, bankKey, values...)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, bankKey, ttl)
		}
		// the loaded bank is still served if the cache write fails
		_, _ = pipe.Exec(ctx)
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func decodeQuestion(raw string) (domain.Question, error) {
	var q domain.Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return domain.Question{}, fmt.Errorf("decode question: %w", err)
	}
	return q, nil
}
