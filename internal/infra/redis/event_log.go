package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"getlowlevel-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// EventLog stores submissions as a JSON list per user, newest at the head:
//
//	LPUSH user:{uid}:submissions {event}
type EventLog struct {
	client *redis.Client
}

func NewEventLog(client *redis.Client) *EventLog {
	return &EventLog{client: client}
}

func submissionsKey(uid string) string { return userKey(uid) + ":submissions" }

func (l *EventLog) Append(ctx context.Context, event domain.SubmissionEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}
	return l.client.LPush(ctx, submissionsKey(event.UserID), raw).Err()
}

func (l *EventLog) ListByUser(ctx context.Context, uid string, limit int) ([]domain.SubmissionEvent, error) {
	if limit <= 0 {
		return []domain.SubmissionEvent{}, nil
	}
	items, err := l.client.LRange(ctx, submissionsKey(uid), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.SubmissionEvent, 0, len(items))
	for _, item := range items {
		var ev domain.SubmissionEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (l *EventLog) DeleteByUser(ctx context.Context, uid string) error {
	return l.client.Del(ctx, submissionsKey(uid)).Err()
}
