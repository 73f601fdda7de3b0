package memory

import (
	"context"
	"sync"

	"getlowlevel-service/internal/domain"
)

// EventLog keeps submission events per user in append order.
type EventLog struct {
	mu     sync.RWMutex
	byUser map[string][]domain.SubmissionEvent
}

func NewEventLog() *EventLog {
	return &EventLog{byUser: make(map[string][]domain.SubmissionEvent)}
}

func (l *EventLog) Append(_ context.Context, event domain.SubmissionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byUser[event.UserID] = append(l.byUser[event.UserID], event)
	return nil
}

// ListByUser returns up to limit events, newest first.
func (l *EventLog) ListByUser(_ context.Context, uid string, limit int) ([]domain.SubmissionEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	events := l.byUser[uid]
	if limit <= 0 {
		return []domain.SubmissionEvent{}, nil
	}
	out := make([]domain.SubmissionEvent, 0, min(len(events), limit))
	for i := len(events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, events[i])
	}
	return out, nil
}

func (l *EventLog) DeleteByUser(_ context.Context, uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.byUser, uid)
	return nil
}
