package memory

import (
	"context"
	"sort"
	"sync"

	"getlowlevel-service/internal/domain"
)

// AggregateStore is an in-memory implementation of app.AggregateStore.
// A single mutex makes ApplySubmission's membership check and increments atomic.
type AggregateStore struct {
	mu    sync.RWMutex
	users map[string]*record
}

type record struct {
	agg       domain.UserAggregate
	completed map[string]struct{}
}

func NewAggregateStore() *AggregateStore {
	return &AggregateStore{users: make(map[string]*record)}
}

func (s *AggregateStore) Provision(_ context.Context, seed domain.UserAggregate) (domain.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.users[seed.UID]; ok {
		rec.agg.Email = seed.Email
		rec.agg.PhotoURL = seed.PhotoURL
		rec.agg.LastLogin = seed.LastLogin
		return rec.snapshot(), nil
	}

	rec := &record{agg: seed.Clone(), completed: make(map[string]struct{})}
	for _, title := range rec.agg.CompletedQuestions {
		rec.completed[title] = struct{}{}
	}
	s.users[seed.UID] = rec
	return rec.snapshot(), nil
}

func (s *AggregateStore) Get(_ context.Context, uid string) (domain.UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[uid]
	if !ok {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	return rec.snapshot(), nil
}

func (s *AggregateStore) List(_ context.Context) ([]domain.UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserAggregate, 0, len(s.users))
	for _, rec := range s.users {
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *AggregateStore) ApplySubmission(_ context.Context, uid string, outcome domain.Outcome) (domain.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[uid]
	if !ok {
		return domain.ApplyResult{}, domain.ErrUserNotFound
	}

	stats := &rec.agg.Stats
	if !outcome.Correct {
		stats.IncorrectCount++
		return domain.ApplyResult{Aggregate: rec.snapshot()}, nil
	}
	if _, done := rec.completed[outcome.QuestionTitle]; done {
		return domain.ApplyResult{Aggregate: rec.snapshot()}, nil
	}

	rec.completed[outcome.QuestionTitle] = struct{}{}
	rec.agg.CompletedQuestions = append(rec.agg.CompletedQuestions, outcome.QuestionTitle)
	stats.CorrectCount++
	stats.TotalCompleted++
	if outcome.Language != "" {
		stats.Languages[outcome.Language]++
	}
	if outcome.Topic != "" {
		stats.Topics[outcome.Topic]++
	}
	return domain.ApplyResult{FirstTimeCorrect: true, Aggregate: rec.snapshot()}, nil
}

func (s *AggregateStore) UpdateProfile(_ context.Context, uid string, update domain.ProfileUpdate) (domain.UserAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[uid]
	if !ok {
		return domain.UserAggregate{}, domain.ErrUserNotFound
	}
	if update.DisplayName != nil {
		rec.agg.DisplayName = *update.DisplayName
	}
	if update.Settings != nil {
		rec.agg.Settings = *update.Settings
	}
	if update.Socials != nil {
		rec.agg.Socials = *update.Socials
	}
	return rec.snapshot(), nil
}

func (s *AggregateStore) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[uid]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, uid)
	return nil
}

func (r *record) snapshot() domain.UserAggregate {
	return r.agg.Clone()
}
