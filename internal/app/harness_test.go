package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"getlowlevel-service/internal/app"
	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/infra/memory"
	"getlowlevel-service/internal/platform/logger"
)

type harness struct {
	store     *flakyStore
	events    *memory.EventLog
	feed      *memory.ChangeFeed
	questions *memory.QuestionRepository
	opts      app.Options
	now       time.Time

	recorder    *app.SubmissionRecorder
	accounts    *app.AccountService
	leaderboard *app.LeaderboardService
	progress    *app.ProgressService
	catalog     *app.CatalogService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     &flakyStore{AggregateStore: memory.NewAggregateStore()},
		events:    memory.NewEventLog(),
		feed:      memory.NewChangeFeed(),
		questions: memory.NewQuestionRepository(memory.NewStaticQuestionLoader(testQuestions()), time.Minute),
		now:       time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	h.opts = app.Options{
		ReadRetries:   2,
		RetryInterval: time.Millisecond,
		Now:           func() time.Time { return h.now },
	}
	log := logger.Nop()
	h.recorder = app.NewSubmissionRecorder(log, h.store, h.events, h.questions, h.feed, h.opts)
	h.accounts = app.NewAccountService(log, h.store, h.events, h.feed, h.opts)
	h.leaderboard = app.NewLeaderboardService(log, h.store, 0, h.opts)
	h.progress = app.NewProgressService(log, h.store, h.events, h.questions, h.feed, h.opts)
	h.catalog = app.NewCatalogService(h.questions, h.store, h.opts)
	return h
}

func (h *harness) signIn(t *testing.T, id domain.Identity) domain.UserAggregate {
	t.Helper()
	agg, err := h.accounts.Provision(context.Background(), id)
	if err != nil {
		t.Fatalf("provision %s: %v", id.UID, err)
	}
	return agg
}

func (h *harness) submit(t *testing.T, uid, title, option string) domain.SubmissionResult {
	t.Helper()
	res, err := h.recorder.Record(context.Background(), &domain.Identity{UID: uid}, domain.Submission{QuestionTitle: title, SelectedOption: option})
	if err != nil {
		t.Fatalf("record %s/%s: %v", uid, title, err)
	}
	return res
}

// flakyStore wraps the memory store with injectable failures.
type flakyStore struct {
	*memory.AggregateStore

	mu           sync.Mutex
	applyErr     error
	listErr      error
	listFailures int
	listCalls    int
}

func (s *flakyStore) ApplySubmission(ctx context.Context, uid string, outcome domain.Outcome) (domain.ApplyResult, error) {
	s.mu.Lock()
	err := s.applyErr
	s.mu.Unlock()
	if err != nil {
		return domain.ApplyResult{}, err
	}
	return s.AggregateStore.ApplySubmission(ctx, uid, outcome)
}

func (s *flakyStore) List(ctx context.Context) ([]domain.UserAggregate, error) {
	s.mu.Lock()
	s.listCalls++
	fail := s.listErr != nil && (s.listFailures < 0 || s.listCalls <= s.listFailures)
	err := s.listErr
	s.mu.Unlock()
	if fail {
		return nil, err
	}
	return s.AggregateStore.List(ctx)
}

func (s *flakyStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func testQuestions() []domain.Question {
	return []domain.Question{
		{Title: "Context Switch", Topic: "Operating Systems", Difficulty: "Medium", Options: []string{"a", "b"}, CorrectAnswer: "b"},
		{Title: "Deadlock", Topic: "Operating Systems", Difficulty: "Hard", Options: []string{"a", "b"}, CorrectAnswer: "a"},
		{Title: "Scheduler", Topic: "Operating Systems", Difficulty: "Easy", Options: []string{"a", "b"}, CorrectAnswer: "a"},
		{Title: "RAII", Language: "Cpp", Topic: "Memory", Difficulty: "Easy", Options: []string{"a", "b"}, CorrectAnswer: "a"},
		{Title: "Lifetimes", Language: "Rust", Topic: "Memory", Difficulty: "Hard", Options: []string{"a", "b"}, CorrectAnswer: "b"},
		{Title: "GIL", Language: "Python", Topic: "Concurrency", Difficulty: "Medium", Options: []string{"a", "b"}, CorrectAnswer: "a"},
	}
}
