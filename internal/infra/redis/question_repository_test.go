package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, client := newTestClient(t)
	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(client, loader, time.Minute)
	ctx := context.Background()

	q, err := repo.GetQuestion(ctx, "Borrow Checker")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.CorrectAnswer != "move" {
		t.Fatalf("unexpected answer %q", q.CorrectAnswer)
	}
	if !mr.Exists("questions:bank") {
		t.Fatalf("expected bank cached in redis")
	}
	if mr.TTL("questions:bank") <= 0 {
		t.Fatalf("expected bank ttl to be set")
	}

	if _, err := repo.GetQuestion(ctx, "Borrow Checker"); err != nil {
		t.Fatalf("get question again: %v", err)
	}
	all, err := repo.ListQuestions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(all))
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hits, loader calls=%d", loader.count())
	}
}

func TestQuestionRepositoryUnknownTitle(t *testing.T) {
	_, client := newTestClient(t)
	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(client, loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetQuestion(context.Background(), "Nope"); !errors.Is(err, domain.ErrQuestionNotFound) {
			t.Fatalf("expected ErrQuestionNotFound, got %v", err)
		}
	}
	if loader.count() != 1 {
		t.Fatalf("expected unknown titles to not reload a warm bank, loader calls=%d", loader.count())
	}
}

func TestQuestionRepositoryReloadsAfterExpiry(t *testing.T) {
	mr, client := newTestClient(t)
	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(client, loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.ListQuestions(ctx); err != nil {
		t.Fatalf("list: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetQuestion(ctx, "Page Tables"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.count())
	}
}

type countingLoader struct {
	memory.QuestionLoader

	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuestionLoader.LoadQuestions(ctx)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{Title: "Borrow Checker", Language: "Rust", Difficulty: "Easy", Options: []string{"copy", "move"}, CorrectAnswer: "move"},
		{Title: "Page Tables", Topic: "Operating Systems", Difficulty: "Medium", Options: []string{"TLB", "MMU"}, CorrectAnswer: "MMU"},
	}
}
