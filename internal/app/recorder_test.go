package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"getlowlevel-service/internal/domain"
)

func TestRecordIncorrectThenCorrect(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, domain.Identity{UID: "u1", DisplayName: "Ada"})

	for i := 0; i < 3; i++ {
		res := h.submit(t, "u1", "Lifetimes", "a")
		if res.Correct || res.FirstTimeCorrect {
			t.Fatalf("expected incorrect result, got %+v", res)
		}
	}
	res := h.submit(t, "u1", "Lifetimes", "b")
	if !res.Correct || !res.FirstTimeCorrect {
		t.Fatalf("expected first-time correct, got %+v", res)
	}

	stats := res.Stats
	if stats.IncorrectCount != 3 || stats.CorrectCount != 1 || stats.TotalCompleted != 1 {
		t.Fatalf("unexpected counters %+v", stats)
	}
	if stats.Languages["Rust"] != 1 || stats.Topics["Memory"] != 1 {
		t.Fatalf("unexpected breakdown %+v", stats)
	}

	events, _ := h.events.ListByUser(context.Background(), "u1", 10)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].Status != domain.StatusCorrect || events[0].Language != "Rust" || events[0].ID != res.EventID {
		t.Fatalf("unexpected newest event %+v", events[0])
	}
}

func TestRecordSameQuestionCountsOnce(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, domain.Identity{UID: "u1"})

	first := h.submit(t, "u1", "RAII", "a")
	second := h.submit(t, "u1", "RAII", "a")
	if !first.FirstTimeCorrect || second.FirstTimeCorrect {
		t.Fatalf("expected only the first correct answer to count: %+v %+v", first, second)
	}
	if second.Stats.CorrectCount != 1 || second.Stats.TotalCompleted != 1 || second.Stats.Languages["Cpp"] != 1 {
		t.Fatalf("unexpected stats %+v", second.Stats)
	}

	events, _ := h.events.ListByUser(context.Background(), "u1", 10)
	if len(events) != 2 {
		t.Fatalf("expected both submissions logged, got %d", len(events))
	}
}

func TestRecordConcurrentSessions(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, domain.Identity{UID: "u1"})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.recorder.Record(context.Background(), &domain.Identity{UID: "u1"}, domain.Submission{QuestionTitle: "GIL", SelectedOption: "a"})
			if err != nil {
				t.Errorf("record: %v", err)
				return
			}
			if res.FirstTimeCorrect {
				mu.Lock()
				first++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if first != 1 {
		t.Fatalf("expected exactly one first-time correct, got %d", first)
	}
	agg, _ := h.store.Get(context.Background(), "u1")
	if agg.Stats.CorrectCount != 1 || len(agg.CompletedQuestions) != 1 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestRecordPreconditionsPersistNothing(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, domain.Identity{UID: "u1"})
	ctx := context.Background()

	if _, err := h.recorder.Record(ctx, nil, domain.Submission{QuestionTitle: "GIL", SelectedOption: "a"}); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := h.recorder.Record(ctx, &domain.Identity{UID: "u1"}, domain.Submission{QuestionTitle: "GIL", SelectedOption: "  "}); !errors.Is(err, domain.ErrNoOptionSelected) {
		t.Fatalf("expected ErrNoOptionSelected, got %v", err)
	}
	if _, err := h.recorder.Record(ctx, &domain.Identity{UID: "u1"}, domain.Submission{QuestionTitle: "Nope", SelectedOption: "a"}); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
	if _, err := h.recorder.Record(ctx, &domain.Identity{UID: "ghost"}, domain.Submission{QuestionTitle: "GIL", SelectedOption: "a"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	for _, uid := range []string{"u1", "ghost"} {
		if events, _ := h.events.ListByUser(ctx, uid, 10); len(events) != 0 {
			t.Fatalf("expected no events for %s, got %d", uid, len(events))
		}
	}
	agg, _ := h.store.Get(ctx, "u1")
	if agg.Stats.CorrectCount != 0 || agg.Stats.IncorrectCount != 0 {
		t.Fatalf("expected untouched counters, got %+v", agg.Stats)
	}
}

func TestRecordWriteFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, domain.Identity{UID: "u1"})
	h.store.applyErr = errors.New("quota exceeded")

	_, err := h.recorder.Record(context.Background(), &domain.Identity{UID: "u1"}, domain.Submission{QuestionTitle: "GIL", SelectedOption: "a"})
	pe, ok := domain.AsPersistence(err)
	if !ok {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if pe.Op != domain.OpWrite || !pe.Retryable() {
		t.Fatalf("expected retryable write failure, got %+v", pe)
	}
}

func TestRecordWriteTimeoutIsNotRetryable(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, domain.Identity{UID: "u1"})
	h.store.applyErr = context.DeadlineExceeded

	_, err := h.recorder.Record(context.Background(), &domain.Identity{UID: "u1"}, domain.Submission{QuestionTitle: "GIL", SelectedOption: "a"})
	pe, ok := domain.AsPersistence(err)
	if !ok {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if !pe.MaybeApplied() || pe.Retryable() {
		t.Fatalf("expected an unconfirmed, non-retryable write, got %+v", pe)
	}
}

func TestRecordPublishesChange(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, domain.Identity{UID: "u1"})

	ch, cancel, err := h.feed.Subscribe(context.Background(), "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	h.submit(t, "u1", "GIL", "b")
	select {
	case <-ch:
	default:
		t.Fatalf("expected a change signal after a confirmed write")
	}
}

func TestHistoryLimits(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, domain.Identity{UID: "u1"})
	for i := 0; i < 3; i++ {
		h.submit(t, "u1", "GIL", "b")
	}

	events, err := h.recorder.History(context.Background(), "u1", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	events, _ = h.recorder.History(context.Background(), "u1", 0)
	if len(events) != 3 {
		t.Fatalf("expected default limit to return all 3, got %d", len(events))
	}
}
