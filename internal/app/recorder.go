package app

import (
	"context"
	"strings"
	"time"

	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/platform/logger"
	"github.com/google/uuid"
)

// SubmissionRecorder persists answer submissions and keeps the per-user counters.
type SubmissionRecorder struct {
	log       *logger.Logger
	store     AggregateStore
	events    EventLog
	questions QuestionRepository
	feed      ChangeFeed
	guard     guard
	now       func() time.Time
}

func NewSubmissionRecorder(log *logger.Logger, store AggregateStore, events EventLog, questions QuestionRepository, feed ChangeFeed, opts Options) *SubmissionRecorder {
	opts = opts.withDefaults()
	return &SubmissionRecorder{
		log:       log.With("service", "SubmissionRecorder"),
		store:     store,
		events:    events,
		questions: questions,
		feed:      feed,
		guard:     newGuard(opts),
		now:       opts.Now,
	}
}

// Record logs the submission and applies first-time-correct bookkeeping.
// Nothing is persisted without a signed-in user and a selected option.
// The result is only returned once both the event and the aggregate update are confirmed.
func (r *SubmissionRecorder) Record(ctx context.Context, id *domain.Identity, sub domain.Submission) (domain.SubmissionResult, error) {
	if id == nil || id.UID == "" {
		return domain.SubmissionResult{}, domain.ErrUnauthenticated
	}
	if strings.TrimSpace(sub.SelectedOption) == "" {
		return domain.SubmissionResult{}, domain.ErrNoOptionSelected
	}

	var question domain.Question
	err := r.guard.read(ctx, "question", func(ctx context.Context) error {
		var err error
		question, err = r.questions.GetQuestion(ctx, sub.QuestionTitle)
		return err
	})
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	// an unprovisioned user must not leave orphan events behind
	if err := r.guard.read(ctx, "user aggregate", func(ctx context.Context) error {
		_, err := r.store.Get(ctx, id.UID)
		return err
	}); err != nil {
		return domain.SubmissionResult{}, err
	}

	correct := sub.SelectedOption == question.CorrectAnswer
	status := domain.StatusIncorrect
	if correct {
		status = domain.StatusCorrect
	}
	event := domain.SubmissionEvent{
		ID:            uuid.NewString(),
		UserID:        id.UID,
		QuestionTitle: question.Title,
		Status:        status,
		Difficulty:    question.Difficulty,
		Topic:         question.Topic,
		Language:      question.Language,
		CreatedAt:     r.now().UTC(),
	}
	if err := r.guard.write(ctx, "submission event", func(ctx context.Context) error {
		return r.events.Append(ctx, event)
	}); err != nil {
		r.log.Error("append submission failed", "uid", id.UID, "question", question.Title, "error", err)
		return domain.SubmissionResult{}, err
	}

	var applied domain.ApplyResult
	err = r.guard.write(ctx, "user aggregate", func(ctx context.Context) error {
		var err error
		applied, err = r.store.ApplySubmission(ctx, id.UID, domain.Outcome{
			QuestionTitle: question.Title,
			Language:      question.Language,
			Topic:         question.Topic,
			Correct:       correct,
		})
		return err
	})
	if err != nil {
		r.log.Error("apply submission failed", "uid", id.UID, "question", question.Title, "event", event.ID, "error", err)
		return domain.SubmissionResult{}, err
	}

	if err := r.feed.Publish(ctx, id.UID); err != nil {
		// The write is already confirmed; live views catch up on their next change.
		r.log.Warn("publish progress change failed", "uid", id.UID, "error", err)
	}

	r.log.Debug("submission recorded", "uid", id.UID, "question", question.Title, "correct", correct, "first_time", applied.FirstTimeCorrect)
	return domain.SubmissionResult{
		EventID:          event.ID,
		QuestionTitle:    question.Title,
		Correct:          correct,
		FirstTimeCorrect: applied.FirstTimeCorrect,
		Stats:            applied.Aggregate.Stats,
		Aggregate:        applied.Aggregate,
	}, nil
}

// History returns the caller's newest submissions first.
func (r *SubmissionRecorder) History(ctx context.Context, uid string, limit int) ([]domain.SubmissionEvent, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 100:
		limit = 100
	}
	var events []domain.SubmissionEvent
	err := r.guard.read(ctx, "submission events", func(ctx context.Context) error {
		var err error
		events, err = r.events.ListByUser(ctx, uid, limit)
		return err
	})
	return events, err
}
