package app

import (
	"context"

	"getlowlevel-service/internal/domain"
)

// AggregateStore persists one aggregate document per user.
// ApplySubmission must apply the whole Outcome atomically, including the
// completed-question membership check, so racing sessions count a question once.
type AggregateStore interface {
	Provision(ctx context.Context, agg domain.UserAggregate) (domain.UserAggregate, error)
	Get(ctx context.Context, uid string) (domain.UserAggregate, error)
	List(ctx context.Context) ([]domain.UserAggregate, error)
	ApplySubmission(ctx context.Context, uid string, outcome domain.Outcome) (domain.ApplyResult, error)
	UpdateProfile(ctx context.Context, uid string, update domain.ProfileUpdate) (domain.UserAggregate, error)
	Delete(ctx context.Context, uid string) error
}

// EventLog is the append-only submission history.
type EventLog interface {
	Append(ctx context.Context, event domain.SubmissionEvent) error
	ListByUser(ctx context.Context, uid string, limit int) ([]domain.SubmissionEvent, error)
	DeleteByUser(ctx context.Context, uid string) error
}

// ChangeFeed fans out "aggregate changed" signals per user.
// Subscribe returns a channel plus a cancel func; the caller must invoke cancel to avoid leaks.
type ChangeFeed interface {
	Publish(ctx context.Context, uid string) error
	Subscribe(ctx context.Context, uid string) (<-chan struct{}, func(), error)
}

// QuestionRepository serves the question bank (from cache/backing store).
type QuestionRepository interface {
	GetQuestion(ctx context.Context, title string) (domain.Question, error)
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}
