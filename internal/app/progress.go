package app

import (
	"context"
	"sort"
	"time"

	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/platform/logger"
	"getlowlevel-service/internal/ranking"
)

const recentSubmissions = 10

// ProgressService builds the per-user progress view and streams it on change.
type ProgressService struct {
	log       *logger.Logger
	store     AggregateStore
	events    EventLog
	questions QuestionRepository
	feed      ChangeFeed
	guard     guard
	now       func() time.Time
}

func NewProgressService(log *logger.Logger, store AggregateStore, events EventLog, questions QuestionRepository, feed ChangeFeed, opts Options) *ProgressService {
	opts = opts.withDefaults()
	return &ProgressService{
		log:       log.With("service", "ProgressService"),
		store:     store,
		events:    events,
		questions: questions,
		feed:      feed,
		guard:     newGuard(opts),
		now:       opts.Now,
	}
}

// Progress reads the user's aggregate and derives the progress view from it.
func (s *ProgressService) Progress(ctx context.Context, uid string) (domain.Progress, error) {
	var agg domain.UserAggregate
	if err := s.guard.read(ctx, "user aggregate", func(ctx context.Context) error {
		var err error
		agg, err = s.store.Get(ctx, uid)
		return err
	}); err != nil {
		return domain.Progress{}, err
	}

	var bank []domain.Question
	if err := s.guard.read(ctx, "questions", func(ctx context.Context) error {
		var err error
		bank, err = s.questions.ListQuestions(ctx)
		return err
	}); err != nil {
		return domain.Progress{}, err
	}

	var recent []domain.SubmissionEvent
	if err := s.guard.read(ctx, "submission events", func(ctx context.Context) error {
		var err error
		recent, err = s.events.ListByUser(ctx, uid, recentSubmissions)
		return err
	}); err != nil {
		return domain.Progress{}, err
	}
	if recent == nil {
		recent = []domain.SubmissionEvent{}
	}

	return BuildProgress(agg, bank, recent, s.now()), nil
}

// Subscribe streams a fresh Progress after every confirmed change to uid's aggregate,
// starting with the current one. The caller must invoke the returned cancel func.
func (s *ProgressService) Subscribe(ctx context.Context, uid string) (<-chan domain.Progress, func(), error) {
	// Listen before the first read so a change confirmed meanwhile still triggers a refresh.
	changes, unsubscribe, err := s.feed.Subscribe(ctx, uid)
	if err != nil {
		return nil, nil, err
	}
	initial, err := s.Progress(ctx, uid)
	if err != nil {
		unsubscribe()
		return nil, nil, err
	}

	out := make(chan domain.Progress, 1)
	out <- initial
	ctx, stop := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				view, err := s.Progress(ctx, uid)
				if err != nil {
					if ctx.Err() == nil {
						s.log.Warn("progress refresh failed", "uid", uid, "error", err)
					}
					continue
				}
				// Keep only the newest view for slow consumers.
				select {
				case out <- view:
				default:
					select {
					case <-out:
					default:
					}
					out <- view
				}
			}
		}
	}()

	cancel := func() {
		stop()
		unsubscribe()
		<-done
	}
	return out, cancel, nil
}

// BuildProgress is the pure projection behind the progress view.
func BuildProgress(agg domain.UserAggregate, bank []domain.Question, recent []domain.SubmissionEvent, now time.Time) domain.Progress {
	stats := agg.Stats
	completed := stats.TotalCompleted

	languages := make([]domain.Share, 0, len(stats.Languages))
	for name, count := range stats.Languages {
		share := domain.Share{Name: name, Count: count}
		if completed > 0 {
			share.Percent = ranking.Round2(float64(count) / float64(completed) * 100)
		}
		languages = append(languages, share)
	}
	sortShares(languages)

	totals := map[string]int{}
	for _, q := range bank {
		if q.Topic != "" {
			totals[q.Topic]++
		}
	}
	for name := range stats.Topics {
		if _, ok := totals[name]; !ok {
			totals[name] = 0
		}
	}
	topics := make([]domain.Share, 0, len(totals))
	for name, total := range totals {
		count := stats.Topics[name]
		share := domain.Share{Name: name, Count: count, Total: total}
		if total > 0 {
			share.Percent = ranking.Round2(float64(count) / float64(total) * 100)
		}
		topics = append(topics, share)
	}
	sortShares(topics)

	return domain.Progress{
		UID:         agg.UID,
		Completed:   completed,
		Correct:     stats.CorrectCount,
		Incorrect:   stats.IncorrectCount,
		SuccessRate: ranking.Round2(ranking.SuccessRate(stats.CorrectCount, stats.IncorrectCount)),
		Languages:   languages,
		Topics:      topics,
		Recent:      recent,
		UpdatedAt:   now,
	}
}

func sortShares(shares []domain.Share) {
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Name < shares[j].Name
	})
}
