package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/platform/logger"
	"getlowlevel-service/internal/ranking"
)

// LeaderboardService reads every aggregate and ranks them.
type LeaderboardService struct {
	log      *logger.Logger
	store    AggregateStore
	guard    guard
	limit    int
	cacheTTL time.Duration
	now      func() time.Time

	mu       sync.RWMutex
	snapshot []domain.LeaderboardRow
	takenAt  time.Time
}

// NewLeaderboardService builds the ranking use case. A positive cacheTTL lets
// requests reuse the last full ranking instead of scanning every aggregate.
func NewLeaderboardService(log *logger.Logger, store AggregateStore, cacheTTL time.Duration, opts Options) *LeaderboardService {
	opts = opts.withDefaults()
	limit := opts.LeaderboardLimit
	if limit <= 0 {
		limit = ranking.DefaultLimit
	}
	return &LeaderboardService{
		log:      log.With("service", "LeaderboardService"),
		store:    store,
		guard:    newGuard(opts),
		limit:    limit,
		cacheTTL: cacheTTL,
		now:      opts.Now,
	}
}

// Leaderboard returns the top rows. A failed fetch is reported as
// ErrLeaderboardUnavailable; an empty store yields zero rows and no error.
func (s *LeaderboardService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = s.limit
	}

	rows, takenAt, ok := s.cached()
	if !ok {
		var err error
		rows, takenAt, err = s.rankAll(ctx)
		if err != nil {
			return domain.Leaderboard{}, err
		}
	}

	top := ranking.Top(rows, limit)
	return domain.Leaderboard{
		Rows:        top,
		Podium:      ranking.Podium(top),
		GeneratedAt: takenAt,
	}, nil
}

// Refresh recomputes the cached ranking; the scheduler calls it periodically.
func (s *LeaderboardService) Refresh(ctx context.Context) error {
	rows, _, err := s.rankAll(ctx)
	if err != nil {
		s.log.Warn("leaderboard refresh failed", "error", err)
		return err
	}
	s.log.Debug("leaderboard refreshed", "users", len(rows))
	return nil
}

func (s *LeaderboardService) rankAll(ctx context.Context) ([]domain.LeaderboardRow, time.Time, error) {
	var aggregates []domain.UserAggregate
	err := s.guard.read(ctx, "user aggregates", func(ctx context.Context) error {
		var err error
		aggregates, err = s.store.List(ctx)
		return err
	})
	if err != nil {
		s.log.Error("fetch aggregates failed", "error", err)
		return nil, time.Time{}, fmt.Errorf("%w: %w", domain.ErrLeaderboardUnavailable, err)
	}

	rows := ranking.Rank(aggregates)
	takenAt := s.now()
	if s.cacheTTL > 0 {
		s.mu.Lock()
		s.snapshot = rows
		s.takenAt = takenAt
		s.mu.Unlock()
	}
	return rows, takenAt, nil
}

func (s *LeaderboardService) cached() ([]domain.LeaderboardRow, time.Time, bool) {
	if s.cacheTTL <= 0 {
		return nil, time.Time{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil || s.now().Sub(s.takenAt) >= s.cacheTTL {
		return nil, time.Time{}, false
	}
	return s.snapshot, s.takenAt, true
}
