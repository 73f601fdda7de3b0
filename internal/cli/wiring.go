package cli

import (
	"context"
	"fmt"
	"time"

	"getlowlevel-service/internal/app"
	"getlowlevel-service/internal/config"
	"getlowlevel-service/internal/infra/memory"
	pgstore "getlowlevel-service/internal/infra/postgres"
	redisstore "getlowlevel-service/internal/infra/redis"
	"getlowlevel-service/internal/platform/logger"
	transport "getlowlevel-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend holds the store adapters selected by configuration.
type backend struct {
	store     app.AggregateStore
	events    app.EventLog
	feed      app.ChangeFeed
	questions app.QuestionRepository
	closers   []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log *logger.Logger) (*backend, error) {
	b := &backend{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		b.closers = append(b.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
	}

	switch cfg.Storage.Backend {
	case "postgres":
		if pool == nil {
			b.Close()
			return nil, fmt.Errorf("storage backend postgres needs postgres.url")
		}
		b.store = pgstore.NewAggregateStore(pool)
		b.events = pgstore.NewEventLog(pool)
	case "redis":
		if redisClient == nil {
			b.Close()
			return nil, fmt.Errorf("storage backend redis needs redis.addr")
		}
		b.store = redisstore.NewAggregateStore(redisClient)
		b.events = redisstore.NewEventLog(redisClient)
	case "memory":
		b.store = memory.NewAggregateStore()
		b.events = memory.NewEventLog()
	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	// Pub/Sub reaches every instance; the in-process feed only this one.
	if redisClient != nil {
		b.feed = redisstore.NewChangeFeed(redisClient, log)
	} else {
		b.feed = memory.NewChangeFeed()
	}

	var loader memory.QuestionLoader
	switch {
	case cfg.Questions.File != "":
		loader = memory.NewFileQuestionLoader(cfg.Questions.File)
	case pool != nil:
		loader = pgstore.NewQuestionLoader(pool)
	default:
		loader = memory.NewStaticQuestionLoader(sampleQuestions())
	}
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	if redisClient != nil {
		b.questions = redisstore.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		b.questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	log.Info("storage ready",
		"backend", cfg.Storage.Backend,
		"redis", redisClient != nil,
		"postgres", pool != nil,
	)
	return b, nil
}

func serviceOptions(cfg config.Config) app.Options {
	return app.Options{
		Timeout:          config.TTLDuration(cfg.Storage.Timeout, 5*time.Second),
		ReadRetries:      cfg.Storage.ReadRetries,
		LeaderboardLimit: cfg.Leaderboard.Limit,
		ReauthWindow:     config.TTLDuration(cfg.Auth.ReauthWindow, 5*time.Minute),
	}
}

func buildServices(cfg config.Config, log *logger.Logger, b *backend) transport.Services {
	opts := serviceOptions(cfg)
	cacheTTL := config.TTLDuration(cfg.Leaderboard.CacheTTL, 0)
	return transport.Services{
		Accounts:    app.NewAccountService(log, b.store, b.events, b.feed, opts),
		Recorder:    app.NewSubmissionRecorder(log, b.store, b.events, b.questions, b.feed, opts),
		Leaderboard: app.NewLeaderboardService(log, b.store, cacheTTL, opts),
		Progress:    app.NewProgressService(log, b.store, b.events, b.questions, b.feed, opts),
		Catalog:     app.NewCatalogService(b.questions, b.store, opts),
	}
}

func loadConfig(path string) (config.Config, *logger.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
