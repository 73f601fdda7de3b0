package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"getlowlevel-service/internal/app"
	"getlowlevel-service/internal/config"
	"getlowlevel-service/internal/infra/identity"
	"getlowlevel-service/internal/platform/logger"
	transport "getlowlevel-service/internal/transport/http"
	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	verifier, err := identity.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		return fmt.Errorf("%w (set auth.secret or AUTH_SECRET)", err)
	}

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	services := buildServices(cfg, log, b)

	runCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	scheduler, err := startLeaderboardRefresh(runCtx, cfg, log, services.Leaderboard)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				log.Warn("scheduler shutdown", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(log, verifier, services),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Info("starting getlowlevel service", "port", finalPort, "backend", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// startLeaderboardRefresh keeps the cached ranking warm. It is a no-op unless
// both a cache TTL and a refresh interval are configured.
func startLeaderboardRefresh(ctx context.Context, cfg config.Config, log *logger.Logger, lb *app.LeaderboardService) (gocron.Scheduler, error) {
	interval := config.TTLDuration(cfg.Leaderboard.RefreshInterval, 0)
	if interval <= 0 || config.TTLDuration(cfg.Leaderboard.CacheTTL, 0) <= 0 {
		return nil, nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			_ = lb.Refresh(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule leaderboard refresh: %w", err)
	}
	s.Start()
	log.Info("leaderboard refresh scheduled", "interval", interval)
	return s, nil
}
