package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"getlowlevel-service/internal/app"
	"getlowlevel-service/internal/domain"
	pgstore "getlowlevel-service/internal/infra/postgres"
	infraredis "getlowlevel-service/internal/infra/redis"
	"getlowlevel-service/internal/platform/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestSubmitAndRankEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleQuestions())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := logger.Nop()
	store := pgstore.NewAggregateStore(pool)
	events := pgstore.NewEventLog(pool)
	questions := infraredis.NewQuestionRepository(redisClient, pgstore.NewQuestionLoader(pool), 5*time.Minute)
	feed := infraredis.NewChangeFeed(redisClient, log)
	opts := app.Options{ReadRetries: 1, Timeout: 5 * time.Second}

	accounts := app.NewAccountService(log, store, events, feed, opts)
	recorder := app.NewSubmissionRecorder(log, store, events, questions, feed, opts)
	leaderboard := app.NewLeaderboardService(log, store, 0, opts)
	progress := app.NewProgressService(log, store, events, questions, feed, opts)

	for _, id := range []domain.Identity{
		{UID: "u1", DisplayName: "Alice", Email: "alice@example.com"},
		{UID: "u2", Email: "bob@example.com"},
	} {
		if _, err := accounts.Provision(ctx, id); err != nil {
			t.Fatalf("provision %s: %v", id.UID, err)
		}
	}

	updates, cancel, err := progress.Subscribe(ctx, "u2")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-updates

	submit := func(uid, title, option string) domain.SubmissionResult {
		t.Helper()
		res, err := recorder.Record(ctx, &domain.Identity{UID: uid}, domain.Submission{QuestionTitle: title, SelectedOption: option})
		if err != nil {
			t.Fatalf("record %s/%s: %v", uid, title, err)
		}
		return res
	}

	submit("u1", "Fork", "0")
	submit("u1", "Fork", "child pid")
	// concurrent duplicates from two sessions count once
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := recorder.Record(ctx, &domain.Identity{UID: "u2"}, domain.Submission{QuestionTitle: "Fork", SelectedOption: "child pid"}); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()
	submit("u2", "Move Semantics", "steal")

	select {
	case view := <-updates:
		if view.UID != "u2" {
			t.Fatalf("unexpected progress view %+v", view)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a progress update over redis pub/sub")
	}

	agg, err := store.Get(ctx, "u2")
	if err != nil {
		t.Fatalf("get u2: %v", err)
	}
	if agg.Stats.CorrectCount != 2 || agg.Stats.TotalCompleted != 2 || agg.Stats.Languages["Cpp"] != 1 || agg.Stats.Topics["Operating Systems"] != 1 {
		t.Fatalf("unexpected u2 stats %+v", agg.Stats)
	}

	board, err := leaderboard.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Rows) != 2 || board.Rows[0].UID != "u2" || board.Rows[0].Username != "bob" {
		t.Fatalf("expected bob leading, got %+v", board.Rows)
	}
	if board.Rows[1].Score != 2 || board.Rows[1].SuccessRate != 50 {
		t.Fatalf("unexpected alice row %+v", board.Rows[1])
	}

	history, err := recorder.History(ctx, "u2", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 6 || history[0].QuestionTitle != "Move Semantics" {
		t.Fatalf("unexpected history %+v", history)
	}

	if err := accounts.Delete(ctx, domain.Identity{UID: "u1", AuthTime: time.Now()}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "u1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected u1 gone, got %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "gll", "POSTGRES_PASSWORD": "gllpass", "POSTGRES_DB": "getlowlevel"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://gll:gllpass@%s:%s/getlowlevel?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.Question) {
	t.Helper()
	db := pgstore.OpenBun(dsn)
	defer db.Close()

	if _, err := pgstore.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	n, err := pgstore.ImportQuestions(ctx, db, questions)
	if err != nil {
		t.Fatalf("import questions: %v", err)
	}
	if n != len(questions) {
		t.Fatalf("expected %d imported, got %d", len(questions), n)
	}
	// re-import is an upsert, not a conflict, even with a title repeated in one batch
	repeated := append(append([]domain.Question{}, questions...), questions[0])
	n, err = pgstore.ImportQuestions(ctx, db, repeated)
	if err != nil {
		t.Fatalf("re-import questions: %v", err)
	}
	if n != len(questions) {
		t.Fatalf("expected %d rows after dedup, got %d", len(questions), n)
	}
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Title:         "Fork",
			Topic:         "Operating Systems",
			Difficulty:    "Easy",
			Description:   "What does fork() return in the parent?",
			Options:       []string{"0", "child pid", "-1"},
			CorrectAnswer: "child pid",
		},
		{
			Title:         "Move Semantics",
			Language:      "Cpp",
			Topic:         "Memory",
			Difficulty:    "Medium",
			Options:       []string{"copy", "steal"},
			CorrectAnswer: "steal",
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
