package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"getlowlevel-service/internal/app"
	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/infra/identity"
	"getlowlevel-service/internal/infra/memory"
	"getlowlevel-service/internal/platform/logger"
)

type testEnv struct {
	server   *httptest.Server
	verifier *identity.Verifier
	store    *memory.AggregateStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Nop()
	verifier, err := identity.NewVerifier("test-secret", "", "")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	store := memory.NewAggregateStore()
	events := memory.NewEventLog()
	feed := memory.NewChangeFeed()
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(sampleQuestions()), time.Minute)
	opts := app.Options{ReadRetries: 1, RetryInterval: time.Millisecond}

	router := NewRouter(log, verifier, Services{
		Accounts:    app.NewAccountService(log, store, events, feed, opts),
		Recorder:    app.NewSubmissionRecorder(log, store, events, questions, feed, opts),
		Leaderboard: app.NewLeaderboardService(log, store, 0, opts),
		Progress:    app.NewProgressService(log, store, events, questions, feed, opts),
		Catalog:     app.NewCatalogService(questions, store, opts),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, verifier: verifier, store: store}
}

func (e *testEnv) token(t *testing.T, id domain.Identity) string {
	t.Helper()
	tok, err := e.verifier.Issue(id, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Title:         "Virtual Memory",
			Topic:         "Operating Systems",
			Difficulty:    "Easy",
			Options:       []string{"paging", "polling"},
			CorrectAnswer: "paging",
		},
		{
			Title:         "Ownership",
			Language:      "Rust",
			Difficulty:    "Medium",
			Options:       []string{"copy", "move"},
			CorrectAnswer: "move",
		},
	}
}
