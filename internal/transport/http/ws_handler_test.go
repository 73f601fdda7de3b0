package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"getlowlevel-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketProgressFlow(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, domain.Identity{UID: "u1", DisplayName: "Ada"})
	env.do(t, http.MethodPost, "/api/v1/session", tok, nil)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/progress?token=" + tok
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// initial view first
	_, payload := readNext(conn, t, "progress")
	if payload["completed"].(float64) != 0 {
		t.Fatalf("expected empty progress, got %v", payload)
	}

	// a submission over HTTP pushes a fresh view
	resp := env.do(t, http.MethodPost, "/api/v1/submissions", tok, submitRequest{QuestionTitle: "Virtual Memory", SelectedOption: "paging"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", resp.StatusCode)
	}
	_, payload = readNext(conn, t, "progress")
	if payload["completed"].(float64) != 1 {
		t.Fatalf("expected one completed, got %v", payload)
	}

	// submissions over the socket get a direct result
	submit := map[string]any{
		"type":    "submit",
		"payload": map[string]any{"questionTitle": "Ownership", "selectedOption": "copy"},
	}
	if err := conn.WriteJSON(submit); err != nil {
		t.Fatalf("write submit: %v", err)
	}
	resultSeen := false
	for i := 0; i < 3 && !resultSeen; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == "submissionResult" {
			resultSeen = true
			if payload["correct"].(bool) {
				t.Fatalf("expected incorrect result, got %v", payload)
			}
		}
	}
	if !resultSeen {
		t.Fatalf("expected submissionResult frame")
	}

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i := 0; i < 3; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == "error" {
			if payload["code"] != "unsupported" {
				t.Fatalf("unexpected error frame %v", payload)
			}
			return
		}
	}
	t.Fatalf("expected error frame for unsupported type")
}

func TestWebSocketRejectsUnprovisioned(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, domain.Identity{UID: "ghost"})

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/progress?token=" + tok
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 handshake response, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
