package http

import (
	"encoding/json"
	"net/http"
	"time"

	"getlowlevel-service/internal/app"
	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/platform/logger"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type WSHandler struct {
	log      *logger.Logger
	progress *app.ProgressService
	recorder *app.SubmissionRecorder
	upgrader websocket.Upgrader
}

func NewWSHandler(log *logger.Logger, progress *app.ProgressService, recorder *app.SubmissionRecorder) *WSHandler {
	return &WSHandler{
		log:      log.With("handler", "ws_progress"),
		progress: progress,
		recorder: recorder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS streams the caller's progress view and accepts submissions over the same socket.
// Frames: progress, submissionResult, error, pong.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	// Subscribe before upgrading so an unknown user still gets a plain HTTP error.
	updates, cancel, err := h.progress.Subscribe(r.Context(), id.UID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "uid", id.UID, "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "uid", id.UID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case view, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "progress", Payload: view}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "ping":
			reply(outboundMessage[any]{Type: "pong", Payload: struct{}{}})
		case "submit":
			var payload submitRequest
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				reply(errorFrame(errBadRequest))
				continue
			}
			res, err := h.recorder.Record(r.Context(), &id, domain.Submission{
				QuestionTitle:  payload.QuestionTitle,
				SelectedOption: payload.SelectedOption,
			})
			if err != nil {
				reply(errorFrame(err))
				continue
			}
			reply(outboundMessage[any]{Type: "submissionResult", Payload: res})
		default:
			reply(outboundMessage[any]{Type: "error", Payload: errorBody{Code: "unsupported", Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorFrame(err error) outboundMessage[any] {
	_, body := describeError(err)
	return outboundMessage[any]{Type: "error", Payload: body}
}
