package http

import (
	"fmt"
	"net/http"
	"strconv"

	"getlowlevel-service/internal/app"
	"getlowlevel-service/internal/domain"
	"getlowlevel-service/internal/platform/logger"
)

// Services bundles the use cases the HTTP surface exposes.
type Services struct {
	Accounts    *app.AccountService
	Recorder    *app.SubmissionRecorder
	Leaderboard *app.LeaderboardService
	Progress    *app.ProgressService
	Catalog     *app.CatalogService
}

type handlers struct {
	log *logger.Logger
	svc Services
}

// NewRouter wires every route onto a ServeMux behind request logging.
func NewRouter(log *logger.Logger, auth Authenticator, svc Services) http.Handler {
	h := &handlers{log: log, svc: svc}
	ws := NewWSHandler(log, svc.Progress, svc.Recorder)
	authed := requireIdentity(auth)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("POST /api/v1/session", authed(http.HandlerFunc(h.createSession)))
	mux.Handle("GET /api/v1/me", authed(http.HandlerFunc(h.me)))
	mux.Handle("DELETE /api/v1/me", authed(http.HandlerFunc(h.deleteAccount)))
	mux.Handle("PATCH /api/v1/me/profile", authed(http.HandlerFunc(h.updateProfile)))
	mux.Handle("PUT /api/v1/me/settings", authed(http.HandlerFunc(h.updateSettings)))
	mux.Handle("PUT /api/v1/me/socials", authed(http.HandlerFunc(h.updateSocials)))
	mux.Handle("GET /api/v1/playlists", authed(http.HandlerFunc(h.playlists)))
	mux.Handle("GET /api/v1/questions", authed(http.HandlerFunc(h.questions)))
	mux.Handle("GET /api/v1/questions/{title}", authed(http.HandlerFunc(h.question)))
	mux.Handle("POST /api/v1/submissions", authed(http.HandlerFunc(h.submit)))
	mux.Handle("GET /api/v1/submissions", authed(http.HandlerFunc(h.history)))
	mux.Handle("GET /api/v1/leaderboard", authed(http.HandlerFunc(h.leaderboard)))
	mux.Handle("GET /api/v1/progress", authed(http.HandlerFunc(h.progress)))
	mux.Handle("GET /ws/progress", authed(http.HandlerFunc(ws.ServeWS)))

	return requestLogger(log)(mux)
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	agg, err := h.svc.Accounts.Provision(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	agg, err := h.svc.Accounts.Get(r.Context(), id.UID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *handlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	if err := h.svc.Accounts.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var body struct {
		DisplayName string `json:"displayName"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	agg, err := h.svc.Accounts.UpdateDisplayName(r.Context(), id.UID, body.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *handlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var body domain.Settings
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	agg, err := h.svc.Accounts.UpdateSettings(r.Context(), id.UID, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *handlers) updateSocials(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var body domain.Socials
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	agg, err := h.svc.Accounts.UpdateSocials(r.Context(), id.UID, body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *handlers) playlists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog.Playlists())
}

func (h *handlers) questions(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	q := r.URL.Query()
	query := app.QuestionQuery{Sort: app.QuestionSort(q.Get("sort"))}
	if raw := q.Get("ignoreCompleted"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: ignoreCompleted must be a boolean", errBadRequest))
			return
		}
		query.IgnoreCompleted = v
	}
	page, err := h.svc.Catalog.Page(r.Context(), q.Get("playlist"), id.UID, query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// publicQuestion is a question without its answer.
type publicQuestion struct {
	Title       string   `json:"title"`
	Language    string   `json:"language,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Description string   `json:"description,omitempty"`
	Code        string   `json:"code,omitempty"`
	Options     []string `json:"options"`
}

func (h *handlers) question(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Catalog.Question(r.Context(), r.PathValue("title"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicQuestion{
		Title:       q.Title,
		Language:    q.Language,
		Topic:       q.Topic,
		Difficulty:  q.Difficulty,
		Description: q.Description,
		Code:        q.Code,
		Options:     q.Options,
	})
}

type submitRequest struct {
	QuestionTitle  string `json:"questionTitle"`
	SelectedOption string `json:"selectedOption"`
}

func (h *handlers) submit(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var body submitRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.svc.Recorder.Record(r.Context(), &id, domain.Submission{
		QuestionTitle:  body.QuestionTitle,
		SelectedOption: body.SelectedOption,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := h.svc.Recorder.History(r.Context(), id.UID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *handlers) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	board, err := h.svc.Leaderboard.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *handlers) progress(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	view, err := h.svc.Progress.Progress(r.Context(), id.UID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return v, nil
}
