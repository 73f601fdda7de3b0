package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"getlowlevel-service/internal/domain"
)

var errBadRequest = errors.New("malformed request")

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// describeError maps a use case error onto an HTTP status and a client-safe body.
// Store failures never leak driver messages.
func describeError(err error) (int, errorBody) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Code: "unauthenticated", Message: "sign in to continue"}
	case errors.Is(err, domain.ErrReauthRequired):
		return http.StatusUnauthorized, errorBody{Code: "reauth_required", Message: err.Error()}
	case errors.Is(err, domain.ErrNoOptionSelected):
		return http.StatusBadRequest, errorBody{Code: "no_option_selected", Message: "select an option before submitting"}
	case errors.Is(err, domain.ErrDisplayNameEmpty):
		return http.StatusUnprocessableEntity, errorBody{Code: "display_name_empty", Message: err.Error()}
	case errors.Is(err, domain.ErrProfanity):
		return http.StatusUnprocessableEntity, errorBody{Code: "profanity", Message: err.Error()}
	case errors.Is(err, domain.ErrInvalidSocialURL):
		return http.StatusUnprocessableEntity, errorBody{Code: "invalid_social_url", Message: err.Error()}
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound, errorBody{Code: "question_not_found", Message: err.Error()}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusConflict, errorBody{Code: "user_not_provisioned", Message: "open a session before using your profile"}
	case errors.Is(err, domain.ErrLeaderboardUnavailable):
		return http.StatusServiceUnavailable, errorBody{Code: "leaderboard_unavailable", Message: "leaderboard is unavailable right now", Retryable: true}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorBody{Code: "bad_request", Message: err.Error()}
	}
	if pe, ok := domain.AsPersistence(err); ok {
		if pe.MaybeApplied() {
			return http.StatusServiceUnavailable, errorBody{Code: "write_unconfirmed", Message: "your change may have been saved, reload before trying again"}
		}
		if pe.Op == domain.OpWrite {
			return http.StatusServiceUnavailable, errorBody{Code: "write_failed", Message: "your change was not saved, try again", Retryable: pe.Retryable()}
		}
		return http.StatusServiceUnavailable, errorBody{Code: "read_failed", Message: "could not load data, try again", Retryable: pe.Retryable()}
	}
	return http.StatusInternalServerError, errorBody{Code: "internal", Message: "internal error"}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := describeError(err)
	writeJSON(w, status, errorEnvelope{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}
