package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when an operation needs a signed-in user.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrNoOptionSelected is returned when a submission carries no answer.
	ErrNoOptionSelected = errors.New("no option selected")
	// ErrQuestionNotFound indicates the question title is not in the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates the user aggregate was never provisioned.
	ErrUserNotFound = errors.New("user aggregate not found")
	// ErrDisplayNameEmpty rejects blank display names.
	ErrDisplayNameEmpty = errors.New("display name cannot be empty")
	// ErrProfanity rejects display names containing denylisted words.
	ErrProfanity = errors.New("derogatory words are not allowed and will result in a ban")
	// ErrInvalidSocialURL rejects social links that are not absolute http(s) URLs.
	ErrInvalidSocialURL = errors.New("social links must be http or https URLs")
	// ErrReauthRequired is returned when a sensitive operation needs a fresh sign-in.
	ErrReauthRequired = errors.New("recent sign-in required: sign out and sign back in, then retry")
	// ErrLeaderboardUnavailable marks a failed leaderboard fetch, as opposed to an empty one.
	ErrLeaderboardUnavailable = errors.New("leaderboard unavailable")
)

// IsValidation reports whether err is a user input problem that never reached a store.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoOptionSelected) ||
		errors.Is(err, ErrDisplayNameEmpty) ||
		errors.Is(err, ErrProfanity) ||
		errors.Is(err, ErrInvalidSocialURL)
}

// IsPermanent reports errors that retrying can't fix.
func IsPermanent(err error) bool {
	return IsValidation(err) ||
		errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrReauthRequired) ||
		errors.Is(err, context.Canceled)
}

// Op tells reads from writes in a PersistenceError.
type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// PersistenceError wraps a failed store call (network, quota, permission, timeout).
type PersistenceError struct {
	Op       Op
	Resource string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable is true for every persistence failure except cancellation by the caller
// and a write that ran out of time, which may have been applied.
func (e *PersistenceError) Retryable() bool {
	if errors.Is(e.Err, context.Canceled) {
		return false
	}
	return !e.MaybeApplied()
}

// MaybeApplied reports a write whose outcome is unknown: the deadline hit after
// the request may already have reached the store.
func (e *PersistenceError) MaybeApplied() bool {
	return e.Op == OpWrite && errors.Is(e.Err, context.DeadlineExceeded)
}

// AsPersistence extracts a PersistenceError from err's chain.
func AsPersistence(err error) (*PersistenceError, bool) {
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
