package syncerr

import (
	"errors"
	"fmt"
)

// RateLimitError is returned by a gateway call instead of (result, nil) when
// the remote service has throttled the client. Seconds is how long the
// caller must wait before retrying (spec.md §4.2, §7 — always retried,
// never surfaced as a session failure).
type RateLimitError struct {
	Seconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit reached, retry after %ds", e.Seconds)
}

// AuthExpiredError is returned by a gateway call when the auth token used
// for the request has expired (spec.md §4.2, §7).
type AuthExpiredError struct {
	Scope string // empty for the user's own scope, else a linked-notebook guid
}

func (e *AuthExpiredError) Error() string {
	if e.Scope == "" {
		return "auth token expired for user's own scope"
	}
	return fmt.Sprintf("auth token expired for linked notebook %s", e.Scope)
}

// AsRateLimit reports whether err is (or wraps) a *RateLimitError and
// returns it.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	ok := errors.As(err, &rl)
	return rl, ok
}

// AsAuthExpired reports whether err is (or wraps) a *AuthExpiredError and
// returns it.
func AsAuthExpired(err error) (*AuthExpiredError, bool) {
	var ae *AuthExpiredError
	ok := errors.As(err, &ae)
	return ae, ok
}
