package ratelimiter

import (
	"context"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/syncerr"
)

// Retry invokes fn, transparently handling the two transient failure
// classes spec.md §4.2 names: a *syncerr.RateLimitError schedules a timer
// via Schedule and retries once it fires; a *syncerr.AuthExpiredError
// requests a token refresh from authBroker (the user token for scope ==
// model.OwnScope, otherwise every linked notebook guid registered via
// SetLinkedNotebookGUIDs plus scope's own guid — spec.md §4.2: "request
// new tokens for all linked notebooks ... and resume") and retries once
// the refresh arrives. Any other error is returned as-is. authBroker may
// be nil, in which case an AuthExpiredError is returned unhandled.
func (r *RateLimiter) Retry(ctx context.Context, authBroker gateway.AuthTokenBroker, scope model.Scope, fn func() error) error {
	for {
		err := fn()
		if err == nil {
			return nil
		}

		if rlErr, ok := syncerr.AsRateLimit(err); ok {
			fired := make(chan struct{})
			if scheduleErr := r.Schedule(rlErr.Seconds, func() { close(fired) }); scheduleErr != nil {
				return scheduleErr
			}
			select {
			case <-fired:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if _, ok := syncerr.AsAuthExpired(err); ok {
			if authBroker == nil {
				return err
			}
			if scope == model.OwnScope {
				r.emitter.RequestAuthenticationToken()
				if _, rerr := authBroker.RequestUserTokenRefresh(ctx); rerr != nil {
					return rerr
				}
			} else {
				guids := r.linkedNotebookRefreshSet(model.GUID(scope))
				notebooks := make([]model.LinkedNotebook, len(guids))
				for i, g := range guids {
					notebooks[i] = model.LinkedNotebook{GUID: g}
				}
				r.emitter.RequestAuthenticationTokensForLinkedNotebooks(notebooks)
				if _, rerr := authBroker.RequestLinkedNotebookTokensRefresh(ctx, guids); rerr != nil {
					return rerr
				}
			}
			continue
		}

		return err
	}
}
