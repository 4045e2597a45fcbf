// Package ratelimiter converts RATE_LIMIT_REACHED gateway failures into
// scheduled retries (spec.md §4.2): validate the wait, arm a single-shot
// timer, emit rateLimitExceeded, and invoke the bound retry once the timer
// fires — unless the session has since been stopped.
package ratelimiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/logx"
	"github.com/vesperpad/sync-engine/model"
)

// RateLimiter schedules retries for rate-limited gateway calls. One
// instance is shared for the lifetime of a sync session.
type RateLimiter struct {
	emitter events.Emitter
	logger  zerolog.Logger

	mu              sync.Mutex
	tracker         *gateway.Tracker
	timers          map[gateway.RequestID]*time.Timer
	stopped         bool
	linkedNotebooks []model.GUID
}

// New returns a RateLimiter that emits through emitter.
func New(emitter events.Emitter) *RateLimiter {
	if emitter == nil {
		emitter = events.NoOp{}
	}
	return &RateLimiter{
		emitter: emitter,
		logger:  logx.WithComponent("ratelimiter"),
		tracker: gateway.NewTracker(),
		timers:  make(map[gateway.RequestID]*time.Timer),
	}
}

// Schedule validates seconds, arms a timer, emits rateLimitExceeded(seconds),
// and calls retry once the timer fires. It returns an error (session
// failure, per spec.md §4.2 "validate seconds >= 0, else fail") if seconds
// is negative.
func (r *RateLimiter) Schedule(seconds int, retry func()) error {
	if seconds < 0 {
		return fmt.Errorf("ratelimiter: invalid retry-after seconds %d", seconds)
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	id := r.tracker.Begin()
	d := time.Duration(seconds) * time.Second
	timer := time.AfterFunc(d, func() { r.fire(id, retry) })
	r.timers[id] = timer
	r.mu.Unlock()

	r.logger.Info().Int("seconds", seconds).Msg("rate limit reached, retry scheduled")
	r.emitter.RateLimitExceeded(seconds)
	return nil
}

func (r *RateLimiter) fire(id gateway.RequestID, retry func()) {
	r.mu.Lock()
	live := r.tracker.IsLive(id)
	if live {
		r.tracker.End(id)
	}
	delete(r.timers, id)
	r.mu.Unlock()

	if !live {
		r.logger.Debug().Msg("rate limit timer fired after session stop, ignoring")
		return
	}
	retry()
}

// Stop cancels every outstanding timer and invalidates their correlations,
// so in-flight retries that were already queued do nothing when they fire
// (spec.md §5 cancellation).
func (r *RateLimiter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	for _, timer := range r.timers {
		timer.Stop()
	}
	r.timers = make(map[gateway.RequestID]*time.Timer)
	r.tracker.InvalidateAll()
}

// Pending returns the number of retries currently scheduled but not yet
// fired — useful for tests and for a status CLI command to report
// "waiting on rate limit".
func (r *RateLimiter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// SetLinkedNotebookGUIDs records every linked notebook known to the
// current sync session, so Retry can refresh all of their tokens
// together on AUTH_EXPIRED (spec.md §4.2: "request new tokens for all
// linked notebooks ... and resume") instead of just the one in flight.
func (r *RateLimiter) SetLinkedNotebookGUIDs(guids []model.GUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linkedNotebooks = append([]model.GUID(nil), guids...)
}

// linkedNotebookRefreshSet returns every known linked notebook guid,
// always including extra (the guid currently in flight), deduplicated.
func (r *RateLimiter) linkedNotebookRefreshSet(extra model.GUID) []model.GUID {
	r.mu.Lock()
	known := r.linkedNotebooks
	r.mu.Unlock()

	seen := make(map[model.GUID]struct{}, len(known)+1)
	out := make([]model.GUID, 0, len(known)+1)
	add := func(g model.GUID) {
		if _, ok := seen[g]; ok {
			return
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	add(extra)
	for _, g := range known {
		add(g)
	}
	return out
}
