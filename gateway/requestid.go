package gateway

import "sync/atomic"

// RequestID correlates an outbound gateway call (or a rate-limit timer) with
// its eventual completion (spec.md §5, §9 "Request-id correlation"). It is
// a plain counter rather than a map of continuations because this module
// expresses continuations as Go closures/goroutines directly; RequestID
// exists solely so a Tracker can tell a live call apart from one that
// belongs to a session already stopped.
type RequestID uint64

// IDGenerator mints unique, monotonically increasing RequestIDs. The zero
// value is ready to use.
type IDGenerator struct {
	counter uint64
}

// Next returns a fresh RequestID.
func (g *IDGenerator) Next() RequestID {
	return RequestID(atomic.AddUint64(&g.counter, 1))
}

// Tracker records which RequestIDs are still live. Stop() (spec.md §5
// cancellation) calls Invalidate, after which any response for a tracked id
// is ignored by the caller rather than acted on — "subsequent responses for
// those correlations are silently ignored".
//
// Tracker is owned by a single goroutine (the orchestrator's own event
// loop, per spec.md §5's single-logical-thread model) and is not safe for
// concurrent use.
type Tracker struct {
	gen  IDGenerator
	live map[RequestID]struct{}
}

// NewTracker returns a ready-to-use Tracker.
func NewTracker() *Tracker {
	return &Tracker{live: make(map[RequestID]struct{})}
}

// Begin mints a new id and marks it live.
func (t *Tracker) Begin() RequestID {
	id := t.gen.Next()
	t.live[id] = struct{}{}
	return id
}

// End marks id no longer live (normal completion).
func (t *Tracker) End(id RequestID) {
	delete(t.live, id)
}

// IsLive reports whether id is still tracked as live.
func (t *Tracker) IsLive(id RequestID) bool {
	_, ok := t.live[id]
	return ok
}

// InvalidateAll marks every currently-live id dead, without blocking future
// Begin calls. Used by stop()/session-failure cleanup.
func (t *Tracker) InvalidateAll() {
	t.live = make(map[RequestID]struct{})
}
