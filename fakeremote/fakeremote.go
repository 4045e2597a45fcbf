// Package fakeremote is an in-process, scripted implementation of
// gateway.UserStore and gateway.NoteStore (spec.md §1's "one concrete,
// swappable implementation... to give the test suite something real to
// run against"). It never touches the network: a Scenario is a fixed
// sequence of sync chunks, plus optional canned rate-limit and
// auth-expiry responses, replayed in order as the orchestrator calls
// GetSyncChunk/GetLinkedNotebookSyncChunk. Used by the orchestrator's own
// tests (as an alternative to a hand-rolled fake per test) and by the
// `demo` CLI subcommand, which needs something to synchronize against
// with zero external dependencies.
//
// Grounded on the teacher's own approach to exercising sync.Worker without
// live Drive credentials: a canned in-memory stand-in fed with fixed
// responses rather than a generic request/response recorder.
package fakeremote

import (
	"context"
	"sync"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/syncerr"
)

// Scenario is one scripted remote service: a fixed user, account limits,
// and an ordered list of sync chunks for the own scope plus, per linked
// notebook, its own ordered list.
type Scenario struct {
	Name string

	ProtocolOK bool
	User       model.User
	Limits     model.AccountLimits

	OwnState  model.SyncState
	OwnChunks []model.SyncChunk

	LinkedNotebooks map[model.GUID]model.LinkedNotebook
	LinkedStates    map[model.GUID]model.SyncState
	LinkedChunks    map[model.GUID][]model.SyncChunk

	// Notes holds full note bodies served by GetNote, keyed by guid —
	// every guid referenced by a chunk's Notes stub must have an entry
	// here or FetchNotes receives an empty note back.
	Notes map[model.GUID]model.Note

	// RateLimitOnceAfterUSN, when HasRateLimitOnce is set, makes the own-scope
	// GetSyncChunk call for that afterUSN fail once with RateLimitError
	// before serving the scripted chunk (spec.md §8 scenario 3).
	RateLimitOnceAfterUSN model.USN
	HasRateLimitOnce      bool
	RateLimitSeconds      int
}

// Store replays a Scenario. Safe for concurrent use; state mutated by
// replay (rate-limit-once consumption) is guarded by a mutex so a single
// Scenario can't be replayed concurrently and give inconsistent results,
// though ordinary sessions only ever run one at a time anyway.
type Store struct {
	mu       sync.Mutex
	scenario Scenario
	rlFired  map[model.USN]bool
}

var _ gateway.UserStore = (*Store)(nil)
var _ gateway.NoteStore = (*Store)(nil)

// New returns a Store replaying scenario.
func New(scenario Scenario) *Store {
	return &Store{scenario: scenario, rlFired: make(map[model.USN]bool)}
}

func (s *Store) CheckProtocolVersion(ctx context.Context, clientName string, major, minor int32) (bool, error) {
	return s.scenario.ProtocolOK, nil
}

func (s *Store) GetUser(ctx context.Context) (model.User, error) {
	return s.scenario.User, nil
}

func (s *Store) GetAccountLimits(ctx context.Context, level model.ServiceLevel) (model.AccountLimits, error) {
	return s.scenario.Limits, nil
}

func (s *Store) GetSyncState(ctx context.Context) (model.SyncState, error) {
	return s.scenario.OwnState, nil
}

func (s *Store) GetSyncChunk(ctx context.Context, afterUSN model.USN, maxEntries int32, filter gateway.SyncChunkFilter) (model.SyncChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scenario.HasRateLimitOnce && afterUSN == s.scenario.RateLimitOnceAfterUSN && !s.rlFired[afterUSN] {
		s.rlFired[afterUSN] = true
		return model.SyncChunk{}, &syncerr.RateLimitError{Seconds: s.scenario.RateLimitSeconds}
	}

	for _, c := range s.scenario.OwnChunks {
		if c.ChunkHighUSN > afterUSN {
			return c, nil
		}
	}
	last := afterUSN
	if len(s.scenario.OwnChunks) > 0 {
		last = s.scenario.OwnChunks[len(s.scenario.OwnChunks)-1].UpdateCount
	}
	return model.SyncChunk{HasChunkHighUSN: true, ChunkHighUSN: last, UpdateCount: last}, nil
}

func (s *Store) GetLinkedNotebookSyncState(ctx context.Context, notebook model.LinkedNotebook) (model.SyncState, error) {
	return s.scenario.LinkedStates[notebook.GUID], nil
}

func (s *Store) GetLinkedNotebookSyncChunk(ctx context.Context, notebook model.LinkedNotebook, afterUSN model.USN, maxEntries int32, filter gateway.SyncChunkFilter) (model.SyncChunk, error) {
	chunks := s.scenario.LinkedChunks[notebook.GUID]
	for _, c := range chunks {
		if c.ChunkHighUSN > afterUSN {
			return c, nil
		}
	}
	last := afterUSN
	if len(chunks) > 0 {
		last = chunks[len(chunks)-1].UpdateCount
	}
	return model.SyncChunk{HasChunkHighUSN: true, ChunkHighUSN: last, UpdateCount: last}, nil
}

func (s *Store) GetNote(ctx context.Context, guid model.GUID, opts gateway.GetNoteOptions) (model.Note, error) {
	return s.scenario.Notes[guid], nil
}

func (s *Store) GetResource(ctx context.Context, guid model.GUID, opts gateway.GetResourceOptions) (model.Resource, error) {
	for _, n := range s.scenario.Notes {
		for _, r := range n.Resources {
			if r.GUID == guid {
				return r, nil
			}
		}
	}
	return model.Resource{}, nil
}

// LinkedNotebookList returns the scenario's linked notebooks in
// unspecified order, for the orchestrator caller to register with the
// local store before a session starts (the fake has no independent
// discovery RPC; the CLI glue registers them directly).
func (s *Store) LinkedNotebookList() []model.LinkedNotebook {
	out := make([]model.LinkedNotebook, 0, len(s.scenario.LinkedNotebooks))
	for _, ln := range s.scenario.LinkedNotebooks {
		out = append(out, ln)
	}
	return out
}
