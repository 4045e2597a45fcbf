// Package expunger implements spec.md §4.9: ExpungerEngine. It applies
// the expunge guid lists a sync chunk carries, and — once a scope has
// been fully synced at least once before — runs
// FullSyncStaleDataItemsExpunger, which infers deletions a full sync
// can't report directly by diffing the guids observed this sync against
// what the local store already holds. Grounded on the teacher's
// sync.Executor reconciliation pass (sync/executor.go), which performs
// the analogous "what's on disk that the remote side no longer has"
// diff for local-to-remote sync, generalized here to the reverse
// direction.
package expunger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/logx"
	"github.com/vesperpad/sync-engine/model"
)

// ExpungeLists carries the guid lists an incremental sync chunk reports
// for one scope (spec.md §4.9). A linked-notebook-internal scope never
// populates SavedSearches or LinkedNotebooks.
type ExpungeLists struct {
	Notebooks      []model.GUID
	Tags           []model.GUID
	SavedSearches  []model.GUID
	LinkedNotebooks []model.GUID
	Notes          []model.GUID
}

// ObservedGUIDs is the set of guids seen across every chunk of one full
// sync, keyed by kind, the input FullSyncStaleDataItemsExpunger diffs
// against the local store.
type ObservedGUIDs struct {
	Notebooks     []model.GUID
	Tags          []model.GUID
	SavedSearches []model.GUID
	Notes         []model.GUID
}

// Engine applies remote expunges and runs the stale-data reconciliation
// pass after repeat full syncs.
type Engine struct {
	gw      gateway.LocalStoreGateway
	emitter events.Emitter
	logger  zerolog.Logger
}

// New returns an Engine writing through gw.
func New(gw gateway.LocalStoreGateway, emitter events.Emitter) *Engine {
	if emitter == nil {
		emitter = events.NoOp{}
	}
	return &Engine{gw: gw, emitter: emitter, logger: logx.WithComponent("expunger")}
}

// ApplyExpunges issues an expunge request for every guid in lists
// (spec.md §4.9, invariant "expunge completeness"). It returns the
// expunged-count delta for the caller's progress counters.
func (e *Engine) ApplyExpunges(ctx context.Context, scope model.Scope, lists ExpungeLists) (events.Counters, error) {
	var counters events.Counters

	for _, g := range lists.Notes {
		if err := e.gw.ExpungeNote(ctx, g); err != nil {
			return counters, fmt.Errorf("expunger: expunge note %s: %w", g, err)
		}
		counters.NotesExpunged++
	}
	for _, g := range lists.Notebooks {
		if err := e.gw.ExpungeNotebook(ctx, g); err != nil {
			return counters, fmt.Errorf("expunger: expunge notebook %s: %w", g, err)
		}
		counters.NotebooksExpunged++
	}
	for _, g := range lists.Tags {
		if err := e.gw.ExpungeTag(ctx, g); err != nil {
			return counters, fmt.Errorf("expunger: expunge tag %s: %w", g, err)
		}
		counters.TagsExpunged++
	}
	for _, g := range lists.SavedSearches {
		if err := e.gw.ExpungeSavedSearch(ctx, g); err != nil {
			return counters, fmt.Errorf("expunger: expunge saved search %s: %w", g, err)
		}
		counters.SavedSearchesExpunged++
	}
	for _, g := range lists.LinkedNotebooks {
		if err := e.gw.ExpungeLinkedNotebook(ctx, g); err != nil {
			return counters, fmt.Errorf("expunger: expunge linked notebook %s: %w", g, err)
		}
		counters.LinkedNotebooksExpunged++
	}

	e.logger.Debug().Str("scope", string(scope)).
		Int("notes", len(lists.Notes)).Int("notebooks", len(lists.Notebooks)).
		Int("tags", len(lists.Tags)).Int("saved_searches", len(lists.SavedSearches)).
		Int("linked_notebooks", len(lists.LinkedNotebooks)).
		Msg("applied expunge lists")
	return counters, nil
}

// ExpungeStaleAfterFullSync implements FullSyncStaleDataItemsExpunger
// (spec.md §4.9, invariant "stale-item expunge correctness"). Callers
// must only invoke this for a *repeat* full sync (everFullySynced is a
// defensive no-op guard, not the authority for that decision — the
// orchestrator decides whether this scope's full sync is a repeat one).
func (e *Engine) ExpungeStaleAfterFullSync(ctx context.Context, scope model.Scope, everFullySynced bool, observed ObservedGUIDs) (events.Counters, error) {
	var counters events.Counters
	if !everFullySynced {
		return counters, nil
	}

	notebooksExpunged, err := e.expungeMissing(ctx, observed.Notebooks, func(ctx context.Context) ([]model.GUID, error) {
		return e.gw.ListNotebookGUIDs(ctx, scope)
	}, e.gw.ExpungeNotebook)
	if err != nil {
		return counters, err
	}
	counters.NotebooksExpunged += notebooksExpunged

	tagsExpunged, err := e.expungeMissing(ctx, observed.Tags, func(ctx context.Context) ([]model.GUID, error) {
		return e.gw.ListTagGUIDs(ctx, scope)
	}, e.gw.ExpungeTag)
	if err != nil {
		return counters, err
	}
	counters.TagsExpunged += tagsExpunged

	if scope == model.OwnScope {
		savedSearchesExpunged, err := e.expungeMissing(ctx, observed.SavedSearches, func(ctx context.Context) ([]model.GUID, error) {
			return e.gw.ListSavedSearchGUIDs(ctx, scope)
		}, e.gw.ExpungeSavedSearch)
		if err != nil {
			return counters, err
		}
		counters.SavedSearchesExpunged += savedSearchesExpunged
	}

	notesExpunged, err := e.expungeMissing(ctx, observed.Notes, func(ctx context.Context) ([]model.GUID, error) {
		return e.gw.ListNoteGUIDs(ctx, scope)
	}, e.gw.ExpungeNote)
	if err != nil {
		return counters, err
	}
	counters.NotesExpunged += notesExpunged

	return counters, nil
}

func (e *Engine) expungeMissing(
	ctx context.Context,
	observed []model.GUID,
	list func(ctx context.Context) ([]model.GUID, error),
	expunge func(ctx context.Context, guid model.GUID) error,
) (int, error) {
	seen := make(map[model.GUID]struct{}, len(observed))
	for _, g := range observed {
		seen[g] = struct{}{}
	}

	local, err := list(ctx)
	if err != nil {
		return 0, fmt.Errorf("expunger: list local guids: %w", err)
	}

	count := 0
	for _, g := range local {
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			continue
		}
		if err := expunge(ctx, g); err != nil {
			return count, fmt.Errorf("expunger: expunge stale guid %s: %w", g, err)
		}
		count++
	}
	return count, nil
}

// ExpungeNotelessLinkedNotebookTags implements spec.md §4.9's final
// cross-scope step, run once after every linked notebook has finished
// syncing: tags owned by a linked notebook and no longer referenced by
// any note.
func (e *Engine) ExpungeNotelessLinkedNotebookTags(ctx context.Context) error {
	if err := e.gw.ExpungeNotelessTagsFromLinkedNotebooks(ctx); err != nil {
		return fmt.Errorf("expunger: expunge noteless linked-notebook tags: %w", err)
	}
	return nil
}
