// Package fullcontent implements spec.md §4.6: FullContentFetcher. The
// pipeline hands it stub notes (guid known, body and resources not yet
// fetched); it fetches full content, overlays it onto the stub
// preserving local ids, schedules thumbnail/ink-note downloads, and
// writes the merged note to the local store. It also implements the
// resource-only incremental path for resources whose owning note is
// already local. Grounded on the teacher's drive.Service.UploadFile +
// sync.Executor pair (drive/provider.go, sync/executor.go): "fetch the
// full payload for something we only have a stub/reference of, then
// write the result back" is the same shape, generalized from a one-way
// upload to a content download-and-merge.
package fullcontent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/logx"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/ratelimiter"
	"github.com/vesperpad/sync-engine/resolver"
)

// AuxDownloader is satisfied by package auxdownload. Both methods are
// best-effort: they return an error on failure, and FullContentFetcher
// logs it and goes on without failing the fetch (spec.md §4.7).
type AuxDownloader interface {
	DownloadThumbnail(ctx context.Context, note model.Note) (model.Note, error)
	DownloadInkImages(ctx context.Context, note model.Note) error
}

// Options configures which auxiliary downloads FullContentFetcher
// schedules, mirroring the orchestrator's
// setDownloadNoteThumbnails/setDownloadInkNoteImages settings
// (spec.md §9).
type Options struct {
	WithResourcesData         bool
	WithResourcesRecognition  bool
	WithResourcesAlternateData bool
	DownloadThumbnails        bool
	DownloadInkNoteImages     bool
	MaxConcurrentNoteFetches  int
}

// Fetcher fetches full note/resource content for one scope.
type Fetcher struct {
	store      gateway.NoteStore
	gw         gateway.LocalStoreGateway
	aux        AuxDownloader
	emitter    events.Emitter
	logger     zerolog.Logger
	limiter    *ratelimiter.RateLimiter
	authBroker gateway.AuthTokenBroker
	scope      model.Scope
}

// New returns a Fetcher. aux may be nil, disabling thumbnail/ink-note
// downloads regardless of Options.
func New(store gateway.NoteStore, gw gateway.LocalStoreGateway, aux AuxDownloader, emitter events.Emitter) *Fetcher {
	if emitter == nil {
		emitter = events.NoOp{}
	}
	return &Fetcher{store: store, gw: gw, aux: aux, emitter: emitter, logger: logx.WithComponent("fullcontent")}
}

// WithRetry configures the Fetcher to transparently retry rate-limited and
// auth-expired GetNote/GetResource calls for scope through limiter
// (spec.md §4.2) instead of surfacing them to the caller.
func (f *Fetcher) WithRetry(limiter *ratelimiter.RateLimiter, authBroker gateway.AuthTokenBroker, scope model.Scope) *Fetcher {
	f.limiter = limiter
	f.authBroker = authBroker
	f.scope = scope
	return f
}

func (f *Fetcher) getNote(ctx context.Context, guid model.GUID, opts gateway.GetNoteOptions) (model.Note, error) {
	if f.limiter == nil {
		return f.store.GetNote(ctx, guid, opts)
	}
	var note model.Note
	err := f.limiter.Retry(ctx, f.authBroker, f.scope, func() error {
		var callErr error
		note, callErr = f.store.GetNote(ctx, guid, opts)
		return callErr
	})
	return note, err
}

func (f *Fetcher) getResource(ctx context.Context, guid model.GUID, opts gateway.GetResourceOptions) (model.Resource, error) {
	if f.limiter == nil {
		return f.store.GetResource(ctx, guid, opts)
	}
	var res model.Resource
	err := f.limiter.Retry(ctx, f.authBroker, f.scope, func() error {
		var callErr error
		res, callErr = f.store.GetResource(ctx, guid, opts)
		return callErr
	})
	return res, err
}

type pendingNote struct {
	stub  model.Note
	isAdd bool
}

// FetchNotes fetches full content for every stub note in adds/updates,
// writes the merged result to the local store, and reports progress
// (spec.md §4.6, §4.7).
func (f *Fetcher) FetchNotes(ctx context.Context, scope model.Scope, adds, updates []model.Note, opts Options) error {
	pending := make([]pendingNote, 0, len(adds)+len(updates))
	for _, n := range adds {
		pending = append(pending, pendingNote{stub: n, isAdd: true})
	}
	for _, n := range updates {
		pending = append(pending, pendingNote{stub: n, isAdd: false})
	}
	total := len(pending)
	if total == 0 {
		return nil
	}

	limit := opts.MaxConcurrentNoteFetches
	if limit <= 0 {
		limit = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	done := 0
	for _, pn := range pending {
		pn := pn
		g.Go(func() error {
			err := f.fetchOne(gctx, scope, pn, opts)
			done++
			f.emitter.NotesDownloadProgress(string(scope), done, total)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fullcontent: fetch notes for scope %q: %w", scope, err)
	}
	return nil
}

func (f *Fetcher) fetchOne(ctx context.Context, scope model.Scope, pn pendingNote, opts Options) error {
	full, err := f.getNote(ctx, pn.stub.GUID, gateway.GetNoteOptions{
		WithContent:                true,
		WithResourcesData:          opts.WithResourcesData,
		WithResourcesRecognition:   opts.WithResourcesRecognition,
		WithResourcesAlternateData: opts.WithResourcesAlternateData,
	})
	if err != nil {
		return fmt.Errorf("get note %s: %w", pn.stub.GUID, err)
	}

	merged := overlayNote(pn.stub, full)

	if opts.DownloadThumbnails && f.aux != nil && len(merged.Resources) > 0 {
		updated, err := f.aux.DownloadThumbnail(ctx, merged)
		if err != nil {
			f.logger.Warn().Err(err).Str("note_guid", string(merged.GUID)).Msg("thumbnail download failed, continuing")
		} else {
			merged = updated
		}
	}
	if opts.DownloadInkNoteImages && f.aux != nil && merged.IsInkNote() {
		if err := f.aux.DownloadInkImages(ctx, merged); err != nil {
			f.logger.Warn().Err(err).Str("note_guid", string(merged.GUID)).Msg("ink-note image download failed, continuing")
		}
	}

	if pn.isAdd {
		if err := f.gw.AddNote(ctx, merged); err != nil {
			return fmt.Errorf("add note %s: %w", merged.GUID, err)
		}
	} else {
		if err := f.gw.UpdateNote(ctx, merged); err != nil {
			return fmt.Errorf("update note %s: %w", merged.GUID, err)
		}
	}
	return nil
}

// overlayNote merges a fully-fetched note onto its stub: the stub's
// local ids (note and matching resources) are preserved, new resources
// get fresh local ids, and the locally-modified/local-only flags are
// cleared (spec.md §4.6).
func overlayNote(stub, full model.Note) model.Note {
	merged := full
	merged.LocalID = stub.LocalID
	merged.NotebookLocalID = stub.NotebookLocalID
	merged.LocallyModified = false
	merged.LocalOnly = false

	byGUID := make(map[model.GUID]model.Resource, len(stub.Resources))
	for _, r := range stub.Resources {
		if r.GUID != "" {
			byGUID[r.GUID] = r
		}
	}

	merged.Resources = make([]model.Resource, len(full.Resources))
	for i, r := range full.Resources {
		if prior, ok := byGUID[r.GUID]; ok {
			r.LocalID = prior.LocalID
		} else {
			r.LocalID = model.NewLocalID()
		}
		r.NoteLocalID = merged.LocalID
		r.LocallyModified = false
		merged.Resources[i] = r
	}
	return merged
}

// FetchResourcesOnly implements the incremental-sync resource path
// (spec.md §4.6 "Resource-only path"): for each resource whose owning
// note is already local and not itself pending a full fetch, fetch the
// resource body and mark the owning note locally-modified. If the local
// resource is dirty, route through the note conflict path instead of
// clobbering it (spec.md §4.6: "Conflict: if the local resource is dirty,
// route through the note conflict path (§4.4)").
func (f *Fetcher) FetchResourcesOnly(ctx context.Context, scope model.Scope, resources []model.Resource, opts Options) error {
	for i, stub := range resources {
		full, err := f.getResource(ctx, stub.GUID, gateway.GetResourceOptions{
			WithData:          opts.WithResourcesData,
			WithRecognition:   opts.WithResourcesRecognition,
			WithAlternateData: opts.WithResourcesAlternateData,
		})
		if err != nil {
			return fmt.Errorf("fullcontent: get resource %s: %w", stub.GUID, err)
		}

		ownerRow, err := f.gw.FindNoteByGUID(ctx, stub.NoteGUID)
		if err != nil {
			return fmt.Errorf("fullcontent: find owning note %s: %w", stub.NoteGUID, err)
		}
		if ownerRow == nil {
			continue
		}
		owner, _ := resolver.OwningNote(stub.NoteGUID, []model.Note{*ownerRow})

		existing, err := f.gw.FindResourceByGUID(ctx, stub.GUID)
		if err != nil {
			return fmt.Errorf("fullcontent: find resource %s: %w", stub.GUID, err)
		}

		markDirty := true
		switch {
		case existing != nil && existing.Dirty():
			if err := f.resolveDirtyResourceConflict(ctx, &owner, full, existing); err != nil {
				return fmt.Errorf("fullcontent: resolve resource conflict for %s: %w", stub.GUID, err)
			}
			markDirty = false
		case existing != nil:
			full.LocalID = existing.LocalID
			full.NoteLocalID = existing.NoteLocalID
			if err := f.gw.UpdateResource(ctx, full); err != nil {
				return fmt.Errorf("fullcontent: update resource %s: %w", stub.GUID, err)
			}
		default:
			full.LocalID = model.NewLocalID()
			full.NoteLocalID = owner.LocalID
			if err := f.gw.AddResource(ctx, full); err != nil {
				return fmt.Errorf("fullcontent: add resource %s: %w", stub.GUID, err)
			}
		}

		if markDirty {
			if err := f.gw.SetNoteLocallyModified(ctx, owner.LocalID, true); err != nil {
				return fmt.Errorf("fullcontent: mark note %s dirty after resource update: %w", owner.LocalID, err)
			}
		}
		f.emitter.ResourcesDownloadProgress(string(scope), i+1, len(resources))
	}
	return nil
}

// resolveDirtyResourceConflict dispatches a dirty local resource through
// the note-level conflict resolver (spec.md §4.4, §4.6): owner stands in
// for the remote side with its update sequence number bumped past the
// local copy's, forcing resolver.ResolveNote past the UseLocal
// short-circuit and into the dirty-local-copy split. A DuplicateLocal
// outcome's conflict copy (carrying the old, dirty resource) is added
// as a new note; the incoming resource is then written clean onto the
// original note, which the caller leaves unmarked as locally-modified.
func (f *Fetcher) resolveDirtyResourceConflict(ctx context.Context, owner *model.Note, incoming model.Resource, existing *model.Resource) error {
	remote := *owner
	remote.UpdateSequenceNum = owner.UpdateSequenceNum + 1

	local := *owner
	local.LocallyModified = true

	decision := resolver.ResolveNote(remote, &local, false)
	if decision.Outcome == resolver.DuplicateLocal && decision.ConflictCopy != nil {
		if err := f.gw.AddNote(ctx, *decision.ConflictCopy); err != nil {
			return fmt.Errorf("add conflicting note copy for %s: %w", owner.GUID, err)
		}
	}

	incoming.LocalID = existing.LocalID
	incoming.NoteLocalID = existing.NoteLocalID
	incoming.LocallyModified = false
	if err := f.gw.UpdateResource(ctx, incoming); err != nil {
		return fmt.Errorf("update resource %s after conflict split: %w", incoming.GUID, err)
	}
	return nil
}
