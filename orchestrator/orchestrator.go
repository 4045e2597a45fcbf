// Package orchestrator implements spec.md §4.1: the top-level state
// machine that drives one synchronization session through its phases —
// protocol check, user fetch, sync-state check, chunk download, entity
// pipeline, expunge, linked-notebook fan-out, and finalize — wiring
// together every other package in this module. Grounded on the teacher's
// services/sync_service.go (the single top-level coordinator that owns
// and sequences the smaller services), generalized from a fixed
// three-step pipeline to the eight ordered phases spec.md §4.1 names.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vesperpad/sync-engine/auxdownload"
	"github.com/vesperpad/sync-engine/chunkfetcher"
	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/expunger"
	"github.com/vesperpad/sync-engine/fullcontent"
	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/logx"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/pipeline"
	"github.com/vesperpad/sync-engine/ratelimiter"
	"github.com/vesperpad/sync-engine/synccache"
	"github.com/vesperpad/sync-engine/syncerr"
)

// NoteStoreFactory resolves the per-linked-notebook NoteStore to talk to
// for ln — constructing one typically means pointing an HTTP client at
// ln.NoteStoreURL. Left to the caller since wire transport is an external
// collaborator (spec.md §1).
type NoteStoreFactory func(ln model.LinkedNotebook) (gateway.NoteStore, error)

// AccountLimitsCache is the 30-day account-limits cache spec.md §6
// requires. Optional: a nil cache means account limits are refetched
// every session.
type AccountLimitsCache interface {
	Get(ctx context.Context, userID int32) (model.AccountLimits, bool, error)
	Put(ctx context.Context, limits model.AccountLimits) error
}

// Config holds session-lifetime settings (spec.md §4.1, §6).
type Config struct {
	ClientName                string
	MajorVersion, MinorVersion int32

	// OwnWebAPIHost/OwnShardID locate the user's own-account thumbnail and
	// ink-note-image endpoints (spec.md §5); for a linked notebook,
	// auxDownloaderFor takes the host/shard from that notebook's
	// model.LinkedNotebookToken in the AuthTokenBroker instead.
	OwnWebAPIHost string
	OwnShardID    string

	DownloadNoteThumbnails   bool
	DownloadInkNoteImages    bool
	InkNoteImagesStoragePath string
}

// Deps bundles every external collaborator the orchestrator wires
// together (spec.md §6).
type Deps struct {
	UserStore        gateway.UserStore
	OwnNoteStore     gateway.NoteStore
	LinkedNoteStores NoteStoreFactory
	LocalStore       gateway.LocalStoreGateway
	AuthBroker       gateway.AuthTokenBroker
	Emitter          events.Emitter
	AccountLimits    AccountLimitsCache
	HTTPClient       interface {
		// satisfied by *http.Client; kept as an interface so tests can
		// substitute without importing net/http.
	}
}

// Orchestrator runs synchronization sessions against the wired
// collaborators.
type Orchestrator struct {
	cfg  Config
	deps Deps

	caches  *synccache.Registry
	limiter *ratelimiter.RateLimiter
	logger  zerolog.Logger

	mu              sync.Mutex
	stopped         bool
	cancelActive    context.CancelFunc
	lastSyncParams  map[model.Scope]model.SyncParameters
	haveSyncParams  map[model.Scope]bool
	protocolChecked bool

	// pendingUSNs tracks, per scope, the update sequence number of every
	// item handed to FullContentFetcher that hasn't yet been written to
	// the local store. CollectNonProcessedItemsSmallestUsns reads it to
	// report a safe mid-session checkpoint (spec.md §4.1).
	pendingUSNs map[model.Scope]map[model.GUID]model.USN
}

// New returns an Orchestrator ready to run sessions.
func New(cfg Config, deps Deps) *Orchestrator {
	if deps.Emitter == nil {
		deps.Emitter = events.NoOp{}
	}
	if cfg.InkNoteImagesStoragePath == "" {
		cfg.InkNoteImagesStoragePath = defaultInkImagesPath()
	}
	return &Orchestrator{
		cfg:            cfg,
		deps:           deps,
		caches:         synccache.NewRegistry(deps.LocalStore),
		limiter:        ratelimiter.New(deps.Emitter),
		logger:         logx.WithComponent("orchestrator"),
		lastSyncParams: make(map[model.Scope]model.SyncParameters),
		haveSyncParams: make(map[model.Scope]bool),
		pendingUSNs:    make(map[model.Scope]map[model.GUID]model.USN),
	}
}

func defaultInkImagesPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "sync-engine", "inkNoteImages")
}

// SetDownloadNoteThumbnails toggles thumbnail downloading.
func (o *Orchestrator) SetDownloadNoteThumbnails(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg.DownloadNoteThumbnails = on
}

// SetDownloadInkNoteImages toggles ink-note image downloading.
func (o *Orchestrator) SetDownloadInkNoteImages(on bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg.DownloadInkNoteImages = on
}

// SetInkNoteImagesStoragePath validates path for existence and
// writability; on failure it falls back to the OS-specific default
// (spec.md §4.1).
func (o *Orchestrator) SetInkNoteImagesStoragePath(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if path == "" || !dirIsWritable(path) {
		o.cfg.InkNoteImagesStoragePath = defaultInkImagesPath()
		return
	}
	o.cfg.InkNoteImagesStoragePath = path
}

func dirIsWritable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	probe := filepath.Join(path, ".write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// SetLastSyncParameters supplies the prior checkpoint for scope, required
// before Start for the user's own scope and any linked notebook already
// known to the local store (spec.md §4.1).
func (o *Orchestrator) SetLastSyncParameters(scope model.Scope, params model.SyncParameters) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastSyncParams[scope] = params
	o.haveSyncParams[scope] = true
}

// Stop cancels any in-flight session and releases its pending timers
// (spec.md §4.1, §5). Safe to call from any state, including when no
// session is running.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancelActive
	o.mu.Unlock()

	o.limiter.Stop()
	if cancel != nil {
		cancel()
	}
	o.deps.Emitter.Stopped()
}

// Outcome is the final per-session report (spec.md §4.1 step 8).
type Outcome struct {
	LastUpdateCount         model.USN
	LastSyncTime            time.Time
	PerLinkedNotebook       events.PerLinkedNotebookMaps
}

// Start runs one full session beginning after afterUSN for the user's own
// scope (spec.md §4.1). afterUSN == 0 forces a full sync.
func (o *Orchestrator) Start(ctx context.Context, afterUSN model.USN) (Outcome, error) {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return Outcome{}, syncerr.ErrSessionStopped
	}
	if !o.haveSyncParams[model.OwnScope] {
		o.mu.Unlock()
		return Outcome{}, syncerr.New(syncerr.ErrSyncParametersMissing, "own account scope")
	}
	sessCtx, cancel := context.WithCancel(ctx)
	o.cancelActive = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancelActive = nil
		o.mu.Unlock()
	}()

	outcome, err := o.run(sessCtx, afterUSN)
	if err != nil {
		if err == context.Canceled || err == syncerr.ErrSessionStopped {
			return Outcome{}, nil
		}
		wrapped := syncerr.New(syncerr.ErrRemoteStore, "session failed", err)
		o.deps.Emitter.Failure(wrapped)
		return Outcome{}, wrapped
	}
	return outcome, nil
}

func (o *Orchestrator) run(ctx context.Context, afterUSN model.USN) (Outcome, error) {
	// Phase 1: protocol check.
	ok, err := retryCall(o, ctx, model.OwnScope, func() (bool, error) {
		return o.deps.UserStore.CheckProtocolVersion(ctx, o.cfg.ClientName, o.cfg.MajorVersion, o.cfg.MinorVersion)
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("protocol check: %w", err)
	}
	if !ok {
		return Outcome{}, syncerr.New(syncerr.ErrProtocolVersionUnusable, "")
	}
	o.protocolChecked = true

	// Phase 2: user + account limits.
	user, err := retryCall(o, ctx, model.OwnScope, func() (model.User, error) {
		return o.deps.UserStore.GetUser(ctx)
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("get user: %w", err)
	}
	if err := o.deps.LocalStore.AddUser(ctx, user); err != nil {
		return Outcome{}, fmt.Errorf("persist user: %w", err)
	}
	if err := o.refreshAccountLimits(ctx, user); err != nil {
		return Outcome{}, err
	}

	ownParams := o.lastSyncParams[model.OwnScope]
	fullSync := afterUSN == 0

	// Phase 3: user-scope sync-state check.
	skipOwnChunks := false
	if ownParams.LastUpdateCount != 0 {
		state, err := retryCall(o, ctx, model.OwnScope, func() (model.SyncState, error) {
			return o.deps.OwnNoteStore.GetSyncState(ctx)
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("get own sync state: %w", err)
		}
		if state.RequiresFullSync(ownParams.LastSyncTime) {
			afterUSN = 0
			fullSync = true
		} else if state.UpdateCount == ownParams.LastUpdateCount {
			skipOwnChunks = true
		}
	}

	lastUpdateCount := ownParams.LastUpdateCount
	lastSyncTime := ownParams.LastSyncTime

	if !skipOwnChunks {
		fetcher := chunkfetcher.New(o.deps.OwnNoteStore, o.deps.Emitter).WithRetry(o.limiter, o.deps.AuthBroker)
		filter := chunkFilter(fullSync)
		result, err := fetcher.FetchOwnAccount(ctx, afterUSN, filter)
		if err != nil {
			return Outcome{}, fmt.Errorf("fetch own account chunks: %w", err)
		}
		if result.LastUpdateCount > lastUpdateCount {
			lastUpdateCount = result.LastUpdateCount
		}
		if result.LastSyncTime.After(lastSyncTime) {
			lastSyncTime = result.LastSyncTime
		}

		pl := pipeline.New(o.deps.LocalStore, o.caches, o.deps.Emitter)
		outcome, err := pl.Process(ctx, model.OwnScope, true, result.Chunks)
		if err != nil {
			return Outcome{}, fmt.Errorf("process own account pipeline: %w", err)
		}

		if err := o.fetchFullContent(ctx, model.OwnScope, o.deps.OwnNoteStore, outcome); err != nil {
			return Outcome{}, err
		}

		exp := expunger.New(o.deps.LocalStore, o.deps.Emitter)
		if _, err := exp.ApplyExpunges(ctx, model.OwnScope, expunger.ExpungeLists{
			Notebooks:       outcome.ExpungedNotebooks,
			Tags:            outcome.ExpungedTags,
			SavedSearches:   outcome.ExpungedSavedSearches,
			LinkedNotebooks: outcome.ExpungedLinkedNotebooks,
			Notes:           outcome.ExpungedNotes,
		}); err != nil {
			return Outcome{}, fmt.Errorf("apply own account expunges: %w", err)
		}
		if fullSync {
			if _, err := exp.ExpungeStaleAfterFullSync(ctx, model.OwnScope, ownParams.EverFullySynced, observedGUIDs(result.Chunks)); err != nil {
				return Outcome{}, fmt.Errorf("expunge stale own account items: %w", err)
			}
		}
		if !ownParams.EverFullySynced && fullSync {
			ownParams.EverFullySynced = true
		}
		o.deps.Emitter.ExpungedFromServerToClient()
	}

	o.deps.Emitter.SynchronizedContentFromUsersOwnAccount(lastUpdateCount, lastSyncTime.Unix())

	// Phase 7: linked notebooks.
	perLinkedNotebook, err := o.syncLinkedNotebooks(ctx)
	if err != nil {
		return Outcome{}, err
	}

	exp := expunger.New(o.deps.LocalStore, o.deps.Emitter)
	if err := exp.ExpungeNotelessLinkedNotebookTags(ctx); err != nil {
		return Outcome{}, err
	}

	// Phase 8: finalize.
	o.deps.Emitter.Finished(lastUpdateCount, lastSyncTime.Unix(), perLinkedNotebook)
	return Outcome{LastUpdateCount: lastUpdateCount, LastSyncTime: lastSyncTime, PerLinkedNotebook: perLinkedNotebook}, nil
}

func chunkFilter(fullSync bool) gateway.SyncChunkFilter {
	return gateway.SyncChunkFilter{
		IncludeNotebooks:       true,
		IncludeTags:            true,
		IncludeSavedSearches:   true,
		IncludeLinkedNotebooks: true,
		IncludeNotes:           true,
		IncludeResources:       !fullSync,
		IncludeExpunged:        !fullSync,
	}
}

func observedGUIDs(l model.SyncChunkList) expunger.ObservedGUIDs {
	var out expunger.ObservedGUIDs
	for _, c := range l.Chunks {
		for _, n := range c.Notebooks {
			out.Notebooks = append(out.Notebooks, n.GUID)
		}
		for _, t := range c.Tags {
			out.Tags = append(out.Tags, t.GUID)
		}
		for _, s := range c.SavedSearches {
			out.SavedSearches = append(out.SavedSearches, s.GUID)
		}
		for _, n := range c.Notes {
			out.Notes = append(out.Notes, n.GUID)
		}
	}
	return out
}

func (o *Orchestrator) refreshAccountLimits(ctx context.Context, user model.User) error {
	if o.deps.AccountLimits != nil {
		cached, ok, err := o.deps.AccountLimits.Get(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("read account limits cache: %w", err)
		}
		if ok && !cached.Stale(time.Now()) {
			return nil
		}
	}

	limits, err := retryCall(o, ctx, model.OwnScope, func() (model.AccountLimits, error) {
		return o.deps.UserStore.GetAccountLimits(ctx, user.ServiceLevel)
	})
	if err != nil {
		return fmt.Errorf("get account limits: %w", err)
	}
	limits.UserID = user.ID
	limits.CachedAt = time.Now()
	if o.deps.AccountLimits != nil {
		if err := o.deps.AccountLimits.Put(ctx, limits); err != nil {
			return fmt.Errorf("write account limits cache: %w", err)
		}
	}
	return nil
}

func (o *Orchestrator) fetchFullContent(ctx context.Context, scope model.Scope, store gateway.NoteStore, outcome pipeline.Outcome) error {
	var aux fullcontent.AuxDownloader
	if o.cfg.DownloadNoteThumbnails || o.cfg.DownloadInkNoteImages {
		aux = o.auxDownloaderFor(scope)
	}

	o.trackPendingItems(scope, outcome)
	defer o.untrackPendingItems(scope, outcome)

	fc := fullcontent.New(store, o.deps.LocalStore, aux, o.deps.Emitter).WithRetry(o.limiter, o.deps.AuthBroker, scope)
	opts := fullcontent.Options{
		WithResourcesData:        true,
		WithResourcesRecognition: true,
		DownloadThumbnails:       o.cfg.DownloadNoteThumbnails,
		DownloadInkNoteImages:    o.cfg.DownloadInkNoteImages,
	}
	if err := fc.FetchNotes(ctx, scope, outcome.PendingNoteAdds, outcome.PendingNoteUpdates, opts); err != nil {
		return fmt.Errorf("fetch full note content for scope %q: %w", scope, err)
	}
	if err := fc.FetchResourcesOnly(ctx, scope, outcome.PendingResources, opts); err != nil {
		return fmt.Errorf("fetch resource-only updates for scope %q: %w", scope, err)
	}
	return nil
}

// trackPendingItems records the USN of every stub note/resource outcome
// hands to FullContentFetcher as not-yet-processed for scope, so a
// concurrent call to CollectNonProcessedItemsSmallestUsns sees them until
// untrackPendingItems clears them.
func (o *Orchestrator) trackPendingItems(scope model.Scope, outcome pipeline.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	items := o.pendingUSNs[scope]
	if items == nil {
		items = make(map[model.GUID]model.USN)
		o.pendingUSNs[scope] = items
	}
	for _, n := range outcome.PendingNoteAdds {
		items[n.GUID] = n.UpdateSequenceNum
	}
	for _, n := range outcome.PendingNoteUpdates {
		items[n.GUID] = n.UpdateSequenceNum
	}
	for _, r := range outcome.PendingResources {
		items[r.GUID] = r.UpdateSequenceNum
	}
}

// untrackPendingItems clears every guid outcome contributed to scope's
// pending set, regardless of whether their fetch ultimately succeeded —
// a failed fetch fails the whole session (spec.md §4.6), so there is no
// partial-success case to keep a record of.
func (o *Orchestrator) untrackPendingItems(scope model.Scope, outcome pipeline.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	items := o.pendingUSNs[scope]
	if items == nil {
		return
	}
	for _, n := range outcome.PendingNoteAdds {
		delete(items, n.GUID)
	}
	for _, n := range outcome.PendingNoteUpdates {
		delete(items, n.GUID)
	}
	for _, r := range outcome.PendingResources {
		delete(items, r.GUID)
	}
}

// CollectNonProcessedItemsSmallestUsns implements spec.md §4.1's
// collectNonProcessedItemsSmallestUsns(&usn, &perLinkedNotebook): the
// smallest update sequence number across every item handed to
// FullContentFetcher that hasn't yet been written to the local store, for
// the user's own scope and for each linked notebook with pending work. A
// caller may persist these as a checkpoint mid-session, instead of
// lastUpdateCount, so a crash during full-content fetch doesn't later
// appear to the Orchestrator as "already processed" for items it never
// finished. A scope with no pending items is omitted from
// perLinkedNotebook, and usn is 0 when the user's own scope has none.
func (o *Orchestrator) CollectNonProcessedItemsSmallestUsns() (usn model.USN, perLinkedNotebook map[model.GUID]model.USN) {
	o.mu.Lock()
	defer o.mu.Unlock()

	perLinkedNotebook = make(map[model.GUID]model.USN)
	for scope, items := range o.pendingUSNs {
		smallest, ok := smallestUSN(items)
		if !ok {
			continue
		}
		if scope == model.OwnScope {
			usn = smallest
			continue
		}
		perLinkedNotebook[model.GUID(scope)] = smallest
	}
	return usn, perLinkedNotebook
}

func smallestUSN(items map[model.GUID]model.USN) (model.USN, bool) {
	var (
		smallest model.USN
		found    bool
	)
	for _, u := range items {
		if !found || u < smallest {
			smallest = u
			found = true
		}
	}
	return smallest, found
}

// syncLinkedNotebooks runs phase 7 (spec.md §4.1 step 7): every linked
// notebook known to the local store is refreshed in turn. Tokens nearing
// expiry are refreshed in bulk up front (spec.md §4.2), then each
// notebook gets its own sync-state check, chunk download, pipeline pass,
// full-content fetch and expunge, exactly mirroring the own-account
// phases but scoped to that notebook's guid.
func (o *Orchestrator) syncLinkedNotebooks(ctx context.Context) (events.PerLinkedNotebookMaps, error) {
	result := events.PerLinkedNotebookMaps{
		LastUpdateCount: make(map[model.GUID]model.USN),
		LastSyncTime:    make(map[model.GUID]int64),
	}

	notebooks, err := o.deps.LocalStore.ListAllLinkedNotebooks(ctx)
	if err != nil {
		return events.PerLinkedNotebookMaps{}, fmt.Errorf("list linked notebooks: %w", err)
	}
	if len(notebooks) == 0 {
		return result, nil
	}

	if err := o.refreshExpiringLinkedTokens(ctx, notebooks); err != nil {
		return events.PerLinkedNotebookMaps{}, err
	}

	guids := make([]model.GUID, len(notebooks))
	for i, ln := range notebooks {
		guids[i] = ln.GUID
	}
	o.limiter.SetLinkedNotebookGUIDs(guids)

	for _, ln := range notebooks {
		scope := model.Scope(ln.GUID)
		params := o.lastSyncParams[scope]
		afterUSN := params.LastUpdateCount
		fullSync := afterUSN == 0

		store, err := o.deps.LinkedNoteStores(ln)
		if err != nil {
			return events.PerLinkedNotebookMaps{}, fmt.Errorf("resolve note store for linked notebook %s: %w", ln.GUID, err)
		}

		fetcher := chunkfetcher.New(store, o.deps.Emitter).WithRetry(o.limiter, o.deps.AuthBroker)

		if !fullSync {
			needsFull, err := fetcher.LinkedNotebookNeedsFullSync(ctx, ln, params.LastSyncTime)
			if err != nil {
				return events.PerLinkedNotebookMaps{}, fmt.Errorf("check linked notebook %s sync state: %w", ln.GUID, err)
			}
			if needsFull {
				afterUSN = 0
				fullSync = true
			}
		}

		lastUpdateCount := params.LastUpdateCount
		lastSyncTime := params.LastSyncTime

		filter := chunkFilter(fullSync)
		chunkResult, err := fetcher.FetchLinkedNotebook(ctx, ln, afterUSN, filter)
		if err != nil {
			return events.PerLinkedNotebookMaps{}, fmt.Errorf("fetch linked notebook %s chunks: %w", ln.GUID, err)
		}
		if chunkResult.LastUpdateCount > lastUpdateCount {
			lastUpdateCount = chunkResult.LastUpdateCount
		}
		if chunkResult.LastSyncTime.After(lastSyncTime) {
			lastSyncTime = chunkResult.LastSyncTime
		}

		pl := pipeline.New(o.deps.LocalStore, o.caches, o.deps.Emitter)
		outcome, err := pl.Process(ctx, scope, false, chunkResult.Chunks)
		if err != nil {
			return events.PerLinkedNotebookMaps{}, fmt.Errorf("process linked notebook %s pipeline: %w", ln.GUID, err)
		}

		if err := o.fetchFullContent(ctx, scope, store, outcome); err != nil {
			return events.PerLinkedNotebookMaps{}, err
		}

		exp := expunger.New(o.deps.LocalStore, o.deps.Emitter)
		if _, err := exp.ApplyExpunges(ctx, scope, expunger.ExpungeLists{
			Notebooks:       outcome.ExpungedNotebooks,
			Tags:            outcome.ExpungedTags,
			SavedSearches:   outcome.ExpungedSavedSearches,
			LinkedNotebooks: outcome.ExpungedLinkedNotebooks,
			Notes:           outcome.ExpungedNotes,
		}); err != nil {
			return events.PerLinkedNotebookMaps{}, fmt.Errorf("apply linked notebook %s expunges: %w", ln.GUID, err)
		}
		if fullSync {
			if _, err := exp.ExpungeStaleAfterFullSync(ctx, scope, params.EverFullySynced, observedGUIDs(chunkResult.Chunks)); err != nil {
				return events.PerLinkedNotebookMaps{}, fmt.Errorf("expunge stale linked notebook %s items: %w", ln.GUID, err)
			}
			params.EverFullySynced = true
		}
		o.deps.Emitter.ExpungedFromServerToClient()

		params.LastUpdateCount = lastUpdateCount
		params.LastSyncTime = lastSyncTime
		o.lastSyncParams[scope] = params

		result.LastUpdateCount[ln.GUID] = lastUpdateCount
		result.LastSyncTime[ln.GUID] = lastSyncTime.Unix()
	}

	return result, nil
}

// refreshExpiringLinkedTokens bulk-refreshes every linked notebook token
// within model.LinkedNotebookAuthWindow of expiry before any of them are
// used, so a single slow refresh round-trip doesn't serialize behind the
// first notebook that happens to need it (spec.md §4.2).
func (o *Orchestrator) refreshExpiringLinkedTokens(ctx context.Context, notebooks []model.LinkedNotebook) error {
	now := time.Now()
	var expiring []model.GUID
	for _, ln := range notebooks {
		tok, err := o.deps.AuthBroker.LinkedNotebookToken(ctx, ln.GUID)
		if err != nil || tok.ExpiresWithin(now, model.LinkedNotebookAuthWindow) {
			expiring = append(expiring, ln.GUID)
		}
	}
	if len(expiring) == 0 {
		return nil
	}
	o.deps.Emitter.RequestAuthenticationTokensForLinkedNotebooks(notebooks)
	if _, err := o.deps.AuthBroker.RequestLinkedNotebookTokensRefresh(ctx, expiring); err != nil {
		return fmt.Errorf("refresh linked notebook tokens: %w", err)
	}
	return nil
}

func (o *Orchestrator) auxDownloaderFor(scope model.Scope) *auxdownload.Downloader {
	if scope == model.OwnScope {
		token, _ := o.deps.AuthBroker.UserToken(context.Background())
		return auxdownload.New(auxdownload.Target{
			Host:        o.cfg.OwnWebAPIHost,
			ShardID:     o.cfg.OwnShardID,
			AuthToken:   token,
			StoragePath: o.cfg.InkNoteImagesStoragePath,
		}, nil)
	}
	tok, _ := o.deps.AuthBroker.LinkedNotebookToken(context.Background(), model.GUID(scope))
	return auxdownload.New(auxdownload.Target{
		Host:        tok.WebAPIURLPrefix,
		ShardID:     tok.ShardID,
		AuthToken:   tok.Token,
		StoragePath: o.cfg.InkNoteImagesStoragePath,
	}, nil)
}

// retryCall runs fn through o's rate-limit/auth-expiry retry loop for
// scope and returns its result (spec.md §4.2). Package-level rather than
// a method because Go methods cannot introduce their own type parameters.
func retryCall[T any](o *Orchestrator, ctx context.Context, scope model.Scope, fn func() (T, error)) (T, error) {
	var result T
	err := o.limiter.Retry(ctx, o.deps.AuthBroker, scope, func() error {
		var callErr error
		result, callErr = fn()
		return callErr
	})
	return result, err
}
