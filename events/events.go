// Package events defines the signals the sync core emits to its caller
// (spec.md §6) and the Emitter interface components use to send them. The
// core never blocks waiting for a caller to consume an event; Emitter
// implementations are expected to be non-blocking (buffer, drop, or hand
// off to another goroutine) the way a UI's event bus would.
package events

import "github.com/vesperpad/sync-engine/model"

// Counters reports per-kind added/updated/expunged counts for one
// processing-progress event (spec.md §6:
// syncChunksDataProcessingProgress(counters)).
type Counters struct {
	NotebooksAdded, NotebooksUpdated, NotebooksExpunged     int
	TagsAdded, TagsUpdated, TagsExpunged                     int
	SavedSearchesAdded, SavedSearchesUpdated, SavedSearchesExpunged int
	NotesAdded, NotesUpdated, NotesExpunged                  int
	ResourcesAdded, ResourcesUpdated                         int
	LinkedNotebooksAdded, LinkedNotebooksUpdated, LinkedNotebooksExpunged int
}

// PerLinkedNotebookMaps is the final per-linked-notebook checkpoint data
// finished() reports (spec.md §4.1 step 8, §6).
type PerLinkedNotebookMaps struct {
	LastUpdateCount map[model.GUID]model.USN
	LastSyncTime    map[model.GUID]int64 // unix seconds, avoids time.Time zero-value ambiguity across the event boundary
}

// Emitter receives every signal the sync core produces. A scope string of
// "" denotes the user's own account; non-empty denotes a linked notebook's
// guid, matching model.Scope.
type Emitter interface {
	SyncChunksDownloadProgress(scope string, highUSN, updateCount, lastPreviousUSN model.USN)
	SyncChunksDataProcessingProgress(scope string, counters Counters)
	NotesDownloadProgress(scope string, done, total int)
	ResourcesDownloadProgress(scope string, done, total int)
	RateLimitExceeded(seconds int)
	RequestAuthenticationToken()
	RequestAuthenticationTokensForLinkedNotebooks(authData []model.LinkedNotebook)
	SynchronizedContentFromUsersOwnAccount(lastUpdateCount model.USN, lastSyncTime int64)
	ExpungedFromServerToClient()
	Stopped()
	Failure(reason error)
	Finished(lastUpdateCount model.USN, lastSyncTime int64, perLinkedNotebook PerLinkedNotebookMaps)
}
