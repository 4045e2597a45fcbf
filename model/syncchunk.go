package model

import "time"

// SyncChunk is a single server-emitted batch of changes bounded by USN
// (spec.md §3). Full syncs never populate the Expunged* fields — the
// server has no expunge history to report from USN 0.
type SyncChunk struct {
	// ChunkHighUSN is the highest USN represented in this chunk. A zero
	// value combined with UpdateCount == 0 denotes an empty terminal chunk.
	ChunkHighUSN  USN
	HasChunkHighUSN bool
	UpdateCount   USN
	CurrentTime   time.Time

	Notebooks      []Notebook
	Tags           []Tag
	SavedSearches  []SavedSearch
	LinkedNotebooks []LinkedNotebook
	Notes          []Note
	Resources      []Resource

	ExpungedNotebooks      []GUID
	ExpungedTags           []GUID
	ExpungedSavedSearches  []GUID
	ExpungedLinkedNotebooks []GUID
	ExpungedNotes          []GUID
}

// Done reports whether this chunk is the final one in the download loop:
// either chunkHighUSN equals updateCount, or chunkHighUSN is absent
// (spec.md §4.5 / §8 boundary behavior).
func (c SyncChunk) Done() bool {
	if !c.HasChunkHighUSN {
		return true
	}
	return c.ChunkHighUSN == c.UpdateCount
}

// SyncChunkList accumulates every chunk fetched for one scope during one
// session, plus the rolling watermarks SyncChunkFetcher maintains across
// them (spec.md §4.5).
type SyncChunkList struct {
	Scope         Scope
	Chunks        []SyncChunk
	LastUpdateCount USN
	LastSyncTime    time.Time
}

// Append folds chunk into the list, advancing the rolling watermarks
// monotonically (spec.md §3 invariant 4).
func (l *SyncChunkList) Append(chunk SyncChunk) {
	l.Chunks = append(l.Chunks, chunk)
	if chunk.UpdateCount > l.LastUpdateCount {
		l.LastUpdateCount = chunk.UpdateCount
	}
	if chunk.CurrentTime.After(l.LastSyncTime) {
		l.LastSyncTime = chunk.CurrentTime
	}
}

// SyncState is what the server reports for a scope ahead of a chunk
// download: the current update count, and the time before which a full
// (not incremental) sync is required.
type SyncState struct {
	UpdateCount    USN
	FullSyncBefore time.Time
	CurrentTime    time.Time
}

// RequiresFullSync reports whether this sync state forces an upgrade to a
// full sync given the scope's previously recorded lastSyncTime (spec.md
// §4.1 step 3, §4.5).
func (s SyncState) RequiresFullSync(lastSyncTime time.Time) bool {
	return s.FullSyncBefore.After(lastSyncTime)
}

// SyncParameters is the opaque, caller-persisted checkpoint for one scope:
// the last update count processed and the last sync time observed. The
// core receives these via setLastSyncParameters and emits them back in
// finished/requestAuthenticationToken-adjacent events; it never persists
// them itself (spec.md §6).
type SyncParameters struct {
	LastUpdateCount USN
	LastSyncTime    time.Time
	// EverFullySynced records whether this scope has completed a full
	// sync at least once — used to honor the "once fully synced" open
	// question in spec.md §9 when the caller can't supply a dedicated set.
	EverFullySynced bool
}
