package fakeremote

import (
	"time"

	"github.com/vesperpad/sync-engine/model"
)

// ColdFullSync reproduces spec.md §8 scenario 1: a fresh account with two
// sync chunks, a tag parent/child pair, one note, and one saved search.
func ColdFullSync() Scenario {
	now := time.Now()
	return Scenario{
		Name:       "cold-full-sync",
		ProtocolOK: true,
		User:       model.User{ID: 1, Username: "demo", ServiceLevel: model.ServiceLevelBasic},
		Limits:     model.AccountLimits{UserID: 1, UploadLimit: 60 * 1024 * 1024, CachedAt: now},
		OwnState:   model.SyncState{UpdateCount: 50, CurrentTime: now},
		OwnChunks: []model.SyncChunk{
			{
				ChunkHighUSN:    25,
				HasChunkHighUSN: true,
				UpdateCount:     50,
				CurrentTime:     now,
				Notebooks: []model.Notebook{
					{ContainerBase: model.ContainerBase{GUID: "nb1", Name: "Errands", UpdateSequenceNum: 10}},
				},
				Tags: []model.Tag{
					{ContainerBase: model.ContainerBase{GUID: "t1", Name: "home", UpdateSequenceNum: 15}},
					{ContainerBase: model.ContainerBase{GUID: "t2", Name: "urgent", UpdateSequenceNum: 20}, ParentGUID: "t1"},
				},
			},
			{
				ChunkHighUSN:    50,
				HasChunkHighUSN: true,
				UpdateCount:     50,
				CurrentTime:     now,
				Notes: []model.Note{
					{GUID: "n1", Title: "Buy milk", NotebookGUID: "nb1", UpdateSequenceNum: 30},
				},
				SavedSearches: []model.SavedSearch{
					{ContainerBase: model.ContainerBase{GUID: "s1", Name: "open errands", UpdateSequenceNum: 45}},
				},
			},
		},
		Notes: map[model.GUID]model.Note{
			"n1": {GUID: "n1", Title: "Buy milk", Content: "2% and oat", NotebookGUID: "nb1", UpdateSequenceNum: 30},
		},
	}
}

// IncrementalWithExpunge reproduces spec.md §8 scenario 2: an incremental
// chunk that both expunges a previously-synced note and adds a new one.
// Callers must seed the local store with N1 (guid g_N1) before replaying,
// matching the scenario's "local already has N1 and nothing else" setup.
func IncrementalWithExpunge() Scenario {
	now := time.Now()
	return Scenario{
		Name:       "incremental-with-expunge",
		ProtocolOK: true,
		User:       model.User{ID: 1, Username: "demo", ServiceLevel: model.ServiceLevelBasic},
		Limits:     model.AccountLimits{UserID: 1, UploadLimit: 60 * 1024 * 1024, CachedAt: now},
		OwnState:   model.SyncState{UpdateCount: 120, CurrentTime: now},
		OwnChunks: []model.SyncChunk{
			{
				ChunkHighUSN:    120,
				HasChunkHighUSN: true,
				UpdateCount:     120,
				CurrentTime:     now,
				ExpungedNotes:   []model.GUID{"g_N1"},
				Notes: []model.Note{
					{GUID: "n2", Title: "Renewed note", NotebookGUID: "nb1", UpdateSequenceNum: 115},
				},
			},
		},
		Notes: map[model.GUID]model.Note{
			"n2": {GUID: "n2", Title: "Renewed note", Content: "fresh", NotebookGUID: "nb1", UpdateSequenceNum: 115},
		},
	}
}

// RateLimitRetry reproduces spec.md §8 scenario 3: the first getSyncChunk
// call for afterUSN=0 fails with RATE_LIMIT_REACHED(seconds), and the
// retried call then serves the terminal chunk.
func RateLimitRetry(seconds int) Scenario {
	now := time.Now()
	return Scenario{
		Name:                  "rate-limit-retry",
		ProtocolOK:            true,
		User:                  model.User{ID: 1, Username: "demo", ServiceLevel: model.ServiceLevelBasic},
		Limits:                model.AccountLimits{UserID: 1, UploadLimit: 1024, CachedAt: now},
		OwnState:              model.SyncState{UpdateCount: 1, CurrentTime: now},
		HasRateLimitOnce:      true,
		RateLimitOnceAfterUSN: 0,
		RateLimitSeconds:      seconds,
		OwnChunks: []model.SyncChunk{
			{
				ChunkHighUSN:    1,
				HasChunkHighUSN: true,
				UpdateCount:     1,
				CurrentTime:     now,
				Notebooks: []model.Notebook{
					{ContainerBase: model.ContainerBase{GUID: "nb1", Name: "Recovered", UpdateSequenceNum: 1}},
				},
			},
		},
	}
}

// ProtocolMismatch reproduces spec.md §8 scenario 5: checkProtocolVersion
// returns false, so the session must fail before any local write.
func ProtocolMismatch() Scenario {
	return Scenario{
		Name:       "protocol-mismatch",
		ProtocolOK: false,
		User:       model.User{ID: 1, Username: "demo", ServiceLevel: model.ServiceLevelBasic},
	}
}

// NoteConflictWithDirtyLocal reproduces spec.md §8 scenario 4: the remote
// note has advanced past a locally-modified copy. Callers must seed the
// local store with the dirty note (guid "g", USN=10, title "Draft",
// locally-modified=true) before replaying; the pipeline's conflict
// dispatch is what actually produces the "- conflicting" copy, not this
// fake.
func NoteConflictWithDirtyLocal() Scenario {
	now := time.Now()
	return Scenario{
		Name:       "note-conflict-dirty-local",
		ProtocolOK: true,
		User:       model.User{ID: 1, Username: "demo", ServiceLevel: model.ServiceLevelBasic},
		Limits:     model.AccountLimits{UserID: 1, UploadLimit: 1024, CachedAt: now},
		OwnState:   model.SyncState{UpdateCount: 20, CurrentTime: now},
		OwnChunks: []model.SyncChunk{
			{
				ChunkHighUSN:    20,
				HasChunkHighUSN: true,
				UpdateCount:     20,
				CurrentTime:     now,
				Notes: []model.Note{
					{GUID: "g", Title: "Final", NotebookGUID: "nb1", UpdateSequenceNum: 20},
				},
			},
		},
		Notes: map[model.GUID]model.Note{
			"g": {GUID: "g", Title: "Final", Content: "final body", NotebookGUID: "nb1", UpdateSequenceNum: 20},
		},
	}
}

// LinkedNotebookSyncSkipped reproduces spec.md §8 scenario 6: the linked
// notebook's sync state reports the same update count the caller already
// has and a fullSyncBefore at or before the last sync time, so no chunks
// should be fetched and the checkpoint should pass through unchanged.
func LinkedNotebookSyncSkipped() Scenario {
	now := time.Now()
	lastSync := now.Add(-24 * time.Hour)
	return Scenario{
		Name:       "linked-notebook-sync-skipped",
		ProtocolOK: true,
		User:       model.User{ID: 1, Username: "demo", ServiceLevel: model.ServiceLevelBasic},
		Limits:     model.AccountLimits{UserID: 1, UploadLimit: 1024, CachedAt: now},
		OwnState:   model.SyncState{UpdateCount: 0, CurrentTime: now},
		LinkedNotebooks: map[model.GUID]model.LinkedNotebook{
			"ln1": {GUID: "ln1", ShareName: "Shared Projects"},
		},
		LinkedStates: map[model.GUID]model.SyncState{
			"ln1": {UpdateCount: 200, FullSyncBefore: lastSync.Add(-time.Hour), CurrentTime: now},
		},
		LinkedChunks: map[model.GUID][]model.SyncChunk{},
	}
}
