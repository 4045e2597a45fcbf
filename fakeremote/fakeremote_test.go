package fakeremote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/syncerr"
)

func TestColdFullSyncServesScriptedChunks(t *testing.T) {
	store := New(ColdFullSync())
	ctx := context.Background()

	ok, err := store.CheckProtocolVersion(ctx, "sync-engine", 1, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	chunk, err := store.GetSyncChunk(ctx, 0, 50, gateway.SyncChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, chunk.Notebooks, 1)
	assert.Len(t, chunk.Tags, 2)
	assert.False(t, chunk.ChunkHighUSN == chunk.UpdateCount, "first chunk is not yet caught up")

	chunk, err = store.GetSyncChunk(ctx, chunk.ChunkHighUSN, 50, gateway.SyncChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, chunk.Notes, 1)
	assert.Len(t, chunk.SavedSearches, 1)
	assert.Equal(t, chunk.ChunkHighUSN, chunk.UpdateCount, "second chunk reaches the terminal USN")

	note, err := store.GetNote(ctx, "n1", gateway.GetNoteOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", note.Title)
	assert.Equal(t, "2% and oat", note.Content)
}

func TestIncrementalWithExpungeCarriesExpungedGUID(t *testing.T) {
	store := New(IncrementalWithExpunge())
	chunk, err := store.GetSyncChunk(context.Background(), 0, 50, gateway.SyncChunkFilter{})
	require.NoError(t, err)
	assert.Equal(t, []model.GUID{"g_N1"}, chunk.ExpungedNotes)
	require.Len(t, chunk.Notes, 1)
	assert.Equal(t, model.GUID("n2"), chunk.Notes[0].GUID)
}

func TestRateLimitRetryFailsOnceThenSucceeds(t *testing.T) {
	store := New(RateLimitRetry(7))
	ctx := context.Background()

	_, err := store.GetSyncChunk(ctx, 0, 50, gateway.SyncChunkFilter{})
	require.Error(t, err)
	var rlErr *syncerr.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 7, rlErr.Seconds)

	chunk, err := store.GetSyncChunk(ctx, 0, 50, gateway.SyncChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, chunk.Notebooks, 1)
}

func TestProtocolMismatchReportsIncompatible(t *testing.T) {
	store := New(ProtocolMismatch())
	ok, err := store.CheckProtocolVersion(context.Background(), "sync-engine", 1, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoteConflictScenarioServesAdvancedRemoteNote(t *testing.T) {
	store := New(NoteConflictWithDirtyLocal())
	chunk, err := store.GetSyncChunk(context.Background(), 0, 50, gateway.SyncChunkFilter{})
	require.NoError(t, err)
	require.Len(t, chunk.Notes, 1)
	assert.Equal(t, "Final", chunk.Notes[0].Title)
	assert.EqualValues(t, 20, chunk.Notes[0].UpdateSequenceNum)
}

func TestLinkedNotebookSyncSkippedExposesLinkedState(t *testing.T) {
	scenario := LinkedNotebookSyncSkipped()
	store := New(scenario)

	notebooks := store.LinkedNotebookList()
	require.Len(t, notebooks, 1)
	assert.Equal(t, model.GUID("ln1"), notebooks[0].GUID)

	state, err := store.GetLinkedNotebookSyncState(context.Background(), notebooks[0])
	require.NoError(t, err)
	assert.EqualValues(t, 200, state.UpdateCount)
}

func TestGetSyncChunkPastEndReturnsCaughtUpMarker(t *testing.T) {
	store := New(ColdFullSync())
	chunk, err := store.GetSyncChunk(context.Background(), 99, 50, gateway.SyncChunkFilter{})
	require.NoError(t, err)
	assert.True(t, chunk.HasChunkHighUSN)
	assert.Equal(t, chunk.ChunkHighUSN, chunk.UpdateCount)
	assert.Empty(t, chunk.Notes)
}

func TestGetResourceSearchesAllScenarioNotes(t *testing.T) {
	store := New(ColdFullSync())
	res, err := store.GetResource(context.Background(), "missing", gateway.GetResourceOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.Resource{}, res)
}
