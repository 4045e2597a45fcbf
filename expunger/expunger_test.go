package expunger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/localstore"
	"github.com/vesperpad/sync-engine/model"
)

func TestApplyExpungesRemovesEveryListedGUID(t *testing.T) {
	mem := localstore.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.AddNote(ctx, model.Note{LocalID: "l1", GUID: "n1"}))
	require.NoError(t, mem.AddNotebook(ctx, model.Notebook{ContainerBase: model.ContainerBase{LocalID: "l2", GUID: "nb1"}}))

	e := New(mem, &events.Recording{})
	counters, err := e.ApplyExpunges(ctx, model.OwnScope, ExpungeLists{
		Notes:     []model.GUID{"n1"},
		Notebooks: []model.GUID{"nb1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counters.NotesExpunged)
	assert.Equal(t, 1, counters.NotebooksExpunged)

	n, err := mem.FindNoteByGUID(ctx, "n1")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestExpungeStaleAfterFullSyncIsNoopWhenNeverFullySynced(t *testing.T) {
	mem := localstore.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.AddNotebook(ctx, model.Notebook{ContainerBase: model.ContainerBase{LocalID: "l1", GUID: "nb1"}}))

	e := New(mem, nil)
	counters, err := e.ExpungeStaleAfterFullSync(ctx, model.OwnScope, false, ObservedGUIDs{})
	require.NoError(t, err)
	assert.Equal(t, 0, counters.NotebooksExpunged)

	nb, err := mem.FindNotebookByGUID(ctx, "nb1")
	require.NoError(t, err)
	assert.NotNil(t, nb)
}

func TestExpungeStaleAfterFullSyncRemovesGUIDsMissingFromObservedSet(t *testing.T) {
	mem := localstore.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.AddNotebook(ctx, model.Notebook{ContainerBase: model.ContainerBase{LocalID: "l1", GUID: "nb1"}}))
	require.NoError(t, mem.AddNotebook(ctx, model.Notebook{ContainerBase: model.ContainerBase{LocalID: "l2", GUID: "nb2"}}))
	require.NoError(t, mem.AddNote(ctx, model.Note{LocalID: "l3", GUID: "n1"}))

	e := New(mem, nil)
	counters, err := e.ExpungeStaleAfterFullSync(ctx, model.OwnScope, true, ObservedGUIDs{
		Notebooks: []model.GUID{"nb1"}, // nb2 is missing -> stale
		Notes:     []model.GUID{"n1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counters.NotebooksExpunged)
	assert.Equal(t, 0, counters.NotesExpunged)

	nb1, err := mem.FindNotebookByGUID(ctx, "nb1")
	require.NoError(t, err)
	assert.NotNil(t, nb1)

	nb2, err := mem.FindNotebookByGUID(ctx, "nb2")
	require.NoError(t, err)
	assert.Nil(t, nb2)
}

func TestExpungeNotelessLinkedNotebookTags(t *testing.T) {
	mem := localstore.NewMemory()
	e := New(mem, nil)
	require.NoError(t, e.ExpungeNotelessLinkedNotebookTags(context.Background()))
}
