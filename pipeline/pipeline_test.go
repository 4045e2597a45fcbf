package pipeline

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/localstore"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/synccache"
)

func newTestPipeline() (*Pipeline, *localstore.Memory) {
	mem := localstore.NewMemory()
	reg := synccache.NewRegistry(mem)
	return New(mem, reg, &events.Recording{}), mem
}

func TestProcessAddsNewSavedSearchAndNotebook(t *testing.T) {
	p, mem := newTestPipeline()
	chunks := model.SyncChunkList{Chunks: []model.SyncChunk{
		{
			HasChunkHighUSN: true,
			ChunkHighUSN:    2,
			UpdateCount:     2,
			SavedSearches:   []model.SavedSearch{{ContainerBase: model.ContainerBase{GUID: "s1", Name: "todo", UpdateSequenceNum: 1}}},
			Notebooks:       []model.Notebook{{ContainerBase: model.ContainerBase{GUID: "nb1", Name: "Personal", UpdateSequenceNum: 1}}},
		},
	}}

	out, err := p.Process(context.Background(), model.OwnScope, true, chunks)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Counters.SavedSearchesAdded)
	assert.Equal(t, 1, out.Counters.NotebooksAdded)

	nb, err := mem.FindNotebookByGUID(context.Background(), "nb1")
	require.NoError(t, err)
	require.NotNil(t, nb)
	assert.NotEmpty(t, nb.LocalID)
}

func TestProcessQueuesNewNoteAsPendingAdd(t *testing.T) {
	p, _ := newTestPipeline()
	chunks := model.SyncChunkList{Chunks: []model.SyncChunk{
		{
			HasChunkHighUSN: true,
			ChunkHighUSN:    1,
			UpdateCount:     1,
			Notes:           []model.Note{{GUID: "n1", Title: "Hello", UpdateSequenceNum: 1, NotebookGUID: "nb1"}},
		},
	}}

	out, err := p.Process(context.Background(), model.OwnScope, true, chunks)
	require.NoError(t, err)
	require.Len(t, out.PendingNoteAdds, 1)
	assert.Equal(t, model.GUID("n1"), out.PendingNoteAdds[0].GUID)
	assert.NotEmpty(t, out.PendingNoteAdds[0].LocalID)
}

func TestProcessCreatesConflictCopyForDirtyLocalNote(t *testing.T) {
	p, mem := newTestPipeline()
	local := model.Note{
		LocalID:          "local-1",
		GUID:             "n1",
		Title:            "My note",
		UpdateSequenceNum: 1,
		LocallyModified:  true,
	}
	require.NoError(t, mem.AddNote(context.Background(), local))

	chunks := model.SyncChunkList{Chunks: []model.SyncChunk{
		{
			HasChunkHighUSN: true,
			ChunkHighUSN:    1,
			UpdateCount:     1,
			Notes:           []model.Note{{GUID: "n1", Title: "Remote title", UpdateSequenceNum: 5, NotebookGUID: "nb1"}},
		},
	}}

	out, err := p.Process(context.Background(), model.OwnScope, true, chunks)
	require.NoError(t, err)
	require.Len(t, out.PendingNoteUpdates, 1)
	assert.Equal(t, model.LocalID("local-1"), out.PendingNoteUpdates[0].LocalID)

	// The conflicting copy was written directly (it already has content).
	var found bool
	for id, n := range mem.AllNotes() {
		if id != "local-1" && n.ConflictSourceNoteGUID == "n1" {
			found = true
			assert.Contains(t, n.Title, NoteConflictSuffixForTest())
		}
	}
	assert.True(t, found, "expected a conflicting note copy to be added")
}

func TestSortTagsTopologicallyOrdersParentBeforeChild(t *testing.T) {
	parent := model.Tag{ContainerBase: model.ContainerBase{GUID: "parent", Name: "p"}}
	child := model.Tag{ContainerBase: model.ContainerBase{GUID: "child", Name: "c"}, ParentGUID: "parent"}

	sorted := sortTagsTopologically([]model.Tag{child, parent}, zerolog.Nop())
	require.Len(t, sorted, 2)
	assert.Equal(t, model.GUID("parent"), sorted[0].GUID)
	assert.Equal(t, model.GUID("child"), sorted[1].GUID)
}

func TestSortTagsTopologicallyBreaksCycles(t *testing.T) {
	a := model.Tag{ContainerBase: model.ContainerBase{GUID: "a", Name: "a", UpdateSequenceNum: 1}, ParentGUID: "b"}
	b := model.Tag{ContainerBase: model.ContainerBase{GUID: "b", Name: "b", UpdateSequenceNum: 2}, ParentGUID: "a"}

	sorted := sortTagsTopologically([]model.Tag{a, b}, zerolog.Nop())
	require.Len(t, sorted, 2)

	// One of the two must have had its parent cleared to break the cycle.
	cleared := 0
	for _, tag := range sorted {
		if tag.ParentGUID == "" {
			cleared++
		}
	}
	assert.Equal(t, 1, cleared)
}

func TestClearDanglingParentsOnlyAppliesToLinkedScope(t *testing.T) {
	tags := []model.Tag{{ContainerBase: model.ContainerBase{GUID: "c", Name: "c"}, ParentGUID: "missing"}}

	own := clearDanglingParents(tags, model.OwnScope, synccache.NewRegistry(localstore.NewMemory()).Tags(model.OwnScope))
	assert.Equal(t, model.GUID("missing"), own[0].ParentGUID, "own-scope tags are untouched")

	reg := synccache.NewRegistry(localstore.NewMemory())
	linkedCache := reg.Tags(model.Scope("ln1"))
	require.NoError(t, linkedCache.Fill(context.Background()))
	linked := clearDanglingParents(tags, model.Scope("ln1"), linkedCache)
	assert.Empty(t, linked[0].ParentGUID, "linked-notebook tags get dangling parents cleared")
}

// NoteConflictSuffixForTest exposes the resolver package's conflict
// suffix constant without importing it twice under different names.
func NoteConflictSuffixForTest() string { return " - conflicting" }
