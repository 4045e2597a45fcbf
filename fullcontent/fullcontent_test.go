package fullcontent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/localstore"
	"github.com/vesperpad/sync-engine/model"
)

type fakeNoteStore struct {
	gateway.NoteStore
	notes     map[model.GUID]model.Note
	resources map[model.GUID]model.Resource
}

func (f *fakeNoteStore) GetNote(ctx context.Context, guid model.GUID, opts gateway.GetNoteOptions) (model.Note, error) {
	return f.notes[guid], nil
}

func (f *fakeNoteStore) GetResource(ctx context.Context, guid model.GUID, opts gateway.GetResourceOptions) (model.Resource, error) {
	return f.resources[guid], nil
}

type fakeAux struct {
	thumbnailCalls int
	inkCalls       int
}

func (f *fakeAux) DownloadThumbnail(ctx context.Context, note model.Note) (model.Note, error) {
	f.thumbnailCalls++
	note.ThumbnailData = []byte("thumb")
	return note, nil
}

func (f *fakeAux) DownloadInkImages(ctx context.Context, note model.Note) error {
	f.inkCalls++
	return nil
}

func TestFetchNotesPreservesLocalIDsAndWritesThrough(t *testing.T) {
	mem := localstore.NewMemory()
	store := &fakeNoteStore{notes: map[model.GUID]model.Note{
		"n1": {
			GUID:    "n1",
			Title:   "Hello",
			Content: "<en-note>full body</en-note>",
			Resources: []model.Resource{
				{GUID: "r1", MimeType: "image/png", Body: []byte("png-bytes")},
			},
		},
	}}
	aux := &fakeAux{}
	f := New(store, mem, aux, &events.Recording{})

	stub := model.Note{GUID: "n1", LocalID: "stub-local", Title: "Hello (stub)"}
	err := f.FetchNotes(context.Background(), model.OwnScope, []model.Note{stub}, nil, Options{
		WithResourcesData:  true,
		DownloadThumbnails: true,
	})
	require.NoError(t, err)

	stored, err := mem.FindNoteByGUID(context.Background(), "n1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.LocalID("stub-local"), stored.LocalID)
	assert.Equal(t, "<en-note>full body</en-note>", stored.Content)
	require.Len(t, stored.Resources, 1)
	assert.NotEmpty(t, stored.Resources[0].LocalID)
	assert.Equal(t, stored.LocalID, stored.Resources[0].NoteLocalID)
	assert.Equal(t, 1, aux.thumbnailCalls)
	assert.Equal(t, []byte("thumb"), stored.ThumbnailData)
}

func TestFetchNotesPreservesExistingResourceLocalID(t *testing.T) {
	mem := localstore.NewMemory()
	store := &fakeNoteStore{notes: map[model.GUID]model.Note{
		"n1": {
			GUID: "n1",
			Resources: []model.Resource{
				{GUID: "r1", Body: []byte("v2")},
			},
		},
	}}
	f := New(store, mem, nil, &events.Recording{})

	stub := model.Note{
		GUID:    "n1",
		LocalID: "stub-local",
		Resources: []model.Resource{
			{GUID: "r1", LocalID: "existing-resource-local"},
		},
	}
	err := f.FetchNotes(context.Background(), model.OwnScope, nil, []model.Note{stub}, Options{})
	require.NoError(t, err)

	stored, err := mem.FindNoteByGUID(context.Background(), "n1")
	require.NoError(t, err)
	require.Len(t, stored.Resources, 1)
	assert.Equal(t, model.LocalID("existing-resource-local"), stored.Resources[0].LocalID)
}

func TestFetchResourcesOnlyMarksOwningNoteDirty(t *testing.T) {
	mem := localstore.NewMemory()
	require.NoError(t, mem.AddNote(context.Background(), model.Note{
		LocalID: "note-local", GUID: "n1",
	}))
	require.NoError(t, mem.AddResource(context.Background(), model.Resource{
		LocalID: "res-local", GUID: "r1", NoteGUID: "n1", NoteLocalID: "note-local",
	}))

	store := &fakeNoteStore{resources: map[model.GUID]model.Resource{
		"r1": {GUID: "r1", NoteGUID: "n1", Body: []byte("updated-body")},
	}}
	f := New(store, mem, nil, &events.Recording{})

	err := f.FetchResourcesOnly(context.Background(), model.OwnScope, []model.Resource{{GUID: "r1", NoteGUID: "n1"}}, Options{WithResourcesData: true})
	require.NoError(t, err)

	stored, err := mem.FindResourceByGUID(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.LocalID("res-local"), stored.LocalID)
	assert.Equal(t, []byte("updated-body"), stored.Body)

	note, err := mem.FindNoteByGUID(context.Background(), "n1")
	require.NoError(t, err)
	assert.True(t, note.LocallyModified)
}

func TestFetchResourcesOnlyRoutesDirtyResourceThroughNoteConflict(t *testing.T) {
	mem := localstore.NewMemory()
	require.NoError(t, mem.AddNote(context.Background(), model.Note{
		LocalID: "note-local", GUID: "n1", Title: "Draft", UpdateSequenceNum: 10,
	}))
	require.NoError(t, mem.AddResource(context.Background(), model.Resource{
		LocalID: "res-local", GUID: "r1", NoteGUID: "n1", NoteLocalID: "note-local",
		Body: []byte("local-edit"), LocallyModified: true,
	}))

	store := &fakeNoteStore{resources: map[model.GUID]model.Resource{
		"r1": {GUID: "r1", NoteGUID: "n1", Body: []byte("remote-body")},
	}}
	f := New(store, mem, nil, &events.Recording{})

	err := f.FetchResourcesOnly(context.Background(), model.OwnScope, []model.Resource{{GUID: "r1", NoteGUID: "n1"}}, Options{WithResourcesData: true})
	require.NoError(t, err)

	// The original resource/note slot accepts the remote body and is no
	// longer marked dirty...
	stored, err := mem.FindResourceByGUID(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.LocalID("res-local"), stored.LocalID)
	assert.Equal(t, []byte("remote-body"), stored.Body)
	assert.False(t, stored.LocallyModified)

	note, err := mem.FindNoteByGUID(context.Background(), "n1")
	require.NoError(t, err)
	assert.False(t, note.LocallyModified)

	// ...while the dirty local edit survives as a conflicting note copy.
	var foundConflict bool
	for _, n := range mem.AllNotes() {
		if n.ConflictSourceNoteGUID == "n1" {
			foundConflict = true
			assert.Contains(t, n.Title, "conflicting")
		}
	}
	assert.True(t, foundConflict, "expected a conflicting note copy for the dirty resource's owner")
}
