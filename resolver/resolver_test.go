package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/synccache"
)

func emptyTagCache(t *testing.T) *synccache.Cache[model.Tag] {
	t.Helper()
	return newFilledTagCache(t, nil)
}

func newFilledTagCache(t *testing.T, tags []model.Tag) *synccache.Cache[model.Tag] {
	t.Helper()
	reg := synccache.NewRegistry(&fakeGateway{tags: tags})
	c := reg.Tags(model.OwnScope)
	require.NoError(t, c.Fill(context.Background()))
	return c
}

type fakeGateway struct {
	gateway.LocalStoreGateway
	tags []model.Tag
}

func (f *fakeGateway) ListTags(ctx context.Context, scope model.Scope) ([]model.Tag, error) {
	return f.tags, nil
}

func TestResolveContainerNewEntityUsesRemote(t *testing.T) {
	remote := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "work", UpdateSequenceNum: 5}}
	d := ResolveContainer[model.Tag](remote, nil, emptyTagCache(t))
	assert.Equal(t, UseRemote, d.Outcome)
	assert.Equal(t, remote, d.Entity)
}

func TestResolveContainerNonDirtyRemoteDominatesUsesRemote(t *testing.T) {
	local := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "work", UpdateSequenceNum: 3}}
	remote := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "work", UpdateSequenceNum: 5}}
	d := ResolveContainer[model.Tag](remote, &local, emptyTagCache(t))
	assert.Equal(t, UseRemote, d.Outcome)
}

func TestResolveContainerDirtyNoCollisionMerges(t *testing.T) {
	local := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "renamed-locally", UpdateSequenceNum: 3, LocallyModified: true}}
	remote := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "work", UpdateSequenceNum: 5}}
	d := ResolveContainer[model.Tag](remote, &local, emptyTagCache(t))
	assert.Equal(t, Merge, d.Outcome)
}

func TestResolveContainerDirtyCollisionRenamesCollidingEntity(t *testing.T) {
	local := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "old-name", UpdateSequenceNum: 3, LocallyModified: true}}
	remote := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "personal", UpdateSequenceNum: 5}}
	collision := model.Tag{ContainerBase: model.ContainerBase{GUID: "g3", Name: "personal"}}

	cache := newFilledTagCache(t, []model.Tag{collision})
	d := ResolveContainer[model.Tag](remote, &local, cache)
	assert.Equal(t, DuplicateLocal, d.Outcome)
	require.NotNil(t, d.RenamedLocal)
	assert.Equal(t, "personal"+ConflictSuffix, d.RenamedLocal.Name)
	assert.Equal(t, model.GUID("g3"), d.RenamedLocal.GUID)
	assert.Equal(t, remote, d.Entity)
}

func TestResolveContainerNonDirtyRemoteStaleUsesLocal(t *testing.T) {
	local := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "work", UpdateSequenceNum: 9}}
	remote := model.Tag{ContainerBase: model.ContainerBase{GUID: "g1", Name: "work", UpdateSequenceNum: 2}}
	d := ResolveContainer[model.Tag](remote, &local, emptyTagCache(t))
	assert.Equal(t, UseLocal, d.Outcome)
}

func TestResolveNoteSkipsWhenLocalUsnDominates(t *testing.T) {
	local := &model.Note{GUID: "n1", UpdateSequenceNum: 10}
	remote := model.Note{GUID: "n1", UpdateSequenceNum: 4}
	d := ResolveNote(remote, local, false)
	assert.Equal(t, UseLocal, d.Outcome)
}

func TestResolveNoteOverwritesWhenLocalNonDirty(t *testing.T) {
	local := &model.Note{GUID: "n1", UpdateSequenceNum: 1}
	remote := model.Note{GUID: "n1", UpdateSequenceNum: 4, Title: "New title"}
	d := ResolveNote(remote, local, false)
	assert.Equal(t, UseRemote, d.Outcome)
	assert.Equal(t, "New title", d.Remote.Title)
}

func TestResolveNoteDirtyCreatesConflictCopy(t *testing.T) {
	local := &model.Note{
		LocalID:          "local-1",
		GUID:             "n1",
		Title:            "My note",
		UpdateSequenceNum: 1,
		LocallyModified:  true,
		NotebookGUID:     "nb1",
		Resources: []model.Resource{
			{LocalID: "res-local-1", GUID: "res-guid-1", NoteLocalID: "local-1", NoteGUID: "n1"},
		},
	}
	remote := model.Note{GUID: "n1", UpdateSequenceNum: 5, Title: "Remote title", NotebookGUID: "nb1"}

	d := ResolveNote(remote, local, false)
	assert.Equal(t, DuplicateLocal, d.Outcome)
	require.NotNil(t, d.ConflictCopy)

	cc := d.ConflictCopy
	assert.NotEqual(t, local.LocalID, cc.LocalID)
	assert.Empty(t, cc.GUID)
	assert.Zero(t, cc.UpdateSequenceNum)
	assert.Equal(t, model.GUID("n1"), cc.ConflictSourceNoteGUID)
	assert.Equal(t, "My note"+NoteConflictSuffix, cc.Title)
	require.Len(t, cc.Resources, 1)
	assert.NotEqual(t, model.LocalID("res-local-1"), cc.Resources[0].LocalID)
	assert.Empty(t, cc.Resources[0].GUID)
	assert.Equal(t, cc.LocalID, cc.Resources[0].NoteLocalID)

	assert.Equal(t, remote, d.Remote)
}

func TestResolveNoteRedirectsConflictCopyWhenNotebookExpunging(t *testing.T) {
	local := &model.Note{LocalID: "local-1", GUID: "n1", UpdateSequenceNum: 1, LocallyModified: true, NotebookGUID: "old-nb", NotebookLocalID: "old-nb-local"}
	remote := model.Note{GUID: "n1", UpdateSequenceNum: 5, NotebookGUID: "new-nb", NotebookLocalID: "new-nb-local"}

	d := ResolveNote(remote, local, true)
	require.NotNil(t, d.ConflictCopy)
	assert.Equal(t, model.GUID("new-nb"), d.ConflictCopy.NotebookGUID)
	assert.Equal(t, model.LocalID("new-nb-local"), d.ConflictCopy.NotebookLocalID)
}

func TestResolveLinkedNotebookAlwaysUsesRemote(t *testing.T) {
	remote := model.LinkedNotebook{GUID: "ln1", UpdateSequenceNum: 1}
	d := ResolveLinkedNotebook(remote)
	assert.Equal(t, UseRemote, d.Outcome)
	assert.Equal(t, remote, d.Entity)
}

func TestOwningNoteFindsByGUID(t *testing.T) {
	notes := []model.Note{{GUID: "n1"}, {GUID: "n2"}}
	n, ok := OwningNote("n2", notes)
	require.True(t, ok)
	assert.Equal(t, model.GUID("n2"), n.GUID)

	_, ok = OwningNote("missing", notes)
	assert.False(t, ok)
}
