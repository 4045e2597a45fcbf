package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/authbroker"
	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/localstore"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/pipeline"
	"github.com/vesperpad/sync-engine/syncerr"
)

type fakeUserStore struct {
	protocolOK bool
	user       model.User
	limits     model.AccountLimits
}

func (f *fakeUserStore) CheckProtocolVersion(ctx context.Context, clientName string, major, minor int32) (bool, error) {
	return f.protocolOK, nil
}
func (f *fakeUserStore) GetUser(ctx context.Context) (model.User, error) { return f.user, nil }
func (f *fakeUserStore) GetAccountLimits(ctx context.Context, level model.ServiceLevel) (model.AccountLimits, error) {
	return f.limits, nil
}

type fakeNoteStore struct {
	state  model.SyncState
	chunks []model.SyncChunk
	notes  map[model.GUID]model.Note

	linkedStates map[model.GUID]model.SyncState
	linkedChunks map[model.GUID][]model.SyncChunk

	rateLimitOnce bool
}

func (f *fakeNoteStore) GetSyncState(ctx context.Context) (model.SyncState, error) { return f.state, nil }

func (f *fakeNoteStore) GetSyncChunk(ctx context.Context, afterUSN model.USN, maxEntries int32, filter gateway.SyncChunkFilter) (model.SyncChunk, error) {
	if f.rateLimitOnce {
		f.rateLimitOnce = false
		return model.SyncChunk{}, &syncerr.RateLimitError{Seconds: 0}
	}
	idx := int(afterUSN)
	if idx >= len(f.chunks) {
		return model.SyncChunk{HasChunkHighUSN: true, ChunkHighUSN: afterUSN, UpdateCount: afterUSN}, nil
	}
	return f.chunks[idx], nil
}

func (f *fakeNoteStore) GetLinkedNotebookSyncState(ctx context.Context, notebook model.LinkedNotebook) (model.SyncState, error) {
	return f.linkedStates[notebook.GUID], nil
}

func (f *fakeNoteStore) GetLinkedNotebookSyncChunk(ctx context.Context, notebook model.LinkedNotebook, afterUSN model.USN, maxEntries int32, filter gateway.SyncChunkFilter) (model.SyncChunk, error) {
	chunks := f.linkedChunks[notebook.GUID]
	idx := int(afterUSN)
	if idx >= len(chunks) {
		return model.SyncChunk{HasChunkHighUSN: true, ChunkHighUSN: afterUSN, UpdateCount: afterUSN}, nil
	}
	return chunks[idx], nil
}

func (f *fakeNoteStore) GetNote(ctx context.Context, guid model.GUID, opts gateway.GetNoteOptions) (model.Note, error) {
	return f.notes[guid], nil
}

func (f *fakeNoteStore) GetResource(ctx context.Context, guid model.GUID, opts gateway.GetResourceOptions) (model.Resource, error) {
	return model.Resource{}, nil
}

func baseDeps(t *testing.T) (Deps, *fakeUserStore, *fakeNoteStore) {
	t.Helper()
	us := &fakeUserStore{
		protocolOK: true,
		user:       model.User{ID: 1, ServiceLevel: model.ServiceLevelBasic},
		limits:     model.AccountLimits{UploadLimit: 1024},
	}
	ns := &fakeNoteStore{
		state: model.SyncState{UpdateCount: 1},
		chunks: []model.SyncChunk{
			{
				HasChunkHighUSN: true,
				ChunkHighUSN:    1,
				UpdateCount:     1,
				CurrentTime:     time.Now(),
				Notebooks:       []model.Notebook{{ContainerBase: model.ContainerBase{GUID: "nb1", Name: "Notebook"}}},
			},
		},
	}
	broker := authbroker.New()
	broker.SetUserToken("user-token")

	deps := Deps{
		UserStore:    us,
		OwnNoteStore: ns,
		LinkedNoteStores: func(ln model.LinkedNotebook) (gateway.NoteStore, error) {
			return ns, nil
		},
		LocalStore: localstore.NewMemory(),
		AuthBroker: broker,
		Emitter:    &events.Recording{},
	}
	return deps, us, ns
}

func TestStartFullSyncProcessesOwnAccountChunks(t *testing.T) {
	deps, _, _ := baseDeps(t)
	o := New(Config{ClientName: "test", MajorVersion: 1, MinorVersion: 0}, deps)
	o.SetLastSyncParameters(model.OwnScope, model.SyncParameters{})

	outcome, err := o.Start(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, model.USN(1), outcome.LastUpdateCount)

	nb, err := deps.LocalStore.FindNotebookByGUID(context.Background(), "nb1")
	require.NoError(t, err)
	require.NotNil(t, nb)
}

func TestStartFailsWhenSyncParametersMissing(t *testing.T) {
	deps, _, _ := baseDeps(t)
	o := New(Config{ClientName: "test"}, deps)

	_, err := o.Start(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, syncerr.ErrSyncParametersMissing)
}

func TestStartRetriesAfterRateLimit(t *testing.T) {
	deps, _, ns := baseDeps(t)
	ns.rateLimitOnce = true

	o := New(Config{ClientName: "test"}, deps)
	o.SetLastSyncParameters(model.OwnScope, model.SyncParameters{})

	outcome, err := o.Start(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, model.USN(1), outcome.LastUpdateCount)
}

func TestStartSyncsLinkedNotebooks(t *testing.T) {
	deps, _, ns := baseDeps(t)
	ctx := context.Background()

	ln := model.LinkedNotebook{GUID: "ln1"}
	require.NoError(t, deps.LocalStore.AddLinkedNotebook(ctx, ln))

	ns.linkedStates = map[model.GUID]model.SyncState{"ln1": {UpdateCount: 1}}
	ns.linkedChunks = map[model.GUID][]model.SyncChunk{
		"ln1": {
			{
				HasChunkHighUSN: true,
				ChunkHighUSN:    1,
				UpdateCount:     1,
				CurrentTime:     time.Now(),
				Notes:           []model.Note{{GUID: "n1", Title: "Linked note", NotebookGUID: "lnb1"}},
			},
		},
	}
	ns.notes = map[model.GUID]model.Note{"n1": {GUID: "n1", Title: "Linked note", NotebookGUID: "lnb1", Content: "full body"}}

	broker := deps.AuthBroker.(*authbroker.Broker)
	broker.SetLinkedNotebookToken(model.LinkedNotebookToken{
		LinkedNotebookGUID: "ln1",
		Token:              "linked-token",
		Expiry:             time.Now().Add(24 * time.Hour),
	})

	o := New(Config{ClientName: "test"}, deps)
	o.SetLastSyncParameters(model.OwnScope, model.SyncParameters{})

	outcome, err := o.Start(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, model.USN(1), outcome.PerLinkedNotebook.LastUpdateCount["ln1"])

	n, err := deps.LocalStore.FindNoteByGUID(ctx, "n1")
	require.NoError(t, err)
	require.NotNil(t, n)
}

func TestCollectNonProcessedItemsSmallestUsnsReportsLowestPendingPerScope(t *testing.T) {
	deps, _, _ := baseDeps(t)
	o := New(Config{ClientName: "test"}, deps)

	o.trackPendingItems(model.OwnScope, pipeline.Outcome{
		PendingNoteAdds: []model.Note{
			{GUID: "n1", UpdateSequenceNum: 5},
			{GUID: "n2", UpdateSequenceNum: 3},
		},
	})
	o.trackPendingItems(model.Scope("ln1"), pipeline.Outcome{
		PendingResources: []model.Resource{{GUID: "r1", UpdateSequenceNum: 9}},
	})

	usn, perLinkedNotebook := o.CollectNonProcessedItemsSmallestUsns()
	assert.Equal(t, model.USN(3), usn)
	assert.Equal(t, model.USN(9), perLinkedNotebook["ln1"])

	o.untrackPendingItems(model.OwnScope, pipeline.Outcome{
		PendingNoteAdds: []model.Note{{GUID: "n2", UpdateSequenceNum: 3}},
	})
	usn, perLinkedNotebook = o.CollectNonProcessedItemsSmallestUsns()
	assert.Equal(t, model.USN(5), usn)
	assert.Equal(t, model.USN(9), perLinkedNotebook["ln1"])

	o.untrackPendingItems(model.Scope("ln1"), pipeline.Outcome{
		PendingResources: []model.Resource{{GUID: "r1", UpdateSequenceNum: 9}},
	})
	_, perLinkedNotebook = o.CollectNonProcessedItemsSmallestUsns()
	_, stillPending := perLinkedNotebook["ln1"]
	assert.False(t, stillPending, "linked notebook with no pending items is omitted")
}
