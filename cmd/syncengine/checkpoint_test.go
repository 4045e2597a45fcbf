package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/model"
)

func TestCheckpointFileRoundTrip(t *testing.T) {
	cp := checkpointFile{path: filepath.Join(t.TempDir(), "state.checkpoint.json")}

	loaded, err := cp.load()
	require.NoError(t, err)
	assert.Empty(t, loaded, "a missing checkpoint file loads as empty, not an error")

	params := map[model.Scope]model.SyncParameters{
		model.OwnScope: {LastUpdateCount: 42, LastSyncTime: time.Unix(1700000000, 0), EverFullySynced: true},
		"ln1":          {LastUpdateCount: 7, LastSyncTime: time.Unix(1700000100, 0), EverFullySynced: true},
	}
	require.NoError(t, cp.save(params))

	reloaded, err := cp.load()
	require.NoError(t, err)
	require.Contains(t, reloaded, model.OwnScope)
	assert.EqualValues(t, 42, reloaded[model.OwnScope].LastUpdateCount)
	assert.True(t, reloaded[model.OwnScope].EverFullySynced)
	require.Contains(t, reloaded, model.Scope("ln1"))
	assert.EqualValues(t, 7, reloaded["ln1"].LastUpdateCount)
}

func TestNewCheckpointFileDerivesPathFromDB(t *testing.T) {
	cp := newCheckpointFile("/data/sync-engine.db")
	assert.Equal(t, "/data/sync-engine.db.checkpoint.json", cp.path)
}
