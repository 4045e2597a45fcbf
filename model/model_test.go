package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountLimitsStale(t *testing.T) {
	now := time.Now()

	fresh := AccountLimits{CachedAt: now.Add(-29 * 24 * time.Hour)}
	assert.False(t, fresh.Stale(now))

	stale := AccountLimits{CachedAt: now.Add(-31 * 24 * time.Hour)}
	assert.True(t, stale.Stale(now))

	exact := AccountLimits{CachedAt: now.Add(-AccountLimitsTTL)}
	assert.False(t, exact.Stale(now), "exactly 30 days old must not be stale")
}

func TestSyncChunkDone(t *testing.T) {
	assert.True(t, SyncChunk{HasChunkHighUSN: false}.Done())
	assert.True(t, SyncChunk{HasChunkHighUSN: true, ChunkHighUSN: 50, UpdateCount: 50}.Done())
	assert.False(t, SyncChunk{HasChunkHighUSN: true, ChunkHighUSN: 25, UpdateCount: 50}.Done())
}

func TestSyncChunkListAppendMonotonic(t *testing.T) {
	var l SyncChunkList
	t1 := time.Now()
	l.Append(SyncChunk{UpdateCount: 10, CurrentTime: t1})
	l.Append(SyncChunk{UpdateCount: 5, CurrentTime: t1.Add(-time.Hour)})

	assert.Equal(t, USN(10), l.LastUpdateCount, "watermark must not regress")
	assert.True(t, l.LastSyncTime.Equal(t1))
}

func TestValidateNoteShapeRequiresNotebookReference(t *testing.T) {
	err := ValidateNoteShape(Note{})
	assert.Error(t, err)

	err = ValidateNoteShape(Note{NotebookLocalID: "local-1"})
	assert.NoError(t, err)
}

func TestValidateNoteShapeResourceGuidConsistency(t *testing.T) {
	withGUID := Note{
		GUID:            "n1",
		NotebookGUID:    "nb1",
		Resources:       []Resource{{GUID: "r1"}},
	}
	assert.NoError(t, ValidateNoteShape(withGUID))

	mismatched := Note{
		GUID:         "n1",
		NotebookGUID: "nb1",
		Resources:    []Resource{{}},
	}
	assert.Error(t, ValidateNoteShape(mismatched))
}

func TestLinkedNotebookTokenExpiresWithin(t *testing.T) {
	now := time.Now()
	tok := LinkedNotebookToken{Expiry: now.Add(10 * time.Minute)}
	assert.True(t, tok.ExpiresWithin(now, LinkedNotebookAuthWindow))

	tok2 := LinkedNotebookToken{Expiry: now.Add(time.Hour)}
	assert.False(t, tok2.ExpiresWithin(now, LinkedNotebookAuthWindow))
}
