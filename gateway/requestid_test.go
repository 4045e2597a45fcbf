package gateway

import "testing"

import "github.com/stretchr/testify/assert"

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()

	id1 := tr.Begin()
	id2 := tr.Begin()
	assert.NotEqual(t, id1, id2)
	assert.True(t, tr.IsLive(id1))
	assert.True(t, tr.IsLive(id2))

	tr.End(id1)
	assert.False(t, tr.IsLive(id1))
	assert.True(t, tr.IsLive(id2))

	tr.InvalidateAll()
	assert.False(t, tr.IsLive(id2))
}
