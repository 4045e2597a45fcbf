package ratelimiter

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/events"
)

func TestScheduleRejectsNegativeSeconds(t *testing.T) {
	rl := New(events.NoOp{})
	err := rl.Schedule(-1, func() {})
	assert.Error(t, err)
}

func TestScheduleFiresRetryAndEmits(t *testing.T) {
	rec := &events.Recording{}
	rl := New(rec)

	var fired int32
	done := make(chan struct{})
	err := rl.Schedule(0, func() {
		atomic.AddInt32(&fired, 1)
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry never fired")
	}

	assert.EqualValues(t, 1, atomic.LoadInt32(&fired))
	assert.True(t, rec.Has("RateLimitExceeded"))
}

func TestStopSuppressesPendingRetries(t *testing.T) {
	rl := New(events.NoOp{})

	var fired int32
	err := rl.Schedule(1, func() { atomic.AddInt32(&fired, 1) })
	require.NoError(t, err)
	require.Equal(t, 1, rl.Pending())

	rl.Stop()
	time.Sleep(1200 * time.Millisecond)

	assert.EqualValues(t, 0, atomic.LoadInt32(&fired), "stopped session must not invoke retries")
}
