package ratelimiter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperpad/sync-engine/authbroker"
	"github.com/vesperpad/sync-engine/events"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/syncerr"
)

func TestRetrySucceedsAfterRateLimit(t *testing.T) {
	rl := New(events.NoOp{})
	attempts := 0
	err := rl.Retry(context.Background(), nil, model.OwnScope, func() error {
		attempts++
		if attempts == 1 {
			return &syncerr.RateLimitError{Seconds: 0}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryRefreshesUserTokenOnAuthExpired(t *testing.T) {
	rl := New(events.NoOp{})
	broker := authbroker.New()

	attempts := 0
	done := make(chan struct{})
	go func() {
		<-done
		broker.SetUserToken("fresh-token")
	}()

	err := rl.Retry(context.Background(), broker, model.OwnScope, func() error {
		attempts++
		if attempts == 1 {
			close(done)
			return &syncerr.AuthExpiredError{}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryPassesThroughOtherErrors(t *testing.T) {
	rl := New(events.NoOp{})
	boom := errors.New("boom")
	err := rl.Retry(context.Background(), nil, model.OwnScope, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestRetryRefreshesAllKnownLinkedNotebookTokensOnAuthExpired(t *testing.T) {
	rl := New(events.NoOp{})
	rl.SetLinkedNotebookGUIDs([]model.GUID{"ln1", "ln2", "ln3"})
	broker := authbroker.New()

	var refreshed []model.GUID
	attempts := 0
	done := make(chan struct{})
	go func() {
		<-done
		broker.SetLinkedNotebookToken(model.LinkedNotebookToken{LinkedNotebookGUID: "ln1", Token: "t1"})
		broker.SetLinkedNotebookToken(model.LinkedNotebookToken{LinkedNotebookGUID: "ln2", Token: "t2"})
		broker.SetLinkedNotebookToken(model.LinkedNotebookToken{LinkedNotebookGUID: "ln3", Token: "t3"})
	}()

	err := rl.Retry(context.Background(), broker, model.Scope("ln1"), func() error {
		attempts++
		if attempts == 1 {
			close(done)
			return &syncerr.AuthExpiredError{}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	refreshed = rl.linkedNotebookRefreshSet("ln1")
	assert.ElementsMatch(t, []model.GUID{"ln1", "ln2", "ln3"}, refreshed)
}
