package syncerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStringUnwrapAndIs(t *testing.T) {
	base := errors.New("underlying transport error")
	es := New(ErrRemoteStore, "getSyncChunk failed", base)

	assert.ErrorIs(t, es, ErrRemoteStore)
	assert.ErrorIs(t, es, base)
	assert.Contains(t, es.Error(), "getSyncChunk failed")
}

func TestRateLimitErrorMessage(t *testing.T) {
	err := &RateLimitError{Seconds: 42}
	assert.Contains(t, err.Error(), "42")

	rl, ok := AsRateLimit(err)
	assert.True(t, ok)
	assert.Equal(t, 42, rl.Seconds)
}

func TestAuthExpiredErrorScopes(t *testing.T) {
	userScope := &AuthExpiredError{}
	assert.Contains(t, userScope.Error(), "user's own scope")

	linked := &AuthExpiredError{Scope: "ln-guid"}
	assert.Contains(t, linked.Error(), "ln-guid")
}
