package gateway

import (
	"context"

	"github.com/vesperpad/sync-engine/model"
)

// AuthTokenBroker exposes the current primary auth token and per-linked-
// notebook tokens with expiry, and lets the core request refreshes
// (spec.md §3, §4.2). Refreshing is asynchronous from the broker's point
// of view — the core awaits a fresh token rather than the broker blocking
// on a UI flow itself, since credential acquisition is out of scope for
// this module (spec.md §1 non-goals).
type AuthTokenBroker interface {
	// UserToken returns the current user-scope token, or an error if none
	// has ever been supplied.
	UserToken(ctx context.Context) (string, error)
	// RequestUserTokenRefresh asks the broker's owner (the UI/CLI layer)
	// for a new user token and blocks until one arrives or ctx is done.
	RequestUserTokenRefresh(ctx context.Context) (string, error)

	// LinkedNotebookToken returns the current token for a linked notebook
	// scope, or an error if none has ever been supplied.
	LinkedNotebookToken(ctx context.Context, guid model.GUID) (model.LinkedNotebookToken, error)
	// RequestLinkedNotebookTokensRefresh asks for fresh tokens for every
	// guid listed and blocks until all have arrived or ctx is done.
	RequestLinkedNotebookTokensRefresh(ctx context.Context, guids []model.GUID) (map[model.GUID]model.LinkedNotebookToken, error)

	// Subscribe returns a channel that receives an Update every time any
	// token changes, and a cancel func to stop receiving. Concurrent
	// conflict resolvers awaiting a refreshed token use this instead of
	// polling (spec.md §4.2 — "must receive the refreshed token via a
	// broadcast notification").
	Subscribe() (updates <-chan Update, cancel func())
}

// Update is broadcast on every token change.
type Update struct {
	Scope model.Scope
	Token string
}
