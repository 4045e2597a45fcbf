package syncerr

import "errors"

// Sentinel errors for the permanent failure classes spec.md §7 names.
// Declared the way the teacher's services/errors.go declares its Err*
// values: one var block, one sentinel per recognized failure.
var (
	// ErrProtocolVersionUnusable is returned when checkProtocolVersion
	// reports the client's protocol is no longer usable (spec.md §8
	// scenario 5).
	ErrProtocolVersionUnusable = errors.New("current protocol version is no longer usable")

	// ErrMissingGUID / ErrMissingUSN / ErrMissingNotebookReference /
	// ErrMissingName are data-shape errors: a required field the remote or
	// local store should have populated is absent (spec.md §7).
	ErrMissingGUID              = errors.New("entity is missing a required guid")
	ErrMissingUSN               = errors.New("entity is missing a required update sequence number")
	ErrMissingNotebookReference = errors.New("note has neither a notebook guid nor a notebook local id")
	ErrMissingName              = errors.New("entity requiring a find-by-name probe has no name")

	// ErrLocalStoreWrite marks a failure writing to LocalStoreGateway.
	ErrLocalStoreWrite = errors.New("local store write failed")

	// ErrRemoteStore marks a non-transient failure from RemoteApiGateway.
	ErrRemoteStore = errors.New("remote store error")

	// ErrResolverFailed marks a conflict resolver that could not produce a
	// merge outcome.
	ErrResolverFailed = errors.New("conflict resolver failed")

	// ErrSessionStopped is the internal signal used to unwind a session
	// after stop() is called; it is never surfaced via failure().
	ErrSessionStopped = errors.New("sync session stopped")

	// ErrSyncParametersMissing is returned by start() when prior session
	// parameters for a scope have not been supplied via
	// setLastSyncParameters (spec.md §4.1).
	ErrSyncParametersMissing = errors.New("last sync parameters were not supplied before start")
)
