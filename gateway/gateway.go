// Package gateway defines the external-collaborator contracts the sync
// core consumes (spec.md §6): the remote service (split into UserStore and
// NoteStore, mirroring the user-scope vs. per-linked-notebook note stores
// the source distinguishes), the local persistence layer
// (LocalStoreGateway), and the credential broker (AuthTokenBroker).
//
// Every call is expressed as a normal blocking method taking a
// context.Context. Concurrency is the caller's: the core issues these
// calls from goroutines and correlates responses via the channel each
// goroutine reports on, rather than via an explicit request-id map — the
// equivalent-behavior alternative spec.md §9's design notes call out
// ("an implementation may prefer direct async tasks").
package gateway

import (
	"context"

	"github.com/vesperpad/sync-engine/model"
)

// GetNoteOptions selects which parts of a note to fetch (spec.md §4.6).
type GetNoteOptions struct {
	WithContent               bool
	WithResourcesData         bool
	WithResourcesRecognition  bool
	WithResourcesAlternateData bool
}

// GetResourceOptions selects which parts of a resource to fetch.
type GetResourceOptions struct {
	WithData          bool
	WithRecognition   bool
	WithAlternateData bool
}

// SyncChunkFilter selects which entity kinds (and, incrementally, which
// expunge/resource lists) a getSyncChunk call should return (spec.md §4.5).
type SyncChunkFilter struct {
	IncludeNotebooks       bool
	IncludeTags            bool
	IncludeSavedSearches   bool
	IncludeLinkedNotebooks bool
	IncludeNotes           bool
	IncludeResources       bool
	IncludeExpunged        bool
}

// UserStore is the account-level subset of the remote service.
type UserStore interface {
	// CheckProtocolVersion returns false (with no error) when the client's
	// protocol is no longer usable (spec.md §8 scenario 5).
	CheckProtocolVersion(ctx context.Context, clientName string, majorVersion, minorVersion int32) (bool, error)
	GetUser(ctx context.Context) (model.User, error)
	GetAccountLimits(ctx context.Context, level model.ServiceLevel) (model.AccountLimits, error)
}

// NoteStore is the content-level subset of the remote service, usable
// against either the user's own account or a single linked notebook's
// note store — the caller picks which by which method it calls.
type NoteStore interface {
	GetSyncState(ctx context.Context) (model.SyncState, error)
	GetSyncChunk(ctx context.Context, afterUSN model.USN, maxEntries int32, filter SyncChunkFilter) (model.SyncChunk, error)

	GetLinkedNotebookSyncState(ctx context.Context, notebook model.LinkedNotebook) (model.SyncState, error)
	GetLinkedNotebookSyncChunk(ctx context.Context, notebook model.LinkedNotebook, afterUSN model.USN, maxEntries int32, filter SyncChunkFilter) (model.SyncChunk, error)

	GetNote(ctx context.Context, guid model.GUID, opts GetNoteOptions) (model.Note, error)
	GetResource(ctx context.Context, guid model.GUID, opts GetResourceOptions) (model.Resource, error)
}

// LocalStoreGateway is the async request/response interface to the local
// store (spec.md §6): find/add/update/expunge per entity kind, plus the two
// whole-store operations linked-notebook handling needs. A Find* method
// returns (nil, nil) when no matching row exists — that is not an error.
type LocalStoreGateway interface {
	FindNotebookByGUID(ctx context.Context, guid model.GUID) (*model.Notebook, error)
	FindNotebookByName(ctx context.Context, name string, scope model.Scope) (*model.Notebook, error)
	AddNotebook(ctx context.Context, nb model.Notebook) error
	UpdateNotebook(ctx context.Context, nb model.Notebook) error
	ExpungeNotebook(ctx context.Context, guid model.GUID) error
	ListNotebookGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error)
	ListNotebooks(ctx context.Context, scope model.Scope) ([]model.Notebook, error)

	FindTagByGUID(ctx context.Context, guid model.GUID) (*model.Tag, error)
	FindTagByName(ctx context.Context, name string, scope model.Scope) (*model.Tag, error)
	AddTag(ctx context.Context, tag model.Tag) error
	UpdateTag(ctx context.Context, tag model.Tag) error
	ExpungeTag(ctx context.Context, guid model.GUID) error
	ListTagGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error)
	ListTags(ctx context.Context, scope model.Scope) ([]model.Tag, error)

	FindSavedSearchByGUID(ctx context.Context, guid model.GUID) (*model.SavedSearch, error)
	FindSavedSearchByName(ctx context.Context, name string, scope model.Scope) (*model.SavedSearch, error)
	AddSavedSearch(ctx context.Context, s model.SavedSearch) error
	UpdateSavedSearch(ctx context.Context, s model.SavedSearch) error
	ExpungeSavedSearch(ctx context.Context, guid model.GUID) error
	ListSavedSearchGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error)
	ListSavedSearches(ctx context.Context, scope model.Scope) ([]model.SavedSearch, error)

	FindNoteByGUID(ctx context.Context, guid model.GUID) (*model.Note, error)
	AddNote(ctx context.Context, n model.Note) error
	UpdateNote(ctx context.Context, n model.Note) error
	SetNoteLocallyModified(ctx context.Context, localID model.LocalID, dirty bool) error
	ExpungeNote(ctx context.Context, guid model.GUID) error
	ListNoteGUIDs(ctx context.Context, scope model.Scope) ([]model.GUID, error)

	FindResourceByGUID(ctx context.Context, guid model.GUID) (*model.Resource, error)
	AddResource(ctx context.Context, r model.Resource) error
	UpdateResource(ctx context.Context, r model.Resource) error

	ListAllLinkedNotebooks(ctx context.Context) ([]model.LinkedNotebook, error)
	AddLinkedNotebook(ctx context.Context, ln model.LinkedNotebook) error
	UpdateLinkedNotebook(ctx context.Context, ln model.LinkedNotebook) error
	ExpungeLinkedNotebook(ctx context.Context, guid model.GUID) error

	AddUser(ctx context.Context, u model.User) error
	ExpungeNotelessTagsFromLinkedNotebooks(ctx context.Context) error
}
