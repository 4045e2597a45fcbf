// Package model holds the data-model types the sync core operates on:
// users, account limits, linked notebooks, notebooks/tags/saved searches,
// notes, resources, and the sync-chunk/sync-state shapes the remote service
// emits. The wire format and persistence layout are external concerns; these
// types carry only the semantic attributes the core needs to reconcile.
package model

import "github.com/google/uuid"

// LocalID identifies an entity within the local store. Always present,
// assigned the moment an entity is created locally, and never changes for
// the lifetime of that local row.
type LocalID string

// GUID identifies an entity within the remote service. Optional until an
// entity has been synced at least once; globally unique within its kind and
// scope once assigned.
type GUID string

// USN is a per-scope, server-stamped update sequence number.
type USN int32

// NewLocalID mints a fresh local id. Grounded on the teacher's use of
// google/uuid for session and entity identifiers.
func NewLocalID() LocalID {
	return LocalID(uuid.NewString())
}

// Scope identifies either the user's own account or a linked notebook by
// its guid. The empty scope is the user's own account — design note in
// spec.md §9 recommends a single map keyed this way over two code paths.
type Scope string

// OwnScope is the Scope value for the user's own account.
const OwnScope Scope = ""

// IsLinkedNotebook reports whether s refers to a linked-notebook scope.
func (s Scope) IsLinkedNotebook() bool {
	return s != OwnScope
}
