package resolver

import (
	"github.com/vesperpad/sync-engine/synccache"
)

// ContainerDecision is the result of resolving one notebook, tag, or
// saved search. Entity is the value the pipeline should write to the
// local store under the original local id (Outcome == UseLocal excepted,
// where nothing needs writing). RenamedLocal is populated only for
// DuplicateLocal: it is a different, pre-existing local entity whose name
// collided with the name Entity is about to take, and must be persisted
// under its own unchanged local id (with the suffixed name) before Entity
// is written.
type ContainerDecision[T synccache.Container[T]] struct {
	Outcome      Outcome
	Entity       T
	RenamedLocal *T
}

// ResolveContainer implements the NotebookResolver/TagResolver/
// SavedSearchResolver policy (spec.md §4.4): if the remote USN dominates
// and the local entity is non-dirty, UseRemote. If the local is dirty,
// attempt a name-based merge via the scope's sync cache: if no other
// local entity already holds the remote's name, Merge; if one does,
// that colliding entity is renamed with a conflict suffix
// (DuplicateLocal) and remote is accepted under the original local id.
// local is nil when the entity does not yet exist locally (a plain add).
func ResolveContainer[T synccache.Container[T]](remote T, local *T, cache *synccache.Cache[T]) ContainerDecision[T] {
	if local == nil {
		return ContainerDecision[T]{Outcome: UseRemote, Entity: remote}
	}

	remoteBase := remote.Base()
	localBase := (*local).Base()

	if !localBase.LocallyModified && remoteBase.UpdateSequenceNum >= localBase.UpdateSequenceNum {
		return ContainerDecision[T]{Outcome: UseRemote, Entity: remote}
	}

	if localBase.LocallyModified {
		if collision, ok := cache.ByName(remoteBase.Name); ok {
			cb := collision.Base()
			if cb.GUID != remoteBase.GUID && cb.GUID != localBase.GUID {
				renamed := collision.Renamed(ConflictSuffix)
				return ContainerDecision[T]{Outcome: DuplicateLocal, Entity: remote, RenamedLocal: &renamed}
			}
		}
		return ContainerDecision[T]{Outcome: Merge, Entity: remote}
	}

	return ContainerDecision[T]{Outcome: UseLocal, Entity: *local}
}
