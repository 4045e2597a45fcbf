package resolver

import "github.com/vesperpad/sync-engine/model"

// NoteDecision is the result of resolving one note (spec.md §4.4
// NoteResolver). Remote is written under the original local id for every
// outcome except UseLocal, where nothing is written. ConflictCopy is
// populated only for DuplicateLocal and must be added as a brand new
// note before Remote is written.
type NoteDecision struct {
	Outcome      Outcome
	Remote       model.Note
	ConflictCopy *model.Note
}

// ResolveNote implements the NoteResolver policy (spec.md §4.4): if
// localUsn >= remoteUsn and guids match, keep local (skip — UseLocal). If
// the local copy is dirty, split it into a conflicting copy (new local
// id, cleared guid and USNs, conflictSourceNoteGuid set, resources
// re-parented with new local ids and cleared guids, title suffixed
// " - conflicting") and accept remote into the original local id
// (DuplicateLocal). If the local was non-dirty, overwrite (UseRemote).
// notebookBeingExpunged redirects the conflicting copy into the remote
// note's notebook, per spec.md §4.4's redirect clause, instead of the
// local notebook that is about to disappear.
func ResolveNote(remote model.Note, local *model.Note, notebookBeingExpunged bool) NoteDecision {
	if local == nil {
		return NoteDecision{Outcome: UseRemote, Remote: remote}
	}

	if local.GUID != "" && local.GUID == remote.GUID && local.UpdateSequenceNum >= remote.UpdateSequenceNum {
		return NoteDecision{Outcome: UseLocal, Remote: *local}
	}

	if !local.LocallyModified {
		return NoteDecision{Outcome: UseRemote, Remote: remote}
	}

	conflict := *local
	conflict.LocalID = model.NewLocalID()
	conflict.GUID = ""
	conflict.UpdateSequenceNum = 0
	conflict.ConflictSourceNoteGUID = remote.GUID
	conflict.Title += NoteConflictSuffix
	conflict.Resources = reparentResources(conflict.Resources, conflict.LocalID)

	if notebookBeingExpunged {
		conflict.NotebookGUID = remote.NotebookGUID
		conflict.NotebookLocalID = remote.NotebookLocalID
	}

	return NoteDecision{Outcome: DuplicateLocal, Remote: remote, ConflictCopy: &conflict}
}

func reparentResources(resources []model.Resource, newOwner model.LocalID) []model.Resource {
	out := make([]model.Resource, len(resources))
	for i, r := range resources {
		r.LocalID = model.NewLocalID()
		r.GUID = ""
		r.NoteLocalID = newOwner
		r.NoteGUID = ""
		out[i] = r
	}
	return out
}
