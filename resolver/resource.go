package resolver

import "github.com/vesperpad/sync-engine/model"

// OwningNote implements the resource-conflict policy (spec.md §4.4:
// "Resource conflict: handled as a note conflict over the owning note").
// A resource never resolves on its own; the pipeline looks up the note it
// belongs to and runs that note through ResolveNote instead. OwningNote
// finds that note among a caller-supplied set of candidates.
func OwningNote(resourceNoteGUID model.GUID, candidates []model.Note) (model.Note, bool) {
	for _, n := range candidates {
		if n.GUID == resourceNoteGUID {
			return n, true
		}
	}
	return model.Note{}, false
}
