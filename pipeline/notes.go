package pipeline

import (
	"context"
	"fmt"

	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/resolver"
	"github.com/vesperpad/sync-engine/syncerr"
)

// reconcileNotes runs every remote note through ResolveNote and returns
// the stub notes that must still be handed to FullContentFetcher
// (spec.md §4.6: "it does not yet have the note body or resources"). A
// conflict copy, unlike the stub, already holds full local content, so it
// is written to the local store directly rather than queued.
func (p *Pipeline) reconcileNotes(ctx context.Context, scope model.Scope, remote []model.Note, expungedNotebooks map[model.GUID]struct{}) (adds, updates []model.Note, err error) {
	for _, r := range remote {
		if shapeErr := model.ValidateNoteShape(r); shapeErr != nil {
			return adds, updates, syncerr.New(syncerr.ErrMissingNotebookReference, string(r.GUID), shapeErr)
		}

		var local *model.Note
		if r.GUID != "" {
			l, findErr := p.gw.FindNoteByGUID(ctx, r.GUID)
			if findErr != nil {
				return adds, updates, fmt.Errorf("pipeline: find note by guid %s: %w", r.GUID, findErr)
			}
			local = l
		}

		notebookBeingExpunged := false
		if local != nil {
			_, notebookBeingExpunged = expungedNotebooks[local.NotebookGUID]
		}

		decision := resolver.ResolveNote(r, local, notebookBeingExpunged)
		switch decision.Outcome {
		case resolver.UseLocal:
			continue
		case resolver.DuplicateLocal:
			if decision.ConflictCopy != nil {
				if err := p.gw.AddNote(ctx, *decision.ConflictCopy); err != nil {
					return adds, updates, fmt.Errorf("pipeline: add conflicting note copy: %w", err)
				}
			}
			stub := decision.Remote
			stub.LocalID = local.LocalID
			updates = append(updates, stub)
		case resolver.UseRemote:
			stub := decision.Remote
			if local == nil {
				stub.LocalID = model.NewLocalID()
				adds = append(adds, stub)
			} else {
				stub.LocalID = local.LocalID
				updates = append(updates, stub)
			}
		}
	}
	return adds, updates, nil
}
