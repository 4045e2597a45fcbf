package resolver

import "github.com/vesperpad/sync-engine/model"

// LinkedNotebookDecision is always UseRemote; it exists only so callers
// treat every entity kind uniformly.
type LinkedNotebookDecision struct {
	Outcome Outcome
	Entity  model.LinkedNotebook
}

// ResolveLinkedNotebook implements the LinkedNotebookResolver policy
// (spec.md §4.4): the local row is just a reference to someone else's
// notebook, so the remote copy always wins.
func ResolveLinkedNotebook(remote model.LinkedNotebook) LinkedNotebookDecision {
	return LinkedNotebookDecision{Outcome: UseRemote, Entity: remote}
}
