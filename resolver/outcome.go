// Package resolver implements spec.md §4.4: one-shot conflict resolvers,
// one per entity kind, each taking the remote entity, the current local
// entity (if any), and the scope's sync caches, and producing a single
// terminal outcome. Grounded on the teacher's services package in shape —
// ContextService.Update's "check for an existing name, detect what
// changed, then write" sequence is the same shape as a container resolver
// — generalized into an explicit, reusable decision type instead of
// inlined per-call logic.
package resolver

// Outcome is the terminal decision a resolver reaches for one entity.
type Outcome int

const (
	// UseRemote accepts the remote entity as-is (new locally, or the
	// remote copy dominates a non-dirty local one).
	UseRemote Outcome = iota
	// UseLocal keeps the local entity untouched; the remote change is
	// not applied this sync (local has outrun a non-dominant remote).
	UseLocal
	// DuplicateLocal renames the local entity to break an irreconcilable
	// name collision, then accepts the remote entity under its own name.
	DuplicateLocal
	// Merge reconciles a dirty local entity with a dominant remote one
	// that does not collide with any other local entity.
	Merge
)

func (o Outcome) String() string {
	switch o {
	case UseRemote:
		return "UseRemote"
	case UseLocal:
		return "UseLocal"
	case DuplicateLocal:
		return "DuplicateLocal"
	case Merge:
		return "Merge"
	default:
		return "Unknown"
	}
}

// ConflictSuffix is appended to a local container's name when it is
// renamed to make way for an incoming remote entity of the same name
// (spec.md §4.4 "rename the local item with a conflict suffix").
const ConflictSuffix = " (conflicting)"

// NoteConflictSuffix is appended to a conflicting note's title
// (spec.md §4.4 NoteResolver: `title suffixed "- conflicting"`).
const NoteConflictSuffix = " - conflicting"
