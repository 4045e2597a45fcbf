package model

// ContainerBase holds the fields shared by notebooks, tags, and saved
// searches (spec.md §3): server guid (optional until first sync), a local
// id that is always present, the USN, name, optional linked-notebook
// binding, and the two local-state flags.
type ContainerBase struct {
	GUID              GUID
	LocalID           LocalID
	UpdateSequenceNum USN
	Name              string
	LinkedNotebookGUID GUID // empty when owned by the user's own account
	LocallyModified   bool
	LocalOnly         bool
}

// Scope returns the sync scope this container belongs to.
func (c ContainerBase) Scope() Scope {
	return Scope(c.LinkedNotebookGUID)
}

// Notebook is a named container of notes.
type Notebook struct {
	ContainerBase
	DefaultNotebook bool
	Stack           string
	Restrictions    NotebookRestrictions
}

// Base returns the embedded ContainerBase, letting generic code over
// Notebook/Tag/SavedSearch reach the shared fields without reflection.
func (n Notebook) Base() ContainerBase { return n.ContainerBase }

// Renamed returns a copy with suffix appended to Name, used when a
// resolver breaks an irreconcilable name collision (spec.md §4.4).
func (n Notebook) Renamed(suffix string) Notebook { n.Name += suffix; return n }

// Stamped returns a copy with localID and linkedNotebookGUID applied,
// used when the pipeline writes a resolved remote entity into the local
// store under its definitive local id and scope.
func (n Notebook) Stamped(localID LocalID, linkedNotebookGUID GUID) Notebook {
	n.LocalID = localID
	n.LinkedNotebookGUID = linkedNotebookGUID
	return n
}

// NotebookRestrictions mirrors the subset of server-side restrictions the
// resolvers and full-content fetcher need to know about before writing to a
// notebook (e.g. whether notes within it may be modified).
type NotebookRestrictions struct {
	NoCreateNotes bool
	NoUpdateNotes bool
	NoExpungeNotebook bool
}

// Tag is a named label, optionally nested under a parent tag.
type Tag struct {
	ContainerBase
	ParentGUID GUID // empty when the tag has no parent
}

// Base returns the embedded ContainerBase.
func (t Tag) Base() ContainerBase { return t.ContainerBase }

// Renamed returns a copy with suffix appended to Name.
func (t Tag) Renamed(suffix string) Tag { t.Name += suffix; return t }

// Stamped returns a copy with localID and linkedNotebookGUID applied.
func (t Tag) Stamped(localID LocalID, linkedNotebookGUID GUID) Tag {
	t.LocalID = localID
	t.LinkedNotebookGUID = linkedNotebookGUID
	return t
}

// SavedSearch is a named, saved query.
type SavedSearch struct {
	ContainerBase
	Query string
}

// Base returns the embedded ContainerBase.
func (s SavedSearch) Base() ContainerBase { return s.ContainerBase }

// Renamed returns a copy with suffix appended to Name.
func (s SavedSearch) Renamed(suffix string) SavedSearch { s.Name += suffix; return s }

// Stamped returns a copy with localID and linkedNotebookGUID applied.
func (s SavedSearch) Stamped(localID LocalID, linkedNotebookGUID GUID) SavedSearch {
	s.LocalID = localID
	s.LinkedNotebookGUID = linkedNotebookGUID
	return s
}
