package model

import "time"

// Note belongs to exactly one notebook (spec.md §3 invariant 2): either a
// known-remote notebook referenced by guid, or a never-synced one
// referenced by local id.
type Note struct {
	GUID              GUID
	LocalID           LocalID
	Title             string
	Content           string
	NotebookGUID      GUID
	NotebookLocalID   LocalID
	UpdateSequenceNum USN
	Created           time.Time
	Updated           time.Time
	TagGUIDs          []GUID
	TagLocalIDs       []LocalID
	Resources         []Resource
	ThumbnailData     []byte
	LocallyModified   bool
	LocalOnly         bool
	Active            bool

	// ConflictSourceNoteGUID is set on a conflicting-note copy created by
	// NoteResolver (spec.md §4.4); it names the guid of the note this copy
	// diverged from.
	ConflictSourceNoteGUID GUID

	// FromPublicLinkedNotebook marks a note living in a publicly shared
	// linked notebook. Auxiliary downloads for such notes omit the auth
	// token (spec.md supplemented features, libquentier's
	// noteFromPublicLinkedNotebook).
	FromPublicLinkedNotebook bool
}

// HasNotebookReference reports whether the note carries enough information
// to resolve its owning notebook, satisfying invariant 2.
func (n Note) HasNotebookReference() bool {
	return n.NotebookGUID != "" || n.NotebookLocalID != ""
}

// IsInkNote reports whether any resource on the note carries the ink-note
// mime type, the trigger for scheduling an ink-note image download
// (spec.md §4.6).
func (n Note) IsInkNote() bool {
	for _, r := range n.Resources {
		if r.MimeType == MimeTypeInkNote {
			return true
		}
	}
	return false
}

// MimeTypeInkNote is the resource mime type that marks a note as an ink
// note (spec.md §4.6).
const MimeTypeInkNote = "application/vnd.evernote.ink"

// Resource belongs to exactly one note (spec.md §3).
type Resource struct {
	GUID             GUID
	LocalID          LocalID
	NoteGUID         GUID
	NoteLocalID      LocalID
	MimeType         string
	Width            int32
	Height           int32
	Body             []byte
	Recognition      []byte
	AlternateData    []byte
	UpdateSequenceNum USN
	LocallyModified  bool
}

// Dirty reports whether the resource has an outstanding local-only change.
func (r Resource) Dirty() bool {
	return r.LocallyModified
}
