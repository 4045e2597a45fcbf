package model

import "time"

// LinkedNotebook is a pointer to a notebook shared by another account. Its
// content lives under a separate auth scope with its own USN stream.
// Keyed by guid — a linked notebook is never local-only.
type LinkedNotebook struct {
	GUID               GUID
	LocalID            LocalID
	ShareName          string
	Username           string
	ShardID            string
	NoteStoreURL       string
	WebAPIURLPrefix    string
	SharedNotebookGUID GUID
	UpdateSequenceNum  USN
	// Public, when true, marks a linked notebook backed by a public share
	// rather than a credentialed one; auxiliary downloads then omit the
	// auth token on their requests (spec.md §5 supplemented features).
	Public bool
}

// LinkedNotebookToken is the auth token and expiry AuthTokenBroker hands out
// for a single linked notebook's scope.
type LinkedNotebookToken struct {
	LinkedNotebookGUID GUID
	Token              string
	Expiry             time.Time
	NoteStoreURL       string
	ShardID            string
	WebAPIURLPrefix    string
}

// ExpiresWithin reports whether the token will expire within d of now —
// used to trigger the bulk pre-sync refresh spec.md §4.2 requires.
func (t LinkedNotebookToken) ExpiresWithin(now time.Time, d time.Duration) bool {
	return !t.Expiry.After(now.Add(d))
}

// LinkedNotebookAuthWindow is the "within 30 minutes of expiry" threshold
// from spec.md §4.2.
const LinkedNotebookAuthWindow = 30 * time.Minute
