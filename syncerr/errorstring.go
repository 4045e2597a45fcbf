// Package syncerr holds the error taxonomy the sync core recognizes
// (spec.md §7): transient errors that are retried in place, data-shape and
// local-store errors that fail the session, and the structured ErrorString
// a failed session is reported through.
package syncerr

import "strings"

// ErrorString is a structured, translatable failure reason: a primary
// basis, zero or more additional bases ordered most-to-least specific, and
// a free-form details string (spec.md §7). It implements error and
// Unwrap() []error so callers can use errors.Is/errors.As against any of
// its bases.
type ErrorString struct {
	Primary error
	Bases   []error
	Details string
}

// New builds an ErrorString from a primary reason plus optional additional
// bases and a details string.
func New(primary error, details string, bases ...error) *ErrorString {
	return &ErrorString{Primary: primary, Bases: bases, Details: details}
}

func (e *ErrorString) Error() string {
	var b strings.Builder
	b.WriteString(e.Primary.Error())
	for _, base := range e.Bases {
		b.WriteString(": ")
		b.WriteString(base.Error())
	}
	if e.Details != "" {
		b.WriteString(" (")
		b.WriteString(e.Details)
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes every basis to errors.Is/errors.As, primary included.
func (e *ErrorString) Unwrap() []error {
	all := make([]error, 0, len(e.Bases)+1)
	all = append(all, e.Primary)
	all = append(all, e.Bases...)
	return all
}
