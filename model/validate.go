package model

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ShapeError reports a data-shape error: a required field the remote or
// local store should have populated is missing (spec.md §7 — "these fail
// the session with a descriptive error because they indicate server or
// local-store corruption").
type ShapeError struct {
	Kind  string
	Field string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Kind, e.Field)
}

// ValidateNoteShape checks the invariants a note must satisfy before it can
// be fed into the pipeline (spec.md §3 invariants 1, 2, 5).
func ValidateNoteShape(n Note) error {
	if !n.HasNotebookReference() {
		return &ShapeError{Kind: "note", Field: "notebookGuid|notebookLocalId"}
	}
	hasGUID := n.GUID != ""
	for _, r := range n.Resources {
		if hasGUID && r.GUID == "" {
			return &ShapeError{Kind: "resource", Field: "guid"}
		}
		if !hasGUID && r.GUID != "" {
			return &ShapeError{Kind: "resource", Field: "guid (unexpected on conflicting copy)"}
		}
	}
	return nil
}

// ValidateContainerShape checks the invariants shared by notebooks, tags,
// and saved searches: a non-empty local id, and (when being matched by
// name, per the pipeline's find-by-name probe) a non-empty name.
func ValidateContainerShape(kind string, c ContainerBase, requireName bool) error {
	if c.LocalID == "" {
		return &ShapeError{Kind: kind, Field: "localId"}
	}
	if requireName && c.Name == "" {
		return &ShapeError{Kind: kind, Field: "name"}
	}
	return nil
}

// Validate runs the struct-tag validator over v, wrapping any failure in an
// error identifying the offending field the way model.ShapeError does for
// the hand-rolled checks above. Used for the ambient config/request shapes
// (e.g. InkNoteImagesStoragePath) that carry validator tags.
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
