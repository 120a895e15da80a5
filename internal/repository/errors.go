package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by reads targeting a missing id. Update and
	// Delete deliberately do not return it; a missing row is a silent no-op
	// there, and callers wanting a 404 check existence first with Get.
	ErrNotFound = errors.New("not found")

	// ErrVersionMismatch is returned when an update carries a version that
	// no longer matches the stored row. The caller must re-fetch and retry.
	ErrVersionMismatch = errors.New("version mismatch")
)

// TitleConflictError reports a title-uniqueness violation. Uniqueness is
// case-insensitive and evaluated against current state immediately before
// the write, with the unique index as the backstop.
type TitleConflictError struct {
	Title string
}

func (e *TitleConflictError) Error() string {
	return fmt.Sprintf("blog post with such title already exists: %s", e.Title)
}
