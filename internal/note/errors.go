package note

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned when a mutation or save is attempted on a
	// stub document.
	ErrNotLoaded = errors.New("document is a stub, not loaded")

	// ErrNotFound is returned when a referenced document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyLocked is returned by TryLock when another user holds the
	// advisory lock.
	ErrAlreadyLocked = errors.New("document already locked")

	// ErrConflict is surfaced when a save is rejected because the supplied
	// revision token is stale. The conflict is reported, never resolved.
	ErrConflict = errors.New("revision conflict")

	// ErrInvalidKind is returned when a document is created with a kind
	// outside the recognized set.
	ErrInvalidKind = errors.New("invalid document kind")

	// ErrInvalidEditorMode is returned when an unrecognized editor mode is
	// assigned to a note.
	ErrInvalidEditorMode = errors.New("invalid editor mode")

	// ErrSelfReference is returned when a move would make a document its own
	// parent.
	ErrSelfReference = errors.New("document cannot be its own parent")
)

// ConflictError wraps ErrConflict with the identity of the losing write.
type ConflictError struct {
	ID  string
	Rev string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict on %s (rev %q)", e.ID, e.Rev)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
