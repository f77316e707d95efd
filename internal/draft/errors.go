package draft

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("draft not found")

	// ErrConflict means the caller lost a concurrency race (stale version or
	// exhausted lock wait). Safe to retry; the losing attempt wrote nothing.
	ErrConflict = errors.New("draft modified concurrently")

	// ErrNotPermitted covers author-only and reviewer-only guards.
	ErrNotPermitted = errors.New("caller not permitted")
)

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// DuplicateContentError reports a live draft in the same team with the same
// content fingerprint.
type DuplicateContentError struct {
	Hash          string
	ConflictingID string
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("duplicate content: hash %s already held by draft %s", e.Hash, e.ConflictingID)
}

// NotEditableError rejects content edits on a draft that already left the
// draft state; submitted content is frozen for review and scheduling.
type NotEditableError struct {
	Status Status
}

func (e *NotEditableError) Error() string {
	return fmt.Sprintf("draft is read-only after submission (status %s)", e.Status)
}

// InvalidTransitionError names both ends of an illegal state change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}
