// Package apperr holds the error taxonomy shared by the resolution engine,
// the index backend and the FUSE host.
package apperr

import "errors"

var (
	// ErrInvalidPath means a path segment is not a known tag, or a tag
	// repeats within the path.
	ErrInvalidPath = errors.New("invalid tag path")

	// ErrNotFound means a leaf does not name a file in its directory, or an
	// identifier lookup failed after the identifier was assumed valid.
	ErrNotFound = errors.New("not found")

	// ErrBackendUnavailable means a backend query failed to execute.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrAlreadyExists means a physical location is already registered.
	ErrAlreadyExists = errors.New("already exists")
)
