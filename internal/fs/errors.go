// Package fs serves the tag view over FUSE.
//
// This file contains error types and error handling utilities.
package fs

import (
	"errors"
	"fmt"
	"os"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"

	"tagfs/internal/apperr"
	"tagfs/internal/logging"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")

	// ErrReadOnly indicates attempt to open a file for writing
	ErrReadOnly = errors.New("filesystem is read-only")
)

// Error wraps filesystem errors with the operation and the affected path.
type Error struct {
	Op   string // Operation that failed (e.g., "lookup", "readdir")
	Path string // Affected path
	Err  error  // Underlying error
}

// Error implements the error interface, providing a formatted error message
func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *Error) Unwrap() error {
	return e.Err
}

// Errno maps err to the single status reported to the kernel. Invalid
// paths and unmatched leaves both read as "does not exist"; backend
// failures and anything unrecognised are I/O errors.
func Errno(err error) fuse.Errno {
	switch {
	case errors.Is(err, apperr.ErrInvalidPath), errors.Is(err, apperr.ErrNotFound):
		return fuse.Errno(unix.ENOENT)
	case errors.Is(err, apperr.ErrBackendUnavailable):
		return fuse.Errno(unix.EIO)
	case errors.Is(err, ErrReadOnly):
		return fuse.Errno(unix.EROFS)
	case errors.Is(err, os.ErrNotExist):
		return fuse.Errno(unix.ENOENT)
	case errors.Is(err, os.ErrPermission):
		return fuse.Errno(unix.EACCES)
	default:
		return fuse.Errno(unix.EIO)
	}
}

// ToFuseError logs err with its context and converts it to a FUSE errno.
func ToFuseError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	fsErr := &Error{Op: op, Path: path, Err: err}
	errno := Errno(err)
	if errno == fuse.Errno(unix.EIO) {
		errLogger.Error("%v", fsErr)
	} else {
		errLogger.Debug("%v", fsErr)
	}
	return errno
}

// Common operation names for consistent logging and error reporting
const (
	OpLookup  = "lookup"  // Looking up a path
	OpReadDir = "readdir" // Reading directory contents
	OpOpen    = "open"    // Opening a file
	OpRead    = "read"    // Reading from a file
	OpGetattr = "getattr" // Getting file attributes

	OpGetxattr = "getxattr" // Reading an extended attribute
)
