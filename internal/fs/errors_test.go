package fs

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"

	"tagfs/internal/apperr"
)

func TestErrno(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect fuse.Errno
	}{
		{name: "invalid path", err: fmt.Errorf("unknown tag: %w", apperr.ErrInvalidPath), expect: fuse.Errno(unix.ENOENT)},
		{name: "not found", err: apperr.ErrNotFound, expect: fuse.Errno(unix.ENOENT)},
		{name: "backend", err: fmt.Errorf("q: %w: %w", apperr.ErrBackendUnavailable, errors.New("disk")), expect: fuse.Errno(unix.EIO)},
		{name: "read only", err: ErrReadOnly, expect: fuse.Errno(unix.EROFS)},
		{name: "missing physical file", err: &os.PathError{Op: "stat", Path: "/x", Err: os.ErrNotExist}, expect: fuse.Errno(unix.ENOENT)},
		{name: "unknown", err: errors.New("boom"), expect: fuse.Errno(unix.EIO)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Errno(tt.err); got != tt.expect {
				t.Errorf("Expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestToFuseError(t *testing.T) {
	if ToFuseError(OpLookup, "/", nil) != nil {
		t.Error("Expected nil for nil error")
	}

	err := ToFuseError(OpLookup, "/red/zebra", apperr.ErrInvalidPath)
	if err != fuse.Errno(unix.ENOENT) {
		t.Errorf("Expected ENOENT, got %v", err)
	}

	wrapped := &Error{Op: OpRead, Path: "/red/a", Err: apperr.ErrNotFound}
	if !errors.Is(wrapped, apperr.ErrNotFound) {
		t.Error("Expected Error to unwrap to its cause")
	}
	if wrapped.Error() != "operation read on /red/a failed: not found" {
		t.Errorf("Unexpected message: %q", wrapped.Error())
	}
}
