package fs

import (
	"context"

	fusefs "bazil.org/fuse/fs"

	"tagfs/internal/tagview"
)

// Resolver answers path queries for the mounted tree.
type Resolver interface {
	ResolveAttributes(ctx context.Context, path string) (tagview.Attributes, error)
	ListDirectory(ctx context.Context, path string) ([]tagview.Entry, error)
	ResolveFile(ctx context.Context, path string) (tagview.Resolved, error)
	FileTags(ctx context.Context, fileID int64) ([]string, error)
}

// Directory represents a tag directory in the mounted tree
type Directory interface {
	fusefs.Node
	fusefs.NodeStringLookuper
	fusefs.HandleReadDirAller
}

// FileInterface represents a tagged file
type FileInterface interface {
	fusefs.Node
	fusefs.NodeOpener
	fusefs.NodeGetxattrer
	fusefs.NodeListxattrer
}

// FileHandleInterface represents an open file handle
type FileHandleInterface interface {
	fusefs.Handle
	fusefs.HandleReader
	fusefs.HandleReleaser
}

var (
	_ fusefs.FS           = (*TagFS)(nil)
	_ Directory           = (*Dir)(nil)
	_ FileInterface       = (*File)(nil)
	_ FileHandleInterface = (*FileHandle)(nil)
	_ Resolver            = (*tagview.Engine)(nil)
)
