package fs

import (
	"context"
	"os"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"tagfs/internal/logging"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is a tag directory. Its content is recomputed on every call.
type Dir struct {
	fs   *TagFS
	path MountPath
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path.String())
	a.Mode = os.ModeDir | 0555
	a.Uid = d.fs.opts.UID
	a.Gid = d.fs.opts.GID
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	childPath := d.path.Join(name)
	dirLogger.Debug("Looking up %q in directory %q", name, d.path.String())

	attrs, err := d.fs.resolver.ResolveAttributes(ctx, childPath.String())
	if err != nil {
		return nil, ToFuseError(OpLookup, childPath.String(), err)
	}

	if attrs.IsDir {
		return &Dir{fs: d.fs, path: childPath}, nil
	}

	dirLogger.Trace("Found file %d: %q -> %q", attrs.FileID, childPath.String(), attrs.Location)
	return &File{
		fs:       d.fs,
		path:     childPath,
		fileID:   attrs.FileID,
		location: attrs.Location,
	}, nil
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.path.String())

	listing, err := d.fs.resolver.ListDirectory(ctx, d.path.String())
	if err != nil {
		return nil, ToFuseError(OpReadDir, d.path.String(), err)
	}

	entries := make([]fuse.Dirent, 0, len(listing))
	for _, entry := range listing {
		typ := fuse.DT_File
		if entry.IsDir {
			typ = fuse.DT_Dir
		}
		entries = append(entries, fuse.Dirent{Name: entry.Name, Type: typ})
	}

	dirLogger.Debug("Directory %q contains %d entries", d.path.String(), len(entries))
	return entries, nil
}
