package fs

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"tagfs/internal/logging"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// TagsXattr names the extended attribute listing a file's tags.
const TagsXattr = "user.tagfs.tags"

// File is a tagged file. Attributes and content come from its physical
// location.
type File struct {
	fs       *TagFS
	path     MountPath
	fileID   int64
	location string
}

// Attr implements the Node interface, returning the physical file's
// attributes with write permission removed.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	fileLogger.Trace("Getting attributes for file: %q (location: %q)", f.path.String(), f.location)

	info, err := os.Stat(f.location)
	if err != nil {
		if os.IsNotExist(err) {
			fileLogger.Warn("Physical file missing for %d: %q", f.fileID, f.location)
		}
		return ToFuseError(OpGetattr, f.path.String(), err)
	}

	a.Mode = info.Mode().Perm() &^ 0222
	a.Size = safeInt64ToUint64(info.Size())
	a.Mtime = info.ModTime()
	a.Atime = info.ModTime() // We don't track access time
	a.Ctime = info.ModTime() // We don't track creation time
	a.Uid = f.fs.opts.UID
	a.Gid = f.fs.opts.GID
	a.BlockSize = 4096
	a.Blocks = blocks(info.Size())
	return nil
}

// Open implements the NodeOpener interface. The path is resolved again so
// that the handle reads whatever file the path names right now.
func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLogger.Debug("Opening file %q with flags %v", f.path.String(), req.Flags)

	if !req.Flags.IsReadOnly() {
		fileLogger.Warn("Attempted write access to read-only file: %q", f.path.String())
		return nil, ToFuseError(OpOpen, f.path.String(), ErrReadOnly)
	}

	resolved, err := f.fs.resolver.ResolveFile(ctx, f.path.String())
	if err != nil {
		return nil, ToFuseError(OpOpen, f.path.String(), err)
	}

	file, err := os.Open(resolved.Location)
	if err != nil {
		return nil, ToFuseError(OpOpen, f.path.String(), err)
	}

	resp.Flags |= fuse.OpenDirectIO

	fileLogger.Debug("Opened file %q -> %q", f.path.String(), resolved.Location)
	return &FileHandle{
		file: file,
		path: f.path.String(),
	}, nil
}

// Getxattr implements the NodeGetxattrer interface. The file's tags are
// exposed as a comma separated list under TagsXattr.
func (f *File) Getxattr(ctx context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	fileLogger.Debug("Getting xattr %q for file %q", req.Name, f.path.String())
	if req.Name != TagsXattr {
		return fuse.ErrNoXattr
	}

	tags, err := f.fs.resolver.FileTags(ctx, f.fileID)
	if err != nil {
		return ToFuseError(OpGetxattr, f.path.String(), err)
	}
	resp.Xattr = []byte(strings.Join(tags, ","))
	return nil
}

// Listxattr implements the NodeListxattrer interface.
func (f *File) Listxattr(_ context.Context, _ *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	resp.Append(TagsXattr)
	return nil
}

// FileHandle represents an open file handle.
// It manages access to an open file descriptor on the physical file.
type FileHandle struct {
	file *os.File
	path string // For logging purposes
	mu   sync.RWMutex
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fh.mu.RLock()
	defer fh.mu.RUnlock()

	fileLogger.Trace("Reading %d bytes from file %q at offset %d", req.Size, fh.path, req.Offset)

	resp.Data = make([]byte, req.Size)
	n, err := fh.file.ReadAt(resp.Data, req.Offset)
	if err != nil && err != io.EOF {
		return ToFuseError(OpRead, fh.path, err)
	}

	resp.Data = resp.Data[:n]
	return nil
}

// Release implements the HandleReleaser interface, closing the file handle.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Debug("Closing file %q", fh.path)
	return fh.file.Close()
}
