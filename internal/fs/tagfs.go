package fs

import (
	"context"
	"fmt"
	"os"
	"time"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"tagfs/internal/logging"
)

var (
	vfsLogger = logging.GetLogger().WithPrefix("vfs")
)

// Options holds mount settings.
type Options struct {
	FSName     string
	AllowOther bool
	UID        uint32 // Owner reported for every node
	GID        uint32
}

// TagFS is the FUSE filesystem. It holds no state of its own: every
// callback is answered by the resolver.
type TagFS struct {
	resolver Resolver
	opts     Options
}

// New creates a filesystem answering through resolver.
func New(resolver Resolver, opts Options) *TagFS {
	if opts.FSName == "" {
		opts.FSName = "tagfs"
	}
	return &TagFS{resolver: resolver, opts: opts}
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (tfs *TagFS) Root() (fusefs.Node, error) {
	vfsLogger.Trace("Getting root directory node")
	return &Dir{
		fs:   tfs,
		path: NewMountPath("/"),
	}, nil
}

func waitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

func (tfs *TagFS) mountOptions() []fuse.MountOption {
	opts := []fuse.MountOption{
		fuse.FSName(tfs.opts.FSName),
		fuse.Subtype("tagfs"),
		fuse.ReadOnly(),
		fuse.AsyncRead(),
	}
	if tfs.opts.AllowOther {
		opts = append(opts, fuse.AllowOther())
	}
	return opts
}

// Serve mounts the filesystem at mountPoint and serves requests until ctx
// is cancelled or the kernel unmounts it.
func (tfs *TagFS) Serve(ctx context.Context, mountPoint string) error {
	vfsLogger.Info("Mounting tag filesystem at %s", mountPoint)
	vfsLogger.Debug("UID: %d, GID: %d, allow_other: %v", tfs.opts.UID, tfs.opts.GID, tfs.opts.AllowOther)

	c, err := fuse.Mount(mountPoint, tfs.mountOptions()...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	defer c.Close()

	served := make(chan error, 1)
	go func() {
		served <- fusefs.Serve(c, tfs)
	}()

	if err := waitForMount(mountPoint); err != nil {
		_ = fuse.Unmount(mountPoint)
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}
	vfsLogger.Info("Filesystem mounted successfully")

	select {
	case err := <-served:
		if err != nil {
			return fmt.Errorf("FUSE server error: %w", err)
		}
		vfsLogger.Info("Filesystem unmounted externally")
		return nil
	case <-ctx.Done():
	}

	if err := tfs.Unmount(mountPoint); err != nil {
		return err
	}
	if err := <-served; err != nil {
		return fmt.Errorf("FUSE server error: %w", err)
	}
	return nil
}

// Unmount cleanly unmounts the filesystem.
func (tfs *TagFS) Unmount(mountPoint string) error {
	vfsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if err := fuse.Unmount(mountPoint); err != nil {
		vfsLogger.Error("Unmount failed: %v", err)
		return fmt.Errorf("unmount %s: %w", mountPoint, err)
	}
	vfsLogger.Info("Unmount completed successfully")
	return nil
}
