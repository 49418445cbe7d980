package fs

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"golang.org/x/sys/unix"

	"tagfs/internal/index"
	"tagfs/internal/tagview"
)

// setupTestFS builds a filesystem over a temporary database. Files are
// created in sourceDir and tagged:
//
//	photo.jpg  red square
//	notes.txt  red
//	logo.png   square
func setupTestFS(t *testing.T) (*TagFS, *index.DB, string) {
	t.Helper()
	sourceDir := t.TempDir()

	db, err := index.Open(filepath.Join(t.TempDir(), "tagfs.db"))
	if err != nil {
		t.Fatalf("Failed to open index: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	files := []struct {
		name string
		tags []string
	}{
		{name: "photo.jpg", tags: []string{"red", "square"}},
		{name: "notes.txt", tags: []string{"red"}},
		{name: "logo.png", tags: []string{"square"}},
	}
	for _, f := range files {
		location := filepath.Join(sourceDir, f.name)
		if err := os.WriteFile(location, []byte("content of "+f.name), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		id, err := db.AddFile(ctx, f.name, location)
		if err != nil {
			t.Fatalf("Failed to add file: %v", err)
		}
		if err := db.TagFile(ctx, id, f.tags...); err != nil {
			t.Fatalf("Failed to tag file: %v", err)
		}
	}

	tfs := New(tagview.NewEngine(db), Options{UID: 1000, GID: 1000})
	return tfs, db, sourceDir
}

func rootDir(t *testing.T, tfs *TagFS) *Dir {
	t.Helper()
	root, err := tfs.Root()
	if err != nil {
		t.Fatalf("Failed to get root: %v", err)
	}
	return root.(*Dir)
}

func direntNames(entries []fuse.Dirent) map[string]fuse.DirentType {
	out := make(map[string]fuse.DirentType, len(entries))
	for _, e := range entries {
		out[e.Name] = e.Type
	}
	return out
}

func TestDirOperations(t *testing.T) {
	tfs, _, _ := setupTestFS(t)
	ctx := context.Background()
	root := rootDir(t, tfs)

	t.Run("RootAttributes", func(t *testing.T) {
		attr := &fuse.Attr{}
		if err := root.Attr(ctx, attr); err != nil {
			t.Fatalf("Failed to get root attributes: %v", err)
		}
		if !attr.Mode.IsDir() {
			t.Error("Root should be a directory")
		}
		if attr.Uid != 1000 || attr.Gid != 1000 {
			t.Errorf("Expected owner 1000:1000, got %d:%d", attr.Uid, attr.Gid)
		}
	})

	t.Run("RootListing", func(t *testing.T) {
		entries, err := root.ReadDirAll(ctx)
		if err != nil {
			t.Fatalf("Failed to read root: %v", err)
		}
		names := direntNames(entries)
		expected := map[string]fuse.DirentType{
			".":         fuse.DT_Dir,
			"..":        fuse.DT_Dir,
			"photo.jpg": fuse.DT_File,
			"notes.txt": fuse.DT_File,
			"logo.png":  fuse.DT_File,
			"red":       fuse.DT_Dir,
			"square":    fuse.DT_Dir,
		}
		if len(names) != len(expected) {
			t.Errorf("Expected %d entries, got %v", len(expected), names)
		}
		for name, typ := range expected {
			if names[name] != typ {
				t.Errorf("Expected %q with type %v, got %v", name, typ, names[name])
			}
		}
	})

	t.Run("NarrowedListing", func(t *testing.T) {
		node, err := root.Lookup(ctx, "red")
		if err != nil {
			t.Fatalf("Failed to lookup red: %v", err)
		}
		red, ok := node.(*Dir)
		if !ok {
			t.Fatalf("Expected *Dir for red, got %T", node)
		}

		entries, err := red.ReadDirAll(ctx)
		if err != nil {
			t.Fatalf("Failed to read /red: %v", err)
		}
		var names []string
		for _, e := range entries {
			names = append(names, e.Name)
		}
		sort.Strings(names)
		expected := []string{".", "..", "notes.txt", "photo.jpg", "square"}
		if len(names) != len(expected) {
			t.Fatalf("Expected %v, got %v", expected, names)
		}
		for i := range expected {
			if names[i] != expected[i] {
				t.Errorf("Expected %v, got %v", expected, names)
				break
			}
		}
	})

	t.Run("UnknownTag", func(t *testing.T) {
		_, err := root.Lookup(ctx, "zebra")
		if err != fuse.Errno(unix.ENOENT) {
			t.Errorf("Expected ENOENT, got %v", err)
		}
	})

	t.Run("DuplicateTag", func(t *testing.T) {
		red := &Dir{fs: tfs, path: NewMountPath("/red")}
		_, err := red.Lookup(ctx, "red")
		if err != fuse.Errno(unix.ENOENT) {
			t.Errorf("Expected ENOENT, got %v", err)
		}

		dup := &Dir{fs: tfs, path: NewMountPath("/red/red")}
		if _, err := dup.ReadDirAll(ctx); err != fuse.Errno(unix.ENOENT) {
			t.Errorf("Expected ENOENT listing /red/red, got %v", err)
		}
	})

	t.Run("FileOutsideDirectory", func(t *testing.T) {
		red := &Dir{fs: tfs, path: NewMountPath("/red")}
		if _, err := red.Lookup(ctx, "logo.png"); err != fuse.Errno(unix.ENOENT) {
			t.Errorf("Expected ENOENT for logo.png under /red, got %v", err)
		}
	})
}

func TestBackendFailureIsEIO(t *testing.T) {
	tfs, db, _ := setupTestFS(t)
	ctx := context.Background()
	db.Close()

	_, err := rootDir(t, tfs).ReadDirAll(ctx)
	if err != fuse.Errno(unix.EIO) {
		t.Errorf("Expected EIO after backend failure, got %v", err)
	}
}

func lookupFile(t *testing.T, tfs *TagFS, dirPath, name string) *File {
	t.Helper()
	dir := &Dir{fs: tfs, path: NewMountPath(dirPath)}
	node, err := dir.Lookup(context.Background(), name)
	if err != nil {
		t.Fatalf("Failed to lookup %s/%s: %v", dirPath, name, err)
	}
	file, ok := node.(*File)
	if !ok {
		t.Fatalf("Expected *File, got %T", node)
	}
	return file
}

func TestFileOperations(t *testing.T) {
	tfs, _, sourceDir := setupTestFS(t)
	ctx := context.Background()

	t.Run("FileAttributes", func(t *testing.T) {
		file := lookupFile(t, tfs, "/red/square", "photo.jpg")
		if file.location != filepath.Join(sourceDir, "photo.jpg") {
			t.Errorf("Unexpected location %q", file.location)
		}

		attr := &fuse.Attr{}
		if err := file.Attr(ctx, attr); err != nil {
			t.Fatalf("Failed to get file attributes: %v", err)
		}
		if attr.Size != uint64(len("content of photo.jpg")) {
			t.Errorf("Expected size %d, got %d", len("content of photo.jpg"), attr.Size)
		}
		if attr.Mode&0222 != 0 {
			t.Errorf("Expected no write bits, got %v", attr.Mode)
		}
	})

	t.Run("ReadFile", func(t *testing.T) {
		file := lookupFile(t, tfs, "/red", "photo.jpg")

		resp := &fuse.OpenResponse{}
		handle, err := file.Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadOnly}, resp)
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}
		if resp.Flags&fuse.OpenDirectIO == 0 {
			t.Error("Expected direct IO")
		}
		fh := handle.(*FileHandle)
		defer fh.Release(ctx, &fuse.ReleaseRequest{})

		readResp := &fuse.ReadResponse{}
		if err := fh.Read(ctx, &fuse.ReadRequest{Offset: 11, Size: 64}, readResp); err != nil {
			t.Fatalf("Failed to read: %v", err)
		}
		if string(readResp.Data) != "photo.jpg" {
			t.Errorf("Expected %q, got %q", "photo.jpg", readResp.Data)
		}
	})

	t.Run("WriteRejected", func(t *testing.T) {
		file := lookupFile(t, tfs, "/", "notes.txt")
		_, err := file.Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadWrite}, &fuse.OpenResponse{})
		if err != fuse.Errno(unix.EROFS) {
			t.Errorf("Expected EROFS, got %v", err)
		}
	})

	t.Run("PhysicalFileMissing", func(t *testing.T) {
		file := lookupFile(t, tfs, "/square", "logo.png")
		if err := os.Remove(filepath.Join(sourceDir, "logo.png")); err != nil {
			t.Fatalf("Failed to remove file: %v", err)
		}
		if err := file.Attr(ctx, &fuse.Attr{}); err != fuse.Errno(unix.ENOENT) {
			t.Errorf("Expected ENOENT, got %v", err)
		}
	})
}

func TestTagsXattr(t *testing.T) {
	tfs, _, _ := setupTestFS(t)
	ctx := context.Background()
	file := lookupFile(t, tfs, "/square", "photo.jpg")

	resp := &fuse.GetxattrResponse{}
	if err := file.Getxattr(ctx, &fuse.GetxattrRequest{Name: TagsXattr}, resp); err != nil {
		t.Fatalf("Failed to get xattr: %v", err)
	}
	if string(resp.Xattr) != "red,square" {
		t.Errorf("Expected %q, got %q", "red,square", resp.Xattr)
	}

	if err := file.Getxattr(ctx, &fuse.GetxattrRequest{Name: "user.other"}, &fuse.GetxattrResponse{}); err != fuse.ErrNoXattr {
		t.Errorf("Expected ErrNoXattr, got %v", err)
	}

	list := &fuse.ListxattrResponse{}
	if err := file.Listxattr(ctx, &fuse.ListxattrRequest{}, list); err != nil {
		t.Fatalf("Failed to list xattrs: %v", err)
	}
	if string(list.Xattr) != TagsXattr+"\x00" {
		t.Errorf("Unexpected xattr list %q", list.Xattr)
	}
}

func TestRootImplementsFS(t *testing.T) {
	tfs, _, _ := setupTestFS(t)
	var fsys fusefs.FS = tfs
	if _, err := fsys.Root(); err != nil {
		t.Fatalf("Root failed: %v", err)
	}
}
