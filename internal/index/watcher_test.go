package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherRemovesDeletedFile(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	location := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(location, []byte("jpeg"), 0644))
	id := addTagged(t, db, "photo.jpg", location, "red")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	w := NewWatcher(db, &mu, 50*time.Millisecond)
	w.grace = 50 * time.Millisecond
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.Remove(location))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		_, err := db.FileName(context.Background(), id)
		return err != nil
	}, 5*time.Second, 20*time.Millisecond, "file should be removed from the index")

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherRescanPrunesMissingFile(t *testing.T) {
	db := testDB(t)
	addTagged(t, db, "gone.txt", filepath.Join(t.TempDir(), "gone.txt"), "red")

	var mu sync.Mutex
	w := NewWatcher(db, &mu, time.Hour)
	w.grace = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		files, err := db.ListFiles(context.Background())
		return err == nil && len(files) == 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherKeepsFileReplacedInPlace(t *testing.T) {
	db := testDB(t)
	dir := t.TempDir()
	location := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(location, []byte("v1"), 0644))
	id := addTagged(t, db, "notes.txt", location, "red", "work")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	w := NewWatcher(db, &mu, 50*time.Millisecond)
	w.grace = 100 * time.Millisecond
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Save by rename-and-recreate.
	require.NoError(t, os.Rename(location, location+"~"))
	require.NoError(t, os.WriteFile(location, []byte("v2"), 0644))
	require.NoError(t, os.Remove(location+"~"))

	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	name, nameErr := db.FileName(context.Background(), id)
	tags, tagsErr := db.TagsOfFile(context.Background(), id)
	mu.Unlock()
	require.NoError(t, nameErr)
	require.Equal(t, "notes.txt", name)
	require.NoError(t, tagsErr)
	require.Len(t, tags, 2)

	require.NoError(t, os.Remove(location))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		_, err := db.FileName(context.Background(), id)
		return err != nil
	}, 5*time.Second, 20*time.Millisecond, "watcher should still drop a file that stays gone")

	cancel()
	require.NoError(t, <-done)
}
