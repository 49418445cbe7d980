package index

import (
	"context"
	"fmt"

	"tagfs/internal/apperr"
	"tagfs/internal/state"
)

// Snapshot dumps every file with its tags.
func (db *DB) Snapshot(ctx context.Context) (*state.Snapshot, error) {
	files, err := db.ListFiles(ctx)
	if err != nil {
		return nil, err
	}

	snap := &state.Snapshot{Version: state.CurrentVersion, Files: make([]state.FileEntry, 0, len(files))}
	for _, f := range files {
		tags, err := db.TagsOfFile(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(tags))
		for i, tag := range tags {
			names[i] = tag.Name
		}
		snap.Files = append(snap.Files, state.FileEntry{Name: f.Name, Location: f.Location, Tags: names})
	}
	return snap, nil
}

// Restore merges snap into the database. Files are matched by location:
// unknown locations are added, known ones are renamed to the snapshot's
// entry name, and the snapshot's tags are added to whatever the file already
// carries. The whole restore runs in one transaction.
func (db *DB) Restore(ctx context.Context, snap *state.Snapshot) (int, error) {
	for _, entry := range snap.Files {
		if !validFileName(entry.Name) {
			return 0, fmt.Errorf("index: restore %s: invalid name %q: %w", entry.Location, entry.Name, apperr.ErrInvalidPath)
		}
		for _, name := range entry.Tags {
			if !ValidTagName(name) {
				return 0, fmt.Errorf("index: restore %s: invalid tag name %q: %w", entry.Location, name, apperr.ErrInvalidPath)
			}
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, entry := range snap.Files {
		var fileID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO files (file_name, file_location) VALUES (?, ?)
			ON CONFLICT(file_location) DO UPDATE SET file_name = excluded.file_name
			RETURNING file_id
		`, entry.Name, entry.Location).Scan(&fileID)
		if err != nil {
			return 0, unavailable("restore file", err)
		}

		for _, name := range entry.Tags {
			tagID, err := ensureTag(ctx, tx, name)
			if err != nil {
				return 0, err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)`, fileID, tagID); err != nil {
				return 0, unavailable("restore assignment", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, unavailable("commit", err)
	}
	indexLogger.Info("Restored %d files from snapshot", len(snap.Files))
	return len(snap.Files), nil
}
