package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"tagfs/internal/apperr"
)

// ValidTagName reports whether name can be used as a tag, i.e. as a
// directory name in the mounted tree.
func ValidTagName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

// validFileName reports whether name can be a file's entry name.
func validFileName(name string) bool {
	return name != "" && !strings.Contains(name, "/")
}

// AddFile registers a file under its entry name and physical location and
// returns its id. A location can be registered only once.
func (db *DB) AddFile(ctx context.Context, name, location string) (int64, error) {
	if !validFileName(name) {
		return 0, fmt.Errorf("index: add file: invalid name %q: %w", name, apperr.ErrInvalidPath)
	}

	res, err := db.conn.ExecContext(ctx, `INSERT INTO files (file_name, file_location) VALUES (?, ?)`, name, location)
	if err != nil {
		if isConstraint(err) {
			return 0, fmt.Errorf("index: add file %s: %w", location, apperr.ErrAlreadyExists)
		}
		return 0, unavailable("add file", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, unavailable("add file", err)
	}
	indexLogger.Debug("Added file %d: %q -> %s", id, name, location)
	return id, nil
}

// FileByLocation looks a file up by its physical location.
func (db *DB) FileByLocation(ctx context.Context, location string) (File, error) {
	f := File{Location: location}
	err := db.conn.QueryRowContext(ctx,
		`SELECT file_id, file_name FROM files WHERE file_location = ?`, location).Scan(&f.ID, &f.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return File{}, fmt.Errorf("index: file at %s: %w", location, apperr.ErrNotFound)
		}
		return File{}, unavailable("file by location", err)
	}
	return f, nil
}

// TagID returns the id of the named tag.
func (db *DB) TagID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := db.conn.QueryRowContext(ctx, `SELECT tag_id FROM tags WHERE tag_name = ?`, name).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("index: tag %q: %w", name, apperr.ErrNotFound)
		}
		return 0, unavailable("tag id", err)
	}
	return id, nil
}

// TagFile assigns the named tags to a file, creating tags that do not exist
// yet. Assigning a tag the file already carries is a no-op.
func (db *DB) TagFile(ctx context.Context, fileID int64, names ...string) error {
	for _, name := range names {
		if !ValidTagName(name) {
			return fmt.Errorf("index: tag file: invalid tag name %q: %w", name, apperr.ErrInvalidPath)
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := requireFile(ctx, tx, fileID); err != nil {
		return err
	}

	for _, name := range names {
		tagID, err := ensureTag(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO file_tags (file_id, tag_id) VALUES (?, ?)`, fileID, tagID); err != nil {
			return unavailable("assign tag", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	indexLogger.Debug("Tagged file %d with %v", fileID, names)
	return nil
}

// UntagFile removes the named tags from a file. Tags left without any
// file are deleted.
func (db *DB) UntagFile(ctx context.Context, fileID int64, names ...string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := requireFile(ctx, tx, fileID); err != nil {
		return err
	}

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM file_tags
			WHERE file_id = ? AND tag_id IN (SELECT tag_id FROM tags WHERE tag_name = ?)
		`, fileID, name); err != nil {
			return unavailable("remove tag", err)
		}
	}
	if err := pruneTags(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	indexLogger.Debug("Untagged file %d from %v", fileID, names)
	return nil
}

// RemoveFile deletes a file and its assignments. Tags left without any file
// are deleted.
func (db *DB) RemoveFile(ctx context.Context, fileID int64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_tags WHERE file_id = ?`, fileID); err != nil {
		return unavailable("remove assignments", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE file_id = ?`, fileID)
	if err != nil {
		return unavailable("remove file", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("index: remove file %d: %w", fileID, apperr.ErrNotFound)
	}
	if err := pruneTags(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	indexLogger.Debug("Removed file %d", fileID)
	return nil
}

// ListTags returns every tag ordered by name.
func (db *DB) ListTags(ctx context.Context) ([]Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT tag_id, tag_name FROM tags ORDER BY tag_name`)
	if err != nil {
		return nil, unavailable("list tags", err)
	}
	return scanTags(rows, "list tags")
}

// ListFiles returns every registered file ordered by id.
func (db *DB) ListFiles(ctx context.Context) ([]File, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT file_id, file_name, file_location FROM files ORDER BY file_id`)
	if err != nil {
		return nil, unavailable("list files", err)
	}
	defer rows.Close()

	out := []File{}
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Name, &f.Location); err != nil {
			return nil, unavailable("list files", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list files", err)
	}
	return out, nil
}

// ensureTag resolves a tag by name, creating it if missing.
func ensureTag(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var tagID int64
	err := tx.QueryRowContext(ctx, `SELECT tag_id FROM tags WHERE tag_name = ?`, name).Scan(&tagID)
	if err == nil {
		return tagID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, unavailable("select tag", err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO tags (tag_name) VALUES (?)`, name)
	if err != nil {
		return 0, unavailable("insert tag", err)
	}
	tagID, err = res.LastInsertId()
	if err != nil {
		return 0, unavailable("insert tag", err)
	}
	return tagID, nil
}

func requireFile(ctx context.Context, tx *sql.Tx, fileID int64) error {
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE file_id = ?`, fileID).Scan(&count); err != nil {
		return unavailable("select file", err)
	}
	if count == 0 {
		return fmt.Errorf("index: file %d: %w", fileID, apperr.ErrNotFound)
	}
	return nil
}

// pruneTags deletes tags no file references any more.
func pruneTags(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tags WHERE tag_id NOT IN (SELECT DISTINCT tag_id FROM file_tags)`); err != nil {
		return unavailable("prune tags", err)
	}
	return nil
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
