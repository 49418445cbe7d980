package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tagfs/internal/apperr"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Reader runs the read queries, either directly on the connection pool or
// inside a read transaction.
type Reader struct {
	q querier
}

// ReadTx runs fn with a Reader bound to one transaction, so every query fn
// makes sees the same committed state, whatever other connections or
// processes write meanwhile.
func (db *DB) ReadTx(ctx context.Context, fn func(r *Reader) error) error {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return unavailable("begin read tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only, nothing to undo

	if err := fn(&Reader{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit read tx", err)
	}
	return nil
}

// TagExists reports whether a tag with the given name is known.
func (r *Reader) TagExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags WHERE tag_name = ?`, name).Scan(&count)
	if err != nil {
		return false, unavailable("tag exists", err)
	}
	return count > 0, nil
}

// FilesWithTag returns the ids of files carrying the named tag, ascending.
// An unknown or unused tag yields an empty slice.
func (r *Reader) FilesWithTag(ctx context.Context, name string) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT ft.file_id
		FROM file_tags ft
		JOIN tags t ON t.tag_id = ft.tag_id
		WHERE t.tag_name = ?
		ORDER BY ft.file_id
	`, name)
	if err != nil {
		return nil, unavailable("files with tag", err)
	}
	return scanIDs(rows, "files with tag")
}

// AllTaggedFiles returns the ids of every file carrying at least one tag,
// ascending.
func (r *Reader) AllTaggedFiles(ctx context.Context) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT file_id FROM file_tags ORDER BY file_id`)
	if err != nil {
		return nil, unavailable("all tagged files", err)
	}
	return scanIDs(rows, "all tagged files")
}

// TagsOnFiles returns the distinct tags carried by any of fileIDs, leaving
// out every tag whose name is in exclude. Results are ordered by tag id.
func (r *Reader) TagsOnFiles(ctx context.Context, fileIDs []int64, exclude []string) ([]Tag, error) {
	if len(fileIDs) == 0 {
		return []Tag{}, nil
	}
	if exclude == nil {
		exclude = []string{}
	}

	idsJSON, err := json.Marshal(fileIDs)
	if err != nil {
		return nil, fmt.Errorf("index: encode file ids: %w", err)
	}
	excludeJSON, err := json.Marshal(exclude)
	if err != nil {
		return nil, fmt.Errorf("index: encode exclusions: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT DISTINCT t.tag_id, t.tag_name
		FROM file_tags ft
		JOIN tags t ON t.tag_id = ft.tag_id
		WHERE ft.file_id IN (SELECT value FROM json_each(?))
		  AND t.tag_name NOT IN (SELECT value FROM json_each(?))
		ORDER BY t.tag_id
	`, string(idsJSON), string(excludeJSON))
	if err != nil {
		return nil, unavailable("tags on files", err)
	}
	return scanTags(rows, "tags on files")
}

// FileName returns the entry name of a file.
func (r *Reader) FileName(ctx context.Context, fileID int64) (string, error) {
	var name string
	err := r.q.QueryRowContext(ctx, `SELECT file_name FROM files WHERE file_id = ?`, fileID).Scan(&name)
	if err != nil {
		return "", lookupError("file name", fileID, err)
	}
	return name, nil
}

// FileLocation returns the absolute physical path of a file.
func (r *Reader) FileLocation(ctx context.Context, fileID int64) (string, error) {
	var location string
	err := r.q.QueryRowContext(ctx, `SELECT file_location FROM files WHERE file_id = ?`, fileID).Scan(&location)
	if err != nil {
		return "", lookupError("file location", fileID, err)
	}
	return location, nil
}

// TagName returns the name of a tag.
func (r *Reader) TagName(ctx context.Context, tagID int64) (string, error) {
	var name string
	err := r.q.QueryRowContext(ctx, `SELECT tag_name FROM tags WHERE tag_id = ?`, tagID).Scan(&name)
	if err != nil {
		return "", lookupError("tag name", tagID, err)
	}
	return name, nil
}

// TagsOfFile returns the tags carried by a file, ordered by name.
func (r *Reader) TagsOfFile(ctx context.Context, fileID int64) ([]Tag, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT t.tag_id, t.tag_name
		FROM file_tags ft
		JOIN tags t ON t.tag_id = ft.tag_id
		WHERE ft.file_id = ?
		ORDER BY t.tag_name
	`, fileID)
	if err != nil {
		return nil, unavailable("tags of file", err)
	}
	return scanTags(rows, "tags of file")
}

func scanIDs(rows *sql.Rows, op string) ([]int64, error) {
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable(op, err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

func scanTags(rows *sql.Rows, op string) ([]Tag, error) {
	defer rows.Close()
	out := []Tag{}
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, unavailable(op, err)
		}
		out = append(out, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

// unavailable marks err as a backend execution failure.
func unavailable(op string, err error) error {
	return fmt.Errorf("index: %s: %w: %w", op, apperr.ErrBackendUnavailable, err)
}

// lookupError maps a missing row to ErrNotFound and anything else to
// ErrBackendUnavailable.
func lookupError(op string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("index: %s %d: %w", op, id, apperr.ErrNotFound)
	}
	return unavailable(op, err)
}
