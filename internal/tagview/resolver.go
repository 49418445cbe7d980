package tagview

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"tagfs/internal/apperr"
	"tagfs/internal/index"
)

// Resolved identifies the physical file behind a leaf path.
type Resolved struct {
	FileID   int64
	Location string
}

// Attributes describe a path: either a tag directory, or a file whose
// remaining attributes come from its physical location.
type Attributes struct {
	IsDir    bool
	FileID   int64
	Location string
}

// findFile looks leaf up among the files of the validated directory parent.
// Among files sharing the name the lowest id wins, matching ListDirectory.
func findFile(ctx context.Context, idx Index, parent TagPath, leaf string) (Resolved, error) {
	if err := validate(ctx, idx, parent); err != nil {
		return Resolved{}, err
	}
	files, err := fileSet(ctx, idx, parent)
	if err != nil {
		return Resolved{}, err
	}

	for _, id := range files {
		name, err := idx.FileName(ctx, id)
		if err != nil {
			return Resolved{}, err
		}
		if name != leaf {
			continue
		}
		location, err := idx.FileLocation(ctx, id)
		if err != nil {
			return Resolved{}, err
		}
		return Resolved{FileID: id, Location: location}, nil
	}
	return Resolved{}, fmt.Errorf("no file %q in %s: %w", leaf, parent, apperr.ErrNotFound)
}

// ResolveFile maps a leaf path to its file. The parent directory's File Set
// is recomputed on every call.
func (e *Engine) ResolveFile(ctx context.Context, path string) (Resolved, error) {
	var res Resolved
	err := e.run(ctx, OpResolveFile, path, func(ctx context.Context, idx Index) error {
		parent, leaf := ParsePath(path).Split()
		if leaf == "" {
			return fmt.Errorf("%s is a directory: %w", path, apperr.ErrNotFound)
		}
		var err error
		res, err = findFile(ctx, idx, parent, leaf)
		return err
	})
	return res, err
}

// ResolveAttributes reports whether path is a directory or a file. The leaf
// is first looked up as a file of the parent directory, then the whole
// path is validated as a tag directory.
func (e *Engine) ResolveAttributes(ctx context.Context, path string) (Attributes, error) {
	var attrs Attributes
	err := e.run(ctx, OpResolveAttributes, path, func(ctx context.Context, idx Index) error {
		tp := ParsePath(path)
		if tp.IsRoot() {
			attrs = Attributes{IsDir: true}
			return nil
		}

		parent, leaf := tp.Split()
		res, err := findFile(ctx, idx, parent, leaf)
		switch {
		case err == nil:
			attrs = Attributes{FileID: res.FileID, Location: res.Location}
			return nil
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}

		if err := validate(ctx, idx, tp); err != nil {
			return err
		}
		attrs = Attributes{IsDir: true}
		return nil
	})
	return attrs, err
}

// MostPopularTag returns the tag carried by the most files in the directory
// at path, ignoring the path's own tags and exclude. Ties go to the lowest
// tag id. It fails with apperr.ErrNotFound when no tag qualifies.
func (e *Engine) MostPopularTag(ctx context.Context, path string, exclude ...string) (index.Tag, error) {
	var top index.Tag
	err := e.run(ctx, OpMostPopularTag, path, func(ctx context.Context, idx Index) error {
		tp := ParsePath(path)
		if err := validate(ctx, idx, tp); err != nil {
			return err
		}
		files, err := fileSet(ctx, idx, tp)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no files in %s: %w", tp, apperr.ErrNotFound)
		}
		ranked, err := rank(ctx, idx, tp, files, exclude)
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			return fmt.Errorf("no tags beyond %s: %w", tp, apperr.ErrNotFound)
		}
		top = ranked[0].Tag
		return nil
	})
	return top, err
}

// TagLister is implemented by indexes that can list a file's tags.
type TagLister interface {
	TagsOfFile(ctx context.Context, fileID int64) ([]index.Tag, error)
}

// FileTags returns the names of the tags carried by a file, sorted. The
// index must implement TagLister.
func (e *Engine) FileTags(ctx context.Context, fileID int64) ([]string, error) {
	var names []string
	err := e.run(ctx, OpFileTags, fmt.Sprintf("file %d", fileID), func(ctx context.Context, idx Index) error {
		lister, ok := idx.(TagLister)
		if !ok {
			return fmt.Errorf("index cannot list tags of a file: %w", apperr.ErrNotFound)
		}
		tags, err := lister.TagsOfFile(ctx, fileID)
		if err != nil {
			return err
		}
		names = make([]string, len(tags))
		for i, tag := range tags {
			names[i] = tag.Name
		}
		sort.Strings(names)
		return nil
	})
	return names, err
}
