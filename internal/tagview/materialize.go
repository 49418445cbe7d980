package tagview

import (
	"context"
	"fmt"
	"sort"

	"tagfs/internal/apperr"
	"tagfs/internal/index"
)

// View is the computed content of one directory.
type View struct {
	Tags TagPath
	// Files is the File Set, ascending.
	Files []int64
	// Offered holds the tags that narrow Files, ordered by tag id.
	Offered []index.Tag
}

// Entry is one name in a directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

func errUnknownTag(tag string, tp TagPath) error {
	return fmt.Errorf("unknown tag %q in %s: %w", tag, tp, apperr.ErrInvalidPath)
}

// fileSet computes the files carrying every tag of an already validated
// path. The root holds every tagged file.
func fileSet(ctx context.Context, idx Index, tp TagPath) ([]int64, error) {
	if tp.IsRoot() {
		return idx.AllTaggedFiles(ctx)
	}

	files, err := idx.FilesWithTag(ctx, tp[0])
	if err != nil {
		return nil, err
	}
	for _, tag := range tp[1:] {
		if len(files) == 0 {
			break
		}
		withTag, err := idx.FilesWithTag(ctx, tag)
		if err != nil {
			return nil, err
		}
		files = Intersect(files, withTag)
	}
	return files, nil
}

// rank counts, for each tag on files outside the path, how many files
// carry it. Results follow RankByPopularity order.
func rank(ctx context.Context, idx Index, tp TagPath, files []int64, exclude []string) ([]Ranked, error) {
	candidates, err := idx.TagsOnFiles(ctx, files, append(append([]string{}, tp...), exclude...))
	if err != nil {
		return nil, err
	}

	ranked := make([]Ranked, 0, len(candidates))
	for _, tag := range candidates {
		withTag, err := idx.FilesWithTag(ctx, tag.Name)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked{Tag: tag, Count: len(Intersect(files, withTag))})
	}
	return RankByPopularity(ranked), nil
}

// materialize validates tp and builds its view. Tags held by every file in
// the File Set are not offered: descending into them would not narrow it.
func materialize(ctx context.Context, idx Index, tp TagPath) (*View, error) {
	if err := validate(ctx, idx, tp); err != nil {
		return nil, err
	}

	files, err := fileSet(ctx, idx, tp)
	if err != nil {
		return nil, err
	}

	view := &View{Tags: tp, Files: files, Offered: []index.Tag{}}
	if len(files) == 0 {
		return view, nil
	}

	ranked, err := rank(ctx, idx, tp, files, nil)
	if err != nil {
		return nil, err
	}
	for _, r := range ranked {
		if r.Count < len(files) {
			view.Offered = append(view.Offered, r.Tag)
		}
	}
	sort.Slice(view.Offered, func(i, j int) bool { return view.Offered[i].ID < view.Offered[j].ID })
	return view, nil
}

// Materialize returns the view of the directory at path.
func (e *Engine) Materialize(ctx context.Context, path string) (*View, error) {
	var view *View
	err := e.run(ctx, OpListDirectory, path, func(ctx context.Context, idx Index) error {
		var err error
		view, err = materialize(ctx, idx, ParsePath(path))
		return err
	})
	return view, err
}

// ListDirectory returns ".", "..", one entry per file in the File Set and
// one per offered tag. When names clash, the file with the lowest id wins
// and a tag named like a listed file is left out.
func (e *Engine) ListDirectory(ctx context.Context, path string) ([]Entry, error) {
	var entries []Entry
	err := e.run(ctx, OpListDirectory, path, func(ctx context.Context, idx Index) error {
		view, err := materialize(ctx, idx, ParsePath(path))
		if err != nil {
			return err
		}

		entries = make([]Entry, 0, 2+len(view.Files)+len(view.Offered))
		entries = append(entries, Entry{Name: ".", IsDir: true}, Entry{Name: "..", IsDir: true})

		names := make(map[string]bool, len(view.Files))
		for _, id := range view.Files {
			name, err := idx.FileName(ctx, id)
			if err != nil {
				return err
			}
			if names[name] {
				e.logger.Debug("Hiding file %d: name %q already listed in %s", id, name, path)
				continue
			}
			names[name] = true
			entries = append(entries, Entry{Name: name})
		}

		for _, tag := range view.Offered {
			if names[tag.Name] {
				continue
			}
			entries = append(entries, Entry{Name: tag.Name, IsDir: true})
		}

		if e.recorder != nil {
			e.recorder.ObserveListing(len(view.Files))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
