package tagview

import (
	"context"
	"sort"
	"time"

	"tagfs/internal/apperr"
	"tagfs/internal/index"
)

type fakeFile struct {
	name     string
	location string
	tags     []string
}

// fakeIndex is an in-memory Index. Tag ids follow first use.
type fakeIndex struct {
	tagIDs map[string]int64
	files  map[int64]fakeFile
	fail   error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{tagIDs: map[string]int64{}, files: map[int64]fakeFile{}}
}

func (f *fakeIndex) add(id int64, name, location string, tags ...string) *fakeIndex {
	for _, tag := range tags {
		if _, ok := f.tagIDs[tag]; !ok {
			f.tagIDs[tag] = int64(len(f.tagIDs) + 1)
		}
	}
	f.files[id] = fakeFile{name: name, location: location, tags: tags}
	return f
}

func (f *fakeIndex) sortedIDs(keep func(fakeFile) bool) []int64 {
	out := []int64{}
	for id, file := range f.files {
		if keep(file) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasTag(file fakeFile, tag string) bool {
	for _, t := range file.tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (f *fakeIndex) TagExists(_ context.Context, name string) (bool, error) {
	if f.fail != nil {
		return false, f.fail
	}
	_, ok := f.tagIDs[name]
	return ok, nil
}

func (f *fakeIndex) FilesWithTag(_ context.Context, name string) ([]int64, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.sortedIDs(func(file fakeFile) bool { return hasTag(file, name) }), nil
}

func (f *fakeIndex) AllTaggedFiles(_ context.Context) ([]int64, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return f.sortedIDs(func(file fakeFile) bool { return len(file.tags) > 0 }), nil
}

func (f *fakeIndex) TagsOnFiles(_ context.Context, fileIDs []int64, exclude []string) ([]index.Tag, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	excluded := map[string]bool{}
	for _, name := range exclude {
		excluded[name] = true
	}
	seen := map[string]bool{}
	out := []index.Tag{}
	for _, id := range fileIDs {
		for _, tag := range f.files[id].tags {
			if excluded[tag] || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, index.Tag{ID: f.tagIDs[tag], Name: tag})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeIndex) FileName(_ context.Context, id int64) (string, error) {
	file, ok := f.files[id]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return file.name, nil
}

func (f *fakeIndex) FileLocation(_ context.Context, id int64) (string, error) {
	file, ok := f.files[id]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return file.location, nil
}

type observation struct {
	op      string
	outcome string
}

type fakeRecorder struct {
	ops      []observation
	listings []int
}

func (r *fakeRecorder) ObserveOperation(op, outcome string, _ time.Duration) {
	r.ops = append(r.ops, observation{op: op, outcome: outcome})
}

func (r *fakeRecorder) ObserveListing(files int) {
	r.listings = append(r.listings, files)
}

func (f *fakeIndex) TagsOfFile(_ context.Context, id int64) ([]index.Tag, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	out := make([]index.Tag, 0, len(file.tags))
	for _, tag := range file.tags {
		out = append(out, index.Tag{ID: f.tagIDs[tag], Name: tag})
	}
	return out, nil
}
