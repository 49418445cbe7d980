// Package tagview resolves mount paths against the tag index. A path is a
// set of tags; its directory lists the files carrying every one of them
// plus the tags that would narrow the listing further.
package tagview

import (
	"context"
	"errors"
	"sync"
	"time"

	"tagfs/internal/apperr"
	"tagfs/internal/index"
	"tagfs/internal/logging"
)

// Index is the read side of the tag store.
type Index interface {
	TagExists(ctx context.Context, name string) (bool, error)
	// FilesWithTag and AllTaggedFiles return ascending ids.
	FilesWithTag(ctx context.Context, name string) ([]int64, error)
	AllTaggedFiles(ctx context.Context) ([]int64, error)
	TagsOnFiles(ctx context.Context, fileIDs []int64, exclude []string) ([]index.Tag, error)
	FileName(ctx context.Context, fileID int64) (string, error)
	FileLocation(ctx context.Context, fileID int64) (string, error)
}

// Snapshotter is implemented by indexes that can run a group of reads in
// one transaction. The engine runs each operation in one, so it sees a
// single committed state even while other processes write the index.
type Snapshotter interface {
	ReadTx(ctx context.Context, fn func(r *index.Reader) error) error
}

// Recorder receives one observation per engine operation.
type Recorder interface {
	ObserveOperation(op, outcome string, elapsed time.Duration)
	ObserveListing(files int)
}

// Operation names passed to a Recorder.
const (
	OpResolveAttributes = "resolve_attributes"
	OpListDirectory     = "list_directory"
	OpResolveFile       = "resolve_file"
	OpMostPopularTag    = "most_popular_tag"
	OpFileTags          = "file_tags"
)

// Outcome classifies err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrInvalidPath):
		return "invalid_path"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrBackendUnavailable):
		return "backend_unavailable"
	default:
		return "error"
	}
}

// Engine answers host queries. Every operation runs to completion under a
// single lock, and in one read transaction when the index is a Snapshotter,
// so it observes one consistent state of the index.
type Engine struct {
	idx      Index
	mu       sync.Locker
	recorder Recorder
	logger   *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker shares mu with index writers in the same process.
func WithLocker(mu sync.Locker) Option {
	return func(e *Engine) { e.mu = mu }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an engine over idx.
func NewEngine(idx Index, opts ...Option) *Engine {
	e := &Engine{
		idx:    idx,
		mu:     &sync.Mutex{},
		logger: logging.GetLogger().WithPrefix("tagview"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Locker returns the lock held across each operation.
func (e *Engine) Locker() sync.Locker {
	return e.mu
}

// run executes fn under the engine lock with the index fn must read
// through. Cancellation of ctx does not stop an operation that has started.
func (e *Engine) run(ctx context.Context, op, path string, fn func(ctx context.Context, idx Index) error) error {
	ctx = context.WithoutCancel(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	err := e.read(ctx, fn)
	elapsed := time.Since(start)

	outcome := Outcome(err)
	if e.recorder != nil {
		e.recorder.ObserveOperation(op, outcome, elapsed)
	}
	switch outcome {
	case "ok":
		e.logger.Trace("%s %s took %v", op, path, elapsed)
	case "backend_unavailable", "error":
		e.logger.Error("%s %s: %v", op, path, err)
	default:
		e.logger.Debug("%s %s: %v", op, path, err)
	}
	return err
}

func (e *Engine) read(ctx context.Context, fn func(ctx context.Context, idx Index) error) error {
	if s, ok := e.idx.(Snapshotter); ok {
		return s.ReadTx(ctx, func(r *index.Reader) error { return fn(ctx, r) })
	}
	return fn(ctx, e.idx)
}

// validate checks that the path has no repeated tag and that every tag
// exists.
func validate(ctx context.Context, idx Index, tp TagPath) error {
	if err := tp.Unique(); err != nil {
		return err
	}
	for _, tag := range tp {
		ok, err := idx.TagExists(ctx, tag)
		if err != nil {
			return err
		}
		if !ok {
			return errUnknownTag(tag, tp)
		}
	}
	return nil
}
