// Package app wires the index, the resolution engine and the FUSE host
// into a running mount.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tagfs/internal/config"
	"tagfs/internal/fs"
	"tagfs/internal/index"
	"tagfs/internal/logging"
	"tagfs/internal/metrics"
	"tagfs/internal/tagview"
)

var logger = logging.GetLogger()

// ConfigureLogging applies the log section of cfg to the shared logger.
func ConfigureLogging(cfg *config.Config) error {
	logCfg, err := cfg.Log.LoggingConfig()
	if err != nil {
		return err
	}
	if err := logger.Configure(logCfg); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	return nil
}

// Services bundles the long-lived components behind a mount.
type Services struct {
	DB      *index.DB
	Engine  *tagview.Engine
	Metrics *metrics.Metrics
	// Lock is held by the engine for each operation and by every writer.
	Lock sync.Locker
}

// Open opens the index and builds an engine over it.
func Open(cfg *config.Config) (*Services, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := index.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	lock := &sync.Mutex{}
	m := metrics.New()
	engine := tagview.NewEngine(db, tagview.WithLocker(lock), tagview.WithRecorder(m))
	return &Services{DB: db, Engine: engine, Metrics: m, Lock: lock}, nil
}

// Close releases the index.
func (s *Services) Close() error {
	return s.DB.Close()
}

// Run mounts the filesystem and serves it, together with the location
// watcher and the metrics listener, until a signal arrives or the mount
// goes away.
func Run(ctx context.Context, opts ...Option) error {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return errors.New("config is required")
	}
	cfg := a.config

	mountPoint := cfg.Mount.Point
	if a.mountPoint != "" {
		mountPoint = a.mountPoint
	}
	if mountPoint == "" {
		return errors.New("mount point is required")
	}
	mountPoint = filepath.Clean(mountPoint)

	logger.Info("Starting tagfs...")
	logger.Debug("Mount point: %s", mountPoint)
	logger.Debug("Database: %s", cfg.Database.Path)

	svc, err := Open(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	tfs := fs.New(svc.Engine, fs.Options{
		FSName:     cfg.Mount.FSName,
		AllowOther: cfg.Mount.AllowOther,
		UID:        cfg.Mount.UID,
		GID:        cfg.Mount.GID,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return tfs.Serve(gCtx, mountPoint)
	})

	if cfg.Watch.Enabled {
		g.Go(func() error {
			return index.NewWatcher(svc.DB, svc.Lock, index.DefaultRescanInterval).Run(gCtx)
		})
	}

	if cfg.Metrics.Address != "" {
		g.Go(func() error {
			return metrics.Serve(gCtx, cfg.Metrics.Address, metrics.NewRouter(svc.Metrics, svc.DB))
		})
	}

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received signal %v", sig)
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error: %v", err)
		return err
	}

	logger.Info("Clean shutdown complete")
	return nil
}
