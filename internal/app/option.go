package app

import "tagfs/internal/config"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *config.Config
	mountPoint string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *config.Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMountPoint overrides the configured mount point.
func WithMountPoint(dir string) Option {
	return func(a *application) {
		a.mountPoint = dir
	}
}
