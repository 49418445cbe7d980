package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"tagfs/internal/app"
	"tagfs/internal/state"
)

var errUsage = errors.New("wrong number of arguments")

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() < n {
		return fmt.Errorf("%w: usage: %s %s", errUsage, cmd.Name, cmd.ArgsUsage)
	}
	return nil
}

func runList(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		path = "/"
	}
	return withServices(ctx, cmd, func(ctx context.Context, svc *app.Services) error {
		entries, err := svc.Engine.ListDirectory(ctx, path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.IsDir {
				fmt.Fprintf(os.Stdout, "%s/\n", e.Name)
			} else {
				fmt.Fprintln(os.Stdout, e.Name)
			}
		}
		return nil
	})
}

func runResolve(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	return withServices(ctx, cmd, func(ctx context.Context, svc *app.Services) error {
		res, err := svc.Engine.ResolveFile(ctx, cmd.Args().First())
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, res.Location)
		return nil
	})
}

func runPopular(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	return withServices(ctx, cmd, func(ctx context.Context, svc *app.Services) error {
		tag, err := svc.Engine.MostPopularTag(ctx, cmd.Args().First(), cmd.Args().Tail()...)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, tag.Name)
		return nil
	})
}

// locationArg returns the absolute form of the first argument.
func locationArg(cmd *cli.Command) (string, error) {
	location, err := filepath.Abs(cmd.Args().First())
	if err != nil {
		return "", fmt.Errorf("resolve location: %w", err)
	}
	return location, nil
}

func runAdd(ctx context.Context, cmd *cli.Command) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	location, err := locationArg(cmd)
	if err != nil {
		return err
	}
	info, err := os.Stat(location)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", location)
	}

	return withServices(ctx, cmd, func(ctx context.Context, svc *app.Services) error {
		id, err := svc.DB.AddFile(ctx, filepath.Base(location), location)
		if err != nil {
			return err
		}
		if tags := cmd.Args().Tail(); len(tags) > 0 {
			if err := svc.DB.TagFile(ctx, id, tags...); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stdout, "added %d %s\n", id, location)
		return nil
	})
}

// withFile runs fn for the file registered at the first argument.
func withFile(ctx context.Context, cmd *cli.Command, minArgs int, fn func(ctx context.Context, svc *app.Services, fileID int64) error) error {
	if err := requireArgs(cmd, minArgs); err != nil {
		return err
	}
	location, err := locationArg(cmd)
	if err != nil {
		return err
	}
	return withServices(ctx, cmd, func(ctx context.Context, svc *app.Services) error {
		f, err := svc.DB.FileByLocation(ctx, location)
		if err != nil {
			return err
		}
		return fn(ctx, svc, f.ID)
	})
}

func runTag(ctx context.Context, cmd *cli.Command) error {
	return withFile(ctx, cmd, 2, func(ctx context.Context, svc *app.Services, fileID int64) error {
		return svc.DB.TagFile(ctx, fileID, cmd.Args().Tail()...)
	})
}

func runUntag(ctx context.Context, cmd *cli.Command) error {
	return withFile(ctx, cmd, 2, func(ctx context.Context, svc *app.Services, fileID int64) error {
		return svc.DB.UntagFile(ctx, fileID, cmd.Args().Tail()...)
	})
}

func runRemove(ctx context.Context, cmd *cli.Command) error {
	return withFile(ctx, cmd, 1, func(ctx context.Context, svc *app.Services, fileID int64) error {
		return svc.DB.RemoveFile(ctx, fileID)
	})
}

func runTags(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return withServices(ctx, cmd, func(ctx context.Context, svc *app.Services) error {
			tags, err := svc.DB.ListTags(ctx)
			if err != nil {
				return err
			}
			for _, tag := range tags {
				fmt.Fprintln(os.Stdout, tag.Name)
			}
			return nil
		})
	}
	return withFile(ctx, cmd, 1, func(ctx context.Context, svc *app.Services, fileID int64) error {
		tags, err := svc.DB.TagsOfFile(ctx, fileID)
		if err != nil {
			return err
		}
		for _, tag := range tags {
			fmt.Fprintln(os.Stdout, tag.Name)
		}
		return nil
	})
}

func snapshotManager(ctx context.Context, cmd *cli.Command, fn func(ctx context.Context, svc *app.Services, m *state.Manager) error) error {
	if err := requireArgs(cmd, 1); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := state.NewManager(cfg.State.BackupDir, cfg.State.BackupCount)
	if err != nil {
		return err
	}
	svc, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(ctx, svc, m)
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	return snapshotManager(ctx, cmd, func(ctx context.Context, svc *app.Services, m *state.Manager) error {
		snap, err := svc.DB.Snapshot(ctx)
		if err != nil {
			return err
		}
		return m.Save(cmd.Args().First(), snap)
	})
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	return snapshotManager(ctx, cmd, func(ctx context.Context, svc *app.Services, m *state.Manager) error {
		snap, err := m.Load(cmd.Args().First())
		if err != nil {
			return err
		}
		n, err := svc.DB.Restore(ctx, snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "imported %d files\n", n)
		return nil
	})
}
