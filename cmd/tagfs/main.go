package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"tagfs/internal/app"
	"tagfs/internal/config"
	"tagfs/internal/logging"
)

var (
	logger = logging.GetLogger()
)

// loadConfig reads the configuration named by --config and applies its log
// settings.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	execDir, err := config.ExecDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(cmd.String("config"), execDir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.Bool("verbose") {
		cfg.Log.Level = logging.LevelDebug.String()
	}
	if err := app.ConfigureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withServices opens the index for one command and closes it afterwards.
func withServices(ctx context.Context, cmd *cli.Command, fn func(ctx context.Context, svc *app.Services) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(ctx, svc)
}

func runMount(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []app.Option{app.WithConfig(cfg)}
	if dir := cmd.Args().First(); dir != "" {
		opts = append(opts, app.WithMountPoint(dir))
	}

	if err := app.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "tagfs",
		Usage: "Browse files by tag through a FUSE mount",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file; defaults apply when it does not exist",
				Value:   "tagfs.yaml",
				Sources: cli.EnvVars("TAGFS_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "mount",
				Usage:     "Mount the tag view and serve it until interrupted",
				ArgsUsage: "[mountpoint]",
				Action:    runMount,
			},
			{
				Name:      "ls",
				Usage:     "List a tag directory without mounting",
				ArgsUsage: "<path>",
				Action:    runList,
			},
			{
				Name:      "resolve",
				Usage:     "Print the physical location behind a file path",
				ArgsUsage: "<path>",
				Action:    runResolve,
			},
			{
				Name:      "popular",
				Usage:     "Print the tag carried by most files in a directory",
				ArgsUsage: "<path> [excluded-tag...]",
				Action:    runPopular,
			},
			{
				Name:      "add",
				Usage:     "Register a file, optionally with tags",
				ArgsUsage: "<location> [tag...]",
				Action:    runAdd,
			},
			{
				Name:      "tag",
				Usage:     "Add tags to a registered file",
				ArgsUsage: "<location> <tag...>",
				Action:    runTag,
			},
			{
				Name:      "untag",
				Usage:     "Remove tags from a registered file",
				ArgsUsage: "<location> <tag...>",
				Action:    runUntag,
			},
			{
				Name:      "rm",
				Usage:     "Forget a registered file",
				ArgsUsage: "<location>",
				Action:    runRemove,
			},
			{
				Name:      "tags",
				Usage:     "List the tags of a file, or every tag when no location is given",
				ArgsUsage: "[location]",
				Action:    runTags,
			},
			{
				Name:      "export",
				Usage:     "Write every file and its tags to a JSON snapshot",
				ArgsUsage: "<file>",
				Action:    runExport,
			},
			{
				Name:      "import",
				Usage:     "Merge a JSON snapshot into the index",
				ArgsUsage: "<file>",
				Action:    runImport,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("Application error: %v", err)
		fmt.Fprintln(os.Stderr, "tagfs:", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
