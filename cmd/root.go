package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/stupside/showcrawl/internal/app"
	"github.com/stupside/showcrawl/internal/version"
)

const defaultConfigPath = "config.yaml"

// Root returns the root CLI command.
func Root() *cli.Command {
	var configPath string

	return &cli.Command{
		Name:    "showcrawl",
		Usage:   "Incrementally crawl an episodic media catalog into a local store",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "YAML configuration file (optional when left at its default)",
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("SHOWCRAWL_CONFIG"),
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log debug output and keep failure snapshots",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := app.Load(resolveConfigPath(ctx, afero.NewOsFs(), configPath, cmd.IsSet("config")))
			if err != nil {
				return ctx, err
			}
			cmd.Metadata["config"] = cfg
			return ctx, nil
		},
		Commands: []*cli.Command{
			crawlCommand(),
			storeCommand(),
			infoCommand(),
		},
		Metadata: map[string]any{},
	}
}

// resolveConfigPath returns "" (defaults only) when the default file is
// absent. An explicitly chosen file must exist.
func resolveConfigPath(ctx context.Context, fsys afero.Fs, path string, explicit bool) string {
	if explicit {
		return path
	}
	if ok, err := afero.Exists(fsys, path); err == nil && !ok {
		slog.DebugContext(ctx, "no config file, using defaults", "path", path)
		return ""
	}
	return path
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show build version and commit",
		Action: func(ctx context.Context, _ *cli.Command) error {
			slog.InfoContext(ctx, "showcrawl",
				"version", version.Version,
				"commit", version.Commit,
				"built", version.BuildTime,
			)
			return nil
		},
	}
}
