package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/stupside/showcrawl/internal/app"
	"github.com/stupside/showcrawl/internal/browser"
	"github.com/stupside/showcrawl/internal/crawler"
	"github.com/stupside/showcrawl/internal/store"
)

// crawlCommand returns the "crawl" CLI subcommand.
func crawlCommand() *cli.Command {
	return &cli.Command{
		Name:  "crawl",
		Usage: "Discover the catalog and merge new episodes into the store",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-limit",
				Usage: "Maximum new episodes fetched per item in this run (0 = unlimited)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of parallel browser sessions",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Path to the catalog store (.json, .yaml or .yml)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("batch-limit") {
				cfg.Crawl.BatchLimit = int(cmd.Int("batch-limit"))
			}
			if cmd.IsSet("workers") {
				cfg.Crawl.Workers = int(cmd.Int("workers"))
			}
			if cmd.IsSet("store") {
				cfg.Store.Path = cmd.String("store")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return crawl(ctx, cfg)
		},
	}
}

func crawl(ctx context.Context, cfg *app.Config) error {
	st := store.Open(afero.NewOsFs(), cfg.Store.Path)
	slog.InfoContext(ctx, "store loaded", "path", st.Path(), "items", st.Len())

	pages := make([]crawler.Page, 0, cfg.Crawl.Workers)
	for i := range cfg.Crawl.Workers {
		session, err := browser.Open(ctx, cfg.Browser)
		if err != nil {
			return fmt.Errorf("starting browser %d: %w", i+1, err)
		}
		defer session.Close()
		pages = append(pages, session)
	}

	c, err := crawler.New(cfg.CrawlerOptions(), st, pages...)
	if err != nil {
		return err
	}

	report, err := c.Run(ctx)
	if err != nil {
		return err
	}

	if err := report.Err(); err != nil {
		slog.WarnContext(ctx, "some items failed", "count", len(report.Failures), "error", err)
	}
	slog.InfoContext(ctx, "crawl complete",
		"discovered", report.Discovered,
		"items", report.Items,
		"new_episodes", report.NewEpisodes,
		"stored_items", st.Len(),
		"interrupted", report.Interrupted,
	)
	return nil
}
