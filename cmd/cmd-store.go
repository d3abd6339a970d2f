package cmd

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/stupside/showcrawl/internal/app"
	"github.com/stupside/showcrawl/internal/catalog"
	"github.com/stupside/showcrawl/internal/store"
)

// storeCommand returns the "store" CLI subcommand.
func storeCommand() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Inspect the catalog store",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored items and their episode counts",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := app.ConfigFrom(cmd)
					if err != nil {
						return err
					}

					st := store.Open(afero.NewOsFs(), cfg.Store.Path)
					items := st.Items()
					if len(items) == 0 {
						slog.InfoContext(ctx, "store is empty", "path", st.Path())
						return nil
					}

					for _, it := range items {
						slog.InfoContext(ctx, "item",
							"title", it.Title,
							"identity", it.Identity,
							"episodes", len(it.Episodes),
							"latest", latestIndex(it),
							"variants", variants(it),
						)
					}
					slog.InfoContext(ctx, "store listed", "path", st.Path(), "items", len(items))
					return nil
				},
			},
		},
	}
}

func latestIndex(it catalog.Item) int {
	latest := 0
	for idx := range it.Indexes() {
		latest = max(latest, idx)
	}
	return latest
}

func variants(it catalog.Item) []string {
	var out []string
	for _, ep := range it.Episodes {
		out = append(out, lo.Map(ep.Sources, func(s catalog.Source, _ int) string { return s.Variant })...)
	}
	return lo.Uniq(out)
}
