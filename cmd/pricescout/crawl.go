package main

import (
	"context"

	"pricescout/crawler/internal/container"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var crawlCmd = &cobra.Command{
	Use:       "crawl <carrefour|pxmart|all>",
	Short:     "Crawl every leaf category of a source and export the catalog",
	Args:      cobra.ExactArgs(1),
	ValidArgs: append(container.Sources, "all"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
			if args[0] == "all" {
				return app.CrawlAll(ctx)
			}

			result, err := app.Crawl(ctx, args[0])
			if err != nil {
				return err
			}
			if result.Cancelled {
				log.Warnf("🛑 Partial crawl kept %d items", len(result.Items))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}
