package main

import (
	"context"

	"pricescout/crawler/internal/container"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the products table if it does not exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
			if err := app.Store.Migrate(ctx); err != nil {
				return err
			}
			log.Infof("✅ Products table ready (%s)", cfg.Database.Driver)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
