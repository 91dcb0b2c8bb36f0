package main

import (
	"context"
	"fmt"
	"os"

	"pricescout/crawler/internal/container"

	"github.com/spf13/cobra"
)

var categoriesCmd = &cobra.Command{
	Use:       "categories <carrefour|pxmart>",
	Short:     "Print the category tree of a source, one path per line",
	Args:      cobra.ExactArgs(1),
	ValidArgs: container.Sources,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
			lines, err := app.CategoryLines(ctx, args[0])
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(os.Stdout, line)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
