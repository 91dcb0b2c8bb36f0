package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"pricescout/crawler/internal/container"
	"pricescout/crawler/internal/reconcile"

	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:       "reconcile <carrefour|pxmart|all>",
	Short:     "Refresh prices of stored products from a live source",
	Args:      cobra.ExactArgs(1),
	ValidArgs: append(container.Sources, "all"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
			if args[0] == "all" {
				reports, err := app.ReconcileAll(ctx)
				for _, r := range reports {
					printReport(r)
				}
				return err
			}

			report, err := app.Reconcile(ctx, args[0])
			if report != nil {
				printReport(report)
			}
			return err
		})
	},
}

func printReport(r *reconcile.Report) {
	fmt.Fprintf(os.Stdout, "%s: checked=%d updated=%d changed=%d unmatched=%d cancelled=%t\n",
		r.Channel, r.Checked, r.Updated, r.Changed, r.Unmatched, r.Cancelled)
	if len(r.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "errors: %s\n", strings.Join(r.Errors, ", "))
	}
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
