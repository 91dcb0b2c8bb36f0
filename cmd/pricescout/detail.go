package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"pricescout/crawler/internal/container"

	"github.com/spf13/cobra"
)

var detailCmd = &cobra.Command{
	Use:   "detail <goods-id> <goods-no> <barcode>",
	Short: "Dump the raw PX Mart detail object of one product",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
			raw, err := app.PXMart.Detail(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}

			var out bytes.Buffer
			if err := json.Indent(&out, raw, "", "    "); err != nil {
				return fmt.Errorf("failed to format detail: %w", err)
			}
			fmt.Fprintln(os.Stdout, out.String())
			return nil
		})
	},
}

var priceCmd = &cobra.Command{
	Use:   "price <pid>",
	Short: "Print the price token of one Carrefour product page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
			token, err := app.Carrefour.DetailPrice(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, token)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(detailCmd)
	rootCmd.AddCommand(priceCmd)
}
