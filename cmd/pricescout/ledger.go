package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"pricescout/crawler/internal/container"
	"pricescout/crawler/internal/domain/task"

	"github.com/spf13/cobra"
)

var errRedisDisabled = errors.New("redis is disabled, set redis.enabled to true")

var ledgerCmd = &cobra.Command{
	Use:       "ledger <carrefour|pxmart>",
	Short:     "Print the error ledger of the latest crawl of a source",
	Args:      cobra.ExactArgs(1),
	ValidArgs: container.Sources,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
			if app.Ledgers == nil {
				return errRedisDisabled
			}
			src, err := app.Source(args[0])
			if err != nil {
				return err
			}

			ledger, err := app.Ledgers.LatestLedger(ctx, src.Channel())
			if err != nil {
				return err
			}
			if ledger == nil {
				fmt.Fprintln(os.Stderr, "No crawl recorded yet.")
				return nil
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "    ")
			return enc.Encode(ledger)
		})
	},
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Print and acknowledge pending price change events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, _ := cmd.Flags().GetString("consumer")
		limit, _ := cmd.Flags().GetInt64("limit")

		return withContainer(cmd, func(ctx context.Context, app *container.Container) error {
			if app.Queue == nil {
				return errRedisDisabled
			}

			taskType := (&task.PriceChangeTask{}).TaskType()
			msgs, err := app.Queue.ReadTasks(ctx, taskType, consumer, limit, time.Second)
			if err != nil {
				return err
			}

			for _, msg := range msgs {
				data, _ := msg.Values["task_data"].(string)
				change, err := task.UnmarshalTask[task.PriceChangeTask]([]byte(data))
				if err != nil {
					return fmt.Errorf("failed to decode message %s: %w", msg.ID, err)
				}

				fmt.Fprintf(os.Stdout, "%s\t%s\t%d -> %d\t%.4f\n",
					change.Channel, change.PID, change.OldPrice, change.NewPrice, change.PriceUnit)

				if err := app.Queue.AckTask(ctx, taskType, msg.ID); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

func init() {
	changesCmd.Flags().String("consumer", "cli", "consumer name within the group")
	changesCmd.Flags().Int64("limit", 100, "maximum number of events to read")

	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(changesCmd)
}
