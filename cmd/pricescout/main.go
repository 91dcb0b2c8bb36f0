package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pricescout/crawler/internal/config"
	"pricescout/crawler/internal/container"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "pricescout",
	Short:         "Crawl retailer catalogs and reconcile stored prices",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		level, err := log.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		log.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config.yaml)")
}

// withContainer runs fn with a container whose context is cancelled on SIGINT or SIGTERM.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, app *container.Container) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := container.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer app.Close()

	return fn(ctx, app)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorf("❌ %v", err)
		os.Exit(1)
	}
}
