// Command canvasctl inspects, repairs and moves canvas documents.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/meikuraledutech/canvas/config"
	"github.com/meikuraledutech/canvas/postgres"
	"github.com/spf13/cobra"
)

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	warn   = color.New(color.FgYellow)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		bad.Fprintf(os.Stderr, "canvasctl: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	key        string
}

func rootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "canvasctl",
		Short:         "Inspect, normalize and sync canvas documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CANVAS_CONFIG"), "Path to the TOML config file")
	root.PersistentFlags().StringVar(&opts.key, "key", "", "Storage key (defaults to storage.key from config)")

	root.AddCommand(
		inspectCmd(),
		normalizeCmd(),
		pushCmd(opts),
		pullCmd(opts),
		listCmd(opts),
		removeCmd(opts),
		schemaCmd(opts),
		configCmd(opts),
	)
	return root
}

func (o *options) load() (*config.Config, string, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, "", err
	}
	key := o.key
	if key == "" {
		key = cfg.Storage.Key
	}
	return cfg, key, nil
}

// connect opens the postgres store named by the config. The returned func
// closes the pool.
func (o *options) connect(ctx context.Context) (*postgres.PGStore, string, func(), error) {
	cfg, key, err := o.load()
	if err != nil {
		return nil, "", nil, err
	}
	if cfg.Storage.DatabaseURL == "" {
		return nil, "", nil, fmt.Errorf("no database configured: set DATABASE_URL or storage.database_url")
	}
	pool, err := postgres.Connect(ctx, cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, "", nil, err
	}
	return postgres.New(pool), key, pool.Close, nil
}
