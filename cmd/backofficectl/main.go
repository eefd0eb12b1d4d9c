package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"backoffice/internal/backend"
	"backoffice/internal/blob"
	"backoffice/internal/catalog"
	"backoffice/internal/cli"
	"backoffice/internal/config"
	"backoffice/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentCLI)
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "backofficectl",
		Short: "Maintenance commands for the backoffice",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return cfg.Validate()
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataBackend, "backend", cfg.DataBackend, "Data backend (memory, sqlite, remote)")
	rootCmd.PersistentFlags().StringVar(&cfg.SQLiteDBPath, "db", cfg.SQLiteDBPath, "Path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "Base URL of the remote API")

	openBackend := func(ctx context.Context) (catalog.Backend, func() error, error) {
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		bcfg.SeedMemory = false
		result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
		if err != nil {
			return nil, nil, err
		}
		return result.Backend, result.Close, nil
	}
	openBucket := func(ctx context.Context) (cli.BucketStore, error) {
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, err
		}
		store, err := blob.New(ctx, bcfg.Blob)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	rootCmd.AddCommand(
		cli.NewSeedCmd(openBackend, logger),
		cli.NewMigrateCmd(&cfg.SQLiteDBPath),
		cli.NewInitBucketCmd(openBucket),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
