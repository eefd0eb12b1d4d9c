package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"backoffice/internal/catalog"
	"backoffice/internal/catalog/seed"
	"backoffice/internal/log"
	"backoffice/internal/storage"
)

// BackendOpener returns the backend a command writes through and a function
// releasing it.
type BackendOpener func(ctx context.Context) (catalog.Backend, func() error, error)

type SeedCmd struct {
	opts   seed.Options
	open   BackendOpener
	logger *log.Logger
}

// NewSeedCmd fills the catalog with sample categories, products and orders.
func NewSeedCmd(open BackendOpener, logger *log.Logger) *cobra.Command {
	sc := &SeedCmd{opts: seed.DefaultOptions(), open: open, logger: logger}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the catalog with sample data",
		RunE:  sc.run,
	}

	cmd.Flags().IntVar(&sc.opts.Categories, "categories", sc.opts.Categories, "Number of categories to create")
	cmd.Flags().IntVar(&sc.opts.Products, "products", sc.opts.Products, "Number of products to create")
	cmd.Flags().IntVar(&sc.opts.Orders, "orders", sc.opts.Orders, "Number of orders to create")
	cmd.Flags().IntVar(&sc.opts.Days, "days", sc.opts.Days, "Spread order dates over this many past days")
	cmd.Flags().BoolVar(&sc.opts.Clear, "clear", false, "Delete existing data first")
	cmd.Flags().Uint64Var(&sc.opts.Seed, "seed", sc.opts.Seed, "Random seed")

	return cmd
}

func (sc *SeedCmd) run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	b, closeFn, err := sc.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open backend: %w", err)
	}
	defer func() { _ = closeFn() }()

	sum, err := seed.Run(ctx, b, sc.opts, sc.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded categories=%d products=%d orders=%d\n",
		sum.Categories, sum.Products, sum.Orders)
	return nil
}

// NewMigrateCmd groups the schema migration commands for the SQLite store.
func NewMigrateCmd(dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RunMigrations(*dbPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("steps must be at least 1")
			}
			if err := storage.RollbackMigrations(*dbPath, steps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, dirty, err := storage.MigrationVersion(*dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

// BucketStore is the part of the blob store init-bucket needs.
type BucketStore interface {
	EnsureBucket(ctx context.Context) (bool, error)
	Bucket() string
}

// NewInitBucketCmd creates the product image bucket when it is missing.
func NewInitBucketCmd(open func(ctx context.Context) (BucketStore, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "init-bucket",
		Short: "Create the product image bucket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := open(ctx)
			if err != nil {
				return fmt.Errorf("failed to open blob store: %w", err)
			}
			created, err := store.EnsureBucket(ctx)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "bucket %s created\n", store.Bucket())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "bucket %s already exists\n", store.Bucket())
			}
			return nil
		},
	}
}
