// Command seed loads listing fixtures into MySQL and pushes the catalogue
// into the Meilisearch index.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"real-estate-search/internal/config"
	"real-estate-search/internal/database"
	"real-estate-search/internal/listing"
	"real-estate-search/internal/logging"
	"real-estate-search/internal/scheduler"
	"real-estate-search/internal/search"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "seed <command>",
		Short:         "Load listing fixtures and rebuild the search index",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file")

	root.AddCommand(importCmd(&configPath), indexCmd(&configPath))
	return root
}

func importCmd(configPath *string) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a YAML seed file into the MySQL database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Type != "mysql" {
				return fmt.Errorf("import needs database.type mysql, got %q", cfg.Database.Type)
			}

			seed, err := database.LoadSeed(file)
			if err != nil {
				return err
			}

			m := cfg.Database.MySQL
			db, err := database.NewGormDB(m.Host, strconv.Itoa(m.Port), m.User, m.Password, m.Database)
			if err != nil {
				return fmt.Errorf("failed to connect to MySQL: %w", err)
			}
			defer db.Close()

			if err := db.InitSchema(); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}
			if err := db.ImportSeed(ctx, seed); err != nil {
				return err
			}

			logger.Info("seed imported", "file", file, "listings", len(seed.Listings))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "config/seed.yaml", "seed file")
	return cmd
}

func indexCmd(configPath *string) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Copy every publishable listing from the database into Meilisearch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}

			source, closeSource, err := openSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeSource()

			m := cfg.Meilisearch
			client := search.NewSearchClient(m.Host, m.APIKey, m.Index)
			if err := client.InitIndex(); err != nil {
				return err
			}

			if batchSize <= 0 {
				batchSize = cfg.Reindex.BatchSize
			}
			stats, err := scheduler.NewReindexer(source, client, nil, batchSize, logger).Run(ctx)
			if err != nil {
				return err
			}

			logger.Info("index rebuilt", "indexed", stats.Indexed, "batches", stats.Batches, "duration", stats.Duration)
			return nil
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "listings per batch (default from config)")
	return cmd
}

func setup(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Config{
		Writer: os.Stderr,
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	return cfg, logger, nil
}

func openSource(ctx context.Context, cfg *config.Config) (listing.Repository, func(), error) {
	switch cfg.Database.Type {
	case "mysql":
		m := cfg.Database.MySQL
		db, err := database.NewGormDB(m.Host, strconv.Itoa(m.Port), m.User, m.Password, m.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		return db, func() { db.Close() }, nil
	case "postgres":
		p := cfg.Database.Postgres
		db, err := database.NewDB(p.Host, strconv.Itoa(p.Port), p.User, p.Password, p.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.InitSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	default:
		repo, err := database.NewMemoryRepositoryFromSeed(cfg.Database.Memory.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}
