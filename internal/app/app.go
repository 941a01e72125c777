// Package app wires configuration into the running service: the listing
// store, the optional search index and its reindex schedule.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"real-estate-search/internal/breaker"
	"real-estate-search/internal/config"
	"real-estate-search/internal/database"
	"real-estate-search/internal/handlers"
	"real-estate-search/internal/listing"
	"real-estate-search/internal/ratelimit"
	"real-estate-search/internal/scheduler"
	"real-estate-search/internal/search"
)

// reindex pacing between batches
const (
	reindexBatchDelay  = 200 * time.Millisecond
	reindexBatchJitter = 100 * time.Millisecond
	reindexTimeout     = 30 * time.Minute

	breakerThreshold = 3
	breakerReset     = 30 * time.Second
)

// Services holds everything main needs to serve and shut down
type Services struct {
	// Store is the source of truth
	Store listing.Repository
	// Repository answers searches: the store, or the search index
	Repository listing.Repository
	Search     *search.SearchClient
	Breaker    *breaker.CircuitBreaker
	Scheduler  *scheduler.Scheduler
	Checks     map[string]handlers.HealthCheck

	closers []func() error
}

// Open connects the configured store and search backend
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	s := &Services{Checks: map[string]handlers.HealthCheck{}}

	if err := s.openStore(ctx, cfg, logger); err != nil {
		return nil, err
	}

	s.Repository = s.Store
	if cfg.Search.Backend == "meilisearch" {
		m := cfg.Meilisearch
		s.Search = search.NewSearchClient(m.Host, m.APIKey, m.Index)
		if err := s.Search.InitIndex(); err != nil {
			// searches fail with 503 until the index is reachable
			logger.Warn("failed to initialize search index", "host", m.Host, "error", err)
		}
		s.Breaker = breaker.NewCircuitBreaker(breakerThreshold, breakerReset, logger)
		s.Repository = breaker.Wrap(s.Search, s.Breaker)
		s.Checks["search"] = func(context.Context) error {
			if !s.Search.Healthy() {
				return fmt.Errorf("meilisearch at %s is unhealthy", m.Host)
			}
			return nil
		}
		logger.Info("using meilisearch for listing search", "host", m.Host, "index", m.Index)
	}

	if cfg.Reindex.Enabled && s.Search != nil {
		reindexer := scheduler.NewReindexer(
			s.Store,
			s.Search,
			ratelimit.NewPacer(reindexBatchDelay, reindexBatchJitter),
			cfg.Reindex.BatchSize,
			logger,
		)
		s.Scheduler = scheduler.NewScheduler(reindexer, cfg.Reindex.CronSpec(), reindexTimeout, logger)
	}

	return s, nil
}

func (s *Services) openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	switch cfg.Database.Type {
	case "mysql":
		m := cfg.Database.MySQL
		gormDB, err := database.NewGormDB(m.Host, strconv.Itoa(m.Port), m.User, m.Password, m.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		if err := s.track(gormDB.Close, gormDB.InitSchema); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		s.Store = gormDB
		s.Checks["database"] = gormDB.Ping
		logger.Info("using MySQL with GORM", "host", m.Host, "database", m.Database)

	case "postgres":
		p := cfg.Database.Postgres
		db, err := database.NewDB(p.Host, strconv.Itoa(p.Port), p.User, p.Password, p.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := s.track(db.Close, func() error { return db.InitSchema(ctx) }); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		s.Store = db
		s.Checks["database"] = db.Ping
		logger.Info("using PostgreSQL", "host", p.Host, "database", p.Database)

	default:
		repo, err := database.NewMemoryRepositoryFromSeed(cfg.Database.Memory.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to load seed: %w", err)
		}
		s.Store = repo
		logger.Info("using in-memory listings", "seed", cfg.Database.Memory.SeedFile, "listings", repo.Len())
	}
	return nil
}

// track runs init on a fresh connection and keeps closer for Close. A
// failed init closes the connection at once since Open returns no Services.
func (s *Services) track(closer, init func() error) error {
	if err := init(); err != nil {
		return errors.Join(err, closer())
	}
	s.closers = append(s.closers, closer)
	return nil
}

// Engine builds the query engine over the configured repository
func (s *Services) Engine(cfg *config.Config, logger *slog.Logger) *listing.Engine {
	opts := []listing.Option{
		listing.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxLimit),
		listing.WithLogger(logger),
	}
	if cfg.Search.AccountID != 0 {
		opts = append(opts, listing.WithAccount(cfg.Search.AccountID))
	}
	return listing.NewEngine(s.Repository, opts...)
}

// Close releases connections in reverse order
func (s *Services) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
