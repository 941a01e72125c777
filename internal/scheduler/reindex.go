package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"real-estate-search/internal/listing"
)

// ErrAlreadyRunning is returned when a rebuild is requested while one is in progress
var ErrAlreadyRunning = errors.New("reindex already running")

// Indexer receives listing batches
type Indexer interface {
	IndexRecords(records []listing.Record, indexedAt int64) error
	PruneBefore(indexedAt int64) error
}

// Pacer delays the next batch
type Pacer interface {
	Wait(ctx context.Context) error
}

// Reindexer copies every publishable listing from a repository into the
// search index, then prunes documents the run did not touch.
type Reindexer struct {
	source    listing.Repository
	index     Indexer
	pacer     Pacer
	batchSize int
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	last    RunStats
}

// RunStats describes the last completed run
type RunStats struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Batches    int           `json:"batches"`
	Indexed    int           `json:"indexed"`
	Error      string        `json:"error,omitempty"`
}

// NewReindexer creates a reindexer. pacer may be nil.
func NewReindexer(source listing.Repository, index Indexer, pacer Pacer, batchSize int, logger *slog.Logger) *Reindexer {
	if batchSize <= 0 {
		batchSize = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reindexer{
		source:    source,
		index:     index,
		pacer:     pacer,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Run performs one full rebuild. Overlapping runs are rejected.
func (r *Reindexer) Run(ctx context.Context) (RunStats, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return RunStats{}, ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	stats, err := r.run(ctx)

	r.mu.Lock()
	r.running = false
	r.last = stats
	r.mu.Unlock()

	return stats, err
}

// Running reports whether a rebuild is in progress
func (r *Reindexer) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastRun returns the stats of the last finished run
func (r *Reindexer) LastRun() RunStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Reindexer) run(ctx context.Context) (stats RunStats, err error) {
	stats.StartedAt = r.now()
	indexedAt := stats.StartedAt.UnixMilli()

	defer func() {
		stats.FinishedAt = r.now()
		stats.Duration = stats.FinishedAt.Sub(stats.StartedAt)
		if err != nil {
			stats.Error = err.Error()
		}
	}()

	// zero criteria: every non-withdrawn listing, closed ones included
	q := listing.Query{Sort: listing.SortNewest, Limit: r.batchSize}

	for {
		if r.pacer != nil && stats.Batches > 0 {
			if err := r.pacer.Wait(ctx); err != nil {
				return stats, err
			}
		}

		records, err := r.source.FindListings(ctx, q)
		if err != nil {
			return stats, fmt.Errorf("failed to read listings at offset %d: %w", q.Offset, err)
		}
		if len(records) == 0 {
			break
		}

		if err := r.index.IndexRecords(records, indexedAt); err != nil {
			return stats, fmt.Errorf("failed to index batch at offset %d: %w", q.Offset, err)
		}

		stats.Batches++
		stats.Indexed += len(records)
		r.logger.DebugContext(ctx, "reindex batch done", "offset", q.Offset, "count", len(records))

		if len(records) < r.batchSize {
			break
		}
		q.Offset += len(records)
	}

	// reached only when every batch was confirmed by the index
	if err := r.index.PruneBefore(indexedAt); err != nil {
		return stats, fmt.Errorf("failed to prune index: %w", err)
	}
	return stats, nil
}
