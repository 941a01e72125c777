// Package listing is the listing query engine: it turns a search state into
// the ordered listing summaries shown on a results page.
package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"real-estate-search/internal/searchstate"
)

// ErrSearchUnavailable means the search could not be executed. It is never
// returned for a search that simply matched nothing.
var ErrSearchUnavailable = errors.New("listing search unavailable")

// Query is what the engine asks a repository for
type Query struct {
	Criteria Criteria
	Sort     SortKey
	Limit    int
	Offset   int
}

// Repository reads listing records. Implementations must apply every
// Criteria rule, order by Sort.Less, skip Offset records and return at most
// Limit records.
type Repository interface {
	FindListings(ctx context.Context, q Query) ([]Record, error)
}

// Clock returns the current time
type Clock func() time.Time

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Engine executes searches. It keeps no state between calls and is safe
// for concurrent use.
type Engine struct {
	repo         Repository
	now          Clock
	closedWindow time.Duration
	defaultLimit int
	maxLimit     int
	accountID    uint64
	logger       *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock injects the time source used for the visibility window
func WithClock(now Clock) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLimits sets the default and maximum result counts
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(e *Engine) {
		if defaultLimit > 0 {
			e.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			e.maxLimit = maxLimit
		}
	}
}

// WithAccount scopes every search to one tenant
func WithAccount(accountID uint64) Option {
	return func(e *Engine) { e.accountID = accountID }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine reading from repo
func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:         repo,
		now:          time.Now,
		closedWindow: ClosedVisibilityWindow,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.defaultLimit > e.maxLimit {
		e.defaultLimit = e.maxLimit
	}
	return e
}

// Search returns up to limit visible listings matching state, ordered by
// sortKey. No match, an inverted range or an unknown sort key yield an empty
// slice and a nil error; a repository failure yields ErrSearchUnavailable.
func (e *Engine) Search(ctx context.Context, state searchstate.State, sortKey SortKey, limit int) ([]Summary, error) {
	state = state.Normalize()
	sortKey = sortKey.Normalize()
	limit = e.clampLimit(limit)

	// nothing can satisfy min > max
	if state.HasInvertedRange() {
		return []Summary{}, nil
	}

	q := Query{
		Criteria: e.Criteria(state),
		Sort:     sortKey,
		Limit:    limit,
	}

	records, err := e.repo.FindListings(ctx, q)
	if err != nil {
		e.logger.ErrorContext(ctx, "listing search failed",
			"sort", sortKey.String(),
			"limit", limit,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrSearchUnavailable, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return sortKey.Less(&records[i], &records[j])
	})
	if len(records) > limit {
		records = records[:limit]
	}

	summaries := make([]Summary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, newSummary(r))
	}

	e.logger.DebugContext(ctx, "listing search finished",
		"sort", sortKey.String(),
		"limit", limit,
		"count", len(summaries),
	)
	return summaries, nil
}

// Criteria builds the repository predicates for state at the current time
func (e *Engine) Criteria(state searchstate.State) Criteria {
	return newCriteria(state.Normalize(), e.now().Add(-e.closedWindow), e.accountID)
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	if limit > e.maxLimit {
		return e.maxLimit
	}
	return limit
}
