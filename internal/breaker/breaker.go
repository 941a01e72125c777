// Package breaker stops calling a failing search backend for a while so
// requests fail fast instead of piling up behind timeouts.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"real-estate-search/internal/listing"
)

// ErrOpen is returned while the breaker rejects calls
var ErrOpen = errors.New("circuit breaker open")

// CircuitBreaker trips after consecutive failures or a high failure rate
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	logger           *slog.Logger
	now              func() time.Time

	failures            int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	mutex sync.Mutex
}

// failure rate check, applied once a window holds enough calls
const (
	rateWindow    = 20
	rateThreshold = 0.40
)

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		logger:           logger,
		now:              time.Now,
	}
}

// RecordSuccess records a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++
	cb.consecutiveFailures = 0
	cb.resetWindow()
}

// RecordFailure records a failed call and opens the breaker when needed
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = cb.now()

	if cb.isOpen {
		return
	}

	if cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		cb.logger.Warn("circuit breaker open",
			"consecutive_failures", cb.consecutiveFailures,
			"retry_after", cb.resetTimeout,
		)
		return
	}

	if cb.totalRequests >= rateWindow {
		if rate := float64(cb.failures) / float64(cb.totalRequests); rate >= rateThreshold {
			cb.isOpen = true
			cb.logger.Warn("circuit breaker open",
				"failure_rate", rate,
				"failures", cb.failures,
				"total", cb.totalRequests,
				"retry_after", cb.resetTimeout,
			)
		}
	}
	cb.resetWindow()
}

// resetWindow starts a new rate window once the current one is full
func (cb *CircuitBreaker) resetWindow() {
	if cb.totalRequests >= rateWindow && !cb.isOpen {
		cb.failures = 0
		cb.totalRequests = 0
	}
}

// CanProceed reports whether a call may be attempted. After resetTimeout
// an open breaker lets calls through again.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		cb.logger.Info("circuit breaker half-open", "after", cb.resetTimeout)
		cb.isOpen = false
		cb.failures = 0
		cb.totalRequests = 0
		// one more failure trips it again
		cb.consecutiveFailures = cb.failureThreshold - 1
		return true
	}

	return false
}

// Status is a snapshot of the breaker
type Status struct {
	Open                bool `json:"open"`
	Failures            int  `json:"failures"`
	Total               int  `json:"total"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() Status {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return Status{
		Open:                cb.isOpen,
		Failures:            cb.failures,
		Total:               cb.totalRequests,
		ConsecutiveFailures: cb.consecutiveFailures,
	}
}

// Repository guards a listing.Repository with a CircuitBreaker
type Repository struct {
	next    listing.Repository
	breaker *CircuitBreaker
}

// Wrap returns next guarded by cb
func Wrap(next listing.Repository, cb *CircuitBreaker) *Repository {
	return &Repository{next: next, breaker: cb}
}

// FindListings fails with ErrOpen while the breaker is open. A cancelled
// caller does not count against the backend.
func (r *Repository) FindListings(ctx context.Context, q listing.Query) ([]listing.Record, error) {
	if !r.breaker.CanProceed() {
		return nil, ErrOpen
	}

	records, err := r.next.FindListings(ctx, q)
	switch {
	case err == nil:
		r.breaker.RecordSuccess()
	case ctx.Err() != nil:
	default:
		r.breaker.RecordFailure()
	}
	return records, err
}

// Breaker returns the guarding breaker
func (r *Repository) Breaker() *CircuitBreaker {
	return r.breaker
}
