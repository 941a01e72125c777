package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer enforces a minimum delay between bulk writes such as search index
// batches.
type Pacer struct {
	mutex       sync.Mutex
	baseDelay   time.Duration // Base delay between batches
	jitter      time.Duration // Random jitter to add
	lastRequest time.Time
}

// NewPacer creates a pacer. The first Wait returns immediately.
func NewPacer(baseDelay, jitter time.Duration) *Pacer {
	return &Pacer{
		baseDelay: baseDelay,
		jitter:    jitter,
	}
}

// Wait blocks until the next batch may start or ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.lastRequest.IsZero() {
		requiredDelay := p.baseDelay
		if p.jitter > 0 {
			requiredDelay += time.Duration(rand.Int63n(int64(p.jitter)))
		}

		if wait := requiredDelay - time.Since(p.lastRequest); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	p.lastRequest = time.Now()
	return nil
}
