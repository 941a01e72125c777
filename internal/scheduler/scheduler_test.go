package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"real-estate-search/internal/database"
	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeIndexer struct {
	batches  [][]uint64
	pruned   []int64
	failOn   int
	indexErr error
	pruneErr error
	block    chan struct{}
}

func (f *fakeIndexer) IndexRecords(records []listing.Record, indexedAt int64) error {
	if f.block != nil {
		<-f.block
	}
	if f.indexErr != nil && len(f.batches) == f.failOn {
		return f.indexErr
	}
	ids := []uint64{}
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	f.batches = append(f.batches, ids)
	return nil
}

func (f *fakeIndexer) PruneBefore(indexedAt int64) error {
	if f.pruneErr != nil {
		return f.pruneErr
	}
	f.pruned = append(f.pruned, indexedAt)
	return nil
}

type countingPacer struct{ waits int }

func (p *countingPacer) Wait(context.Context) error {
	p.waits++
	return nil
}

func catalogue() *database.MemoryRepository {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	statuses := []models.ListingStatus{
		models.ListingStatusActive,
		models.ListingStatusSold,
		models.ListingStatusDraft,
		models.ListingStatusActive,
		models.ListingStatusReserved,
		models.ListingStatusRented,
	}
	var records []listing.Record
	for i, st := range statuses {
		records = append(records, listing.Record{
			ID:        uint64(i + 1),
			Kind:      models.ListingKindSale,
			Status:    st,
			CreatedAt: base.AddDate(0, 0, i),
			UpdatedAt: base.AddDate(0, 0, i),
		})
	}
	return database.NewMemoryRepository(records)
}

func TestReindexerRun(t *testing.T) {
	idx := &fakeIndexer{}
	pacer := &countingPacer{}
	r := NewReindexer(catalogue(), idx, pacer, 2, quiet)
	started := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return started }

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	// drafts are never indexed; old closed listings are, the window is
	// applied at query time
	assert.Equal(t, [][]uint64{{6, 5}, {4, 2}, {1}}, idx.batches)
	assert.Equal(t, 5, stats.Indexed)
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 2, pacer.waits)
	assert.Equal(t, []int64{started.UnixMilli()}, idx.pruned)
	assert.Equal(t, stats, r.LastRun())
	assert.False(t, r.Running())
}

func TestReindexerExactBatchBoundary(t *testing.T) {
	idx := &fakeIndexer{}
	r := NewReindexer(catalogue(), idx, nil, 5, quiet)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Indexed)
	assert.Len(t, idx.batches, 1, "a full last batch is followed by an empty read")
}

func TestReindexerIndexFailureSkipsPrune(t *testing.T) {
	idx := &fakeIndexer{indexErr: errors.New("index unavailable"), failOn: 1}
	r := NewReindexer(catalogue(), idx, nil, 2, quiet)

	stats, err := r.Run(context.Background())
	assert.ErrorIs(t, err, idx.indexErr)
	assert.Equal(t, 2, stats.Indexed)
	assert.Empty(t, idx.pruned)
	assert.Contains(t, r.LastRun().Error, "index unavailable")
}

func TestReindexerPruneFailureFailsRun(t *testing.T) {
	idx := &fakeIndexer{pruneErr: errors.New("delete task failed")}
	r := NewReindexer(catalogue(), idx, nil, 10, quiet)

	stats, err := r.Run(context.Background())
	assert.ErrorIs(t, err, idx.pruneErr)
	assert.Equal(t, 5, stats.Indexed)
	assert.Contains(t, r.LastRun().Error, "delete task failed")
}

type brokenSource struct{}

func (brokenSource) FindListings(context.Context, listing.Query) ([]listing.Record, error) {
	return nil, errors.New("db down")
}

func TestReindexerSourceFailure(t *testing.T) {
	idx := &fakeIndexer{}
	r := NewReindexer(brokenSource{}, idx, nil, 2, quiet)

	_, err := r.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, idx.pruned)
}

func TestReindexerRejectsOverlap(t *testing.T) {
	idx := &fakeIndexer{block: make(chan struct{})}
	r := NewReindexer(catalogue(), idx, nil, 10, quiet)

	done := make(chan error)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	require.Eventually(t, r.Running, time.Second, time.Millisecond)
	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(idx.block)
	assert.NoError(t, <-done)
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(NewReindexer(catalogue(), &fakeIndexer{}, nil, 10, quiet), "0 3 * * *", time.Minute, quiet)
	require.NoError(t, s.Start())

	next := s.NextRun()
	assert.False(t, next.IsZero())
	assert.Equal(t, 3, next.Hour())
	s.Stop()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(NewReindexer(catalogue(), &fakeIndexer{}, nil, 10, quiet), "every night", 0, quiet)
	assert.Error(t, s.Start())
	assert.True(t, s.NextRun().IsZero())
}

func TestSchedulerRunNow(t *testing.T) {
	idx := &fakeIndexer{}
	s := NewScheduler(NewReindexer(catalogue(), idx, nil, 10, quiet), "0 3 * * *", time.Minute, quiet)

	stats, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Indexed)
	assert.Same(t, s.reindexer, s.Reindexer())
}
