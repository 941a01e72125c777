package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"real-estate-search/internal/listing"
)

// DefaultIndex is the index listings are stored in
const DefaultIndex = "listings"

var (
	searchableAttributes = []string{
		"city",
		"neighborhood",
		"street",
		"province",
	}

	filterableAttributes = []string{
		"account_id",
		"status",
		"updated_at",
		"kind",
		"property_type",
		"city_slug",
		"location_terms",
		"neighborhood_slug",
		"price",
		"size",
		"bedrooms",
		"bathrooms",
		"is_opportunity",
		"indexed_at",
	}

	sortableAttributes = []string{
		"id",
		"featured_rank",
		"price",
		"size",
		"created_at",
	}
)

// SearchClient stores listings in Meilisearch and serves them back as a
// listing.Repository.
type SearchClient struct {
	client      *meilisearch.Client
	index       string
	taskTimeout time.Duration
}

// DefaultTaskTimeout bounds the wait for one indexing task
const DefaultTaskTimeout = 2 * time.Minute

var errTaskFailed = errors.New("meilisearch task failed")

func NewSearchClient(host, apiKey, index string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	if index == "" {
		index = DefaultIndex
	}

	return &SearchClient{
		client:      client,
		index:       index,
		taskTimeout: DefaultTaskTimeout,
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}

	idx := s.client.Index(s.index)

	if _, err := idx.UpdateSearchableAttributes(&searchableAttributes); err != nil {
		return fmt.Errorf("failed to update searchable attributes: %w", err)
	}
	if _, err := idx.UpdateFilterableAttributes(&filterableAttributes); err != nil {
		return fmt.Errorf("failed to update filterable attributes: %w", err)
	}
	if _, err := idx.UpdateSortableAttributes(&sortableAttributes); err != nil {
		return fmt.Errorf("failed to update sortable attributes: %w", err)
	}

	return nil
}

// Healthy reports whether the Meilisearch server answers
func (s *SearchClient) Healthy() bool {
	return s.client.IsHealthy()
}

// IndexRecords upserts listings. indexedAt tags the documents so a full
// rebuild can prune what it did not touch.
func (s *SearchClient) IndexRecords(records []listing.Record, indexedAt int64) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]listingDocument, 0, len(records))
	for _, r := range records {
		docs = append(docs, newDocument(r, indexedAt))
	}

	info, err := s.client.Index(s.index).AddDocuments(docs, "id")
	if err != nil {
		return fmt.Errorf("failed to index listings: %w", err)
	}
	if err := s.waitForTask(info); err != nil {
		return fmt.Errorf("failed to index listings: %w", err)
	}
	return nil
}

// PruneBefore removes documents last indexed before indexedAt
func (s *SearchClient) PruneBefore(indexedAt int64) error {
	info, err := s.client.Index(s.index).DeleteDocumentsByFilter(fmt.Sprintf("indexed_at < %d", indexedAt))
	if err != nil {
		return fmt.Errorf("failed to prune stale listings: %w", err)
	}
	if err := s.waitForTask(info); err != nil {
		return fmt.Errorf("failed to prune stale listings: %w", err)
	}
	return nil
}

// waitForTask blocks until an enqueued task finishes. Only a succeeded
// task counts: a failed or canceled one is an error.
func (s *SearchClient) waitForTask(info *meilisearch.TaskInfo) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	task, err := s.client.WaitForTask(info.TaskUID, meilisearch.WaitParams{
		Context:  ctx,
		Interval: 50 * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("task %d: %w", info.TaskUID, err)
	}
	if task.Status != meilisearch.TaskStatusSucceeded {
		return fmt.Errorf("%w: task %d is %s: %s", errTaskFailed, info.TaskUID, task.Status, task.Error.Message)
	}
	return nil
}

// FindListings answers a listing query from the index
func (s *SearchClient) FindListings(ctx context.Context, q listing.Query) ([]listing.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := newSearchRequest(q)
	res, err := s.client.Index(s.index).Search("", req)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}

	return parseHits(res.Hits)
}

func newSearchRequest(q listing.Query) *meilisearch.SearchRequest {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = listing.DefaultLimit
	}

	return &meilisearch.SearchRequest{
		Limit:  limit,
		Offset: int64(q.Offset),
		Filter: strings.Join(buildFilter(q.Criteria), " AND "),
		Sort:   sortRules(q.Sort),
	}
}

var errMalformedHit = errors.New("malformed search hit")

// parseHits fails on the first hit it cannot decode
func parseHits(hits []interface{}) ([]listing.Record, error) {
	records := make([]listing.Record, 0, len(hits))
	for i, hit := range hits {
		r, err := parseHit(hit)
		if err != nil {
			return nil, fmt.Errorf("%w at %d: %w", errMalformedHit, i, err)
		}
		records = append(records, r)
	}
	return records, nil
}
