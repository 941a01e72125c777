package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
	"real-estate-search/internal/searchstate"
)

var since = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestBuildFilter(t *testing.T) {
	for _, tc := range []struct {
		name     string
		criteria listing.Criteria
		want     []string
	}{
		{
			name:     "visibility only",
			criteria: listing.Criteria{ClosedVisibleSince: since},
			want: []string{
				"status NOT IN ['draft', 'discarded']",
				"(status NOT IN ['sold', 'rented'] OR updated_at >= 1717200000)",
			},
		},
		{
			name: "everything",
			criteria: listing.Criteria{
				ClosedVisibleSince: since,
				AccountID:          4,
				Kinds:              listing.KindsFor(searchstate.ForRent),
				PropertyType:       models.PropertyTypeHouse,
				CitySlug:           "santa-cruz-de-tenerife",
				LocationTerm:       "santa cruz de tenerife",
				NeighborhoodSlug:   "centro",
				PriceMin:           searchstate.Float(500),
				PriceMax:           searchstate.Float(1250.5),
				SizeMin:            searchstate.Float(60),
				SizeMax:            searchstate.Float(200),
				MinBedrooms:        searchstate.Int(2),
				MinBathrooms:       searchstate.Int(1),
				OpportunityOnly:    true,
			},
			want: []string{
				"status NOT IN ['draft', 'discarded']",
				"(status NOT IN ['sold', 'rented'] OR updated_at >= 1717200000)",
				"account_id = 4",
				"kind IN ['rent', 'rent_to_own']",
				"property_type = 'house'",
				"(city_slug = 'santa-cruz-de-tenerife' OR location_terms = 'santa cruz de tenerife')",
				"neighborhood_slug = 'centro'",
				"price >= 500",
				"price <= 1250.5",
				"size >= 60",
				"size <= 200",
				"bedrooms >= 2",
				"bathrooms >= 1",
				"is_opportunity = true",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, buildFilter(tc.criteria)); diff != "" {
				t.Errorf("buildFilter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'o\'donnell'`, quote("o'donnell"))
	assert.Equal(t, `'a\\b'`, quote(`a\b`))
}

func TestSortRules(t *testing.T) {
	assert.Equal(t, []string{"featured_rank:desc", "price:desc", "id:asc"}, sortRules(listing.SortFeatured))
	assert.Equal(t, []string{"featured_rank:desc", "price:desc", "id:asc"}, sortRules("whatever"))
	assert.Equal(t, []string{"size:desc", "id:asc"}, sortRules(listing.SortSizeDesc))
	assert.Equal(t, []string{"created_at:desc", "id:asc"}, sortRules(listing.SortNewest))
}

func TestLocationTerms(t *testing.T) {
	terms := locationTerms("Calle Mayor, Santa Cruz", "Santa Cruz")
	assert.Contains(t, terms, "santa cruz")
	assert.Contains(t, terms, "calle mayor santa cruz")
	assert.Contains(t, terms, "mayor")
	assert.NotContains(t, terms, "may", "terms never split a word")
	assert.Len(t, terms, 10, "duplicates across columns are stored once")

	long := locationTerms("a b c d e f g h")
	assert.NotContains(t, long, "a b c d e f g")
	assert.Contains(t, long, "b c d e f g")
	assert.Empty(t, locationTerms("", "  "))
}

func sampleRecord() listing.Record {
	built := 85.0
	return listing.Record{
		ID:               12,
		AccountID:        1,
		PropertyID:       120,
		Kind:             models.ListingKindSale,
		Status:           models.ListingStatusActive,
		Price:            240000,
		PropertyType:     models.PropertyTypeApartment,
		Bedrooms:         3,
		Bathrooms:        2,
		BuiltArea:        &built,
		City:             "Málaga",
		CitySlug:         "malaga",
		Neighborhood:     "El Limonar",
		NeighborhoodSlug: "el-limonar",
		Province:         "Málaga",
		Street:           "Paseo de Sancha 40",
		IsFeatured:       true,
		CreatedAt:        time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2024, 5, 3, 9, 30, 0, 0, time.UTC),
		Images: []listing.Image{
			{ID: 1, URL: "a.jpg", SortOrder: 0, Active: true},
			{ID: 2, URL: "b.jpg", SortOrder: 1, Active: false},
		},
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	r := sampleRecord()
	doc := newDocument(r, 99)

	assert.Equal(t, 1, doc.FeaturedRank)
	assert.Equal(t, 85.0, *doc.Size)
	assert.Contains(t, doc.LocationTerms, "paseo de sancha")
	assert.Len(t, doc.Images, 1)

	// hits come back as generic JSON maps
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var hit map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &hit))

	got, err := parseHit(hit)
	require.NoError(t, err)

	want := r
	want.Images = want.Images[:1]
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseHitsRejectsMalformed(t *testing.T) {
	_, err := parseHits([]interface{}{map[string]interface{}{"id": "not-a-number"}})
	assert.ErrorIs(t, err, errMalformedHit)
}

func TestNewSearchRequest(t *testing.T) {
	req := newSearchRequest(listing.Query{
		Criteria: listing.Criteria{ClosedVisibleSince: since, OpportunityOnly: true},
		Sort:     listing.SortPriceAsc,
		Limit:    5,
		Offset:   10,
	})
	assert.Equal(t, int64(5), req.Limit)
	assert.Equal(t, int64(10), req.Offset)
	assert.Equal(t, "status NOT IN ['draft', 'discarded'] AND (status NOT IN ['sold', 'rented'] OR updated_at >= 1717200000) AND is_opportunity = true", req.Filter)
	assert.Equal(t, []string{"price:asc", "id:asc"}, req.Sort)

	assert.Equal(t, int64(listing.DefaultLimit), newSearchRequest(listing.Query{}).Limit)
}

func TestFindListings(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indexes/listings/search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		doc := newDocument(sampleRecord(), 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"hits":               []interface{}{doc},
			"estimatedTotalHits": 1,
			"limit":              20,
			"offset":             0,
			"processingTimeMs":   1,
			"query":              "",
		})
	}))
	defer srv.Close()

	client := NewSearchClient(srv.URL, "", "")
	records, err := client.FindListings(context.Background(), listing.Query{
		Criteria: listing.Criteria{ClosedVisibleSince: since},
		Sort:     listing.SortNewest,
		Limit:    20,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(12), records[0].ID)
	assert.Equal(t, "el-limonar", records[0].NeighborhoodSlug)
	assert.Equal(t, []interface{}{"created_at:desc", "id:asc"}, body["sort"])
}

func TestFindListingsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"overloaded","code":"internal","type":"internal","link":""}`))
	}))
	defer srv.Close()

	client := NewSearchClient(srv.URL, "", "")
	_, err := client.FindListings(context.Background(), listing.Query{Limit: 20})
	assert.Error(t, err)
}

func TestFindListingsCancelled(t *testing.T) {
	client := NewSearchClient("http://127.0.0.1:1", "", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FindListings(ctx, listing.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

// fakeTasks serves document writes as enqueued tasks and reports each
// task with the status configured for its route.
func fakeTasks(t *testing.T, statuses map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var calls []string
	routes := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/indexes/listings/documents", "/indexes/listings/documents/delete":
			uid := len(routes) + 1
			routes[r.URL.Path] = uid
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"taskUid":  uid,
				"indexUid": "listings",
				"status":   "enqueued",
			})
		default:
			for path, uid := range routes {
				if r.URL.Path != "/tasks/"+strconv.Itoa(uid) {
					continue
				}
				task := map[string]interface{}{"uid": uid, "indexUid": "listings", "status": statuses[path]}
				if statuses[path] == "failed" {
					task["error"] = map[string]string{"message": "payload too large", "code": "payload_too_large"}
				}
				_ = json.NewEncoder(w).Encode(task)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestIndexRecordsWaitsForTask(t *testing.T) {
	srv, calls := fakeTasks(t, map[string]string{"/indexes/listings/documents": "succeeded"})

	client := NewSearchClient(srv.URL, "", "")
	require.NoError(t, client.IndexRecords([]listing.Record{sampleRecord()}, 1))
	assert.Equal(t, []string{"POST /indexes/listings/documents", "GET /tasks/1"}, *calls)
}

func TestIndexRecordsFailedTask(t *testing.T) {
	srv, _ := fakeTasks(t, map[string]string{"/indexes/listings/documents": "failed"})

	client := NewSearchClient(srv.URL, "", "")
	err := client.IndexRecords([]listing.Record{sampleRecord()}, 1)
	assert.ErrorIs(t, err, errTaskFailed)
	assert.ErrorContains(t, err, "payload too large")
}

func TestPruneBeforeFailedTask(t *testing.T) {
	srv, calls := fakeTasks(t, map[string]string{"/indexes/listings/documents/delete": "failed"})

	client := NewSearchClient(srv.URL, "", "")
	err := client.PruneBefore(1718452800000)
	assert.ErrorIs(t, err, errTaskFailed)
	assert.Equal(t, []string{"POST /indexes/listings/documents/delete", "GET /tasks/1"}, *calls)
}
