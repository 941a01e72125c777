package search

import (
	"encoding/json"
	"strings"
	"time"

	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
	"real-estate-search/internal/textnorm"
)

// maxTermWords caps the phrase length stored in location_terms
const maxTermWords = 6

// listingDocument is the shape of a listing in the search index
type listingDocument struct {
	ID               uint64          `json:"id"`
	AccountID        uint64          `json:"account_id"`
	PropertyID       uint64          `json:"property_id"`
	Kind             string          `json:"kind"`
	Status           string          `json:"status"`
	Price            float64         `json:"price"`
	PropertyType     string          `json:"property_type"`
	Bedrooms         int             `json:"bedrooms"`
	Bathrooms        int             `json:"bathrooms"`
	BuiltArea        *float64        `json:"built_area,omitempty"`
	PlotArea         *float64        `json:"plot_area,omitempty"`
	Size             *float64        `json:"size,omitempty"`
	City             string          `json:"city,omitempty"`
	CitySlug         string          `json:"city_slug,omitempty"`
	Neighborhood     string          `json:"neighborhood,omitempty"`
	NeighborhoodSlug string          `json:"neighborhood_slug,omitempty"`
	Province         string          `json:"province,omitempty"`
	Street           string          `json:"street,omitempty"`
	LocationTerms    []string        `json:"location_terms,omitempty"`
	IsFeatured       bool            `json:"is_featured"`
	FeaturedRank     int             `json:"featured_rank"`
	IsOpportunity    bool            `json:"is_opportunity"`
	CreatedAt        int64           `json:"created_at"`
	UpdatedAt        int64           `json:"updated_at"`
	Images           []listing.Image `json:"images,omitempty"`
	IndexedAt        int64           `json:"indexed_at"`
}

func newDocument(r listing.Record, indexedAt int64) listingDocument {
	doc := listingDocument{
		ID:               r.ID,
		AccountID:        r.AccountID,
		PropertyID:       r.PropertyID,
		Kind:             string(r.Kind),
		Status:           string(r.Status),
		Price:            r.Price,
		PropertyType:     string(r.PropertyType),
		Bedrooms:         r.Bedrooms,
		Bathrooms:        r.Bathrooms,
		BuiltArea:        r.BuiltArea,
		PlotArea:         r.PlotArea,
		Size:             r.Size(),
		City:             r.City,
		CitySlug:         r.CitySlug,
		Neighborhood:     r.Neighborhood,
		NeighborhoodSlug: r.NeighborhoodSlug,
		Province:         r.Province,
		Street:           r.Street,
		LocationTerms:    locationTerms(r.Street, r.Province),
		IsFeatured:       r.IsFeatured,
		IsOpportunity:    r.IsOpportunity,
		CreatedAt:        r.CreatedAt.Unix(),
		UpdatedAt:        r.UpdatedAt.Unix(),
		IndexedAt:        indexedAt,
	}
	if r.IsFeatured {
		doc.FeaturedRank = 1
	}
	// Active flag is not serialized, so only active images are stored
	for _, img := range r.Images {
		if img.Active {
			doc.Images = append(doc.Images, img)
		}
	}
	return doc
}

func (d listingDocument) toRecord() listing.Record {
	r := listing.Record{
		ID:               d.ID,
		AccountID:        d.AccountID,
		PropertyID:       d.PropertyID,
		Kind:             models.ListingKind(d.Kind),
		Status:           models.ListingStatus(d.Status),
		Price:            d.Price,
		PropertyType:     models.PropertyType(d.PropertyType),
		Bedrooms:         d.Bedrooms,
		Bathrooms:        d.Bathrooms,
		BuiltArea:        d.BuiltArea,
		PlotArea:         d.PlotArea,
		City:             d.City,
		CitySlug:         d.CitySlug,
		Neighborhood:     d.Neighborhood,
		NeighborhoodSlug: d.NeighborhoodSlug,
		Province:         d.Province,
		Street:           d.Street,
		IsFeatured:       d.IsFeatured,
		IsOpportunity:    d.IsOpportunity,
		CreatedAt:        time.Unix(d.CreatedAt, 0).UTC(),
		UpdatedAt:        time.Unix(d.UpdatedAt, 0).UTC(),
	}
	for _, img := range d.Images {
		img.Active = true
		r.Images = append(r.Images, img)
	}
	return r
}

// locationTerms lists every run of up to maxTermWords consecutive folded
// words of the free-text columns, so "Calle Mayor, Santa Cruz" can be
// matched by an equality filter on "santa cruz".
func locationTerms(texts ...string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, text := range texts {
		words := strings.Fields(textnorm.Words(textnorm.Slug(text)))
		for i := range words {
			for j := i + 1; j <= len(words) && j-i <= maxTermWords; j++ {
				term := strings.Join(words[i:j], " ")
				if !seen[term] {
					seen[term] = true
					terms = append(terms, term)
				}
			}
		}
	}
	return terms
}

// parseHit converts a search hit to a listing record
func parseHit(hit interface{}) (listing.Record, error) {
	// Convert hit to JSON then to the document struct
	hitJSON, err := json.Marshal(hit)
	if err != nil {
		return listing.Record{}, err
	}

	var doc listingDocument
	if err := json.Unmarshal(hitJSON, &doc); err != nil {
		return listing.Record{}, err
	}
	return doc.toRecord(), nil
}
