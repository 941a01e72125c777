package database

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
	"real-estate-search/internal/textnorm"
)

// Seed is a listing catalogue in YAML form. It backs the memory repository
// and can be imported into MySQL for local development.
type Seed struct {
	Listings []SeedListing `yaml:"listings"`
}

type SeedListing struct {
	ID          uint64       `yaml:"id"`
	AccountID   uint64       `yaml:"account_id"`
	Kind        string       `yaml:"kind"`
	Status      string       `yaml:"status"`
	Price       float64      `yaml:"price"`
	Featured    bool         `yaml:"featured"`
	Opportunity bool         `yaml:"opportunity"`
	CreatedAt   time.Time    `yaml:"created_at"`
	UpdatedAt   time.Time    `yaml:"updated_at"`
	Property    SeedProperty `yaml:"property"`
}

type SeedProperty struct {
	ID           uint64      `yaml:"id"`
	Type         string      `yaml:"type"`
	City         string      `yaml:"city"`
	Neighborhood string      `yaml:"neighborhood"`
	Street       string      `yaml:"street"`
	Province     string      `yaml:"province"`
	Bedrooms     int         `yaml:"bedrooms"`
	Bathrooms    int         `yaml:"bathrooms"`
	BuiltArea    *float64    `yaml:"built_area"`
	PlotArea     *float64    `yaml:"plot_area"`
	Images       []SeedImage `yaml:"images"`
}

type SeedImage struct {
	ID        uint64 `yaml:"id"`
	URL       string `yaml:"url"`
	SortOrder int    `yaml:"sort_order"`
	MediaKind string `yaml:"media_kind"`
	// nil means active
	Active *bool `yaml:"active"`
}

// LoadSeed reads a YAML seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes YAML seed data and fills in defaults
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	now := time.Now()
	for i := range seed.Listings {
		l := &seed.Listings[i]
		if l.ID == 0 {
			l.ID = uint64(i + 1)
		}
		if l.Property.ID == 0 {
			l.Property.ID = l.ID
		}
		if l.Kind == "" {
			l.Kind = string(models.ListingKindSale)
		}
		if l.Status == "" {
			l.Status = string(models.ListingStatusActive)
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = now
		}
		if l.UpdatedAt.IsZero() {
			l.UpdatedAt = l.CreatedAt
		}
		for j := range l.Property.Images {
			img := &l.Property.Images[j]
			if img.ID == 0 {
				img.ID = l.Property.ID*1000 + uint64(j+1)
			}
		}
	}
	return &seed, nil
}

// Records flattens the seed into engine records
func (s *Seed) Records() []listing.Record {
	records := make([]listing.Record, 0, len(s.Listings))
	for _, l := range s.Listings {
		p := l.Property
		r := listing.Record{
			ID:               l.ID,
			AccountID:        l.AccountID,
			PropertyID:       p.ID,
			Kind:             models.ListingKind(l.Kind),
			Status:           models.ListingStatus(l.Status),
			Price:            l.Price,
			PropertyType:     models.PropertyType(p.Type),
			Bedrooms:         p.Bedrooms,
			Bathrooms:        p.Bathrooms,
			BuiltArea:        p.BuiltArea,
			PlotArea:         p.PlotArea,
			City:             p.City,
			CitySlug:         textnorm.Slug(p.City),
			Neighborhood:     p.Neighborhood,
			NeighborhoodSlug: textnorm.Slug(p.Neighborhood),
			Province:         p.Province,
			Street:           p.Street,
			IsFeatured:       l.Featured,
			IsOpportunity:    l.Opportunity,
			CreatedAt:        l.CreatedAt,
			UpdatedAt:        l.UpdatedAt,
		}
		for _, img := range p.Images {
			r.Images = append(r.Images, listing.Image{
				ID:        img.ID,
				URL:       img.URL,
				SortOrder: img.SortOrder,
				MediaKind: img.MediaKind,
				Active:    img.Active == nil || *img.Active,
			})
		}
		records = append(records, r)
	}
	return records
}
