package listing

import (
	"sort"
	"time"

	"real-estate-search/internal/models"
)

// Record is one listing joined with its property, location and images, as
// returned by a Repository.
type Record struct {
	ID           uint64
	AccountID    uint64
	PropertyID   uint64
	Kind         models.ListingKind
	Status       models.ListingStatus
	Price        float64
	PropertyType models.PropertyType

	Bedrooms  int
	Bathrooms int
	BuiltArea *float64
	PlotArea  *float64

	City             string
	CitySlug         string
	Neighborhood     string
	NeighborhoodSlug string
	Province         string
	Street           string

	IsFeatured    bool
	IsOpportunity bool
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Images []Image
}

// Size is the declared size: built area, or plot area when none is recorded
func (r *Record) Size() *float64 {
	if r.BuiltArea != nil {
		return r.BuiltArea
	}
	return r.PlotArea
}

// Image is a property media item
type Image struct {
	ID        uint64 `json:"id"`
	URL       string `json:"url"`
	SortOrder int    `json:"sort_order"`
	MediaKind string `json:"media_kind,omitempty"`
	Active    bool   `json:"-"`
}

// Summary is what a results card needs
type Summary struct {
	ID            uint64               `json:"id"`
	PropertyID    uint64               `json:"property_id"`
	Price         float64              `json:"price"`
	PropertyType  models.PropertyType  `json:"property_type"`
	Kind          models.ListingKind   `json:"kind"`
	Status        models.ListingStatus `json:"status"`
	Bedrooms      int                  `json:"bedrooms"`
	Bathrooms     int                  `json:"bathrooms"`
	Size          *float64             `json:"size,omitempty"`
	City          string               `json:"city,omitempty"`
	Neighborhood  string               `json:"neighborhood,omitempty"`
	Province      string               `json:"province,omitempty"`
	Street        string               `json:"street,omitempty"`
	IsFeatured    bool                 `json:"is_featured"`
	IsOpportunity bool                 `json:"is_opportunity"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`

	PrimaryImage   *Image `json:"primary_image,omitempty"`
	SecondaryImage *Image `json:"secondary_image,omitempty"`
}

func newSummary(r Record) Summary {
	s := Summary{
		ID:            r.ID,
		PropertyID:    r.PropertyID,
		Price:         r.Price,
		PropertyType:  r.PropertyType,
		Kind:          r.Kind,
		Status:        r.Status,
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		Size:          r.Size(),
		City:          r.City,
		Neighborhood:  r.Neighborhood,
		Province:      r.Province,
		Street:        r.Street,
		IsFeatured:    r.IsFeatured,
		IsOpportunity: r.IsOpportunity,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	s.PrimaryImage, s.SecondaryImage = displayImages(r.Images)
	return s
}

// displayImages picks the two lowest-ordered active still images.
// Videos and virtual tours are never display images.
func displayImages(images []Image) (*Image, *Image) {
	candidates := make([]Image, 0, len(images))
	for _, img := range images {
		if !img.Active || models.IsMotionMedia(img.MediaKind) {
			continue
		}
		candidates = append(candidates, img)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SortOrder != candidates[j].SortOrder {
			return candidates[i].SortOrder < candidates[j].SortOrder
		}
		return candidates[i].ID < candidates[j].ID
	})

	var first, second *Image
	if len(candidates) > 0 {
		first = &candidates[0]
	}
	if len(candidates) > 1 {
		second = &candidates[1]
	}
	return first, second
}
