package listing

import (
	"time"

	"real-estate-search/internal/models"
	"real-estate-search/internal/searchstate"
	"real-estate-search/internal/textnorm"
)

// ClosedVisibilityWindow is how long a sold or rented listing stays public
// after its last update.
const ClosedVisibilityWindow = 14 * 24 * time.Hour

// Criteria is the full set of predicates a repository must apply. Zero
// values impose no restriction, except that withdrawn listings are always
// excluded and closed listings need UpdatedAt >= ClosedVisibleSince.
type Criteria struct {
	AccountID          uint64
	ClosedVisibleSince time.Time

	Kinds        []models.ListingKind
	PropertyType models.PropertyType

	// CitySlug matches the property's city; LocationTerm is the same place
	// as plain words, matched as a substring of street and province.
	CitySlug         string
	LocationTerm     string
	NeighborhoodSlug string

	PriceMin *float64
	PriceMax *float64
	SizeMin  *float64
	SizeMax  *float64

	MinBedrooms  *int
	MinBathrooms *int

	OpportunityOnly bool
}

var propertyTypes = map[searchstate.PropertyType]models.PropertyType{
	searchstate.Apartment:  models.PropertyTypeApartment,
	searchstate.House:      models.PropertyTypeHouse,
	searchstate.Commercial: models.PropertyTypeCommercial,
	searchstate.Land:       models.PropertyTypeLand,
	searchstate.Garage:     models.PropertyTypeGarage,
}

// KindsFor returns the listing kinds an operation reads as
func KindsFor(op searchstate.Operation) []models.ListingKind {
	if op == searchstate.ForRent {
		return []models.ListingKind{models.ListingKindRent, models.ListingKindRentToOwn}
	}
	return []models.ListingKind{models.ListingKindSale}
}

func newCriteria(s searchstate.State, closedSince time.Time, accountID uint64) Criteria {
	c := Criteria{
		AccountID:          accountID,
		ClosedVisibleSince: closedSince,
		Kinds:              KindsFor(s.Operation),
		PropertyType:       propertyTypes[s.PropertyType],
		PriceMin:           s.PriceMin,
		PriceMax:           s.PriceMax,
		SizeMin:            s.AreaMin,
		SizeMax:            s.AreaMax,
		MinBedrooms:        s.MinBedrooms,
		MinBathrooms:       s.MinBathrooms,
		OpportunityOnly:    s.IsOpportunity,
	}

	if s.Location.IsFiltering() {
		c.CitySlug = s.Location.City
		c.LocationTerm = textnorm.Words(s.Location.City)
		if s.Location.Kind == searchstate.LocationNeighborhood {
			c.NeighborhoodSlug = s.Location.Neighborhood
		}
	}
	return c
}

// Visible applies the publication rules alone
func (c *Criteria) Visible(r *Record) bool {
	if r.Status.IsWithdrawn() {
		return false
	}
	if r.Status.IsClosed() && r.UpdatedAt.Before(c.ClosedVisibleSince) {
		return false
	}
	return true
}

// Matches is the reference evaluation of c. SQL and search-index adapters
// translate the same rules into their own query languages.
func (c *Criteria) Matches(r *Record) bool {
	if !c.Visible(r) {
		return false
	}
	if c.AccountID != 0 && r.AccountID != c.AccountID {
		return false
	}
	if len(c.Kinds) > 0 && !containsKind(c.Kinds, r.Kind) {
		return false
	}
	if c.PropertyType != "" && r.PropertyType != c.PropertyType {
		return false
	}

	// permissive on purpose: location data is inconsistently normalized
	if c.CitySlug != "" {
		if r.CitySlug != c.CitySlug &&
			!textnorm.Contains(r.Street, c.LocationTerm) &&
			!textnorm.Contains(r.Province, c.LocationTerm) {
			return false
		}
	}
	if c.NeighborhoodSlug != "" && r.NeighborhoodSlug != c.NeighborhoodSlug {
		return false
	}

	if !inRange(&r.Price, c.PriceMin, c.PriceMax) {
		return false
	}
	if (c.SizeMin != nil || c.SizeMax != nil) && !inRange(r.Size(), c.SizeMin, c.SizeMax) {
		return false
	}
	if c.MinBedrooms != nil && r.Bedrooms < *c.MinBedrooms {
		return false
	}
	if c.MinBathrooms != nil && r.Bathrooms < *c.MinBathrooms {
		return false
	}
	if c.OpportunityOnly && !r.IsOpportunity {
		return false
	}
	return true
}

func containsKind(kinds []models.ListingKind, k models.ListingKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// inRange treats bounds as inclusive; an unknown value never satisfies a bound
func inRange(v, min, max *float64) bool {
	if v == nil {
		return min == nil && max == nil
	}
	if min != nil && *v < *min {
		return false
	}
	if max != nil && *v > *max {
		return false
	}
	return true
}
