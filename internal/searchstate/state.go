// Package searchstate holds the value object describing what a visitor is
// searching for. It is shared by the slug codec and the listing query engine.
package searchstate

import (
	"math"

	"real-estate-search/internal/textnorm"
)

// Operation is the transaction the visitor is looking for
type Operation int

const (
	ForSale Operation = iota
	ForRent
)

func (o Operation) String() string {
	if o == ForRent {
		return "for-rent"
	}
	return "for-sale"
}

// PropertyType restricts the physical kind of property
type PropertyType int

const (
	AnyType PropertyType = iota
	Apartment
	House
	Commercial
	Land
	Garage
)

var propertyTypeNames = map[PropertyType]string{
	AnyType:    "any",
	Apartment:  "apartment",
	House:      "house",
	Commercial: "commercial",
	Land:       "land",
	Garage:     "garage",
}

func (t PropertyType) String() string {
	if name, ok := propertyTypeNames[t]; ok {
		return name
	}
	return "any"
}

// ParsePropertyType is the inverse of String; unknown names mean AnyType
func ParsePropertyType(name string) PropertyType {
	for t, n := range propertyTypeNames {
		if n == name {
			return t
		}
	}
	return AnyType
}

// ParseOperation accepts the String form; anything else is ForSale
func ParseOperation(name string) Operation {
	if name == ForRent.String() {
		return ForRent
	}
	return ForSale
}

// State is the complete set of active search filters.
// Nil pointers mean "unconstrained".
type State struct {
	Operation    Operation
	PropertyType PropertyType
	Location     Location

	PriceMin *float64
	PriceMax *float64
	AreaMin  *float64
	AreaMax  *float64

	MinBedrooms  *int
	MinBathrooms *int

	IsOpportunity bool
}

// MaxRoomCount bounds MinBedrooms/MinBathrooms
const MaxRoomCount = 99

// Normalize returns the canonical form of s. Two states with equal
// normalized forms select exactly the same listings.
func (s State) Normalize() State {
	if s.Operation != ForRent {
		s.Operation = ForSale
	}
	if _, ok := propertyTypeNames[s.PropertyType]; !ok {
		s.PropertyType = AnyType
	}

	s.Location = s.Location.Normalize()
	if s.Location.Kind == LocationOpportunity {
		s.IsOpportunity = true
	}

	s.PriceMin = cleanBound(s.PriceMin)
	s.PriceMax = cleanBound(s.PriceMax)
	s.AreaMin = cleanBound(s.AreaMin)
	s.AreaMax = cleanBound(s.AreaMax)
	s.MinBedrooms = cleanCount(s.MinBedrooms)
	s.MinBathrooms = cleanCount(s.MinBathrooms)
	return s
}

// HasInvertedRange reports a min bound above its max bound. Such a state
// is well formed enough to carry around but matches nothing.
func (s State) HasInvertedRange() bool {
	return inverted(s.PriceMin, s.PriceMax) || inverted(s.AreaMin, s.AreaMax)
}

func inverted(min, max *float64) bool {
	return min != nil && max != nil && *min > *max
}

func cleanBound(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	c := *v
	if c == 0 {
		c = 0 // drops the sign of -0
	}
	return &c
}

func cleanCount(v *int) *int {
	if v == nil || *v < 1 || *v > MaxRoomCount {
		return nil
	}
	c := *v
	return &c
}

// Float and Int build optional fields inline
func Float(v float64) *float64 { return &v }

func Int(v int) *int { return &v }

// LocationKind tags the Location variant
type LocationKind int

const (
	LocationUnset LocationKind = iota
	LocationAll
	LocationOpportunity
	LocationCity
	LocationNeighborhood
)

// Location is a tagged variant. City and Neighborhood are slugs and are only
// meaningful for LocationCity / LocationNeighborhood.
type Location struct {
	Kind         LocationKind
	City         string
	Neighborhood string
}

// AllLocations is an explicit "anywhere" choice
func AllLocations() Location { return Location{Kind: LocationAll} }

// OpportunityOnly selects opportunity listings regardless of location
func OpportunityOnly() Location { return Location{Kind: LocationOpportunity} }

// InCity restricts to a city given by name or slug
func InCity(city string) Location {
	return Location{Kind: LocationCity, City: textnorm.Slug(city)}.Normalize()
}

// InNeighborhood restricts to a neighborhood of a city
func InNeighborhood(city, neighborhood string) Location {
	return Location{
		Kind:         LocationNeighborhood,
		City:         textnorm.Slug(city),
		Neighborhood: textnorm.Slug(neighborhood),
	}.Normalize()
}

// IsFiltering reports whether the location narrows results by place
func (l Location) IsFiltering() bool {
	return l.Kind == LocationCity || l.Kind == LocationNeighborhood
}

// Reserved words that can never be a city or a neighborhood
const (
	SentinelAll         = "todas"
	SentinelOpportunity = "oportunidades"
)

var allWords = map[string]bool{"todas": true, "todos": true, "all": true}

// filter words open a path segment that would otherwise read as a location
var filterWords = map[string]bool{
	"oportunidad":  true,
	"precio":       true,
	"metros":       true,
	"habitaciones": true,
	"banos":        true,
}

// IsAllWord reports whether token is one of the "whole area" words
func IsAllWord(token string) bool {
	return allWords[token]
}

// IsReservedCity reports whether token cannot name a city
func IsReservedCity(token string) bool {
	return allWords[token] || filterWords[token] || token == SentinelOpportunity
}

// Normalize applies the cross-field rules: AllLocations collapses to Unset,
// a neighborhood without a city is dropped, a neighborhood spelled as an
// "all" word means the whole city.
func (l Location) Normalize() Location {
	switch l.Kind {
	case LocationOpportunity:
		return Location{Kind: LocationOpportunity}
	case LocationCity, LocationNeighborhood:
		city := textnorm.Slug(l.City)
		if city == "" || IsReservedCity(city) {
			return Location{}
		}
		nb := ""
		if l.Kind == LocationNeighborhood {
			nb = textnorm.Slug(l.Neighborhood)
		}
		if nb == "" || IsAllWord(nb) {
			return Location{Kind: LocationCity, City: city}
		}
		return Location{Kind: LocationNeighborhood, City: city, Neighborhood: nb}
	default:
		return Location{}
	}
}
