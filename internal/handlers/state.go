package handlers

import "real-estate-search/internal/searchstate"

// stateJSON is the wire form of a search state
type stateJSON struct {
	Operation     string       `json:"operation"`
	PropertyType  string       `json:"property_type"`
	Location      locationJSON `json:"location"`
	PriceMin      *float64     `json:"price_min,omitempty"`
	PriceMax      *float64     `json:"price_max,omitempty"`
	AreaMin       *float64     `json:"area_min,omitempty"`
	AreaMax       *float64     `json:"area_max,omitempty"`
	MinBedrooms   *int         `json:"min_bedrooms,omitempty"`
	MinBathrooms  *int         `json:"min_bathrooms,omitempty"`
	IsOpportunity bool         `json:"is_opportunity"`
}

type locationJSON struct {
	Kind         string `json:"kind"`
	City         string `json:"city,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
}

var locationKinds = map[searchstate.LocationKind]string{
	searchstate.LocationUnset:        "unset",
	searchstate.LocationAll:          "all",
	searchstate.LocationOpportunity:  "opportunity",
	searchstate.LocationCity:         "city",
	searchstate.LocationNeighborhood: "neighborhood",
}

func newStateJSON(s searchstate.State) stateJSON {
	return stateJSON{
		Operation:    s.Operation.String(),
		PropertyType: s.PropertyType.String(),
		Location: locationJSON{
			Kind:         locationKinds[s.Location.Kind],
			City:         s.Location.City,
			Neighborhood: s.Location.Neighborhood,
		},
		PriceMin:      s.PriceMin,
		PriceMax:      s.PriceMax,
		AreaMin:       s.AreaMin,
		AreaMax:       s.AreaMax,
		MinBedrooms:   s.MinBedrooms,
		MinBathrooms:  s.MinBathrooms,
		IsOpportunity: s.IsOpportunity,
	}
}

// toState is lenient like the slug decoder: unknown names fall back to
// defaults and the result is normalized.
func (j stateJSON) toState() searchstate.State {
	kind := searchstate.LocationUnset
	for k, name := range locationKinds {
		if name == j.Location.Kind {
			kind = k
		}
	}
	// a bare city or neighborhood implies the kind
	if kind == searchstate.LocationUnset && j.Location.City != "" {
		kind = searchstate.LocationCity
		if j.Location.Neighborhood != "" {
			kind = searchstate.LocationNeighborhood
		}
	}

	return searchstate.State{
		Operation:    searchstate.ParseOperation(j.Operation),
		PropertyType: searchstate.ParsePropertyType(j.PropertyType),
		Location: searchstate.Location{
			Kind:         kind,
			City:         j.Location.City,
			Neighborhood: j.Location.Neighborhood,
		},
		PriceMin:      j.PriceMin,
		PriceMax:      j.PriceMax,
		AreaMin:       j.AreaMin,
		AreaMax:       j.AreaMax,
		MinBedrooms:   j.MinBedrooms,
		MinBathrooms:  j.MinBathrooms,
		IsOpportunity: j.IsOpportunity,
	}.Normalize()
}
