// Package slug maps a search state to a crawlable URL path and back.
//
// Paths look like
//
//	/venta-pisos/madrid-chamberi/precio-desde-150000/habitaciones-2
//	/alquiler-inmuebles/todas/oportunidad
//	/venta-inmuebles/oportunidades
//
// The first segment is operation+type, the second is the location and the
// rest are optional filters in any order. Decode never fails: fragments it
// does not understand are dropped, which widens the search.
package slug

import (
	"math"
	"strconv"
	"strings"

	"real-estate-search/internal/searchstate"
	"real-estate-search/internal/textnorm"
)

var operationTokens = map[searchstate.Operation]string{
	searchstate.ForSale: "venta",
	searchstate.ForRent: "alquiler",
}

var typeTokens = map[searchstate.PropertyType]string{
	searchstate.AnyType:    "inmuebles",
	searchstate.Apartment:  "pisos",
	searchstate.House:      "casas",
	searchstate.Commercial: "locales",
	searchstate.Land:       "terrenos",
	searchstate.Garage:     "garajes",
}

// filter keywords
const (
	kwPriceMin    = "precio-desde-"
	kwPriceMax    = "precio-hasta-"
	kwAreaMin     = "metros-desde-"
	kwAreaMax     = "metros-hasta-"
	kwBedrooms    = "habitaciones-"
	kwBathrooms   = "banos-"
	kwOpportunity = "oportunidad"
)

// citySpace joins the words of a multi-word city inside the location token
// so the city is always the first hyphen group.
const citySpace = "_"

// Encode returns the canonical path for state. It never fails.
func Encode(state searchstate.State) string {
	s := state.Normalize()

	segments := []string{
		operationTokens[s.Operation] + "-" + typeTokens[s.PropertyType],
		encodeLocation(s.Location),
	}

	if s.PriceMin != nil {
		segments = append(segments, kwPriceMin+formatNumber(*s.PriceMin))
	}
	if s.PriceMax != nil {
		segments = append(segments, kwPriceMax+formatNumber(*s.PriceMax))
	}
	if s.AreaMin != nil {
		segments = append(segments, kwAreaMin+formatNumber(*s.AreaMin))
	}
	if s.AreaMax != nil {
		segments = append(segments, kwAreaMax+formatNumber(*s.AreaMax))
	}
	if s.MinBedrooms != nil {
		segments = append(segments, kwBedrooms+strconv.Itoa(*s.MinBedrooms))
	}
	if s.MinBathrooms != nil {
		segments = append(segments, kwBathrooms+strconv.Itoa(*s.MinBathrooms))
	}
	// the opportunity location already carries the flag
	if s.IsOpportunity && s.Location.Kind != searchstate.LocationOpportunity {
		segments = append(segments, kwOpportunity)
	}

	return "/" + strings.Join(segments, "/")
}

func encodeLocation(l searchstate.Location) string {
	switch l.Kind {
	case searchstate.LocationOpportunity:
		return searchstate.SentinelOpportunity
	case searchstate.LocationCity:
		return strings.ReplaceAll(l.City, "-", citySpace)
	case searchstate.LocationNeighborhood:
		return strings.ReplaceAll(l.City, "-", citySpace) + "-" + l.Neighborhood
	default:
		return searchstate.SentinelAll
	}
}

// Decode parses path into a normalized state. Any input is accepted.
func Decode(path string) searchstate.State {
	var state searchstate.State

	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		seg = strings.ToLower(strings.TrimSpace(seg))
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	for i, seg := range segments {
		switch i {
		case 0:
			decodeOperationType(seg, &state)
		case 1:
			// filters may follow the operation directly
			if folded := textnorm.Fold(seg); isFilter(folded) {
				decodeFilter(folded, &state)
			} else {
				state.Location = decodeLocation(seg)
			}
		default:
			decodeFilter(textnorm.Fold(seg), &state)
		}
	}

	return state.Normalize()
}

// Canonical re-encodes a decoded path. Handlers use it to redirect stale or
// hand-edited URLs to the form Encode would have produced.
func Canonical(path string) string {
	return Encode(Decode(path))
}

func decodeOperationType(seg string, state *searchstate.State) {
	opToken, typeToken, ok := strings.Cut(seg, "-")
	if !ok {
		return
	}
	op, okOp := lookup(operationTokens, opToken)
	pt, okType := lookup(typeTokens, typeToken)
	if !okOp || !okType {
		return
	}
	state.Operation = op
	state.PropertyType = pt
}

func lookup[K comparable](tokens map[K]string, token string) (K, bool) {
	for k, v := range tokens {
		if v == token {
			return k, true
		}
	}
	var zero K
	return zero, false
}

func decodeLocation(seg string) searchstate.Location {
	if seg == searchstate.SentinelOpportunity {
		return searchstate.OpportunityOnly()
	}

	cityToken, nbToken, _ := strings.Cut(seg, "-")
	city := textnorm.Slug(strings.ReplaceAll(cityToken, citySpace, " "))
	if city == "" || searchstate.IsReservedCity(city) {
		return searchstate.Location{}
	}

	nb := textnorm.Slug(nbToken)
	if nb == "" {
		return searchstate.Location{Kind: searchstate.LocationCity, City: city}
	}
	return searchstate.Location{
		Kind:         searchstate.LocationNeighborhood,
		City:         city,
		Neighborhood: nb,
	}
}

func isFilter(seg string) bool {
	if seg == kwOpportunity {
		return true
	}
	for _, kw := range []string{kwPriceMin, kwPriceMax, kwAreaMin, kwAreaMax, kwBedrooms, kwBathrooms} {
		if strings.HasPrefix(seg, kw) {
			return true
		}
	}
	return false
}

func decodeFilter(seg string, state *searchstate.State) {
	if seg == kwOpportunity {
		state.IsOpportunity = true
		return
	}

	// a malformed repeat never clears a value parsed earlier
	for _, f := range []struct {
		keyword string
		target  **float64
	}{
		{kwPriceMin, &state.PriceMin},
		{kwPriceMax, &state.PriceMax},
		{kwAreaMin, &state.AreaMin},
		{kwAreaMax, &state.AreaMax},
	} {
		if rest, ok := strings.CutPrefix(seg, f.keyword); ok {
			if v := parseNumber(rest); v != nil {
				*f.target = v
			}
			return
		}
	}

	for _, f := range []struct {
		keyword string
		target  **int
	}{
		{kwBedrooms, &state.MinBedrooms},
		{kwBathrooms, &state.MinBathrooms},
	} {
		if rest, ok := strings.CutPrefix(seg, f.keyword); ok {
			if n := parseCount(rest); n != nil {
				*f.target = n
			}
			return
		}
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseNumber accepts plain non-negative decimals only: no sign, exponent,
// hex or "inf"/"nan" spellings that ParseFloat would otherwise take.
func parseNumber(token string) *float64 {
	if token == "" || strings.Trim(token, "0123456789.") != "" || strings.Count(token, ".") > 1 {
		return nil
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseCount(token string) *int {
	if token == "" || strings.Trim(token, "0123456789") != "" {
		return nil
	}
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 || n > searchstate.MaxRoomCount {
		return nil
	}
	return &n
}
