package search

import (
	"fmt"
	"strconv"
	"strings"

	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
)

// buildFilter translates listing criteria into Meilisearch filter
// expressions, one per rule, to be joined with AND.
func buildFilter(c listing.Criteria) []string {
	filters := []string{
		fmt.Sprintf("status NOT IN %s", quoteList(statusNames(models.WithdrawnStatuses))),
		fmt.Sprintf("(status NOT IN %s OR updated_at >= %d)",
			quoteList(statusNames(models.ClosedStatuses)), c.ClosedVisibleSince.Unix()),
	}

	if c.AccountID != 0 {
		filters = append(filters, fmt.Sprintf("account_id = %d", c.AccountID))
	}

	if len(c.Kinds) > 0 {
		kinds := make([]string, len(c.Kinds))
		for i, k := range c.Kinds {
			kinds[i] = string(k)
		}
		filters = append(filters, fmt.Sprintf("kind IN %s", quoteList(kinds)))
	}

	if c.PropertyType != "" {
		filters = append(filters, fmt.Sprintf("property_type = %s", quote(string(c.PropertyType))))
	}

	// Location: city identity or a phrase of street/province. location_terms
	// holds whole-word phrases, so equality never matches inside a word:
	// "mayor" finds "calle mayor" but "may" finds nothing.
	if c.CitySlug != "" {
		filters = append(filters, fmt.Sprintf("(city_slug = %s OR location_terms = %s)",
			quote(c.CitySlug), quote(c.LocationTerm)))
	}
	if c.NeighborhoodSlug != "" {
		filters = append(filters, fmt.Sprintf("neighborhood_slug = %s", quote(c.NeighborhoodSlug)))
	}

	// Price range filter
	if c.PriceMin != nil {
		filters = append(filters, "price >= "+formatFloat(*c.PriceMin))
	}
	if c.PriceMax != nil {
		filters = append(filters, "price <= "+formatFloat(*c.PriceMax))
	}

	// Size filter; documents without a size never match
	if c.SizeMin != nil {
		filters = append(filters, "size >= "+formatFloat(*c.SizeMin))
	}
	if c.SizeMax != nil {
		filters = append(filters, "size <= "+formatFloat(*c.SizeMax))
	}

	if c.MinBedrooms != nil {
		filters = append(filters, fmt.Sprintf("bedrooms >= %d", *c.MinBedrooms))
	}
	if c.MinBathrooms != nil {
		filters = append(filters, fmt.Sprintf("bathrooms >= %d", *c.MinBathrooms))
	}

	if c.OpportunityOnly {
		filters = append(filters, "is_opportunity = true")
	}

	return filters
}

// sortRules maps a sort key to Meilisearch sort expressions
func sortRules(key listing.SortKey) []string {
	switch key.Normalize() {
	case listing.SortNewest:
		return []string{"created_at:desc", "id:asc"}
	case listing.SortPriceAsc:
		return []string{"price:asc", "id:asc"}
	case listing.SortPriceDesc:
		return []string{"price:desc", "id:asc"}
	case listing.SortSizeAsc:
		return []string{"size:asc", "id:asc"}
	case listing.SortSizeDesc:
		return []string{"size:desc", "id:asc"}
	default:
		return []string{"featured_rank:desc", "price:desc", "id:asc"}
	}
}

func statusNames(statuses []models.ListingStatus) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}

// quote wraps a value for a filter expression. Values come from slugs and
// enums, but quotes and backslashes are escaped anyway.
func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return `'` + strings.ReplaceAll(v, `'`, `\'`) + `'`
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
