package listing

import "strings"

// SortKey selects the result ordering. It travels in the "sort" query
// parameter, never in the slug.
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortSizeAsc   SortKey = "size-asc"
	SortSizeDesc  SortKey = "size-desc"
)

var sortAliases = map[string]SortKey{
	"":            SortFeatured,
	"featured":    SortFeatured,
	"destacados":  SortFeatured,
	"relevance":   SortFeatured,
	"newest":      SortNewest,
	"recent":      SortNewest,
	"recientes":   SortNewest,
	"date-desc":   SortNewest,
	"price-asc":   SortPriceAsc,
	"precio-asc":  SortPriceAsc,
	"price-desc":  SortPriceDesc,
	"precio-desc": SortPriceDesc,
	"size-asc":    SortSizeAsc,
	"area-asc":    SortSizeAsc,
	"metros-asc":  SortSizeAsc,
	"size-desc":   SortSizeDesc,
	"area-desc":   SortSizeDesc,
	"metros-desc": SortSizeDesc,
}

// ParseSortKey maps a query parameter to a SortKey. Unknown values fall
// back to SortFeatured.
func ParseSortKey(token string) SortKey {
	token = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(token)), "_", "-")
	if key, ok := sortAliases[token]; ok {
		return key
	}
	return SortFeatured
}

// Normalize maps unsupported keys to SortFeatured
func (k SortKey) Normalize() SortKey {
	switch k {
	case SortFeatured, SortNewest, SortPriceAsc, SortPriceDesc, SortSizeAsc, SortSizeDesc:
		return k
	}
	return ParseSortKey(string(k))
}

func (k SortKey) String() string {
	return string(k.Normalize())
}

// Less is the total order for k. Every key ends with the listing ID so
// equal sort values always come back in the same order.
func (k SortKey) Less(a, b *Record) bool {
	switch k.Normalize() {
	case SortNewest:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
	case SortPriceAsc:
		if a.Price != b.Price {
			return a.Price < b.Price
		}
	case SortPriceDesc:
		if a.Price != b.Price {
			return a.Price > b.Price
		}
	case SortSizeAsc, SortSizeDesc:
		sa, sb := a.Size(), b.Size()
		switch {
		case sa == nil && sb != nil:
			return false
		case sa != nil && sb == nil:
			return true
		case sa != nil && sb != nil && *sa != *sb:
			if k.Normalize() == SortSizeAsc {
				return *sa < *sb
			}
			return *sa > *sb
		}
	default:
		if a.IsFeatured != b.IsFeatured {
			return a.IsFeatured
		}
		if a.Price != b.Price {
			return a.Price > b.Price
		}
	}
	return a.ID < b.ID
}
