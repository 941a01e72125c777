package database

import (
	"strings"
	"time"

	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
)

// listingRow is one row of the listing/property/location join
type listingRow struct {
	ID               uint64    `gorm:"column:id" db:"id"`
	AccountID        uint64    `gorm:"column:account_id" db:"account_id"`
	PropertyID       uint64    `gorm:"column:property_id" db:"property_id"`
	Kind             string    `gorm:"column:kind" db:"kind"`
	Status           string    `gorm:"column:status" db:"status"`
	Price            float64   `gorm:"column:price" db:"price"`
	PropertyType     string    `gorm:"column:property_type" db:"property_type"`
	Bedrooms         int       `gorm:"column:bedrooms" db:"bedrooms"`
	Bathrooms        int       `gorm:"column:bathrooms" db:"bathrooms"`
	BuiltArea        *float64  `gorm:"column:built_area" db:"built_area"`
	PlotArea         *float64  `gorm:"column:plot_area" db:"plot_area"`
	City             *string   `gorm:"column:city" db:"city"`
	CitySlug         *string   `gorm:"column:city_slug" db:"city_slug"`
	Neighborhood     *string   `gorm:"column:neighborhood" db:"neighborhood"`
	NeighborhoodSlug *string   `gorm:"column:neighborhood_slug" db:"neighborhood_slug"`
	Province         *string   `gorm:"column:province" db:"province"`
	Street           *string   `gorm:"column:street" db:"street"`
	IsFeatured       bool      `gorm:"column:is_featured" db:"is_featured"`
	IsOpportunity    bool      `gorm:"column:is_opportunity" db:"is_opportunity"`
	CreatedAt        time.Time `gorm:"column:created_at" db:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at" db:"updated_at"`
}

func (row listingRow) toRecord() listing.Record {
	return listing.Record{
		ID:               row.ID,
		AccountID:        row.AccountID,
		PropertyID:       row.PropertyID,
		Kind:             models.ListingKind(row.Kind),
		Status:           models.ListingStatus(row.Status),
		Price:            row.Price,
		PropertyType:     models.PropertyType(row.PropertyType),
		Bedrooms:         row.Bedrooms,
		Bathrooms:        row.Bathrooms,
		BuiltArea:        row.BuiltArea,
		PlotArea:         row.PlotArea,
		City:             deref(row.City),
		CitySlug:         deref(row.CitySlug),
		Neighborhood:     deref(row.Neighborhood),
		NeighborhoodSlug: deref(row.NeighborhoodSlug),
		Province:         deref(row.Province),
		Street:           deref(row.Street),
		IsFeatured:       row.IsFeatured,
		IsOpportunity:    row.IsOpportunity,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func imageToListing(img models.PropertyImage) listing.Image {
	return listing.Image{
		ID:        img.ID,
		URL:       img.ImageURL,
		SortOrder: img.SortOrder,
		MediaKind: img.MediaKind,
		Active:    img.IsActive,
	}
}

// attachImages groups images (already ordered) onto their records
func attachImages(records []listing.Record, images []models.PropertyImage) {
	byProperty := make(map[uint64][]listing.Image)
	for _, img := range images {
		byProperty[img.PropertyID] = append(byProperty[img.PropertyID], imageToListing(img))
	}
	for i := range records {
		records[i].Images = byProperty[records[i].PropertyID]
	}
}

func propertyIDs(records []listing.Record) []uint64 {
	seen := make(map[uint64]bool, len(records))
	ids := make([]uint64, 0, len(records))
	for _, r := range records {
		if !seen[r.PropertyID] {
			seen[r.PropertyID] = true
			ids = append(ids, r.PropertyID)
		}
	}
	return ids
}

var listingColumns = []string{
	"listings.id",
	"listings.account_id",
	"listings.property_id",
	"listings.kind",
	"listings.status",
	"listings.price",
	"properties.type AS property_type",
	"properties.bedrooms",
	"properties.bathrooms",
	"properties.built_area",
	"properties.plot_area",
	"cities.name AS city",
	"cities.slug AS city_slug",
	"neighborhoods.name AS neighborhood",
	"neighborhoods.slug AS neighborhood_slug",
	"properties.province",
	"properties.street",
	"listings.is_featured",
	"listings.is_opportunity",
	"listings.created_at",
	"listings.updated_at",
}

const (
	joinProperties    = "JOIN properties ON properties.id = listings.property_id"
	joinNeighborhoods = "LEFT JOIN neighborhoods ON neighborhoods.id = properties.neighborhood_id"
	joinCities        = "LEFT JOIN cities ON cities.id = neighborhoods.city_id"

	sizeExpr = "COALESCE(properties.built_area, properties.plot_area)"
)

// condition is a "?" placeholder expression usable with gorm and squirrel
type condition struct {
	expr string
	args []interface{}
}

func placeholders(n int) string {
	return "(" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}

func statusArgs(statuses []models.ListingStatus) []interface{} {
	args := make([]interface{}, len(statuses))
	for i, s := range statuses {
		args[i] = string(s)
	}
	return args
}

// criteriaConditions translates listing.Criteria into SQL predicates.
// Location matching mirrors Criteria.Matches: city identity, or the place
// name as a case-insensitive substring of street or province.
func criteriaConditions(c listing.Criteria) []condition {
	conds := []condition{
		{
			expr: "listings.status NOT IN " + placeholders(len(models.WithdrawnStatuses)),
			args: statusArgs(models.WithdrawnStatuses),
		},
		{
			expr: "(listings.status NOT IN " + placeholders(len(models.ClosedStatuses)) + " OR listings.updated_at >= ?)",
			args: append(statusArgs(models.ClosedStatuses), c.ClosedVisibleSince),
		},
	}

	if c.AccountID != 0 {
		conds = append(conds, condition{"listings.account_id = ?", []interface{}{c.AccountID}})
	}
	if len(c.Kinds) > 0 {
		args := make([]interface{}, len(c.Kinds))
		for i, k := range c.Kinds {
			args[i] = string(k)
		}
		conds = append(conds, condition{"listings.kind IN " + placeholders(len(args)), args})
	}
	if c.PropertyType != "" {
		conds = append(conds, condition{"properties.type = ?", []interface{}{string(c.PropertyType)}})
	}
	if c.CitySlug != "" {
		like := "%" + strings.ToLower(c.LocationTerm) + "%"
		conds = append(conds, condition{
			"(cities.slug = ? OR LOWER(properties.street) LIKE ? OR LOWER(properties.province) LIKE ?)",
			[]interface{}{c.CitySlug, like, like},
		})
	}
	if c.NeighborhoodSlug != "" {
		conds = append(conds, condition{"neighborhoods.slug = ?", []interface{}{c.NeighborhoodSlug}})
	}
	if c.PriceMin != nil {
		conds = append(conds, condition{"listings.price >= ?", []interface{}{*c.PriceMin}})
	}
	if c.PriceMax != nil {
		conds = append(conds, condition{"listings.price <= ?", []interface{}{*c.PriceMax}})
	}
	if c.SizeMin != nil {
		conds = append(conds, condition{sizeExpr + " >= ?", []interface{}{*c.SizeMin}})
	}
	if c.SizeMax != nil {
		conds = append(conds, condition{sizeExpr + " <= ?", []interface{}{*c.SizeMax}})
	}
	if c.MinBedrooms != nil {
		conds = append(conds, condition{"properties.bedrooms >= ?", []interface{}{*c.MinBedrooms}})
	}
	if c.MinBathrooms != nil {
		conds = append(conds, condition{"properties.bathrooms >= ?", []interface{}{*c.MinBathrooms}})
	}
	if c.OpportunityOnly {
		conds = append(conds, condition{"listings.is_opportunity = ?", []interface{}{true}})
	}
	return conds
}

// orderClause maps a sort key to ORDER BY. Unknown sizes go last in both
// directions and the listing id breaks every tie.
func orderClause(sortKey listing.SortKey) string {
	switch sortKey.Normalize() {
	case listing.SortNewest:
		return "listings.created_at DESC, listings.id ASC"
	case listing.SortPriceAsc:
		return "listings.price ASC, listings.id ASC"
	case listing.SortPriceDesc:
		return "listings.price DESC, listings.id ASC"
	case listing.SortSizeAsc:
		return "CASE WHEN " + sizeExpr + " IS NULL THEN 1 ELSE 0 END, " + sizeExpr + " ASC, listings.id ASC"
	case listing.SortSizeDesc:
		return "CASE WHEN " + sizeExpr + " IS NULL THEN 1 ELSE 0 END, " + sizeExpr + " DESC, listings.id ASC"
	default:
		return "listings.is_featured DESC, listings.price DESC, listings.id ASC"
	}
}
