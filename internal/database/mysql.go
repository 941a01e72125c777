package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
	"real-estate-search/internal/textnorm"
)

type GormDB struct {
	db *gorm.DB
}

func NewGormDB(host, port, user, password, dbname string) (*GormDB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, dbname)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	// Test connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return &GormDB{db: db}, nil
}

// NewGormDBFromDB creates a GormDB wrapper from an existing gorm.DB instance
func NewGormDBFromDB(db *gorm.DB) *GormDB {
	return &GormDB{db: db}
}

// DB returns the underlying gorm.DB instance
func (gdb *GormDB) DB() *gorm.DB {
	return gdb.db
}

// Ping checks the connection
func (gdb *GormDB) Ping(ctx context.Context) error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (gdb *GormDB) Close() error {
	sqlDB, err := gdb.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitSchema creates tables using GORM AutoMigrate
func (gdb *GormDB) InitSchema() error {
	return gdb.db.AutoMigrate(
		&models.City{},
		&models.Neighborhood{},
		&models.Property{},
		&models.PropertyImage{},
		&models.Listing{},
	)
}

// FindListings runs the listing query. Images are loaded with a second
// query so the main select stays one row per listing.
func (gdb *GormDB) FindListings(ctx context.Context, q listing.Query) ([]listing.Record, error) {
	tx := gdb.db.WithContext(ctx).
		Table("listings").
		Select(strings.Join(listingColumns, ", ")).
		Joins(joinProperties).
		Joins(joinNeighborhoods).
		Joins(joinCities)

	for _, cond := range criteriaConditions(q.Criteria) {
		tx = tx.Where(cond.expr, cond.args...)
	}

	tx = tx.Order(orderClause(q.Sort))
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}

	var rows []listingRow
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	records := make([]listing.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	if len(records) == 0 {
		return records, nil
	}

	var images []models.PropertyImage
	err := gdb.db.WithContext(ctx).
		Where("property_id IN ? AND is_active = ?", propertyIDs(records), true).
		Order("property_id, sort_order, id").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query listing images: %w", err)
	}

	attachImages(records, images)
	return records, nil
}

// ImportSeed writes a seed catalogue in one transaction. Cities and
// neighborhoods are created on first use and matched by slug afterwards.
func (gdb *GormDB) ImportSeed(ctx context.Context, seed *Seed) error {
	return gdb.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, l := range seed.Listings {
			nbID, err := ensureNeighborhood(tx, l.Property.City, l.Property.Neighborhood)
			if err != nil {
				return err
			}

			property := models.Property{
				ID:             l.Property.ID,
				AccountID:      l.AccountID,
				Type:           models.PropertyType(l.Property.Type),
				Street:         l.Property.Street,
				Province:       l.Property.Province,
				NeighborhoodID: nbID,
				Bedrooms:       l.Property.Bedrooms,
				Bathrooms:      l.Property.Bathrooms,
				BuiltArea:      l.Property.BuiltArea,
				PlotArea:       l.Property.PlotArea,
			}
			for _, img := range l.Property.Images {
				property.Images = append(property.Images, models.PropertyImage{
					ID:        img.ID,
					ImageURL:  img.URL,
					SortOrder: img.SortOrder,
					MediaKind: img.MediaKind,
					IsActive:  img.Active == nil || *img.Active,
				})
			}
			if err := tx.Save(&property).Error; err != nil {
				return fmt.Errorf("failed to save property %d: %w", property.ID, err)
			}

			row := models.Listing{
				ID:            l.ID,
				AccountID:     l.AccountID,
				PropertyID:    property.ID,
				Kind:          models.ListingKind(l.Kind),
				Status:        models.ListingStatus(l.Status),
				Price:         l.Price,
				IsFeatured:    l.Featured,
				IsOpportunity: l.Opportunity,
				CreatedAt:     l.CreatedAt,
				UpdatedAt:     l.UpdatedAt,
			}
			if err := tx.Omit("Property").Save(&row).Error; err != nil {
				return fmt.Errorf("failed to save listing %d: %w", row.ID, err)
			}
		}
		return nil
	})
}

// ensureNeighborhood returns nil when the property has no neighborhood
func ensureNeighborhood(tx *gorm.DB, cityName, nbName string) (*uint64, error) {
	citySlug, nbSlug := textnorm.Slug(cityName), textnorm.Slug(nbName)
	if citySlug == "" || nbSlug == "" {
		return nil, nil
	}

	city := models.City{Name: cityName, Slug: citySlug}
	if err := tx.Where("slug = ?", citySlug).FirstOrCreate(&city).Error; err != nil {
		return nil, fmt.Errorf("failed to save city %q: %w", citySlug, err)
	}

	nb := models.Neighborhood{CityID: city.ID, Name: nbName, Slug: nbSlug}
	if err := tx.Omit("City").Where("city_id = ? AND slug = ?", city.ID, nbSlug).FirstOrCreate(&nb).Error; err != nil {
		return nil, fmt.Errorf("failed to save neighborhood %q: %w", nbSlug, err)
	}
	return &nb.ID, nil
}
