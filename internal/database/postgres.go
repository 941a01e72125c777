package database

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"real-estate-search/internal/listing"
	"real-estate-search/internal/models"
)

// DB is the PostgreSQL listing store
type DB struct {
	conn *sqlx.DB
}

func NewDB(host, port, user, password, dbname string) (*DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	conn, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// NewDBFromConn wraps an existing connection
func NewDBFromConn(conn *sqlx.DB) *DB {
	return &DB{conn: conn}
}

// Ping checks the connection
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates the listing tables if they don't exist
func (db *DB) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS cities (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		slug VARCHAR(120) NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS neighborhoods (
		id BIGSERIAL PRIMARY KEY,
		city_id BIGINT NOT NULL REFERENCES cities(id),
		name VARCHAR(120) NOT NULL,
		slug VARCHAR(120) NOT NULL
	);

	CREATE TABLE IF NOT EXISTS properties (
		id BIGSERIAL PRIMARY KEY,
		account_id BIGINT NOT NULL,
		type VARCHAR(20) NOT NULL,
		street VARCHAR(255),
		province VARCHAR(120),
		neighborhood_id BIGINT REFERENCES neighborhoods(id),
		bedrooms INTEGER NOT NULL DEFAULT 0,
		bathrooms INTEGER NOT NULL DEFAULT 0,
		built_area DECIMAL(10, 2),
		plot_area DECIMAL(12, 2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS property_images (
		id BIGSERIAL PRIMARY KEY,
		property_id BIGINT NOT NULL REFERENCES properties(id),
		image_url TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		media_kind VARCHAR(20),
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS listings (
		id BIGSERIAL PRIMARY KEY,
		account_id BIGINT NOT NULL,
		property_id BIGINT NOT NULL REFERENCES properties(id),
		kind VARCHAR(20) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'draft',
		price DECIMAL(14, 2) NOT NULL,
		is_featured BOOLEAN NOT NULL DEFAULT FALSE,
		is_opportunity BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- Create indexes for filtering
	CREATE INDEX IF NOT EXISTS idx_neighborhoods_city_slug ON neighborhoods(city_id, slug);
	CREATE INDEX IF NOT EXISTS idx_property_images_property ON property_images(property_id, sort_order);
	CREATE INDEX IF NOT EXISTS idx_listings_status_kind ON listings(status, kind);
	CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
	CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at DESC);
	`
	_, err := db.conn.ExecContext(ctx, query)
	return err
}

// FindListings runs the listing query against PostgreSQL
func (db *DB) FindListings(ctx context.Context, q listing.Query) ([]listing.Record, error) {
	builder := sq.Select(listingColumns...).
		From("listings").
		JoinClause(joinProperties).
		JoinClause(joinNeighborhoods).
		JoinClause(joinCities)

	for _, cond := range criteriaConditions(q.Criteria) {
		builder = builder.Where(cond.expr, cond.args...)
	}

	builder = builder.OrderBy(orderClause(q.Sort))
	if q.Limit > 0 {
		builder = builder.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		builder = builder.Offset(uint64(q.Offset))
	}

	query, args, err := builder.PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	rows := []listingRow{}
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting listings: %w", err)
	}

	records := make([]listing.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	if len(records) == 0 {
		return records, nil
	}

	images, err := db.activeImages(ctx, propertyIDs(records))
	if err != nil {
		return nil, err
	}
	attachImages(records, images)
	return records, nil
}

type imageRow struct {
	ID         uint64  `db:"id"`
	PropertyID uint64  `db:"property_id"`
	ImageURL   string  `db:"image_url"`
	SortOrder  int     `db:"sort_order"`
	MediaKind  *string `db:"media_kind"`
	IsActive   bool    `db:"is_active"`
}

func (db *DB) activeImages(ctx context.Context, propertyIDs []uint64) ([]models.PropertyImage, error) {
	query, args, err := sq.Select("id", "property_id", "image_url", "sort_order", "media_kind", "is_active").
		From("property_images").
		Where(sq.Eq{"property_id": propertyIDs, "is_active": true}).
		OrderBy("property_id", "sort_order", "id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building image query: %w", err)
	}

	rows := []imageRow{}
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("error getting listing images: %w", err)
	}

	images := make([]models.PropertyImage, 0, len(rows))
	for _, r := range rows {
		images = append(images, models.PropertyImage{
			ID:         r.ID,
			PropertyID: r.PropertyID,
			ImageURL:   r.ImageURL,
			SortOrder:  r.SortOrder,
			MediaKind:  deref(r.MediaKind),
			IsActive:   r.IsActive,
		})
	}
	return images, nil
}
