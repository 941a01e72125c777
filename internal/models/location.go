package models

// City is a municipality listings can be searched by
type City struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(120);not null" json:"name"`
	Slug string `gorm:"type:varchar(120);not null;uniqueIndex" json:"slug"`
}

// TableName specifies the table name
func (City) TableName() string {
	return "cities"
}

// Neighborhood belongs to exactly one city
type Neighborhood struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CityID uint64 `gorm:"not null;index:idx_neighborhood_city_slug,priority:1" json:"city_id"`
	Name   string `gorm:"type:varchar(120);not null" json:"name"`
	Slug   string `gorm:"type:varchar(120);not null;index:idx_neighborhood_city_slug,priority:2" json:"slug"`

	City City `gorm:"foreignKey:CityID" json:"city"`
}

// TableName specifies the table name
func (Neighborhood) TableName() string {
	return "neighborhoods"
}
