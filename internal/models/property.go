package models

import "time"

type Property struct {
	// 基本情報
	ID        uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID uint64       `gorm:"not null;index" json:"account_id"`
	Type      PropertyType `gorm:"type:varchar(20);not null;index" json:"type"`

	// 所在地 (street/province are free text and not normalized)
	Street         string        `gorm:"type:varchar(255)" json:"street,omitempty"`
	Province       string        `gorm:"type:varchar(120)" json:"province,omitempty"`
	NeighborhoodID *uint64       `gorm:"index" json:"neighborhood_id,omitempty"`
	Neighborhood   *Neighborhood `gorm:"foreignKey:NeighborhoodID" json:"neighborhood,omitempty"`

	// フィルタ用属性
	Bedrooms  int      `gorm:"not null;default:0;index" json:"bedrooms"`
	Bathrooms int      `gorm:"not null;default:0" json:"bathrooms"`
	BuiltArea *float64 `gorm:"type:decimal(10,2)" json:"built_area,omitempty"`
	PlotArea  *float64 `gorm:"type:decimal(12,2)" json:"plot_area,omitempty"`

	Images []PropertyImage `gorm:"foreignKey:PropertyID" json:"images,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// TableName はテーブル名を明示的に指定
func (Property) TableName() string {
	return "properties"
}

// Size returns the declared size used for filtering and sorting:
// the built area, or the plot area when no built area is recorded.
func (p *Property) Size() *float64 {
	if p.BuiltArea != nil {
		return p.BuiltArea
	}
	return p.PlotArea
}

// PropertyType is the physical classification of a property
type PropertyType string

const (
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeGarage     PropertyType = "garage"
)
