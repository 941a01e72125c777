package models

import "time"

// Listing is a publication of a property for a given transaction kind
type Listing struct {
	ID            uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID     uint64        `gorm:"not null;index" json:"account_id"`
	PropertyID    uint64        `gorm:"not null;index" json:"property_id"`
	Kind          ListingKind   `gorm:"type:varchar(20);not null;index" json:"kind"`
	Status        ListingStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Price         float64       `gorm:"type:decimal(14,2);not null;index" json:"price"`
	IsFeatured    bool          `gorm:"not null;default:false" json:"is_featured"`
	IsOpportunity bool          `gorm:"not null;default:false;index" json:"is_opportunity"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_listings_created_at,sort:desc" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Property Property `gorm:"foreignKey:PropertyID" json:"-"`
}

// TableName はテーブル名を明示的に指定
func (Listing) TableName() string {
	return "listings"
}

// ListingKind is the transaction category of a listing
type ListingKind string

const (
	ListingKindSale      ListingKind = "sale"
	ListingKindRent      ListingKind = "rent"
	ListingKindRentToOwn ListingKind = "rent_to_own"
)

// ListingStatus is the administrative/commercial state of a listing
type ListingStatus string

const (
	ListingStatusDraft     ListingStatus = "draft"
	ListingStatusDiscarded ListingStatus = "discarded"
	ListingStatusActive    ListingStatus = "active"
	ListingStatusReserved  ListingStatus = "reserved"
	ListingStatusSold      ListingStatus = "sold"
	ListingStatusRented    ListingStatus = "rented"
)

// WithdrawnStatuses are never shown publicly
var WithdrawnStatuses = []ListingStatus{ListingStatusDraft, ListingStatusDiscarded}

// ClosedStatuses are shown only for a short while after the last update
var ClosedStatuses = []ListingStatus{ListingStatusSold, ListingStatusRented}

// IsWithdrawn reports whether the status hides the listing unconditionally
func (s ListingStatus) IsWithdrawn() bool {
	return s == ListingStatusDraft || s == ListingStatusDiscarded
}

// IsClosed reports whether the listing has been sold or rented
func (s ListingStatus) IsClosed() bool {
	return s == ListingStatusSold || s == ListingStatusRented
}
