package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// Listing is a sellable instance of a product. Stock never goes negative and
// status flips to sold_out exactly when stock reaches zero; only an explicit
// restock flips it back. Listings are never hard-deleted.
type Listing struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerStoreID   uuid.UUID           `gorm:"column:seller_store_id;type:uuid;not null;index"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	PriceMinorUnits int64               `gorm:"column:price_minor_units;not null"`
	Currency        enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	StockOnHand     int                 `gorm:"column:stock_on_hand;not null;default:0"`
	Status          enums.ListingStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
