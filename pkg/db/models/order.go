package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// Order is a completed purchase. Created only inside the transaction that
// depletes inventory, immutable afterwards. UnitPrice is captured at purchase
// time: the listing price on the direct path, the accepted offer's proposed
// price on the offer path.
type Order struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID             uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	ListingID           uuid.UUID         `gorm:"column:listing_id;type:uuid;not null;index"`
	SellerStoreID       uuid.UUID         `gorm:"column:seller_store_id;type:uuid;not null;index"`
	Quantity            int               `gorm:"column:quantity;not null"`
	UnitPriceMinorUnits int64             `gorm:"column:unit_price_minor_units;not null"`
	Currency            enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status              enums.OrderStatus `gorm:"column:status;type:text;not null;default:'delivered'"`
	SourceOfferID       *uuid.UUID        `gorm:"column:source_offer_id;type:uuid"`
	DeliveredAt         time.Time         `gorm:"column:delivered_at;not null"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
}
