package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// Offer is a private price proposal scoped to a listing and the seller's
// store. Status is monotonic: once accepted or rejected it never returns to
// proposed. Price and message are visible only to the buyer and the owner of
// the seller store.
type Offer struct {
	ID                      uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID               uuid.UUID         `gorm:"column:listing_id;type:uuid;not null;index"`
	BuyerID                 uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerStoreID           uuid.UUID         `gorm:"column:seller_store_id;type:uuid;not null"`
	ProposedPriceMinorUnits int64             `gorm:"column:proposed_price_minor_units;not null"`
	Message                 *string           `gorm:"column:message"`
	Status                  enums.OfferStatus `gorm:"column:status;type:text;not null;default:'proposed'"`
	ResolvedAt              *time.Time        `gorm:"column:resolved_at"`
	CreatedAt               time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
