package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// Promotion is a time-boxed discount slot for a listing. At most one live
// (active or queued) promotion per listing; position orders the FIFO queue.
type Promotion struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID          uuid.UUID             `gorm:"column:listing_id;type:uuid;not null;index"`
	SellerStoreID      uuid.UUID             `gorm:"column:seller_store_id;type:uuid;not null"`
	OriginalPriceMinor int64                 `gorm:"column:original_price_minor;not null"`
	PromoPriceMinor    int64                 `gorm:"column:promo_price_minor;not null"`
	Status             enums.PromotionStatus `gorm:"column:status;type:text;not null"`
	Position           int64                 `gorm:"column:position;not null"`
	ExpiresAt          time.Time             `gorm:"column:expires_at;not null"`
	ActivatedAt        *time.Time            `gorm:"column:activated_at"`
	EndedAt            *time.Time            `gorm:"column:ended_at"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
