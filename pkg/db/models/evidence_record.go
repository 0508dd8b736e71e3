package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// EvidenceRecord proves a buyer engaged with a listing before purchase.
// Unique per (buyer, listing, type); one row of any type for the pair is
// necessary and sufficient for purchase eligibility.
type EvidenceRecord struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID      uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex:ux_evidence_buyer_listing_type,priority:1"`
	ListingID    uuid.UUID          `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:ux_evidence_buyer_listing_type,priority:2"`
	EvidenceType enums.EvidenceType `gorm:"column:evidence_type;type:text;not null;uniqueIndex:ux_evidence_buyer_listing_type,priority:3"`
	Refs         json.RawMessage    `gorm:"column:refs;type:jsonb"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
