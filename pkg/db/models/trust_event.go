package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// TrustEvent is the append-only audit trail explaining a trust profile
// movement. One event per triggering action.
type TrustEvent struct {
	ID                       uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID                  uuid.UUID         `gorm:"column:store_id;type:uuid;not null;index"`
	Reason                   enums.TrustReason `gorm:"column:reason;type:text;not null"`
	OverallDelta             float64           `gorm:"column:overall_delta;not null"`
	ProductSatisfactionDelta float64           `gorm:"column:product_satisfaction_delta;not null;default:0"`
	CommunicationDelta       float64           `gorm:"column:communication_delta;not null;default:0"`
	OrderID                  *uuid.UUID        `gorm:"column:order_id;type:uuid"`
	ReviewID                 *uuid.UUID        `gorm:"column:review_id;type:uuid"`
	ThreadID                 *uuid.UUID        `gorm:"column:thread_id;type:uuid"`
	Metadata                 json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt                time.Time         `gorm:"column:created_at;autoCreateTime"`
}
