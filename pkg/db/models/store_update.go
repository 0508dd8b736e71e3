package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// StoreUpdate is the audited narrative record a seller action emits, e.g. the
// reason attached to a price change. Append-only.
type StoreUpdate struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID             `gorm:"column:store_id;type:uuid;not null;index"`
	ActorID   uuid.UUID             `gorm:"column:actor_id;type:uuid;not null"`
	Kind      enums.StoreUpdateKind `gorm:"column:kind;type:text;not null"`
	Body      string                `gorm:"column:body;not null"`
	Refs      json.RawMessage       `gorm:"column:refs;type:jsonb"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}
