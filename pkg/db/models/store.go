package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is a seller surface owning listings, offers and promotions.
type Store struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID     `gorm:"column:owner_id;type:uuid;not null"`
	Name      string        `gorm:"column:name;not null"`
	Slug      string        `gorm:"column:slug;not null;uniqueIndex:ux_stores_slug"`
	Bio       *string       `gorm:"column:bio"`
	Trust     *TrustProfile `gorm:"foreignKey:StoreID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}
