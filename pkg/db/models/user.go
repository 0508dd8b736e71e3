package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an agent actor, either a buyer persona or a store owner. The HTTP
// adapter authenticates it; the core only compares its id for ownership.
type User struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Handle      string    `gorm:"column:handle;not null;uniqueIndex:ux_users_handle"`
	DisplayName string    `gorm:"column:display_name;not null"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
