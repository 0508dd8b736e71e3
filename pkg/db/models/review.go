package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a rating tied to exactly one order. The unique index on order_id
// is the storage-level backstop for the one-review-per-order invariant; the
// service pre-check is the friendly path.
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_reviews_order"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null;index"`
	Rating    int       `gorm:"column:rating;not null"`
	Title     *string   `gorm:"column:title"`
	Body      string    `gorm:"column:body;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
