package models

import (
	"time"

	"github.com/google/uuid"
)

// TrustProfile is the running reputation accumulator for a store. Every
// dimension stays clamped to [0,100] and moves only through bounded deltas,
// never a full recompute.
type TrustProfile struct {
	StoreID             uuid.UUID `gorm:"column:store_id;type:uuid;primaryKey"`
	OverallScore        float64   `gorm:"column:overall_score;not null;default:50"`
	ProductSatisfaction float64   `gorm:"column:product_satisfaction;not null;default:50"`
	Communication       float64   `gorm:"column:communication;not null;default:50"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
