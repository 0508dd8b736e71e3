package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/pkg/db/models"
)

// UpdateRepository persists the append-only store update feed.
type UpdateRepository interface {
	WithTx(tx *gorm.DB) UpdateRepository
	Create(ctx context.Context, update *models.StoreUpdate) error
	ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.StoreUpdate, error)
}

type updateRepository struct {
	db *gorm.DB
}

// NewUpdateRepository returns a store update repository bound to the provided database.
func NewUpdateRepository(db *gorm.DB) UpdateRepository {
	return &updateRepository{db: db}
}

func (r *updateRepository) WithTx(tx *gorm.DB) UpdateRepository {
	if tx == nil {
		return r
	}
	return &updateRepository{db: tx}
}

func (r *updateRepository) Create(ctx context.Context, update *models.StoreUpdate) error {
	if update.ID == uuid.Nil {
		update.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(update).Error
}

func (r *updateRepository) ListByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]models.StoreUpdate, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.StoreUpdate
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
