package promotions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/pkg/db"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// Repository manages persistence for promotions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promo *models.Promotion) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	CountByStatus(ctx context.Context, statuses ...enums.PromotionStatus) (int64, error)
	ExistsLiveForListing(ctx context.Context, listingID uuid.UUID) (bool, error)
	NextPosition(ctx context.Context) (int64, error)
	ListActive(ctx context.Context) ([]models.Promotion, error)
	ListStaleActive(ctx context.Context, asOf time.Time, limit int) ([]models.Promotion, error)
	OldestQueued(ctx context.Context) (*models.Promotion, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.PromotionStatus, updates map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a promotion repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.Promotion) error {
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(promo).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&promo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// CountByStatus counts promotions marketplace-wide: the active and live caps
// bound the whole marketplace, not a single store.
func (r *repository) CountByStatus(ctx context.Context, statuses ...enums.PromotionStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("status IN ?", statuses).
		Count(&count).Error
	return count, err
}

func (r *repository) ExistsLiveForListing(ctx context.Context, listingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("listing_id = ? AND status IN ?", listingID,
			[]enums.PromotionStatus{enums.PromotionStatusActive, enums.PromotionStatusQueued}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextPosition returns one past the highest position ever used. Callers hold
// the slot lock for the duration of the creation transaction, so two
// concurrent creations cannot read the same maximum.
func (r *repository) NextPosition(ctx context.Context) (int64, error) {
	var max struct{ Max int64 }
	err := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Select("COALESCE(MAX(position), 0) AS max").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max.Max + 1, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.Promotion, error) {
	var rows []models.Promotion
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.PromotionStatusActive).
		Order("position ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListStaleActive(ctx context.Context, asOf time.Time, limit int) ([]models.Promotion, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Promotion
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.PromotionStatusActive, asOf).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) OldestQueued(ctx context.Context) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.PromotionStatusQueued).
		Order("position ASC").
		First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// Transition moves the promotion from one status to another. The WHERE
// clause re-asserts the current status, so concurrent sweeps and cancels
// cannot double-apply.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to enums.PromotionStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	result := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
