package offers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/pkg/db"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// Repository manages persistence for offers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.Offer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	Resolve(ctx context.Context, id uuid.UUID, to enums.OfferStatus, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an offer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, offer *models.Offer) error {
	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// FindByIDForUpdate loads the offer under a row write-lock so the purchase
// transaction serializes against a concurrent resolution.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&offer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// Resolve moves a proposed offer to a terminal status. The WHERE clause
// re-asserts the offer is still proposed, so of two concurrent resolutions
// exactly one reports true.
func (r *repository) Resolve(ctx context.Context, id uuid.UUID, to enums.OfferStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND status = ?", id, enums.OfferStatusProposed).
		Updates(map[string]any{
			"status":      to,
			"resolved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
