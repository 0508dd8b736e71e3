package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/pkg/db"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// Repository manages persistence for listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, listing *models.Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Listing, error)
	UpdatePrice(ctx context.Context, id uuid.UUID, priceMinorUnits int64) error
	DepleteStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error)
	Restock(ctx context.Context, id uuid.UUID, quantity int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a listing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindByIDForUpdate loads the listing under a row write-lock so the
// surrounding transaction serializes against competing purchases.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Listing, error) {
	var rows []models.Listing
	err := r.db.WithContext(ctx).
		Where("seller_store_id = ?", storeID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdatePrice(ctx context.Context, id uuid.UUID, priceMinorUnits int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Update("price_minor_units", priceMinorUnits).Error
}

// DepleteStock atomically removes quantity units. The WHERE clause re-asserts
// that the listing is active with enough stock, so a losing racer depletes
// nothing; the CASE flips status to sold_out exactly when stock hits zero.
// Returns false when the guard did not match.
func (r *repository) DepleteStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Exec(`
		UPDATE listings
		SET stock_on_hand = stock_on_hand - ?,
		    status = CASE WHEN stock_on_hand - ? = 0 THEN ? ELSE status END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND stock_on_hand >= ?`,
		quantity, quantity, string(enums.ListingStatusSoldOut),
		id, string(enums.ListingStatusActive), quantity)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Restock atomically adds quantity units and flips sold_out back to active.
func (r *repository) Restock(ctx context.Context, id uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE listings
		SET stock_on_hand = stock_on_hand + ?,
		    status = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		quantity, string(enums.ListingStatusActive), id).Error
}
