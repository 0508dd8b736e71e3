package trust

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agoralabs/bazaar-backend/pkg/db"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
)

// Repository manages persistence for trust profiles and their audit events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfile(ctx context.Context, storeID uuid.UUID) (*models.TrustProfile, error)
	LoadProfileForUpdate(ctx context.Context, storeID uuid.UUID) (*models.TrustProfile, error)
	SaveProfile(ctx context.Context, profile *models.TrustProfile) error
	InsertEvent(ctx context.Context, event *models.TrustEvent) error
	ListEvents(ctx context.Context, storeID uuid.UUID, limit int) ([]models.TrustEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a trust repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProfile(ctx context.Context, storeID uuid.UUID) (*models.TrustProfile, error) {
	var profile models.TrustProfile
	if err := r.db.WithContext(ctx).First(&profile, "store_id = ?", storeID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// LoadProfileForUpdate returns the store's profile under a row write-lock,
// creating the default-scored row on first touch.
func (r *repository) LoadProfileForUpdate(ctx context.Context, storeID uuid.UUID) (*models.TrustProfile, error) {
	seed := models.TrustProfile{
		StoreID:             storeID,
		OverallScore:        50,
		ProductSatisfaction: 50,
		Communication:       50,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error
	if err != nil {
		return nil, err
	}
	var profile models.TrustProfile
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&profile, "store_id = ?", storeID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) SaveProfile(ctx context.Context, profile *models.TrustProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *repository) InsertEvent(ctx context.Context, event *models.TrustEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListEvents(ctx context.Context, storeID uuid.UUID, limit int) ([]models.TrustEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.TrustEvent
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
