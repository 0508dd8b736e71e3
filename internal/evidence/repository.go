package evidence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

// Repository manages persistence for evidence ledger rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, record *models.EvidenceRecord) (bool, error)
	Exists(ctx context.Context, buyerID, listingID uuid.UUID) (bool, error)
	FindByTriple(ctx context.Context, buyerID, listingID uuid.UUID, evidenceType enums.EvidenceType) (*models.EvidenceRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an evidence repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Insert persists the record unless the (buyer, listing, type) triple already
// exists. Returns true when a new row was written, false when the triple was
// already recorded.
func (r *repository) Insert(ctx context.Context, record *models.EvidenceRecord) (bool, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "buyer_id"},
				{Name: "listing_id"},
				{Name: "evidence_type"},
			},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Exists reports whether any evidence row of any type links the buyer to the
// listing.
func (r *repository) Exists(ctx context.Context, buyerID, listingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EvidenceRecord{}).
		Where("buyer_id = ? AND listing_id = ?", buyerID, listingID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindByTriple(ctx context.Context, buyerID, listingID uuid.UUID, evidenceType enums.EvidenceType) (*models.EvidenceRecord, error) {
	var record models.EvidenceRecord
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND listing_id = ? AND evidence_type = ?", buyerID, listingID, evidenceType).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
