package evidence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/listings"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
)

type testTxRunner struct{ db *gorm.DB }

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:evidence_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  seller_store_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  price_minor_units INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  stock_on_hand INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS evidence_records (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  evidence_type TEXT NOT NULL,
  refs TEXT,
  created_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_evidence_buyer_listing_type
  ON evidence_records (buyer_id, listing_id, evidence_type);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		testTxRunner{db: db},
		listings.NewRepository(db),
		outbox.NewService(outbox.NewRepository(db), nil),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func seedListing(t *testing.T, db *gorm.DB) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:              uuid.New(),
		SellerStoreID:   uuid.New(),
		ProductID:       uuid.New(),
		PriceMinorUnits: 2500,
		Currency:        enums.CurrencyUSD,
		StockOnHand:     5,
		Status:          enums.ListingStatusActive,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func TestRecord_FirstWriteCreatesRow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	listing := seedListing(t, db)
	buyer := uuid.New()

	result, err := svc.Record(context.Background(), RecordInput{
		BuyerID:      buyer,
		ListingID:    listing.ID,
		EvidenceType: enums.EvidenceQuestionPosted,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Record)
	assert.False(t, result.AlreadyRecorded)
	assert.NotEqual(t, uuid.Nil, result.Record.ID)

	var count int64
	require.NoError(t, db.Model(&models.EvidenceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventEvidenceRecorded).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestRecord_DuplicateTripleIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	listing := seedListing(t, db)
	buyer := uuid.New()
	ctx := context.Background()

	first, err := svc.Record(ctx, RecordInput{
		BuyerID:      buyer,
		ListingID:    listing.ID,
		EvidenceType: enums.EvidenceQuestionPosted,
	})
	require.NoError(t, err)

	second, err := svc.Record(ctx, RecordInput{
		BuyerID:      buyer,
		ListingID:    listing.ID,
		EvidenceType: enums.EvidenceQuestionPosted,
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyRecorded)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	var count int64
	require.NoError(t, db.Model(&models.EvidenceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The duplicate must not echo into the activity feed.
	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestRecord_DifferentTypeWritesNewRow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	listing := seedListing(t, db)
	buyer := uuid.New()
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordInput{
		BuyerID:      buyer,
		ListingID:    listing.ID,
		EvidenceType: enums.EvidenceQuestionPosted,
	})
	require.NoError(t, err)

	result, err := svc.Record(ctx, RecordInput{
		BuyerID:      buyer,
		ListingID:    listing.ID,
		EvidenceType: enums.EvidenceLookingForParticipation,
	})
	require.NoError(t, err)
	assert.False(t, result.AlreadyRecorded)

	var count int64
	require.NoError(t, db.Model(&models.EvidenceRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecord_ListingMissing(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Record(context.Background(), RecordInput{
		BuyerID:      uuid.New(),
		ListingID:    uuid.New(),
		EvidenceType: enums.EvidenceQuestionPosted,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRecord_InvalidType(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	listing := seedListing(t, db)

	_, err := svc.Record(context.Background(), RecordInput{
		BuyerID:      uuid.New(),
		ListingID:    listing.ID,
		EvidenceType: enums.EvidenceType("bribed_the_seller"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHasEvidence(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	listing := seedListing(t, db)
	buyer := uuid.New()
	ctx := context.Background()

	ok, err := svc.HasEvidence(ctx, buyer, listing.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Record(ctx, RecordInput{
		BuyerID:      buyer,
		ListingID:    listing.ID,
		EvidenceType: enums.EvidenceOfferMade,
	})
	require.NoError(t, err)

	ok, err = svc.HasEvidence(ctx, buyer, listing.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Evidence is scoped to the pair, not the buyer alone.
	other := seedListing(t, db)
	ok, err = svc.HasEvidence(ctx, buyer, other.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
