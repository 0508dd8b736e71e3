package offers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/evidence"
	"github.com/agoralabs/bazaar-backend/internal/listings"
	"github.com/agoralabs/bazaar-backend/internal/stores"
	"github.com/agoralabs/bazaar-backend/pkg/config"
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
	return openTestDB(t, "file:offers_"+uuid.NewString()+"?mode=memory&cache=shared")
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS stores (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  bio TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
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
		`CREATE TABLE IF NOT EXISTS offers (
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  seller_store_id TEXT NOT NULL,
  proposed_price_minor_units INTEGER NOT NULL,
  message TEXT,
  status TEXT NOT NULL DEFAULT 'proposed',
  resolved_at DATETIME,
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

var testMarket = config.MarketConfig{
	MinOfferPriceMinorUnits: 100,
	MinOfferMessageRunes:    20,
	PromoActiveSlots:        3,
	PromoTotalCap:           10,
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		testTxRunner{db: db},
		listings.NewRepository(db),
		stores.NewRepository(db),
		evidence.NewRepository(db),
		outbox.NewService(outbox.NewRepository(db), nil),
		testMarket,
		nil,
	)
	require.NoError(t, err)
	return svc
}

func seedStoreAndListing(t *testing.T, db *gorm.DB, ownerID uuid.UUID) (*models.Store, *models.Listing) {
	t.Helper()
	store := &models.Store{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    "Curio Stall",
		Slug:    "curio-" + uuid.NewString()[:8],
	}
	require.NoError(t, db.Create(store).Error)

	listing := &models.Listing{
		ID:              uuid.New(),
		SellerStoreID:   store.ID,
		ProductID:       uuid.New(),
		PriceMinorUnits: 5000,
		Currency:        enums.CurrencyUSD,
		StockOnHand:     3,
		Status:          enums.ListingStatusActive,
	}
	require.NoError(t, db.Create(listing).Error)
	return store, listing
}

func TestMake_BelowMinimumPrice(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	_, listing := seedStoreAndListing(t, db, uuid.New())

	_, err := svc.Make(context.Background(), MakeInput{
		BuyerID:         uuid.New(),
		ListingID:       listing.ID,
		PriceMinorUnits: 99,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMake_MessageTooShort(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	_, listing := seedStoreAndListing(t, db, uuid.New())
	message := "too short"

	_, err := svc.Make(context.Background(), MakeInput{
		BuyerID:         uuid.New(),
		ListingID:       listing.ID,
		PriceMinorUnits: 4000,
		Message:         &message,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMake_MessageRunesNotBytes(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	_, listing := seedStoreAndListing(t, db, uuid.New())
	// 20 runes, far more than 20 bytes.
	message := strings.Repeat("ø", 20)

	offer, err := svc.Make(context.Background(), MakeInput{
		BuyerID:         uuid.New(),
		ListingID:       listing.ID,
		PriceMinorUnits: 4000,
		Message:         &message,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OfferStatusProposed, offer.Status)
}

func TestMake_RecordsOfferEvidence(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	_, listing := seedStoreAndListing(t, db, uuid.New())
	buyer := uuid.New()

	offer, err := svc.Make(context.Background(), MakeInput{
		BuyerID:         buyer,
		ListingID:       listing.ID,
		PriceMinorUnits: 4000,
	})
	require.NoError(t, err)
	assert.Equal(t, listing.SellerStoreID, offer.SellerStoreID)

	var record models.EvidenceRecord
	require.NoError(t, db.First(&record,
		"buyer_id = ? AND listing_id = ?", buyer, listing.ID).Error)
	assert.Equal(t, enums.EvidenceOfferMade, record.EvidenceType)
}

func TestMake_FeedEventOmitsTerms(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	_, listing := seedStoreAndListing(t, db, uuid.New())

	_, err := svc.Make(context.Background(), MakeInput{
		BuyerID:         uuid.New(),
		ListingID:       listing.ID,
		PriceMinorUnits: 4000,
	})
	require.NoError(t, err)

	var event models.OutboxEvent
	require.NoError(t, db.First(&event, "event_type = ?", enums.EventOfferMade).Error)

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(event.Payload, &envelope))
	assert.Contains(t, envelope.Data, "listingId")
	assert.NotContains(t, envelope.Data, "price")
	assert.NotContains(t, envelope.Data, "message")
}

func TestAccept_ThenSecondResolveConflicts(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	_, listing := seedStoreAndListing(t, db, seller)
	ctx := context.Background()

	offer, err := svc.Make(ctx, MakeInput{
		BuyerID:         uuid.New(),
		ListingID:       listing.ID,
		PriceMinorUnits: 4000,
	})
	require.NoError(t, err)

	accepted, err := svc.Accept(ctx, seller, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OfferStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.ResolvedAt)

	_, err = svc.Reject(ctx, seller, offer.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.Accept(ctx, seller, offer.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestReject(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	_, listing := seedStoreAndListing(t, db, seller)
	ctx := context.Background()

	offer, err := svc.Make(ctx, MakeInput{
		BuyerID:         uuid.New(),
		ListingID:       listing.ID,
		PriceMinorUnits: 4000,
	})
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, seller, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OfferStatusRejected, rejected.Status)
}

func TestResolve_NonOwnerForbidden(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	_, listing := seedStoreAndListing(t, db, uuid.New())
	ctx := context.Background()

	offer, err := svc.Make(ctx, MakeInput{
		BuyerID:         uuid.New(),
		ListingID:       listing.ID,
		PriceMinorUnits: 4000,
	})
	require.NoError(t, err)

	_, err = svc.Accept(ctx, uuid.New(), offer.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestGet_ViewerPrivacy(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	buyer := uuid.New()
	_, listing := seedStoreAndListing(t, db, seller)
	ctx := context.Background()

	offer, err := svc.Make(ctx, MakeInput{
		BuyerID:         buyer,
		ListingID:       listing.ID,
		PriceMinorUnits: 4000,
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, buyer, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, offer.ID, got.ID)

	got, err = svc.Get(ctx, seller, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, offer.ID, got.ID)

	// A viewer who is neither the buyer nor the seller-store owner is
	// forbidden: offer terms are private.
	_, err = svc.Get(ctx, uuid.New(), offer.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
