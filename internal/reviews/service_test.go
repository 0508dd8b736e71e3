package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/purchases"
	"github.com/agoralabs/bazaar-backend/internal/trust"
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
	return openTestDB(t, "file:reviews_"+uuid.NewString()+"?mode=memory&cache=shared")
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  buyer_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  seller_store_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_minor_units INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  status TEXT NOT NULL DEFAULT 'delivered',
  source_offer_id TEXT,
  delivered_at DATETIME NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  author_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  title TEXT,
  body TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_reviews_order ON reviews (order_id);`,
		`CREATE TABLE IF NOT EXISTS trust_profiles (
  store_id TEXT PRIMARY KEY,
  overall_score REAL NOT NULL DEFAULT 50,
  product_satisfaction REAL NOT NULL DEFAULT 50,
  communication REAL NOT NULL DEFAULT 50,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS trust_events (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  reason TEXT NOT NULL,
  overall_delta REAL NOT NULL,
  product_satisfaction_delta REAL NOT NULL DEFAULT 0,
  communication_delta REAL NOT NULL DEFAULT 0,
  order_id TEXT,
  review_id TEXT,
  thread_id TEXT,
  metadata TEXT,
  created_at DATETIME
);`,
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

func newTestService(t *testing.T, db *gorm.DB) (Service, trust.Service) {
	t.Helper()
	runner := testTxRunner{db: db}
	events := outbox.NewService(outbox.NewRepository(db), nil)

	trustSvc, err := trust.NewService(trust.NewRepository(db), runner, events, nil)
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		runner,
		purchases.NewRepository(db),
		trustSvc,
		events,
		nil,
	)
	require.NoError(t, err)
	return svc, trustSvc
}

func mustCreateOrder(t *testing.T, db *gorm.DB, buyerID uuid.UUID) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                  uuid.New(),
		BuyerID:             buyerID,
		ListingID:           uuid.New(),
		SellerStoreID:       uuid.New(),
		Quantity:            1,
		UnitPriceMinorUnits: 5000,
		Currency:            enums.CurrencyUSD,
		Status:              enums.OrderStatusDelivered,
		DeliveredAt:         time.Now(),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestLeaveReview_FiveStarMovesTrustUp(t *testing.T) {
	db := newTestDB(t)
	svc, trustSvc := newTestService(t, db)
	buyer := uuid.New()
	order := mustCreateOrder(t, db, buyer)
	ctx := context.Background()

	result, err := svc.LeaveReview(ctx, LeaveReviewInput{
		AuthorID: buyer,
		OrderID:  order.ID,
		Rating:   5,
		Body:     "arrived fast and exactly as listed",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Review)
	require.NotNil(t, result.TrustEvent)

	assert.Equal(t, float64(10), result.TrustEvent.OverallDelta)
	assert.Equal(t, float64(14), result.TrustEvent.ProductSatisfactionDelta)
	assert.Equal(t, enums.TrustReasonReviewReceived, result.TrustEvent.Reason)
	require.NotNil(t, result.TrustEvent.OrderID)
	assert.Equal(t, order.ID, *result.TrustEvent.OrderID)
	require.NotNil(t, result.TrustEvent.ReviewID)
	assert.Equal(t, result.Review.ID, *result.TrustEvent.ReviewID)

	profile, err := trustSvc.GetProfile(ctx, order.SellerStoreID)
	require.NoError(t, err)
	assert.Equal(t, float64(60), profile.OverallScore)
	assert.Equal(t, float64(64), profile.ProductSatisfaction)
	assert.Equal(t, float64(50), profile.Communication)
}

func TestLeaveReview_OneStarMovesTrustDown(t *testing.T) {
	db := newTestDB(t)
	svc, trustSvc := newTestService(t, db)
	buyer := uuid.New()
	order := mustCreateOrder(t, db, buyer)
	ctx := context.Background()

	result, err := svc.LeaveReview(ctx, LeaveReviewInput{
		AuthorID: buyer,
		OrderID:  order.ID,
		Rating:   1,
		Body:     "nothing like the photos, would not buy again",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(-10), result.TrustEvent.OverallDelta)
	assert.Equal(t, float64(-14), result.TrustEvent.ProductSatisfactionDelta)

	profile, err := trustSvc.GetProfile(ctx, order.SellerStoreID)
	require.NoError(t, err)
	assert.Equal(t, float64(40), profile.OverallScore)
	assert.Equal(t, float64(36), profile.ProductSatisfaction)
}

func TestLeaveReview_NeutralRatingMovesNothing(t *testing.T) {
	db := newTestDB(t)
	svc, trustSvc := newTestService(t, db)
	buyer := uuid.New()
	order := mustCreateOrder(t, db, buyer)
	ctx := context.Background()

	result, err := svc.LeaveReview(ctx, LeaveReviewInput{
		AuthorID: buyer,
		OrderID:  order.ID,
		Rating:   3,
		Body:     "fine. it does the thing it says it does",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(0), result.TrustEvent.OverallDelta)

	profile, err := trustSvc.GetProfile(ctx, order.SellerStoreID)
	require.NoError(t, err)
	assert.Equal(t, float64(50), profile.OverallScore)
}

func TestLeaveReview_SecondReviewRejected(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	buyer := uuid.New()
	order := mustCreateOrder(t, db, buyer)
	ctx := context.Background()

	_, err := svc.LeaveReview(ctx, LeaveReviewInput{
		AuthorID: buyer,
		OrderID:  order.ID,
		Rating:   4,
		Body:     "good overall",
	})
	require.NoError(t, err)

	_, err = svc.LeaveReview(ctx, LeaveReviewInput{
		AuthorID: buyer,
		OrderID:  order.ID,
		Rating:   1,
		Body:     "changed my mind",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// Only the first movement landed.
	var events int64
	require.NoError(t, db.Model(&models.TrustEvent{}).
		Where("store_id = ?", order.SellerStoreID).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestLeaveReview_NonBuyerForbidden(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	order := mustCreateOrder(t, db, uuid.New())

	_, err := svc.LeaveReview(context.Background(), LeaveReviewInput{
		AuthorID: uuid.New(),
		OrderID:  order.ID,
		Rating:   5,
		Body:     "great product honestly",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestLeaveReview_RatingOutOfRange(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.LeaveReview(context.Background(), LeaveReviewInput{
			AuthorID: uuid.New(),
			OrderID:  uuid.New(),
			Rating:   rating,
			Body:     "body",
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "rating %d", rating)
	}
}

func TestLeaveReview_OrderMissing(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)

	_, err := svc.LeaveReview(context.Background(), LeaveReviewInput{
		AuthorID: uuid.New(),
		OrderID:  uuid.New(),
		Rating:   4,
		Body:     "never happened",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGetForOrder(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newTestService(t, db)
	buyer := uuid.New()
	order := mustCreateOrder(t, db, buyer)
	ctx := context.Background()

	_, err := svc.GetForOrder(ctx, order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.LeaveReview(ctx, LeaveReviewInput{
		AuthorID: buyer,
		OrderID:  order.ID,
		Rating:   4,
		Body:     "solid, minor scuffs",
	})
	require.NoError(t, err)

	review, err := svc.GetForOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, review.OrderID)
	assert.Equal(t, 4, review.Rating)
}
