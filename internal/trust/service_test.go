package trust

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

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

	dsn := "file:trust_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		testTxRunner{db: db},
		outbox.NewService(outbox.NewRepository(db), nil),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func applyDelta(t *testing.T, db *gorm.DB, svc Service, input DeltaInput) *models.TrustEvent {
	t.Helper()
	var event *models.TrustEvent
	err := db.Transaction(func(tx *gorm.DB) error {
		var applyErr error
		event, applyErr = svc.ApplyDelta(context.Background(), tx, input)
		return applyErr
	})
	require.NoError(t, err)
	return event
}

func TestApplyDelta_SeedsProfileOnFirstTouch(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	storeID := uuid.New()

	event := applyDelta(t, db, svc, DeltaInput{
		StoreID:                  storeID,
		Reason:                   enums.TrustReasonReviewReceived,
		OverallDelta:             10,
		ProductSatisfactionDelta: 14,
	})
	assert.Equal(t, float64(10), event.OverallDelta)

	profile, err := svc.GetProfile(context.Background(), storeID)
	require.NoError(t, err)
	assert.Equal(t, float64(60), profile.OverallScore)
	assert.Equal(t, float64(64), profile.ProductSatisfaction)
	assert.Equal(t, float64(50), profile.Communication)

	var events int64
	require.NoError(t, db.Model(&models.TrustEvent{}).Where("store_id = ?", storeID).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestApplyDelta_ClampsAtCeiling(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	storeID := uuid.New()

	for i := 0; i < 7; i++ {
		applyDelta(t, db, svc, DeltaInput{
			StoreID:      storeID,
			Reason:       enums.TrustReasonReviewReceived,
			OverallDelta: 10,
		})
	}

	profile, err := svc.GetProfile(context.Background(), storeID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), profile.OverallScore)
}

func TestApplyDelta_ClampsAtFloor(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	storeID := uuid.New()

	for i := 0; i < 7; i++ {
		applyDelta(t, db, svc, DeltaInput{
			StoreID:                  storeID,
			Reason:                   enums.TrustReasonReviewReceived,
			OverallDelta:             -10,
			ProductSatisfactionDelta: -14,
		})
	}

	profile, err := svc.GetProfile(context.Background(), storeID)
	require.NoError(t, err)
	assert.Equal(t, float64(0), profile.OverallScore)
	assert.Equal(t, float64(0), profile.ProductSatisfaction)
}

func TestApplyDelta_RequiresTransaction(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.ApplyDelta(context.Background(), nil, DeltaInput{
		StoreID:      uuid.New(),
		Reason:       enums.TrustReasonReviewReceived,
		OverallDelta: 1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestApplyDelta_InvalidReason(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, applyErr := svc.ApplyDelta(context.Background(), tx, DeltaInput{
			StoreID:      uuid.New(),
			Reason:       enums.TrustReason("vibes"),
			OverallDelta: 1,
		})
		return applyErr
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRecordMerchantReply(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	storeID := uuid.New()
	threadID := uuid.New()

	event, err := svc.RecordMerchantReply(context.Background(), storeID, &threadID)
	require.NoError(t, err)
	assert.Equal(t, enums.TrustReasonMerchantReply, event.Reason)
	assert.Equal(t, 0.2, event.OverallDelta)
	assert.Equal(t, 0.5, event.CommunicationDelta)

	profile, err := svc.GetProfile(context.Background(), storeID)
	require.NoError(t, err)
	assert.InDelta(t, 50.2, profile.OverallScore, 1e-9)
	assert.InDelta(t, 50.5, profile.Communication, 1e-9)
}

func TestRecordPolicyUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	storeID := uuid.New()

	event, err := svc.RecordPolicyUpdate(context.Background(), storeID)
	require.NoError(t, err)
	assert.Equal(t, enums.TrustReasonPolicyUpdate, event.Reason)
	assert.Equal(t, 0.3, event.OverallDelta)
}

func TestGetProfile_UnratedStoreIsNeutral(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	profile, err := svc.GetProfile(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, float64(50), profile.OverallScore)
	assert.Equal(t, float64(50), profile.ProductSatisfaction)
	assert.Equal(t, float64(50), profile.Communication)
}
