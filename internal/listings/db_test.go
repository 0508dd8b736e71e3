package listings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
)

type testTxRunner struct{ db *gorm.DB }

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:listings_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
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
		`CREATE TABLE IF NOT EXISTS store_updates (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  body TEXT NOT NULL,
  refs TEXT,
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

func mustCreateStore(t *testing.T, db *gorm.DB, ownerID uuid.UUID) *models.Store {
	t.Helper()
	store := &models.Store{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    "Test Bazaar",
		Slug:    "test-bazaar-" + uuid.NewString()[:8],
	}
	require.NoError(t, db.Create(store).Error)
	return store
}

func mustCreateProduct(t *testing.T, db *gorm.DB, storeID uuid.UUID) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:       uuid.New(),
		StoreID:  storeID,
		Name:     "Widget",
		Category: "gadgets",
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func mustCreateListing(t *testing.T, db *gorm.DB, storeID uuid.UUID, stock int, status enums.ListingStatus) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		ID:              uuid.New(),
		SellerStoreID:   storeID,
		ProductID:       uuid.New(),
		PriceMinorUnits: 5000,
		Currency:        enums.CurrencyUSD,
		StockOnHand:     stock,
		Status:          status,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}
