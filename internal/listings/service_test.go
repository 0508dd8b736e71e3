package listings

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/catalog"
	"github.com/agoralabs/bazaar-backend/internal/stores"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
)

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(db),
		testTxRunner{db: db},
		stores.NewRepository(db),
		catalog.NewRepository(db),
		stores.NewUpdateRepository(db),
		outbox.NewService(outbox.NewRepository(db), nil),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func TestCreate_Listing(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	store := mustCreateStore(t, db, seller)
	product := mustCreateProduct(t, db, store.ID)

	listing, err := svc.Create(context.Background(), seller, CreateInput{
		StoreID:         store.ID,
		ProductID:       product.ID,
		PriceMinorUnits: 4200,
		InitialStock:    7,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ListingStatusActive, listing.Status)
	assert.Equal(t, 7, listing.StockOnHand)
	assert.Equal(t, enums.CurrencyUSD, listing.Currency)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventListingCreated).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestCreate_ZeroStockStartsSoldOut(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	store := mustCreateStore(t, db, seller)
	product := mustCreateProduct(t, db, store.ID)

	listing, err := svc.Create(context.Background(), seller, CreateInput{
		StoreID:         store.ID,
		ProductID:       product.ID,
		PriceMinorUnits: 1000,
		InitialStock:    0,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.ListingStatusSoldOut, listing.Status)
}

func TestCreate_FreeListingAllowed(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	store := mustCreateStore(t, db, seller)
	product := mustCreateProduct(t, db, store.ID)

	// A giveaway prices at zero; only negative prices are rejected.
	listing, err := svc.Create(context.Background(), seller, CreateInput{
		StoreID:         store.ID,
		ProductID:       product.ID,
		PriceMinorUnits: 0,
		InitialStock:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), listing.PriceMinorUnits)

	_, err = svc.Create(context.Background(), seller, CreateInput{
		StoreID:         store.ID,
		ProductID:       product.ID,
		PriceMinorUnits: -1,
		InitialStock:    2,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreate_NonOwnerForbidden(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	store := mustCreateStore(t, db, uuid.New())
	product := mustCreateProduct(t, db, store.ID)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		StoreID:         store.ID,
		ProductID:       product.ID,
		PriceMinorUnits: 1000,
		InitialStock:    1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCreate_ProductFromAnotherStore(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	store := mustCreateStore(t, db, seller)
	foreign := mustCreateStore(t, db, uuid.New())
	product := mustCreateProduct(t, db, foreign.ID)

	_, err := svc.Create(context.Background(), seller, CreateInput{
		StoreID:         store.ID,
		ProductID:       product.ID,
		PriceMinorUnits: 1000,
		InitialStock:    1,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdatePrice_RequiresReason(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	store := mustCreateStore(t, db, seller)
	listing := mustCreateListing(t, db, store.ID, 3, enums.ListingStatusActive)

	_, err := svc.UpdatePrice(context.Background(), seller, UpdatePriceInput{
		ListingID:       listing.ID,
		PriceMinorUnits: 4500,
		Reason:          "   ",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdatePrice_ZeroAllowedNegativeRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	store := mustCreateStore(t, db, seller)
	listing := mustCreateListing(t, db, store.ID, 3, enums.ListingStatusActive)
	ctx := context.Background()

	updated, err := svc.UpdatePrice(ctx, seller, UpdatePriceInput{
		ListingID:       listing.ID,
		PriceMinorUnits: 0,
		Reason:          "clearing the last batch out for free",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.PriceMinorUnits)

	_, err = svc.UpdatePrice(ctx, seller, UpdatePriceInput{
		ListingID:       listing.ID,
		PriceMinorUnits: -100,
		Reason:          "negative prices are nonsense",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdatePrice_WritesStoreUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	store := mustCreateStore(t, db, seller)
	listing := mustCreateListing(t, db, store.ID, 3, enums.ListingStatusActive)
	ctx := context.Background()

	updated, err := svc.UpdatePrice(ctx, seller, UpdatePriceInput{
		ListingID:       listing.ID,
		PriceMinorUnits: 4500,
		Reason:          "matching the competition across the street",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4500), updated.PriceMinorUnits)

	fresh, err := NewRepository(db).FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), fresh.PriceMinorUnits)

	var update models.StoreUpdate
	require.NoError(t, db.First(&update, "store_id = ?", store.ID).Error)
	assert.Equal(t, enums.StoreUpdateKindPriceChange, update.Kind)
	assert.Equal(t, "matching the competition across the street", update.Body)
	assert.Equal(t, seller, update.ActorID)
}

func TestRestock_ServiceReactivates(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	seller := uuid.New()
	store := mustCreateStore(t, db, seller)
	listing := mustCreateListing(t, db, store.ID, 0, enums.ListingStatusSoldOut)

	updated, err := svc.Restock(context.Background(), seller, listing.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, updated.StockOnHand)
	assert.Equal(t, enums.ListingStatusActive, updated.Status)
}

func TestRestock_NonOwnerForbidden(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	store := mustCreateStore(t, db, uuid.New())
	listing := mustCreateListing(t, db, store.ID, 0, enums.ListingStatusSoldOut)

	_, err := svc.Restock(context.Background(), uuid.New(), listing.ID, 6)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestRestock_RejectsNonPositiveQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Restock(context.Background(), uuid.New(), uuid.New(), 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
