package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/stores"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
)

// Service exposes listing lifecycle and inventory operations.
type Service interface {
	Create(ctx context.Context, sellerID uuid.UUID, input CreateInput) (*models.Listing, error)
	UpdatePrice(ctx context.Context, sellerID uuid.UUID, input UpdatePriceInput) (*models.Listing, error)
	Restock(ctx context.Context, sellerID, listingID uuid.UUID, quantity int) (*models.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Listing, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateInput holds the validated payload to create a listing.
type CreateInput struct {
	StoreID         uuid.UUID
	ProductID       uuid.UUID
	PriceMinorUnits int64
	Currency        enums.Currency
	InitialStock    int
}

// UpdatePriceInput holds the validated payload for a price change. Reason is
// mandatory: every price change leaves an audited store update behind.
type UpdatePriceInput struct {
	ListingID       uuid.UUID
	PriceMinorUnits int64
	Reason          string
}

type service struct {
	repo        Repository
	tx          txRunner
	storeRepo   stores.Repository
	productRepo productReader
	updates     stores.UpdateRepository
	events      eventEmitter
	logg        *logger.Logger
}

// NewService constructs a listing service instance.
func NewService(repo Repository, tx txRunner, storeRepo stores.Repository, productRepo productReader, updates stores.UpdateRepository, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if storeRepo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if updates == nil {
		return nil, fmt.Errorf("store update repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		storeRepo:   storeRepo,
		productRepo: productRepo,
		updates:     updates,
		events:      events,
		logg:        logg,
	}, nil
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateInput) (*models.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.PriceMinorUnits < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.InitialStock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial stock cannot be negative")
	}
	if input.Currency == "" {
		input.Currency = enums.CurrencyUSD
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid currency")
	}

	if err := stores.RequireOwner(ctx, s.storeRepo, input.StoreID, sellerID); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if product.StoreID != input.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to this store")
	}

	status := enums.ListingStatusActive
	if input.InitialStock == 0 {
		status = enums.ListingStatusSoldOut
	}
	listing := &models.Listing{
		SellerStoreID:   input.StoreID,
		ProductID:       input.ProductID,
		PriceMinorUnits: input.PriceMinorUnits,
		Currency:        input.Currency,
		StockOnHand:     input.InitialStock,
		Status:          status,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, listing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create listing")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingCreated,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID, StoreID: &input.StoreID},
			Data: map[string]any{
				"productId": input.ProductID.String(),
				"price":     input.PriceMinorUnits,
				"currency":  input.Currency.String(),
				"stock":     input.InitialStock,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *service) UpdatePrice(ctx context.Context, sellerID uuid.UUID, input UpdatePriceInput) (*models.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.PriceMinorUnits < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price change reason required")
	}

	listing, err := s.loadListing(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if err := stores.RequireOwner(ctx, s.storeRepo, listing.SellerStoreID, sellerID); err != nil {
		return nil, err
	}

	oldPrice := listing.PriceMinorUnits
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdatePrice(ctx, listing.ID, input.PriceMinorUnits); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update price")
		}
		refs, _ := json.Marshal(map[string]any{
			"listingId": listing.ID.String(),
			"oldPrice":  oldPrice,
			"newPrice":  input.PriceMinorUnits,
		})
		update := &models.StoreUpdate{
			StoreID: listing.SellerStoreID,
			ActorID: sellerID,
			Kind:    enums.StoreUpdateKindPriceChange,
			Body:    strings.TrimSpace(input.Reason),
			Refs:    refs,
		}
		if err := s.updates.WithTx(tx).Create(ctx, update); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record store update")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingPriceUpdated,
			AggregateType: enums.AggregateListing,
			AggregateID:   listing.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID, StoreID: &listing.SellerStoreID},
			Data: map[string]any{
				"oldPrice": oldPrice,
				"newPrice": input.PriceMinorUnits,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	listing.PriceMinorUnits = input.PriceMinorUnits
	if s.logg != nil {
		logCtx := s.logg.WithListingID(ctx, listing.ID.String())
		s.logg.Info(logCtx, "listing price updated")
	}
	return listing, nil
}

func (s *service) Restock(ctx context.Context, sellerID, listingID uuid.UUID, quantity int) (*models.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	listing, err := s.loadListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := stores.RequireOwner(ctx, s.storeRepo, listing.SellerStoreID, sellerID); err != nil {
		return nil, err
	}

	var updated *models.Listing
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Restock(ctx, listingID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock listing")
		}
		fresh, err := repo.FindByID(ctx, listingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload listing")
		}
		updated = fresh
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventListingRestocked,
			AggregateType: enums.AggregateListing,
			AggregateID:   listingID,
			Actor:         &outbox.ActorRef{UserID: sellerID, StoreID: &listing.SellerStoreID},
			Data: map[string]any{
				"quantity": quantity,
				"stock":    fresh.StockOnHand,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	return s.loadListing(ctx, id)
}

func (s *service) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.Listing, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	rows, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list listings")
	}
	return rows, nil
}

func (s *service) loadListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}
	return listing, nil
}
