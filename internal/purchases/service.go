package purchases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/evidence"
	"github.com/agoralabs/bazaar-backend/internal/listings"
	"github.com/agoralabs/bazaar-backend/internal/offers"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
)

// Service exposes the purchase paths. Both paths run as a single transaction:
// inventory depletion and order creation commit or roll back together.
type Service interface {
	PurchaseDirect(ctx context.Context, input DirectInput) (*Result, error)
	PurchaseFromOffer(ctx context.Context, input FromOfferInput) (*Result, error)
	GetOrder(ctx context.Context, viewerID, orderID uuid.UUID) (*models.Order, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DirectInput holds the validated payload for a direct purchase.
type DirectInput struct {
	BuyerID   uuid.UUID
	ListingID uuid.UUID
	Quantity  int
}

// FromOfferInput holds the validated payload for an offer-backed purchase.
type FromOfferInput struct {
	BuyerID  uuid.UUID
	OfferID  uuid.UUID
	Quantity int
}

// Result is the purchase outcome. A gating rejection is not an error: the
// call succeeds with Blocked true, the reason, and the actions that would
// unblock it. Order is set only when Blocked is false.
type Result struct {
	Order           *models.Order `json:"order,omitempty"`
	Blocked         bool          `json:"blocked"`
	BlockedReason   string        `json:"error,omitempty"`
	RequiredActions []string      `json:"requiredActions,omitempty"`
}

var gatingActions = []string{
	"post a question on the listing",
	"make an offer on the listing",
	"join a looking-for thread referencing the listing",
}

type service struct {
	repo        Repository
	tx          txRunner
	listingRepo listings.Repository
	offerRepo   offers.Repository
	evidence    evidence.Repository
	events      eventEmitter
	logg        *logger.Logger
}

// NewService constructs a purchase service instance.
func NewService(repo Repository, tx txRunner, listingRepo listings.Repository, offerRepo offers.Repository, evidenceRepo evidence.Repository, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if offerRepo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if evidenceRepo == nil {
		return nil, fmt.Errorf("evidence repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		listingRepo: listingRepo,
		offerRepo:   offerRepo,
		evidence:    evidenceRepo,
		events:      events,
		logg:        logg,
	}, nil
}

func (s *service) PurchaseDirect(ctx context.Context, input DirectInput) (*Result, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	engaged, err := s.evidence.Exists(ctx, input.BuyerID, input.ListingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check purchase gating")
	}
	if !engaged {
		return &Result{
			Blocked:         true,
			BlockedReason:   "purchase requires prior engagement with the listing",
			RequiredActions: gatingActions,
		}, nil
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listingRepo := s.listingRepo.WithTx(tx)
		listing, err := listingRepo.FindByIDForUpdate(ctx, input.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
		}
		if listing.Status != enums.ListingStatusActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "listing is sold out")
		}
		if listing.StockOnHand < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{"available": listing.StockOnHand})
		}

		created, err := s.createOrder(ctx, tx, listing, input.BuyerID, input.Quantity, listing.PriceMinorUnits, nil)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitOrderEvents(ctx, order)
	return &Result{Order: order}, nil
}

func (s *service) PurchaseFromOffer(ctx context.Context, input FromOfferInput) (*Result, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.OfferID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var order *models.Order
	blocked := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		offer, err := s.offerRepo.WithTx(tx).FindByIDForUpdate(ctx, input.OfferID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load offer")
		}
		if offer.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "offer belongs to another buyer")
		}
		if offer.Status != enums.OfferStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer is not accepted").
				WithDetails(map[string]any{"status": offer.Status.String()})
		}

		// An accepted offer does not by itself satisfy the engagement gate:
		// the ledger must hold a row for this buyer and listing.
		engaged, err := s.evidence.WithTx(tx).Exists(ctx, input.BuyerID, offer.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check purchase gating")
		}
		if !engaged {
			blocked = true
			return nil
		}

		listingRepo := s.listingRepo.WithTx(tx)
		listing, err := listingRepo.FindByIDForUpdate(ctx, offer.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
		}
		if listing.Status != enums.ListingStatusActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "listing is sold out")
		}
		if listing.StockOnHand < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
				WithDetails(map[string]any{"available": listing.StockOnHand})
		}

		// The accepted offer's price is the contract, whatever the listing
		// price has moved to since.
		offerID := offer.ID
		created, err := s.createOrder(ctx, tx, listing, input.BuyerID, input.Quantity, offer.ProposedPriceMinorUnits, &offerID)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	if blocked {
		return &Result{
			Blocked:         true,
			BlockedReason:   "purchase requires prior engagement with the listing",
			RequiredActions: gatingActions,
		}, nil
	}

	s.emitOrderEvents(ctx, order)
	return &Result{Order: order}, nil
}

// createOrder depletes stock and writes the order row inside tx. The guarded
// depletion re-asserts status and stock, so a racer that lost the lock wait
// cannot oversell.
func (s *service) createOrder(ctx context.Context, tx *gorm.DB, listing *models.Listing, buyerID uuid.UUID, quantity int, unitPrice int64, sourceOfferID *uuid.UUID) (*models.Order, error) {
	depleted, err := s.listingRepo.WithTx(tx).DepleteStock(ctx, listing.ID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deplete stock")
	}
	if !depleted {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")
	}

	order := &models.Order{
		BuyerID:             buyerID,
		ListingID:           listing.ID,
		SellerStoreID:       listing.SellerStoreID,
		Quantity:            quantity,
		UnitPriceMinorUnits: unitPrice,
		Currency:            listing.Currency,
		Status:              enums.OrderStatusDelivered,
		SourceOfferID:       sourceOfferID,
		DeliveredAt:         time.Now(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}
	return order, nil
}

// emitOrderEvents queues the placed/delivered notifications after the
// purchase committed. They ride a separate short transaction: a failure here
// is logged and swallowed, never unwinding the purchase.
func (s *service) emitOrderEvents(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		data := map[string]any{
			"listingId": order.ListingID.String(),
			"quantity":  order.Quantity,
		}
		actor := &outbox.ActorRef{UserID: order.BuyerID}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data:          data,
			Version:       1,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data:          data,
			Version:       1,
		})
	})
	if err != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String()})
		s.logg.Warn(logCtx, "order notification emit failed: "+err.Error())
	}
}

// GetOrder returns the order to its buyer only.
func (s *service) GetOrder(ctx context.Context, viewerID, orderID uuid.UUID) (*models.Order, error) {
	if viewerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "viewer id and order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.BuyerID != viewerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
