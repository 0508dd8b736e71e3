package offers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/evidence"
	"github.com/agoralabs/bazaar-backend/internal/stores"
	"github.com/agoralabs/bazaar-backend/pkg/config"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
)

// Service exposes the offer negotiation lifecycle. Offer terms are private:
// only the buyer and the owner of the seller store may read them.
type Service interface {
	Make(ctx context.Context, input MakeInput) (*models.Offer, error)
	Accept(ctx context.Context, sellerID, offerID uuid.UUID) (*models.Offer, error)
	Reject(ctx context.Context, sellerID, offerID uuid.UUID) (*models.Offer, error)
	Get(ctx context.Context, viewerID, offerID uuid.UUID) (*models.Offer, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type listingReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// MakeInput holds the validated payload to propose an offer.
type MakeInput struct {
	BuyerID         uuid.UUID
	ListingID       uuid.UUID
	PriceMinorUnits int64
	Message         *string
}

type service struct {
	repo        Repository
	tx          txRunner
	listingRepo listingReader
	storeRepo   stores.Repository
	events      eventEmitter
	market      config.MarketConfig
	logg        *logger.Logger
	evidence    evidence.Repository
}

// NewService constructs an offer service instance.
func NewService(repo Repository, tx txRunner, listingRepo listingReader, storeRepo stores.Repository, evidenceRepo evidence.Repository, events eventEmitter, market config.MarketConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offer repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if storeRepo == nil {
		return nil, fmt.Errorf("store repository required")
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
		storeRepo:   storeRepo,
		events:      events,
		market:      market,
		logg:        logg,
		evidence:    evidenceRepo,
	}, nil
}

func (s *service) Make(ctx context.Context, input MakeInput) (*models.Offer, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.PriceMinorUnits < s.market.MinOfferPriceMinorUnits {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "proposed price below minimum").
			WithDetails(map[string]any{"minimum": s.market.MinOfferPriceMinorUnits})
	}
	if input.Message != nil && utf8.RuneCountInString(*input.Message) < s.market.MinOfferMessageRunes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer message too short").
			WithDetails(map[string]any{"minimumRunes": s.market.MinOfferMessageRunes})
	}

	listing, err := s.listingRepo.FindByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	offer := &models.Offer{
		ListingID:               input.ListingID,
		BuyerID:                 input.BuyerID,
		SellerStoreID:           listing.SellerStoreID,
		ProposedPriceMinorUnits: input.PriceMinorUnits,
		Message:                 input.Message,
		Status:                  enums.OfferStatusProposed,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, offer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create offer")
		}
		refs, _ := json.Marshal(map[string]any{"offerId": offer.ID.String()})
		if _, err := s.evidence.WithTx(tx).Insert(ctx, &models.EvidenceRecord{
			BuyerID:      input.BuyerID,
			ListingID:    input.ListingID,
			EvidenceType: enums.EvidenceOfferMade,
			Refs:         refs,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record offer evidence")
		}
		// Terms stay out of the feed: price and message are buyer/seller only.
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferMade,
			AggregateType: enums.AggregateOffer,
			AggregateID:   offer.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID},
			Data:          map[string]any{"listingId": input.ListingID.String()},
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *service) Accept(ctx context.Context, sellerID, offerID uuid.UUID) (*models.Offer, error) {
	return s.resolve(ctx, sellerID, offerID, enums.OfferStatusAccepted, enums.EventOfferAccepted)
}

func (s *service) Reject(ctx context.Context, sellerID, offerID uuid.UUID) (*models.Offer, error) {
	return s.resolve(ctx, sellerID, offerID, enums.OfferStatusRejected, enums.EventOfferRejected)
}

func (s *service) resolve(ctx context.Context, sellerID, offerID uuid.UUID, to enums.OfferStatus, eventType enums.OutboxEventType) (*models.Offer, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}

	var resolved *models.Offer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		offer, err := repo.FindByIDForUpdate(ctx, offerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load offer")
		}
		if err := stores.RequireOwner(ctx, s.storeRepo, offer.SellerStoreID, sellerID); err != nil {
			return err
		}
		if offer.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer already resolved").
				WithDetails(map[string]any{"status": offer.Status.String()})
		}

		now := time.Now()
		won, err := repo.Resolve(ctx, offerID, to, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve offer")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer already resolved")
		}

		offer.Status = to
		offer.ResolvedAt = &now
		resolved = offer
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOffer,
			AggregateID:   offerID,
			Actor:         &outbox.ActorRef{UserID: sellerID, StoreID: &offer.SellerStoreID},
			Data:          map[string]any{"listingId": offer.ListingID.String()},
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"offer_id": offerID.String(),
			"status":   to.String(),
		})
		s.logg.Info(logCtx, "offer resolved")
	}
	return resolved, nil
}

// Get returns the offer with its terms, but only to the buyer or the owner of
// the seller store. Everyone else is forbidden.
func (s *service) Get(ctx context.Context, viewerID, offerID uuid.UUID) (*models.Offer, error) {
	if viewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "viewer id required")
	}
	if offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}

	offer, err := s.repo.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load offer")
	}

	if offer.BuyerID == viewerID {
		return offer, nil
	}
	store, err := s.storeRepo.FindByID(ctx, offer.SellerStoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	if store.OwnerID == viewerID {
		return offer, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "offer terms are private")
}
