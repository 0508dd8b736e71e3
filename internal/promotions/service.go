package promotions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/listings"
	"github.com/agoralabs/bazaar-backend/internal/stores"
	"github.com/agoralabs/bazaar-backend/pkg/config"
	"github.com/agoralabs/bazaar-backend/pkg/db"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
)

// Service exposes the bounded promotion queue. The marketplace holds at most
// ActiveSlots concurrently active promotions and at most TotalCap live
// (active plus queued) across all stores; queued promotions activate strictly
// in FIFO order.
type Service interface {
	Create(ctx context.Context, sellerID uuid.UUID, input CreateInput) (*models.Promotion, error)
	ListActive(ctx context.Context) ([]models.Promotion, error)
	ExpireStale(ctx context.Context) (*SweepReport, error)
	Cancel(ctx context.Context, sellerID, promotionID uuid.UUID) (*models.Promotion, error)
}

// The slot caps are marketplace-wide counts, so no single row lock covers
// them. Every transaction that claims or frees a slot serializes on this
// advisory lock key.
const slotLockKey int64 = 0x70726f6d6f

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateInput holds the validated payload to promote a listing.
type CreateInput struct {
	ListingID       uuid.UUID
	PromoPriceMinor int64
}

// SweepReport summarizes one expiry sweep.
type SweepReport struct {
	Expired   int
	Activated int
	Failed    int
}

type service struct {
	repo        Repository
	tx          txRunner
	listingRepo listings.Repository
	storeRepo   stores.Repository
	events      eventEmitter
	market      config.MarketConfig
	logg        *logger.Logger
}

// NewService constructs a promotion service instance.
func NewService(repo Repository, tx txRunner, listingRepo listings.Repository, storeRepo stores.Repository, events eventEmitter, market config.MarketConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
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
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if market.PromoActiveSlots <= 0 || market.PromoTotalCap < market.PromoActiveSlots {
		return nil, fmt.Errorf("invalid promotion slot configuration")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		listingRepo: listingRepo,
		storeRepo:   storeRepo,
		events:      events,
		market:      market,
		logg:        logg,
	}, nil
}

func (s *service) Create(ctx context.Context, sellerID uuid.UUID, input CreateInput) (*models.Promotion, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if input.PromoPriceMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo price must be positive")
	}

	var promo *models.Promotion
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listing, err := s.listingRepo.WithTx(tx).FindByIDForUpdate(ctx, input.ListingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
		}
		if err := stores.RequireOwner(ctx, s.storeRepo, listing.SellerStoreID, sellerID); err != nil {
			return err
		}
		if listing.Status != enums.ListingStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot promote a sold out listing")
		}
		if input.PromoPriceMinor >= listing.PriceMinorUnits {
			return pkgerrors.New(pkgerrors.CodeValidation, "promo price must undercut the listing price")
		}

		if err := db.AdvisoryTxLock(tx, slotLockKey); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock promotion slots")
		}

		repo := s.repo.WithTx(tx)
		live, err := repo.ExistsLiveForListing(ctx, input.ListingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check live promotions")
		}
		if live {
			return pkgerrors.New(pkgerrors.CodeConflict, "listing already has a live promotion")
		}

		liveCount, err := repo.CountByStatus(ctx,
			enums.PromotionStatusActive, enums.PromotionStatusQueued)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count live promotions")
		}
		if liveCount >= int64(s.market.PromoTotalCap) {
			return pkgerrors.New(pkgerrors.CodeConflict, "promotion queue is full").
				WithDetails(map[string]any{"cap": s.market.PromoTotalCap})
		}

		activeCount, err := repo.CountByStatus(ctx, enums.PromotionStatusActive)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count active promotions")
		}
		status := enums.PromotionStatusQueued
		if activeCount < int64(s.market.PromoActiveSlots) {
			status = enums.PromotionStatusActive
		}

		position, err := repo.NextPosition(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign queue position")
		}

		now := time.Now()
		promo = &models.Promotion{
			ListingID:          input.ListingID,
			SellerStoreID:      listing.SellerStoreID,
			OriginalPriceMinor: listing.PriceMinorUnits,
			PromoPriceMinor:    input.PromoPriceMinor,
			Status:             status,
			Position:           position,
			ExpiresAt:          now.Add(s.market.PromoTTL),
		}
		if status == enums.PromotionStatusActive {
			promo.ActivatedAt = &now
		}
		if err := repo.Create(ctx, promo); err != nil {
			if db.IsUniqueViolation(err, "ux_promotions_live_listing", "promotions.listing_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "listing already has a live promotion")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create promotion")
		}

		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPromotionCreated,
			AggregateType: enums.AggregatePromotion,
			AggregateID:   promo.ID,
			Actor:         &outbox.ActorRef{UserID: sellerID, StoreID: &listing.SellerStoreID},
			Data: map[string]any{
				"listingId": input.ListingID.String(),
				"status":    status.String(),
				"position":  position,
			},
			Version: 1,
		}); err != nil {
			return err
		}
		if status == enums.PromotionStatusActive {
			return s.events.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPromotionActivated,
				AggregateType: enums.AggregatePromotion,
				AggregateID:   promo.ID,
				Data:          map[string]any{"listingId": input.ListingID.String()},
				Version:       1,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promo, nil
}

// ListActive returns the marketplace's currently featured promotions in
// queue order.
func (s *service) ListActive(ctx context.Context) ([]models.Promotion, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list promotions")
	}
	return rows, nil
}

// ExpireStale sweeps past-due active promotions and backfills freed slots
// from the queue. Each promotion rides its own transaction; one failure is
// counted and logged, never aborting the sweep.
func (s *service) ExpireStale(ctx context.Context) (*SweepReport, error) {
	stale, err := s.repo.ListStaleActive(ctx, time.Now(), 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale promotions")
	}

	report := &SweepReport{}
	for _, promo := range stale {
		activated, err := s.expireOne(ctx, promo)
		if err != nil {
			report.Failed++
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{"promotion_id": promo.ID.String()})
				s.logg.Error(logCtx, "expire promotion failed", err)
			}
			continue
		}
		report.Expired++
		report.Activated += activated
	}
	return report, nil
}

func (s *service) expireOne(ctx context.Context, promo models.Promotion) (int, error) {
	activated := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := db.AdvisoryTxLock(tx, slotLockKey); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		now := time.Now()
		moved, err := repo.Transition(ctx, promo.ID,
			enums.PromotionStatusActive, enums.PromotionStatusExpired,
			map[string]any{"ended_at": now})
		if err != nil {
			return err
		}
		if !moved {
			// A concurrent sweep or cancel got there first.
			return nil
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPromotionExpired,
			AggregateType: enums.AggregatePromotion,
			AggregateID:   promo.ID,
			Data:          map[string]any{"listingId": promo.ListingID.String()},
			Version:       1,
		}); err != nil {
			return err
		}
		n, err := s.fillActiveSlots(ctx, tx)
		if err != nil {
			return err
		}
		activated = n
		return nil
	})
	return activated, err
}

// fillActiveSlots promotes queued promotions, oldest position first, until
// the marketplace's active slots are full or the queue is empty. Expiry
// restarts at activation, not at the original enqueue time. Callers hold the
// slot lock.
func (s *service) fillActiveSlots(ctx context.Context, tx *gorm.DB) (int, error) {
	repo := s.repo.WithTx(tx)
	activated := 0
	for {
		activeCount, err := repo.CountByStatus(ctx, enums.PromotionStatusActive)
		if err != nil {
			return activated, err
		}
		if activeCount >= int64(s.market.PromoActiveSlots) {
			return activated, nil
		}
		next, err := repo.OldestQueued(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return activated, nil
			}
			return activated, err
		}
		now := time.Now()
		moved, err := repo.Transition(ctx, next.ID,
			enums.PromotionStatusQueued, enums.PromotionStatusActive,
			map[string]any{
				"activated_at": now,
				"expires_at":   now.Add(s.market.PromoTTL),
			})
		if err != nil {
			return activated, err
		}
		if !moved {
			continue
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPromotionActivated,
			AggregateType: enums.AggregatePromotion,
			AggregateID:   next.ID,
			Data:          map[string]any{"listingId": next.ListingID.String()},
			Version:       1,
		}); err != nil {
			return activated, err
		}
		activated++
	}
}

func (s *service) Cancel(ctx context.Context, sellerID, promotionID uuid.UUID) (*models.Promotion, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if promotionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promotion id required")
	}

	var cancelled *models.Promotion
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := db.AdvisoryTxLock(tx, slotLockKey); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock promotion slots")
		}
		repo := s.repo.WithTx(tx)
		promo, err := repo.FindByIDForUpdate(ctx, promotionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "promotion not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load promotion")
		}
		if err := stores.RequireOwner(ctx, s.storeRepo, promo.SellerStoreID, sellerID); err != nil {
			return err
		}
		if !promo.Status.IsLive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "promotion already ended").
				WithDetails(map[string]any{"status": promo.Status.String()})
		}

		wasActive := promo.Status == enums.PromotionStatusActive
		now := time.Now()
		moved, err := repo.Transition(ctx, promotionID,
			promo.Status, enums.PromotionStatusCancelled,
			map[string]any{"ended_at": now})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel promotion")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "promotion already ended")
		}

		promo.Status = enums.PromotionStatusCancelled
		promo.EndedAt = &now
		cancelled = promo
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPromotionCancelled,
			AggregateType: enums.AggregatePromotion,
			AggregateID:   promotionID,
			Actor:         &outbox.ActorRef{UserID: sellerID, StoreID: &promo.SellerStoreID},
			Data:          map[string]any{"listingId": promo.ListingID.String()},
			Version:       1,
		}); err != nil {
			return err
		}
		if wasActive {
			if _, err := s.fillActiveSlots(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
