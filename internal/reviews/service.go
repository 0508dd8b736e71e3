package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/internal/purchases"
	"github.com/agoralabs/bazaar-backend/internal/trust"
	"github.com/agoralabs/bazaar-backend/pkg/db"
	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
)

// A rating of 3 is neutral; each step away from it moves trust by a fixed
// share of the maximum swing. The deltas are derived once from the rating
// and never recomputed from review history.
const (
	neutralRating = 3
	ratingSpan    = 2.0

	maxOverallSwing             = 10.0
	maxProductSatisfactionSwing = 14.0
)

// Service exposes review creation. Exactly one review per order.
type Service interface {
	LeaveReview(ctx context.Context, input LeaveReviewInput) (*Result, error)
	GetForOrder(ctx context.Context, orderID uuid.UUID) (*models.Review, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LeaveReviewInput holds the validated payload to review an order.
type LeaveReviewInput struct {
	AuthorID uuid.UUID
	OrderID  uuid.UUID
	Rating   int
	Title    *string
	Body     string
}

// Result carries the review and the trust movement it caused.
type Result struct {
	Review     *models.Review
	TrustEvent *models.TrustEvent
}

type service struct {
	repo      Repository
	tx        txRunner
	orderRepo purchases.Repository
	trust     trust.Service
	events    eventEmitter
	logg      *logger.Logger
}

// NewService constructs a review service instance.
func NewService(repo Repository, tx txRunner, orderRepo purchases.Repository, trustSvc trust.Service, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if trustSvc == nil {
		return nil, fmt.Errorf("trust service required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, tx: tx, orderRepo: orderRepo, trust: trustSvc, events: events, logg: logg}, nil
}

func (s *service) LeaveReview(ctx context.Context, input LeaveReviewInput) (*Result, error) {
	if input.AuthorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "author id required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review body required")
	}

	order, err := s.orderRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.BuyerID != input.AuthorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may review this order")
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not delivered")
	}

	// Friendly pre-check; the unique index on order_id is what actually
	// holds under concurrency.
	exists, err := s.repo.ExistsForOrder(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing review")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order already reviewed")
	}

	overallDelta, productDelta := trustDeltas(input.Rating)
	result := &Result{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		review := &models.Review{
			OrderID:  input.OrderID,
			AuthorID: input.AuthorID,
			Rating:   input.Rating,
			Title:    input.Title,
			Body:     strings.TrimSpace(input.Body),
		}
		if err := s.repo.WithTx(tx).Create(ctx, review); err != nil {
			if db.IsUniqueViolation(err, "ux_reviews_order", "reviews.order_id") {
				return pkgerrors.New(pkgerrors.CodeValidation, "order already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
		}

		reviewID := review.ID
		orderID := order.ID
		event, err := s.trust.ApplyDelta(ctx, tx, trust.DeltaInput{
			StoreID:                  order.SellerStoreID,
			Reason:                   enums.TrustReasonReviewReceived,
			OverallDelta:             overallDelta,
			ProductSatisfactionDelta: productDelta,
			OrderID:                  &orderID,
			ReviewID:                 &reviewID,
			Metadata:                 map[string]any{"rating": input.Rating},
		})
		if err != nil {
			return err
		}

		result.Review = review
		result.TrustEvent = event
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewCreated,
			AggregateType: enums.AggregateReview,
			AggregateID:   review.ID,
			Actor:         &outbox.ActorRef{UserID: input.AuthorID},
			Data: map[string]any{
				"orderId": orderID.String(),
				"rating":  input.Rating,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": input.OrderID.String(),
			"rating":   input.Rating,
		})
		s.logg.Info(logCtx, "review created")
	}
	return result, nil
}

func (s *service) GetForOrder(ctx context.Context, orderID uuid.UUID) (*models.Review, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	review, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	return review, nil
}

func trustDeltas(rating int) (overall, productSatisfaction float64) {
	normalized := float64(rating-neutralRating) / ratingSpan
	return normalized * maxOverallSwing, normalized * maxProductSatisfactionSwing
}
