package trust

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agoralabs/bazaar-backend/pkg/db/models"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
	"github.com/agoralabs/bazaar-backend/pkg/outbox"
)

const (
	scoreFloor   = 0.0
	scoreCeiling = 100.0

	merchantReplyCommunicationDelta = 0.5
	merchantReplyOverallDelta       = 0.2
	policyUpdateOverallDelta        = 0.3
)

// Service is the single mutation point for trust scores. Every movement is a
// bounded delta applied to the stored value and clamped to [0,100]; scores are
// never recomputed from review history.
type Service interface {
	ApplyDelta(ctx context.Context, tx *gorm.DB, input DeltaInput) (*models.TrustEvent, error)
	RecordMerchantReply(ctx context.Context, storeID uuid.UUID, threadID *uuid.UUID) (*models.TrustEvent, error)
	RecordPolicyUpdate(ctx context.Context, storeID uuid.UUID) (*models.TrustEvent, error)
	GetProfile(ctx context.Context, storeID uuid.UUID) (*models.TrustProfile, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DeltaInput describes one bounded trust movement and its provenance.
type DeltaInput struct {
	StoreID                  uuid.UUID
	Reason                   enums.TrustReason
	OverallDelta             float64
	ProductSatisfactionDelta float64
	CommunicationDelta       float64
	OrderID                  *uuid.UUID
	ReviewID                 *uuid.UUID
	ThreadID                 *uuid.UUID
	Metadata                 map[string]any
}

type service struct {
	repo   Repository
	tx     txRunner
	events eventEmitter
	logg   *logger.Logger
}

// NewService constructs a trust service instance.
func NewService(repo Repository, tx txRunner, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("trust repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, tx: tx, events: events, logg: logg}, nil
}

// ApplyDelta mutates the store's profile inside the caller's transaction so a
// review and its trust movement commit or roll back together.
func (s *service) ApplyDelta(ctx context.Context, tx *gorm.DB, input DeltaInput) (*models.TrustEvent, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid trust reason")
	}

	repo := s.repo.WithTx(tx)
	profile, err := repo.LoadProfileForUpdate(ctx, input.StoreID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load trust profile")
	}

	profile.OverallScore = clamp(profile.OverallScore + input.OverallDelta)
	profile.ProductSatisfaction = clamp(profile.ProductSatisfaction + input.ProductSatisfactionDelta)
	profile.Communication = clamp(profile.Communication + input.CommunicationDelta)
	if err := repo.SaveProfile(ctx, profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save trust profile")
	}

	var metadata json.RawMessage
	if input.Metadata != nil {
		metadata, err = json.Marshal(input.Metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode trust metadata")
		}
	}
	event := &models.TrustEvent{
		StoreID:                  input.StoreID,
		Reason:                   input.Reason,
		OverallDelta:             input.OverallDelta,
		ProductSatisfactionDelta: input.ProductSatisfactionDelta,
		CommunicationDelta:       input.CommunicationDelta,
		OrderID:                  input.OrderID,
		ReviewID:                 input.ReviewID,
		ThreadID:                 input.ThreadID,
		Metadata:                 metadata,
	}
	if err := repo.InsertEvent(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record trust event")
	}

	if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTrustAdjusted,
		AggregateType: enums.AggregateStore,
		AggregateID:   input.StoreID,
		Data: map[string]any{
			"reason":       input.Reason.String(),
			"overallDelta": input.OverallDelta,
			"overallScore": profile.OverallScore,
		},
		Version: 1,
	}); err != nil {
		return nil, err
	}
	return event, nil
}

// RecordMerchantReply applies the fixed communication bump for a seller
// answering a buyer thread.
func (s *service) RecordMerchantReply(ctx context.Context, storeID uuid.UUID, threadID *uuid.UUID) (*models.TrustEvent, error) {
	var event *models.TrustEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var applyErr error
		event, applyErr = s.ApplyDelta(ctx, tx, DeltaInput{
			StoreID:            storeID,
			Reason:             enums.TrustReasonMerchantReply,
			OverallDelta:       merchantReplyOverallDelta,
			CommunicationDelta: merchantReplyCommunicationDelta,
			ThreadID:           threadID,
		})
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// RecordPolicyUpdate applies the fixed overall bump for a store publishing a
// policy update.
func (s *service) RecordPolicyUpdate(ctx context.Context, storeID uuid.UUID) (*models.TrustEvent, error) {
	var event *models.TrustEvent
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var applyErr error
		event, applyErr = s.ApplyDelta(ctx, tx, DeltaInput{
			StoreID:      storeID,
			Reason:       enums.TrustReasonPolicyUpdate,
			OverallDelta: policyUpdateOverallDelta,
		})
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) GetProfile(ctx context.Context, storeID uuid.UUID) (*models.TrustProfile, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	profile, err := s.repo.FindProfile(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A store nobody has rated yet sits at the neutral baseline.
			return &models.TrustProfile{
				StoreID:             storeID,
				OverallScore:        50,
				ProductSatisfaction: 50,
				Communication:       50,
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load trust profile")
	}
	return profile, nil
}

func clamp(score float64) float64 {
	if score < scoreFloor {
		return scoreFloor
	}
	if score > scoreCeiling {
		return scoreCeiling
	}
	return score
}
