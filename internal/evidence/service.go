package evidence

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

// Service exposes the evidence ledger: the append-only record of pre-purchase
// engagement that gates direct purchases.
type Service interface {
	Record(ctx context.Context, input RecordInput) (*RecordResult, error)
	HasEvidence(ctx context.Context, buyerID, listingID uuid.UUID) (bool, error)
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

// RecordInput holds the validated payload to record an evidence row.
type RecordInput struct {
	BuyerID      uuid.UUID
	ListingID    uuid.UUID
	EvidenceType enums.EvidenceType
	Refs         json.RawMessage
}

// RecordResult reports the persisted row and whether this call created it.
// Concurrent duplicate recordings both succeed; only the first writer sees
// AlreadyRecorded false.
type RecordResult struct {
	Record          *models.EvidenceRecord
	AlreadyRecorded bool
}

type service struct {
	repo        Repository
	tx          txRunner
	listingRepo listingReader
	events      eventEmitter
	logg        *logger.Logger
}

// NewService constructs an evidence service instance.
func NewService(repo Repository, tx txRunner, listingRepo listingReader, events eventEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("evidence repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if listingRepo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, tx: tx, listingRepo: listingRepo, events: events, logg: logg}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*RecordResult, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if !input.EvidenceType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid evidence type")
	}

	if _, err := s.listingRepo.FindByID(ctx, input.ListingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load listing")
	}

	result := &RecordResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record := &models.EvidenceRecord{
			BuyerID:      input.BuyerID,
			ListingID:    input.ListingID,
			EvidenceType: input.EvidenceType,
			Refs:         input.Refs,
		}
		created, err := s.repo.WithTx(tx).Insert(ctx, record)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record evidence")
		}
		if !created {
			existing, err := s.repo.WithTx(tx).FindByTriple(ctx, input.BuyerID, input.ListingID, input.EvidenceType)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load existing evidence")
			}
			result.Record = existing
			result.AlreadyRecorded = true
			return nil
		}
		result.Record = record
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEvidenceRecorded,
			AggregateType: enums.AggregateEvidence,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID},
			Data: map[string]any{
				"listingId":    input.ListingID.String(),
				"evidenceType": input.EvidenceType.String(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil && !result.AlreadyRecorded {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"buyer_id":      input.BuyerID.String(),
			"listing_id":    input.ListingID.String(),
			"evidence_type": input.EvidenceType.String(),
		})
		s.logg.Info(logCtx, "evidence recorded")
	}
	return result, nil
}

func (s *service) HasEvidence(ctx context.Context, buyerID, listingID uuid.UUID) (bool, error) {
	if buyerID == uuid.Nil || listingID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "buyer id and listing id required")
	}
	ok, err := s.repo.Exists(ctx, buyerID, listingID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check evidence")
	}
	return ok, nil
}
