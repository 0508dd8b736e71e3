package enums

import "fmt"

// OutboxAggregateType identifies which entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateListing   OutboxAggregateType = "listing"
	AggregateOffer     OutboxAggregateType = "offer"
	AggregateOrder     OutboxAggregateType = "order"
	AggregateReview    OutboxAggregateType = "review"
	AggregateStore     OutboxAggregateType = "store"
	AggregatePromotion OutboxAggregateType = "promotion"
	AggregateEvidence  OutboxAggregateType = "evidence"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateListing,
	AggregateOffer,
	AggregateOrder,
	AggregateReview,
	AggregateStore,
	AggregatePromotion,
	AggregateEvidence,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType identifies an activity-feed event.
type OutboxEventType string

const (
	EventListingCreated      OutboxEventType = "listing_created"
	EventListingPriceUpdated OutboxEventType = "listing_price_updated"
	EventListingRestocked    OutboxEventType = "listing_restocked"
	EventEvidenceRecorded    OutboxEventType = "evidence_recorded"
	EventOfferMade           OutboxEventType = "offer_made"
	EventOfferAccepted       OutboxEventType = "offer_accepted"
	EventOfferRejected       OutboxEventType = "offer_rejected"
	EventOrderPlaced         OutboxEventType = "order_placed"
	EventOrderDelivered      OutboxEventType = "order_delivered"
	EventReviewCreated       OutboxEventType = "review_created"
	EventTrustAdjusted       OutboxEventType = "trust_adjusted"
	EventPromotionCreated    OutboxEventType = "promotion_created"
	EventPromotionActivated  OutboxEventType = "promotion_activated"
	EventPromotionExpired    OutboxEventType = "promotion_expired"
	EventPromotionCancelled  OutboxEventType = "promotion_cancelled"
)

var validOutboxEventTypes = []OutboxEventType{
	EventListingCreated,
	EventListingPriceUpdated,
	EventListingRestocked,
	EventEvidenceRecorded,
	EventOfferMade,
	EventOfferAccepted,
	EventOfferRejected,
	EventOrderPlaced,
	EventOrderDelivered,
	EventReviewCreated,
	EventTrustAdjusted,
	EventPromotionCreated,
	EventPromotionActivated,
	EventPromotionExpired,
	EventPromotionCancelled,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
