package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agoralabs/bazaar-backend/api/responses"
	"github.com/agoralabs/bazaar-backend/api/validators"
	reviewsvc "github.com/agoralabs/bazaar-backend/internal/reviews"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

type leaveReviewRequest struct {
	OrderID string  `json:"order_id" validate:"required,uuid"`
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Title   *string `json:"title,omitempty"`
	Body    string  `json:"body" validate:"required"`
}

// LeaveReview handles reviewing a delivered order.
func LeaveReview(svc reviewsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload leaveReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathID(payload.OrderID, "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.LeaveReview(r.Context(), reviewsvc.LeaveReviewInput{
			AuthorID: authorID,
			OrderID:  orderID,
			Rating:   payload.Rating,
			Title:    payload.Title,
			Body:     payload.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"review":      result.Review,
			"trust_event": result.TrustEvent,
		})
	}
}

// GetOrderReview returns the review attached to an order.
func GetOrderReview(svc reviewsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.GetForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}
