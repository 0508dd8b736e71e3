package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agoralabs/bazaar-backend/api/responses"
	"github.com/agoralabs/bazaar-backend/api/validators"
	promosvc "github.com/agoralabs/bazaar-backend/internal/promotions"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

type createPromotionRequest struct {
	ListingID       string `json:"listing_id" validate:"required,uuid"`
	PromoPriceMinor int64  `json:"promo_price_minor_units" validate:"required,gt=0"`
}

// CreatePromotion handles promoting a listing into the store's bounded queue.
func CreatePromotion(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPromotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathID(payload.ListingID, "listing id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promo, err := svc.Create(r.Context(), sellerID, promosvc.CreateInput{
			ListingID:       listingID,
			PromoPriceMinor: payload.PromoPriceMinor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, promo)
	}
}

// ListActivePromotions returns the marketplace's featured promotions in
// queue order.
func ListActivePromotions(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// CancelPromotion ends a live promotion early.
func CancelPromotion(svc promosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promotionID, err := pathID(chi.URLParam(r, "promotionId"), "promotion id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promo, err := svc.Cancel(r.Context(), sellerID, promotionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promo)
	}
}
