package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agoralabs/bazaar-backend/api/responses"
	"github.com/agoralabs/bazaar-backend/api/validators"
	purchasesvc "github.com/agoralabs/bazaar-backend/internal/purchases"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

type purchaseDirectRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// PurchaseDirect handles a gated direct purchase. A gating rejection renders
// as a blocked envelope, not an error.
func PurchaseDirect(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload purchaseDirectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathID(payload.ListingID, "listing id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PurchaseDirect(r.Context(), purchasesvc.DirectInput{
			BuyerID:   buyerID,
			ListingID: listingID,
			Quantity:  payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Blocked {
			responses.WriteBlocked(w, result.BlockedReason, result.RequiredActions)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result.Order)
	}
}

type purchaseFromOfferRequest struct {
	OfferID  string `json:"offer_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// PurchaseFromOffer handles buying through an accepted offer.
func PurchaseFromOffer(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload purchaseFromOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := pathID(payload.OfferID, "offer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PurchaseFromOffer(r.Context(), purchasesvc.FromOfferInput{
			BuyerID:  buyerID,
			OfferID:  offerID,
			Quantity: payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if result.Blocked {
			responses.WriteBlocked(w, result.BlockedReason, result.RequiredActions)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result.Order)
	}
}

// GetOrder returns an order to its buyer.
func GetOrder(svc purchasesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
