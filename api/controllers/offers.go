package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agoralabs/bazaar-backend/api/responses"
	"github.com/agoralabs/bazaar-backend/api/validators"
	offersvc "github.com/agoralabs/bazaar-backend/internal/offers"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

type makeOfferRequest struct {
	ListingID       string  `json:"listing_id" validate:"required,uuid"`
	PriceMinorUnits int64   `json:"price_minor_units" validate:"required,gt=0"`
	Message         *string `json:"message,omitempty"`
}

// MakeOffer handles a buyer proposing a price for a listing.
func MakeOffer(svc offersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload makeOfferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathID(payload.ListingID, "listing id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		offer, err := svc.Make(r.Context(), offersvc.MakeInput{
			BuyerID:         buyerID,
			ListingID:       listingID,
			PriceMinorUnits: payload.PriceMinorUnits,
			Message:         payload.Message,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, offer)
	}
}

// AcceptOffer handles the seller accepting a proposed offer.
func AcceptOffer(svc offersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := pathID(chi.URLParam(r, "offerId"), "offer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.Accept(r.Context(), sellerID, offerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// RejectOffer handles the seller rejecting a proposed offer.
func RejectOffer(svc offersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := pathID(chi.URLParam(r, "offerId"), "offer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.Reject(r.Context(), sellerID, offerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// GetOffer returns the offer with its private terms to an allowed viewer.
func GetOffer(svc offersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offerID, err := pathID(chi.URLParam(r, "offerId"), "offer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.Get(r.Context(), viewerID, offerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}
