package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agoralabs/bazaar-backend/api/responses"
	"github.com/agoralabs/bazaar-backend/api/validators"
	listingsvc "github.com/agoralabs/bazaar-backend/internal/listings"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

type createListingRequest struct {
	StoreID         string `json:"store_id" validate:"required,uuid"`
	ProductID       string `json:"product_id" validate:"required,uuid"`
	PriceMinorUnits int64  `json:"price_minor_units" validate:"gte=0"`
	Currency        string `json:"currency,omitempty"`
	InitialStock    int    `json:"initial_stock" validate:"min=0"`
}

// CreateListing handles listing creation for a seller store.
func CreateListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := pathID(payload.StoreID, "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := pathID(payload.ProductID, "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		currency := enums.Currency(payload.Currency)

		listing, err := svc.Create(r.Context(), sellerID, listingsvc.CreateInput{
			StoreID:         storeID,
			ProductID:       productID,
			PriceMinorUnits: payload.PriceMinorUnits,
			Currency:        currency,
			InitialStock:    payload.InitialStock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}

type updatePriceRequest struct {
	PriceMinorUnits int64  `json:"price_minor_units" validate:"gte=0"`
	Reason          string `json:"reason" validate:"required"`
}

// UpdateListingPrice handles a price change with its mandatory reason.
func UpdateListingPrice(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathID(chi.URLParam(r, "listingId"), "listing id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.UpdatePrice(r.Context(), sellerID, listingsvc.UpdatePriceInput{
			ListingID:       listingID,
			PriceMinorUnits: payload.PriceMinorUnits,
			Reason:          payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// RestockListing handles an explicit restock.
func RestockListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathID(chi.URLParam(r, "listingId"), "listing id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload restockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Restock(r.Context(), sellerID, listingID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// GetListing returns one listing.
func GetListing(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listingID, err := pathID(chi.URLParam(r, "listingId"), "listing id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listing, err := svc.Get(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// ListStoreListings returns a store's listings.
func ListStoreListings(svc listingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, err := pathID(chi.URLParam(r, "storeId"), "store id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByStore(r.Context(), storeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
