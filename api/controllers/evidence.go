package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/agoralabs/bazaar-backend/api/responses"
	"github.com/agoralabs/bazaar-backend/api/validators"
	evidencesvc "github.com/agoralabs/bazaar-backend/internal/evidence"
	"github.com/agoralabs/bazaar-backend/pkg/enums"
	pkgerrors "github.com/agoralabs/bazaar-backend/pkg/errors"
	"github.com/agoralabs/bazaar-backend/pkg/logger"
)

type recordEvidenceRequest struct {
	ListingID    string          `json:"listing_id" validate:"required,uuid"`
	EvidenceType string          `json:"evidence_type" validate:"required"`
	Refs         json.RawMessage `json:"refs,omitempty"`
}

// RecordEvidence handles recording a pre-purchase engagement proof.
func RecordEvidence(svc evidencesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordEvidenceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := pathID(payload.ListingID, "listing id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		evidenceType, err := enums.ParseEvidenceType(payload.EvidenceType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid evidence type"))
			return
		}

		result, err := svc.Record(r.Context(), evidencesvc.RecordInput{
			BuyerID:      buyerID,
			ListingID:    listingID,
			EvidenceType: evidenceType,
			Refs:         payload.Refs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.AlreadyRecorded {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"record":           result.Record,
			"already_recorded": result.AlreadyRecorded,
		})
	}
}
