package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/plateiq/restaurant-backend/api/responses"
	"github.com/plateiq/restaurant-backend/api/validators"
	"github.com/plateiq/restaurant-backend/internal/adjustments"
	"github.com/plateiq/restaurant-backend/internal/ledger"
	"github.com/plateiq/restaurant-backend/internal/propagation"
	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
	"github.com/plateiq/restaurant-backend/pkg/logger"
)

type adjustQuantityRequest struct {
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Type        string          `json:"type" validate:"required"`
	StaffID     string          `json:"staff_id" validate:"required,uuid"`
	Reason      *string         `json:"reason,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

type affectedItemResponse struct {
	Item        *models.InventoryItem        `json:"item"`
	Transaction *models.InventoryTransaction `json:"transaction"`
}

type adjustQuantityResponse struct {
	Item        *models.InventoryItem        `json:"item"`
	Transaction *models.InventoryTransaction `json:"transaction,omitempty"`
	Clamped     bool                         `json:"clamped"`
	Affected    []affectedItemResponse       `json:"affected_items"`
	Alerts      []models.InventoryAlert      `json:"alerts"`
}

func toAffectedResponses(effects []propagation.Effect) []affectedItemResponse {
	out := make([]affectedItemResponse, len(effects))
	for i, effect := range effects {
		out[i] = affectedItemResponse{Item: effect.Item, Transaction: effect.Transaction}
	}
	return out
}

// AdjustQuantity sets an item's absolute stock level and cascades the change
// across its conversion links.
func AdjustQuantity(svc adjustments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseUUIDField(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := parseUUIDField(payload.StaffID, "staff_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnType, err := enums.ParseInventoryTransactionType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction type"))
			return
		}

		result, err := svc.AdjustQuantity(r.Context(), adjustments.AdjustInput{
			ItemID:      itemID,
			Type:        txnType,
			NewQuantity: payload.NewQuantity,
			StaffID:     staffID,
			Reason:      payload.Reason,
			Notes:       payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, adjustQuantityResponse{
			Item:        result.Item,
			Transaction: result.Transaction,
			Clamped:     result.Clamped,
			Affected:    toAffectedResponses(result.Affected),
			Alerts:      result.Alerts,
		})
	}
}

type backfillRequest struct {
	StaffID string `json:"staff_id" validate:"required,uuid"`
}

// BackfillInitialTransaction writes the missing opening-stock ledger row for
// an item created before ledger coverage. Safe to repeat: items that already
// have history are left alone.
func BackfillInitialTransaction(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseUUIDField(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload backfillRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := parseUUIDField(payload.StaffID, "staff_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.BackfillInitialTransaction(r.Context(), itemID, staffID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if txn == nil {
			responses.WriteSuccess(w, map[string]string{"status": "already_recorded"})
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}
