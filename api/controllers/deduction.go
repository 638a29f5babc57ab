package controllers

import (
	"net/http"

	"github.com/plateiq/restaurant-backend/api/responses"
	"github.com/plateiq/restaurant-backend/api/validators"
	"github.com/plateiq/restaurant-backend/internal/deduction"
	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/logger"
)

type orderLineRequest struct {
	MenuItemID string `json:"menu_item_id" validate:"required,uuid"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0"`
}

type deductRequest struct {
	OrderID string             `json:"order_id" validate:"required,uuid"`
	StaffID string             `json:"staff_id" validate:"required,uuid"`
	Lines   []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type deductionResponse struct {
	Item        *models.InventoryItem        `json:"item"`
	Transaction *models.InventoryTransaction `json:"transaction"`
	Clamped     bool                         `json:"clamped"`
	Affected    []affectedItemResponse       `json:"affected_items"`
}

type deductOrderResponse struct {
	Deductions   []deductionResponse     `json:"deductions"`
	SkippedLines int                     `json:"skipped_lines"`
	Alerts       []models.InventoryAlert `json:"alerts"`
}

// DeductForOrder consumes stock for a fulfilled order. Lines that resolve to
// no deductible item are skipped, never rejected.
func DeductForOrder(svc deduction.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload deductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseUUIDField(payload.OrderID, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staffID, err := parseUUIDField(payload.StaffID, "staff_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]deduction.OrderLine, len(payload.Lines))
		for i, line := range payload.Lines {
			menuItemID, err := parseUUIDField(line.MenuItemID, "menu_item_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			lines[i] = deduction.OrderLine{MenuItemID: menuItemID, Quantity: line.Quantity}
		}

		result, err := svc.DeductForOrder(r.Context(), deduction.DeductInput{
			OrderID: orderID,
			StaffID: staffID,
			Lines:   lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		deductions := make([]deductionResponse, len(result.Deductions))
		for i, d := range result.Deductions {
			deductions[i] = deductionResponse{
				Item:        d.Item,
				Transaction: d.Transaction,
				Clamped:     d.Clamped,
				Affected:    toAffectedResponses(d.Affected),
			}
		}
		responses.WriteSuccess(w, deductOrderResponse{
			Deductions:   deductions,
			SkippedLines: result.SkippedLines,
			Alerts:       result.Alerts,
		})
	}
}
