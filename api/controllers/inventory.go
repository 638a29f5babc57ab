package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plateiq/restaurant-backend/api/responses"
	"github.com/plateiq/restaurant-backend/api/validators"
	"github.com/plateiq/restaurant-backend/internal/inventory"
	"github.com/plateiq/restaurant-backend/internal/ledger"
	"github.com/plateiq/restaurant-backend/pkg/enums"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
	"github.com/plateiq/restaurant-backend/pkg/logger"
)

// CreateInventoryItem handles item registration, optionally with conversion
// links and opening stock.
func CreateInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createInventoryItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		staffID, err := parseUUIDField(payload.StaffID, "staff_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), staffID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// ListInventory lists a restaurant's items.
func ListInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, err := parseUUIDField(r.URL.Query().Get("restaurant_id"), "restaurant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListByRestaurant(r.Context(), restaurantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ListLowStock lists tracked items at or below their minimum threshold.
func ListLowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID, err := parseUUIDField(r.URL.Query().Get("restaurant_id"), "restaurant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, err := svc.ListBelowThreshold(r.Context(), restaurantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// GetInventoryItem fetches one item with its conversion links.
func GetInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDField(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// GetInventoryItemByMenuItem resolves the item backing a menu item.
func GetInventoryItemByMenuItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		menuItemID, err := parseUUIDField(chi.URLParam(r, "menuItemID"), "menu_item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetByMenuItemID(r.Context(), menuItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// UpdateInventoryItem applies partial updates; a links array replaces the
// full edge list.
func UpdateInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDField(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateInventoryItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// DeleteInventoryItem hard-deletes an item and its links. Ledger history
// survives the delete.
func DeleteInventoryItem(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDField(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ListItemTransactions returns an item's ledger history, newest first.
func ListItemTransactions(svc ledger.Service, logg *logger.Logger, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDField(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := historyFilterFromQuery(r, maxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.History(r.Context(), id, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txns)
	}
}

type linkRequest struct {
	TargetMenuItemID string          `json:"target_menu_item_id" validate:"required,uuid"`
	ConversionRatio  decimal.Decimal `json:"conversion_ratio" validate:"required"`
	ReverseRatio     decimal.Decimal `json:"reverse_ratio"`
	ReverseEnabled   bool            `json:"reverse_enabled"`
	IsActive         *bool           `json:"is_active,omitempty"`
}

type createInventoryItemRequest struct {
	RestaurantID        string           `json:"restaurant_id" validate:"required,uuid"`
	StaffID             string           `json:"staff_id" validate:"required,uuid"`
	MenuItemID          *string          `json:"menu_item_id,omitempty" validate:"omitempty,uuid"`
	Name                string           `json:"name" validate:"required"`
	Unit                string           `json:"unit" validate:"required"`
	CustomUnitLabel     *string          `json:"custom_unit_label,omitempty"`
	CurrentQuantity     decimal.Decimal  `json:"current_quantity"`
	MinimumThreshold    decimal.Decimal  `json:"minimum_threshold"`
	ConsumptionPerOrder decimal.Decimal  `json:"consumption_per_order"`
	MaxCapacity         *decimal.Decimal `json:"max_capacity,omitempty"`
	CostPerUnit         decimal.Decimal  `json:"cost_per_unit"`
	Supplier            *string          `json:"supplier,omitempty"`
	IsTracked           *bool            `json:"is_tracked,omitempty"`
	AutoDeduct          *bool            `json:"auto_deduct,omitempty"`
	BaseItemID          *string          `json:"base_item_id,omitempty" validate:"omitempty,uuid"`
	BaseRatio           *decimal.Decimal `json:"base_ratio,omitempty"`
	Links               []linkRequest    `json:"links,omitempty"`
}

func (r createInventoryItemRequest) toCreateInput() (inventory.CreateItemInput, error) {
	restaurantID, err := parseUUIDField(r.RestaurantID, "restaurant_id")
	if err != nil {
		return inventory.CreateItemInput{}, err
	}
	unit, err := enums.ParseInventoryUnit(strings.TrimSpace(r.Unit))
	if err != nil {
		return inventory.CreateItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
	}

	input := inventory.CreateItemInput{
		RestaurantID:        restaurantID,
		Name:                validators.SanitizeString(r.Name, 200),
		Unit:                unit,
		CustomUnitLabel:     r.CustomUnitLabel,
		CurrentQuantity:     r.CurrentQuantity,
		MinimumThreshold:    r.MinimumThreshold,
		ConsumptionPerOrder: r.ConsumptionPerOrder,
		MaxCapacity:         r.MaxCapacity,
		CostPerUnit:         r.CostPerUnit,
		Supplier:            r.Supplier,
		IsTracked:           true,
		AutoDeduct:          true,
		BaseRatio:           r.BaseRatio,
	}
	if r.IsTracked != nil {
		input.IsTracked = *r.IsTracked
	}
	if r.AutoDeduct != nil {
		input.AutoDeduct = *r.AutoDeduct
	}
	if r.MenuItemID != nil {
		id, err := parseUUIDField(*r.MenuItemID, "menu_item_id")
		if err != nil {
			return inventory.CreateItemInput{}, err
		}
		input.MenuItemID = &id
	}
	if r.BaseItemID != nil {
		id, err := parseUUIDField(*r.BaseItemID, "base_item_id")
		if err != nil {
			return inventory.CreateItemInput{}, err
		}
		input.BaseItemID = &id
	}

	links, err := toLinkInputs(r.Links)
	if err != nil {
		return inventory.CreateItemInput{}, err
	}
	input.Links = links
	return input, nil
}

type updateInventoryItemRequest struct {
	Name                *string          `json:"name,omitempty"`
	Unit                *string          `json:"unit,omitempty"`
	CustomUnitLabel     *string          `json:"custom_unit_label,omitempty"`
	MinimumThreshold    *decimal.Decimal `json:"minimum_threshold,omitempty"`
	ConsumptionPerOrder *decimal.Decimal `json:"consumption_per_order,omitempty"`
	MaxCapacity         *decimal.Decimal `json:"max_capacity,omitempty"`
	CostPerUnit         *decimal.Decimal `json:"cost_per_unit,omitempty"`
	Supplier            *string          `json:"supplier,omitempty"`
	IsTracked           *bool            `json:"is_tracked,omitempty"`
	AutoDeduct          *bool            `json:"auto_deduct,omitempty"`
	MenuItemID          *string          `json:"menu_item_id,omitempty" validate:"omitempty,uuid"`
	BaseItemID          *string          `json:"base_item_id,omitempty" validate:"omitempty,uuid"`
	BaseRatio           *decimal.Decimal `json:"base_ratio,omitempty"`
	Links               []linkRequest    `json:"links,omitempty"`
}

func (r updateInventoryItemRequest) toUpdateInput() (inventory.UpdateItemInput, error) {
	input := inventory.UpdateItemInput{
		CustomUnitLabel:     r.CustomUnitLabel,
		MinimumThreshold:    r.MinimumThreshold,
		ConsumptionPerOrder: r.ConsumptionPerOrder,
		MaxCapacity:         r.MaxCapacity,
		CostPerUnit:         r.CostPerUnit,
		Supplier:            r.Supplier,
		IsTracked:           r.IsTracked,
		AutoDeduct:          r.AutoDeduct,
		BaseRatio:           r.BaseRatio,
	}
	if r.Name != nil {
		name := validators.SanitizeString(*r.Name, 200)
		input.Name = &name
	}
	if r.Unit != nil {
		unit, err := enums.ParseInventoryUnit(strings.TrimSpace(*r.Unit))
		if err != nil {
			return inventory.UpdateItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
		}
		input.Unit = &unit
	}
	if r.MenuItemID != nil {
		id, err := parseUUIDField(*r.MenuItemID, "menu_item_id")
		if err != nil {
			return inventory.UpdateItemInput{}, err
		}
		input.MenuItemID = &id
	}
	if r.BaseItemID != nil {
		id, err := parseUUIDField(*r.BaseItemID, "base_item_id")
		if err != nil {
			return inventory.UpdateItemInput{}, err
		}
		input.BaseItemID = &id
	}
	if r.Links != nil {
		links, err := toLinkInputs(r.Links)
		if err != nil {
			return inventory.UpdateItemInput{}, err
		}
		input.Links = links
	}
	return input, nil
}

func toLinkInputs(links []linkRequest) ([]inventory.LinkInput, error) {
	if links == nil {
		return nil, nil
	}
	out := make([]inventory.LinkInput, len(links))
	for i, link := range links {
		target, err := parseUUIDField(link.TargetMenuItemID, "target_menu_item_id")
		if err != nil {
			return nil, err
		}
		active := true
		if link.IsActive != nil {
			active = *link.IsActive
		}
		out[i] = inventory.LinkInput{
			TargetMenuItemID: target,
			ConversionRatio:  link.ConversionRatio,
			ReverseRatio:     link.ReverseRatio,
			ReverseEnabled:   link.ReverseEnabled,
			IsActive:         active,
		}
	}
	return out, nil
}

func historyFilterFromQuery(r *http.Request, maxLimit int) (ledger.HistoryFilter, error) {
	var filter ledger.HistoryFilter

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from timestamp")
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to timestamp")
		}
		filter.To = &to
	}

	bucket, err := enums.ParseTransactionBucket(strings.TrimSpace(r.URL.Query().Get("type")))
	if err != nil {
		return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
	}
	filter.Bucket = bucket

	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxLimit)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	return filter, nil
}

func parseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field).
			WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
