package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plateiq/restaurant-backend/pkg/enums"
)

// LinkInput describes one conversion edge on an item.
type LinkInput struct {
	TargetMenuItemID uuid.UUID
	ConversionRatio  decimal.Decimal
	ReverseRatio     decimal.Decimal
	ReverseEnabled   bool
	IsActive         bool
}

// CreateItemInput carries everything needed to register a new inventory item.
type CreateItemInput struct {
	RestaurantID        uuid.UUID
	MenuItemID          *uuid.UUID
	Name                string
	Unit                enums.InventoryUnit
	CustomUnitLabel     *string
	CurrentQuantity     decimal.Decimal
	MinimumThreshold    decimal.Decimal
	ConsumptionPerOrder decimal.Decimal
	MaxCapacity         *decimal.Decimal
	CostPerUnit         decimal.Decimal
	Supplier            *string
	IsTracked           bool
	AutoDeduct          bool
	BaseItemID          *uuid.UUID
	BaseRatio           *decimal.Decimal
	Links               []LinkInput
}

// UpdateItemInput carries partial updates; nil fields are left untouched.
// Links, when non-nil, replaces the full edge list.
type UpdateItemInput struct {
	Name                *string
	Unit                *enums.InventoryUnit
	CustomUnitLabel     *string
	MinimumThreshold    *decimal.Decimal
	ConsumptionPerOrder *decimal.Decimal
	MaxCapacity         *decimal.Decimal
	CostPerUnit         *decimal.Decimal
	Supplier            *string
	IsTracked           *bool
	AutoDeduct          *bool
	MenuItemID          *uuid.UUID
	BaseItemID          *uuid.UUID
	BaseRatio           *decimal.Decimal
	Links               []LinkInput
}
