package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plateiq/restaurant-backend/pkg/enums"
)

// InventoryItem is a tracked stock unit owned by a restaurant. It may back a
// single menu item or stand alone. CurrentQuantity is a projection of the
// item's transaction ledger and is never edited directly outside the
// propagation path.
type InventoryItem struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RestaurantID uuid.UUID  `gorm:"column:restaurant_id;type:uuid;not null;index" json:"restaurant_id"`
	MenuItemID   *uuid.UUID `gorm:"column:menu_item_id;type:uuid;uniqueIndex" json:"menu_item_id,omitempty"`
	Name         string     `gorm:"column:name;not null" json:"name"`

	CurrentQuantity  decimal.Decimal     `gorm:"column:current_quantity;type:numeric(14,4);not null" json:"current_quantity"`
	Unit             enums.InventoryUnit `gorm:"column:unit;not null" json:"unit"`
	CustomUnitLabel  *string             `gorm:"column:custom_unit_label" json:"custom_unit_label,omitempty"`
	MinimumThreshold decimal.Decimal     `gorm:"column:minimum_threshold;type:numeric(14,4);not null" json:"minimum_threshold"`

	// ConsumptionPerOrder is how much stock one fulfilled order of the
	// backing menu item consumes.
	ConsumptionPerOrder decimal.Decimal  `gorm:"column:consumption_per_order;type:numeric(14,4);not null" json:"consumption_per_order"`
	MaxCapacity         *decimal.Decimal `gorm:"column:max_capacity;type:numeric(14,4)" json:"max_capacity,omitempty"`
	CostPerUnit         decimal.Decimal  `gorm:"column:cost_per_unit;type:numeric(14,4);not null" json:"cost_per_unit"`
	Supplier            *string          `gorm:"column:supplier" json:"supplier,omitempty"`

	IsTracked  bool `gorm:"column:is_tracked;not null" json:"is_tracked"`
	AutoDeduct bool `gorm:"column:auto_deduct;not null" json:"auto_deduct"`

	LastRestockedAt  *time.Time       `gorm:"column:last_restocked_at" json:"last_restocked_at,omitempty"`
	LastRestockedQty *decimal.Decimal `gorm:"column:last_restocked_qty;type:numeric(14,4)" json:"last_restocked_qty,omitempty"`

	// BaseItemID points at the item this one is derived from, when this item
	// is the target of another item's conversion edge. BaseRatio mirrors that
	// edge's reverse ratio for display purposes.
	BaseItemID *uuid.UUID       `gorm:"column:base_item_id;type:uuid;index" json:"base_item_id,omitempty"`
	BaseRatio  *decimal.Decimal `gorm:"column:base_ratio;type:numeric(14,6)" json:"base_ratio,omitempty"`

	Links []InventoryItemLink `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"links,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// UnitLabel returns the display label for the item's unit of measure.
func (i *InventoryItem) UnitLabel() string {
	if i.Unit == enums.UnitCustom && i.CustomUnitLabel != nil && *i.CustomUnitLabel != "" {
		return *i.CustomUnitLabel
	}
	return string(i.Unit)
}

// ActiveLinks returns the item's conversion edges that still participate in
// propagation, preserving their configured order.
func (i *InventoryItem) ActiveLinks() []InventoryItemLink {
	active := make([]InventoryItemLink, 0, len(i.Links))
	for _, link := range i.Links {
		if link.IsActive {
			active = append(active, link)
		}
	}
	return active
}
