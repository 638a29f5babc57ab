package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/plateiq/restaurant-backend/pkg/enums"
)

// InventoryTransaction is one immutable ledger entry. Rows are only ever
// appended; replaying an item's rows in creation order, clamping at zero
// after each step, reproduces its current quantity.
type InventoryTransaction struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID uuid.UUID `gorm:"column:item_id;type:uuid;not null;index" json:"item_id"`

	Type             enums.InventoryTransactionType `gorm:"column:type;not null" json:"type"`
	QuantityChange   decimal.Decimal                `gorm:"column:quantity_change;type:numeric(14,4);not null" json:"quantity_change"`
	PreviousQuantity decimal.Decimal                `gorm:"column:previous_quantity;type:numeric(14,4);not null" json:"previous_quantity"`
	NewQuantity      decimal.Decimal                `gorm:"column:new_quantity;type:numeric(14,4);not null" json:"new_quantity"`

	OrderID *uuid.UUID `gorm:"column:order_id;type:uuid;index" json:"order_id,omitempty"`
	StaffID uuid.UUID  `gorm:"column:staff_id;type:uuid;not null" json:"staff_id"`

	Reason *string `gorm:"column:reason" json:"reason,omitempty"`
	Notes  *string `gorm:"column:notes" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
