package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItemLink is one directed conversion edge: consuming a unit of the
// owning item consumes ConversionRatio units of the target. Targets resolve by
// menu-item reference at propagation time. Deactivated edges are kept for
// audit instead of being deleted.
type InventoryItemLink struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID uuid.UUID `gorm:"column:item_id;type:uuid;not null;index" json:"item_id"`

	TargetMenuItemID uuid.UUID `gorm:"column:target_menu_item_id;type:uuid;not null" json:"target_menu_item_id"`

	ConversionRatio decimal.Decimal `gorm:"column:conversion_ratio;type:numeric(14,6);not null" json:"conversion_ratio"`
	ReverseRatio    decimal.Decimal `gorm:"column:reverse_ratio;type:numeric(14,6);not null" json:"reverse_ratio"`
	ReverseEnabled  bool            `gorm:"column:reverse_enabled;not null" json:"reverse_enabled"`
	IsActive        bool            `gorm:"column:is_active;not null" json:"is_active"`

	Position  int       `gorm:"column:position;not null" json:"position"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
