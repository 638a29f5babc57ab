package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/plateiq/restaurant-backend/pkg/enums"
)

// InventoryAlert is a derived notification artifact. It is recomputed from
// item state after each committed change and is never authoritative; repeated
// triggering events produce duplicate rows on purpose.
type InventoryAlert struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ItemID       uuid.UUID `gorm:"column:item_id;type:uuid;not null;index" json:"item_id"`
	RestaurantID uuid.UUID `gorm:"column:restaurant_id;type:uuid;not null;index" json:"restaurant_id"`

	Type     enums.InventoryAlertType `gorm:"column:type;not null" json:"type"`
	Severity enums.AlertSeverity      `gorm:"column:severity;not null" json:"severity"`
	Message  string                   `gorm:"column:message;not null" json:"message"`

	IsRead    bool      `gorm:"column:is_read;not null" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
