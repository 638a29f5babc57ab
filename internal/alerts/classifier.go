package alerts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
)

// Classification is the single alert condition an item is in, if any.
type Classification struct {
	Type     enums.InventoryAlertType
	Severity enums.AlertSeverity
	Message  string
}

// Classify evaluates an item's stock state and returns at most one condition.
// Out of stock wins over low stock, which wins over overstocked; an item
// never raises two alerts for the same state. Untracked items never alert.
func Classify(item *models.InventoryItem) *Classification {
	if item == nil || !item.IsTracked {
		return nil
	}

	if item.CurrentQuantity.LessThanOrEqual(decimal.Zero) {
		return &Classification{
			Type:     enums.AlertTypeOutOfStock,
			Severity: enums.AlertSeverityCritical,
			Message:  fmt.Sprintf("%s is out of stock", item.Name),
		}
	}

	if item.CurrentQuantity.LessThanOrEqual(item.MinimumThreshold) {
		severity := enums.AlertSeverityMedium
		if item.CurrentQuantity.LessThanOrEqual(item.MinimumThreshold.Div(decimal.NewFromInt(2))) {
			severity = enums.AlertSeverityHigh
		}
		return &Classification{
			Type:     enums.AlertTypeLowStock,
			Severity: severity,
			Message: fmt.Sprintf("%s is low: %s %s left (threshold %s)",
				item.Name, item.CurrentQuantity.String(), item.UnitLabel(), item.MinimumThreshold.String()),
		}
	}

	if item.MaxCapacity != nil && item.CurrentQuantity.GreaterThan(*item.MaxCapacity) {
		return &Classification{
			Type:     enums.AlertTypeOverstocked,
			Severity: enums.AlertSeverityLow,
			Message: fmt.Sprintf("%s is overstocked: %s %s exceeds capacity %s",
				item.Name, item.CurrentQuantity.String(), item.UnitLabel(), item.MaxCapacity.String()),
		}
	}

	return nil
}
