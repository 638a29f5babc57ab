package enums

import "fmt"

// InventoryAlertType describes the allowed values for the `type` column in
// inventory_alerts.
type InventoryAlertType string

const (
	AlertTypeLowStock    InventoryAlertType = "low_stock"
	AlertTypeOutOfStock  InventoryAlertType = "out_of_stock"
	AlertTypeOverstocked InventoryAlertType = "overstocked"
)

var validInventoryAlertTypes = []InventoryAlertType{
	AlertTypeLowStock,
	AlertTypeOutOfStock,
	AlertTypeOverstocked,
}

// IsValid reports whether the value matches the canonical alert type enum.
func (a InventoryAlertType) IsValid() bool {
	for _, candidate := range validInventoryAlertTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseInventoryAlertType converts the raw string to InventoryAlertType.
func ParseInventoryAlertType(value string) (InventoryAlertType, error) {
	for _, candidate := range validInventoryAlertTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory alert type %q", value)
}
