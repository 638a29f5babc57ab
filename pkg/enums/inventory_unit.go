package enums

import "fmt"

// InventoryUnit is the unit of measure a stock item is counted in. Custom
// allows a free-text label stored alongside the item.
type InventoryUnit string

const (
	UnitKilogram   InventoryUnit = "kg"
	UnitGram       InventoryUnit = "g"
	UnitLiter      InventoryUnit = "l"
	UnitMilliliter InventoryUnit = "ml"
	UnitPiece      InventoryUnit = "piece"
	UnitPortion    InventoryUnit = "portion"
	UnitCustom     InventoryUnit = "custom"
)

var validInventoryUnits = []InventoryUnit{
	UnitKilogram,
	UnitGram,
	UnitLiter,
	UnitMilliliter,
	UnitPiece,
	UnitPortion,
	UnitCustom,
}

// IsValid reports whether the value matches the canonical unit enum.
func (u InventoryUnit) IsValid() bool {
	for _, candidate := range validInventoryUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseInventoryUnit converts the raw string to InventoryUnit.
func ParseInventoryUnit(value string) (InventoryUnit, error) {
	for _, candidate := range validInventoryUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory unit %q", value)
}
