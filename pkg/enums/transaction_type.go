package enums

import "fmt"

// InventoryTransactionType describes the allowed values for the `type` column
// in inventory_transactions.
type InventoryTransactionType string

const (
	TransactionTypeRestock          InventoryTransactionType = "restock"
	TransactionTypeManualAdjustment InventoryTransactionType = "manual_adjustment"
	TransactionTypeWaste            InventoryTransactionType = "waste"
	TransactionTypeOrderDeduction   InventoryTransactionType = "order_deduction"
	TransactionTypeCorrection       InventoryTransactionType = "correction"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	TransactionTypeRestock,
	TransactionTypeManualAdjustment,
	TransactionTypeWaste,
	TransactionTypeOrderDeduction,
	TransactionTypeCorrection,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsAdjustment reports whether the type is one a staff member may submit
// through the manual adjustment endpoint.
func (t InventoryTransactionType) IsAdjustment() bool {
	switch t {
	case TransactionTypeRestock, TransactionTypeManualAdjustment, TransactionTypeWaste:
		return true
	}
	return false
}

// ParseInventoryTransactionType converts the raw string to InventoryTransactionType.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
