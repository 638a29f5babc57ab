package enums

import "fmt"

// TransactionBucket groups transaction types for history queries: order
// deductions on one side, every staff-entered movement on the other.
type TransactionBucket string

const (
	TransactionBucketAll            TransactionBucket = "all"
	TransactionBucketOrderDeduction TransactionBucket = "order_deduction"
	TransactionBucketAdjustment     TransactionBucket = "adjustment"
)

var validTransactionBuckets = []TransactionBucket{
	TransactionBucketAll,
	TransactionBucketOrderDeduction,
	TransactionBucketAdjustment,
}

// IsValid reports whether the value matches the canonical bucket enum.
func (b TransactionBucket) IsValid() bool {
	for _, candidate := range validTransactionBuckets {
		if candidate == b {
			return true
		}
	}
	return false
}

// Types returns the transaction types the bucket covers. An empty slice means
// no type filter applies.
func (b TransactionBucket) Types() []InventoryTransactionType {
	switch b {
	case TransactionBucketOrderDeduction:
		return []InventoryTransactionType{TransactionTypeOrderDeduction}
	case TransactionBucketAdjustment:
		return []InventoryTransactionType{
			TransactionTypeRestock,
			TransactionTypeManualAdjustment,
			TransactionTypeWaste,
			TransactionTypeCorrection,
		}
	}
	return nil
}

// ParseTransactionBucket converts the raw string to TransactionBucket.
// An empty string maps to TransactionBucketAll.
func ParseTransactionBucket(value string) (TransactionBucket, error) {
	if value == "" {
		return TransactionBucketAll, nil
	}
	for _, candidate := range validTransactionBuckets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction bucket %q", value)
}
