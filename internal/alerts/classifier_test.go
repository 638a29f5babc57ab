package alerts

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
)

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestClassify(t *testing.T) {
	capacity := qty(50)

	cases := []struct {
		name         string
		item         models.InventoryItem
		wantType     enums.InventoryAlertType
		wantSeverity enums.AlertSeverity
		wantNone     bool
	}{
		{
			name:     "healthy item raises nothing",
			item:     models.InventoryItem{Name: "Flour", IsTracked: true, CurrentQuantity: qty(20), MinimumThreshold: qty(5)},
			wantNone: true,
		},
		{
			name:         "zero quantity is out of stock",
			item:         models.InventoryItem{Name: "Flour", IsTracked: true, CurrentQuantity: qty(0), MinimumThreshold: qty(5)},
			wantType:     enums.AlertTypeOutOfStock,
			wantSeverity: enums.AlertSeverityCritical,
		},
		{
			name:         "at threshold is low stock at medium severity",
			item:         models.InventoryItem{Name: "Flour", IsTracked: true, CurrentQuantity: qty(4), MinimumThreshold: qty(5)},
			wantType:     enums.AlertTypeLowStock,
			wantSeverity: enums.AlertSeverityMedium,
		},
		{
			name:         "at half the threshold low stock escalates to high",
			item:         models.InventoryItem{Name: "Flour", IsTracked: true, CurrentQuantity: qty(2), MinimumThreshold: qty(4)},
			wantType:     enums.AlertTypeLowStock,
			wantSeverity: enums.AlertSeverityHigh,
		},
		{
			name:         "just above half the threshold stays medium",
			item:         models.InventoryItem{Name: "Flour", IsTracked: true, CurrentQuantity: qty(3), MinimumThreshold: qty(4)},
			wantType:     enums.AlertTypeLowStock,
			wantSeverity: enums.AlertSeverityMedium,
		},
		{
			name:         "above capacity is overstocked at low severity",
			item:         models.InventoryItem{Name: "Flour", IsTracked: true, CurrentQuantity: qty(60), MinimumThreshold: qty(5), MaxCapacity: &capacity},
			wantType:     enums.AlertTypeOverstocked,
			wantSeverity: enums.AlertSeverityLow,
		},
		{
			name:     "at capacity raises nothing",
			item:     models.InventoryItem{Name: "Flour", IsTracked: true, CurrentQuantity: qty(50), MinimumThreshold: qty(5), MaxCapacity: &capacity},
			wantNone: true,
		},
		{
			name:     "untracked item never alerts",
			item:     models.InventoryItem{Name: "Flour", IsTracked: false, CurrentQuantity: qty(0), MinimumThreshold: qty(5)},
			wantNone: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(&tc.item)
			if tc.wantNone {
				if got != nil {
					t.Fatalf("expected no alert, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected %s alert, got none", tc.wantType)
			}
			if got.Type != tc.wantType {
				t.Fatalf("expected %s, got %s", tc.wantType, got.Type)
			}
			if got.Severity != tc.wantSeverity {
				t.Fatalf("expected severity %s, got %s", tc.wantSeverity, got.Severity)
			}
			if got.Message == "" {
				t.Fatal("expected a message")
			}
		})
	}
}

// Out of stock with a zero threshold also satisfies the low-stock condition;
// only the out-of-stock alert may fire.
func TestClassify_PriorityIsExclusive(t *testing.T) {
	item := models.InventoryItem{
		Name:             "Flour",
		IsTracked:        true,
		CurrentQuantity:  qty(0),
		MinimumThreshold: qty(10),
	}
	got := Classify(&item)
	if got == nil || got.Type != enums.AlertTypeOutOfStock {
		t.Fatalf("expected out_of_stock to win, got %+v", got)
	}
	if got.Severity != enums.AlertSeverityCritical {
		t.Fatalf("expected critical severity, got %s", got.Severity)
	}
}
