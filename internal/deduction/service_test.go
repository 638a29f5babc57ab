package deduction

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/internal/alerts"
	"github.com/plateiq/restaurant-backend/internal/inventory"
	"github.com/plateiq/restaurant-backend/internal/ledger"
	"github.com/plateiq/restaurant-backend/internal/propagation"
	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
	"github.com/plateiq/restaurant-backend/pkg/logger"
)

type gormRunner struct{ db *gorm.DB }

func (r gormRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db         *gorm.DB
	items      inventory.Repository
	ledgerRepo ledger.Repository
	svc        Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:deduction_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.InventoryItem{},
		&models.InventoryItemLink{},
		&models.InventoryTransaction{},
		&models.InventoryAlert{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	items := inventory.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	ledgerSvc, err := ledger.NewService(ledgerRepo, items, 0)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	engine, err := propagation.NewEngine(items, ledgerSvc, nil, log)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	alertSvc, err := alerts.NewService(alerts.NewRepository(db), nil)
	if err != nil {
		t.Fatalf("alert service: %v", err)
	}
	svc, err := NewService(items, engine, propagation.NewComponentLocker(16), alertSvc, gormRunner{db: db}, log)
	if err != nil {
		t.Fatalf("deduction service: %v", err)
	}
	return &fixture{db: db, items: items, ledgerRepo: ledgerRepo, svc: svc}
}

func (f *fixture) seedItem(t *testing.T, item *models.InventoryItem) *models.InventoryItem {
	t.Helper()
	created, err := f.items.Create(context.Background(), item)
	if err != nil {
		t.Fatalf("seed item %q: %v", item.Name, err)
	}
	return created
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestService_DeductForOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()

	burgerMenuID := uuid.New()
	friesMenuID := uuid.New()
	colaMenuID := uuid.New()

	burger := f.seedItem(t, &models.InventoryItem{
		RestaurantID:        restaurantID,
		MenuItemID:          &burgerMenuID,
		Name:                "Burger Patties",
		Unit:                enums.UnitPiece,
		CurrentQuantity:     qty(30),
		ConsumptionPerOrder: qty(1),
		IsTracked:           true,
		AutoDeduct:          true,
	})
	fries := f.seedItem(t, &models.InventoryItem{
		RestaurantID:        restaurantID,
		MenuItemID:          &friesMenuID,
		Name:                "Fries",
		Unit:                enums.UnitGram,
		CurrentQuantity:     qty(2000),
		ConsumptionPerOrder: qty(150),
		IsTracked:           true,
		AutoDeduct:          true,
	})
	cola := f.seedItem(t, &models.InventoryItem{
		RestaurantID:        restaurantID,
		MenuItemID:          &colaMenuID,
		Name:                "Cola",
		Unit:                enums.UnitMilliliter,
		CurrentQuantity:     qty(5000),
		ConsumptionPerOrder: qty(330),
		IsTracked:           true,
		AutoDeduct:          true,
	})

	orderID := uuid.New()
	result, err := f.svc.DeductForOrder(ctx, DeductInput{
		OrderID: orderID,
		StaffID: uuid.New(),
		Lines: []OrderLine{
			{MenuItemID: burgerMenuID, Quantity: 2},
			{MenuItemID: friesMenuID, Quantity: 1},
			{MenuItemID: colaMenuID, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if len(result.Deductions) != 3 {
		t.Fatalf("expected 3 deductions, got %d", len(result.Deductions))
	}
	if result.SkippedLines != 0 {
		t.Fatalf("expected no skipped lines, got %d", result.SkippedLines)
	}

	for _, want := range []struct {
		id  uuid.UUID
		qty decimal.Decimal
	}{
		{burger.ID, qty(28)},
		{fries.ID, qty(1850)},
		{cola.ID, qty(4010)},
	} {
		got, err := f.items.GetByID(ctx, want.id)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if !got.CurrentQuantity.Equal(want.qty) {
			t.Fatalf("item %s: expected %s, got %s", got.Name, want.qty, got.CurrentQuantity)
		}
	}

	// Every movement of the order is traceable through the order id.
	txns, err := f.ledgerRepo.ListByOrderID(ctx, orderID)
	if err != nil {
		t.Fatalf("list by order: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("expected 3 order-tagged transactions, got %d", len(txns))
	}
	for _, txn := range txns {
		if txn.Type != enums.TransactionTypeOrderDeduction {
			t.Fatalf("expected order_deduction, got %s", txn.Type)
		}
		if txn.OrderID == nil || *txn.OrderID != orderID {
			t.Fatalf("missing order tag: %+v", txn)
		}
	}
}

func TestService_DeductSkipsUntrackedAndManualItems(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()

	untrackedMenuID := uuid.New()
	manualMenuID := uuid.New()

	untracked := f.seedItem(t, &models.InventoryItem{
		RestaurantID:        restaurantID,
		MenuItemID:          &untrackedMenuID,
		Name:                "Napkins",
		Unit:                enums.UnitPiece,
		CurrentQuantity:     qty(100),
		ConsumptionPerOrder: qty(1),
		IsTracked:           false,
		AutoDeduct:          true,
	})
	manual := f.seedItem(t, &models.InventoryItem{
		RestaurantID:        restaurantID,
		MenuItemID:          &manualMenuID,
		Name:                "Specials",
		Unit:                enums.UnitPortion,
		CurrentQuantity:     qty(10),
		ConsumptionPerOrder: qty(1),
		IsTracked:           true,
		AutoDeduct:          false,
	})

	result, err := f.svc.DeductForOrder(ctx, DeductInput{
		OrderID: uuid.New(),
		StaffID: uuid.New(),
		Lines: []OrderLine{
			{MenuItemID: untrackedMenuID, Quantity: 1},
			{MenuItemID: manualMenuID, Quantity: 1},
			{MenuItemID: uuid.New(), Quantity: 1}, // no inventory item at all
		},
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if len(result.Deductions) != 0 {
		t.Fatalf("expected no deductions, got %d", len(result.Deductions))
	}
	if result.SkippedLines != 3 {
		t.Fatalf("expected 3 skipped lines, got %d", result.SkippedLines)
	}

	for _, id := range []uuid.UUID{untracked.ID, manual.ID} {
		got, err := f.items.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if got.CurrentQuantity.LessThan(qty(10)) {
			t.Fatalf("item %s was deducted", got.Name)
		}
	}
}

func TestService_DeductMergesRepeatedLines(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	menuItemID := uuid.New()

	item := f.seedItem(t, &models.InventoryItem{
		RestaurantID:        uuid.New(),
		MenuItemID:          &menuItemID,
		Name:                "Espresso",
		Unit:                enums.UnitPortion,
		CurrentQuantity:     qty(20),
		ConsumptionPerOrder: qty(1),
		IsTracked:           true,
		AutoDeduct:          true,
	})

	result, err := f.svc.DeductForOrder(ctx, DeductInput{
		OrderID: uuid.New(),
		StaffID: uuid.New(),
		Lines: []OrderLine{
			{MenuItemID: menuItemID, Quantity: 2},
			{MenuItemID: menuItemID, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if len(result.Deductions) != 1 {
		t.Fatalf("expected merged single deduction, got %d", len(result.Deductions))
	}

	got, err := f.items.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.CurrentQuantity.Equal(qty(15)) {
		t.Fatalf("expected 15 after merged -5, got %s", got.CurrentQuantity)
	}
}

func TestService_DeductClampsAndAlerts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	menuItemID := uuid.New()

	item := f.seedItem(t, &models.InventoryItem{
		RestaurantID:        uuid.New(),
		MenuItemID:          &menuItemID,
		Name:                "Salmon",
		Unit:                enums.UnitPiece,
		CurrentQuantity:     qty(1),
		MinimumThreshold:    qty(2),
		ConsumptionPerOrder: qty(1),
		IsTracked:           true,
		AutoDeduct:          true,
	})

	result, err := f.svc.DeductForOrder(ctx, DeductInput{
		OrderID: uuid.New(),
		StaffID: uuid.New(),
		Lines:   []OrderLine{{MenuItemID: menuItemID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if len(result.Deductions) != 1 || !result.Deductions[0].Clamped {
		t.Fatalf("expected clamped deduction, got %+v", result.Deductions)
	}

	got, err := f.items.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.CurrentQuantity.IsZero() {
		t.Fatalf("expected clamp at zero, got %s", got.CurrentQuantity)
	}
	if len(result.Alerts) != 1 || result.Alerts[0].Type != enums.AlertTypeOutOfStock {
		t.Fatalf("expected out_of_stock alert, got %+v", result.Alerts)
	}
}

func TestService_DeductValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input DeductInput
	}{
		{"missing order", DeductInput{StaffID: uuid.New(), Lines: []OrderLine{{MenuItemID: uuid.New(), Quantity: 1}}}},
		{"missing staff", DeductInput{OrderID: uuid.New(), Lines: []OrderLine{{MenuItemID: uuid.New(), Quantity: 1}}}},
		{"no lines", DeductInput{OrderID: uuid.New(), StaffID: uuid.New()}},
		{"zero quantity line", DeductInput{OrderID: uuid.New(), StaffID: uuid.New(), Lines: []OrderLine{{MenuItemID: uuid.New(), Quantity: 0}}}},
		{"nil menu item", DeductInput{OrderID: uuid.New(), StaffID: uuid.New(), Lines: []OrderLine{{Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.DeductForOrder(ctx, tc.input); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
