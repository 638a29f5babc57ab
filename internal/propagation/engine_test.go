package propagation

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/internal/inventory"
	"github.com/plateiq/restaurant-backend/internal/ledger"
	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
	"github.com/plateiq/restaurant-backend/pkg/logger"
)

type engineFixture struct {
	db     *gorm.DB
	items  inventory.Repository
	ledger ledger.Service
	engine *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	dsn := "file:propagation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}, &models.InventoryItemLink{}, &models.InventoryTransaction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	items := inventory.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	ledgerSvc, err := ledger.NewService(ledgerRepo, items, 0)
	if err != nil {
		t.Fatalf("ledger service: %v", err)
	}
	log := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	engine, err := NewEngine(items, ledgerSvc, nil, log)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return &engineFixture{db: db, items: items, ledger: ledgerSvc, engine: engine}
}

func (f *engineFixture) seedItem(t *testing.T, item *models.InventoryItem) *models.InventoryItem {
	t.Helper()
	created, err := f.items.Create(context.Background(), item)
	if err != nil {
		t.Fatalf("seed item %q: %v", item.Name, err)
	}
	return created
}

func (f *engineFixture) apply(t *testing.T, change Change) *Result {
	t.Helper()
	var result *Result
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var applyErr error
		result, applyErr = f.engine.Apply(context.Background(), tx, change)
		return applyErr
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return result
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestEngine_ForwardPropagationClampsFromRequestedDelta(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	restaurantID := uuid.New()
	sliceMenuID := uuid.New()

	cake := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    restaurantID,
		Name:            "Whole Cake",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(2),
		Links: []models.InventoryItemLink{{
			TargetMenuItemID: sliceMenuID,
			ConversionRatio:  qty(8),
			IsActive:         true,
		}},
	})
	slice := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    restaurantID,
		MenuItemID:      &sliceMenuID,
		Name:            "Cake Slice",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(10),
	})

	result := f.apply(t, Change{
		ItemID:  cake.ID,
		Delta:   qty(-3),
		Type:    enums.TransactionTypeWaste,
		StaffID: uuid.New(),
	})

	if !result.PrimaryClamped {
		t.Fatal("expected primary clamp")
	}
	if !result.Primary.CurrentQuantity.IsZero() {
		t.Fatalf("expected primary clamped to zero, got %s", result.Primary.CurrentQuantity)
	}
	if !result.PrimaryTransaction.QuantityChange.Equal(qty(-2)) {
		t.Fatalf("expected applied change -2, got %s", result.PrimaryTransaction.QuantityChange)
	}

	// The slice moves by the requested -3 * 8, not by the clamped -2 * 8.
	if len(result.Affected) != 1 {
		t.Fatalf("expected one affected item, got %d", len(result.Affected))
	}
	got, err := f.items.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("reload slice: %v", err)
	}
	if !got.CurrentQuantity.IsZero() {
		t.Fatalf("expected slice clamped to zero, got %s", got.CurrentQuantity)
	}
	txn := result.Affected[0].Transaction
	if !txn.PreviousQuantity.Equal(qty(10)) || !txn.NewQuantity.IsZero() {
		t.Fatalf("unexpected slice transaction: %+v", txn)
	}
	if txn.Reason == nil || *txn.Reason != "forward link from Whole Cake (ratio=8)" {
		t.Fatalf("unexpected reason: %v", txn.Reason)
	}
}

func TestEngine_ForwardIncreasePropagates(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	sliceMenuID := uuid.New()

	cake := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    uuid.New(),
		Name:            "Whole Cake",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(1),
		Links: []models.InventoryItemLink{{
			TargetMenuItemID: sliceMenuID,
			ConversionRatio:  qty(8),
			IsActive:         true,
		}},
	})
	slice := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    cake.RestaurantID,
		MenuItemID:      &sliceMenuID,
		Name:            "Cake Slice",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(4),
	})

	result := f.apply(t, Change{
		ItemID:  cake.ID,
		Delta:   qty(2),
		Type:    enums.TransactionTypeRestock,
		StaffID: uuid.New(),
	})
	if result.PrimaryClamped {
		t.Fatal("unexpected clamp on increase")
	}

	got, err := f.items.GetByID(ctx, slice.ID)
	if err != nil {
		t.Fatalf("reload slice: %v", err)
	}
	if !got.CurrentQuantity.Equal(qty(20)) {
		t.Fatalf("expected slice at 20, got %s", got.CurrentQuantity)
	}
}

func TestEngine_InactiveLinkAndMissingTargetSkipped(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	cake := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    uuid.New(),
		Name:            "Whole Cake",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(5),
		Links: []models.InventoryItemLink{
			{TargetMenuItemID: uuid.New(), ConversionRatio: qty(8), IsActive: false},
			{TargetMenuItemID: uuid.New(), ConversionRatio: qty(4), IsActive: true},
		},
	})

	result := f.apply(t, Change{
		ItemID:  cake.ID,
		Delta:   qty(-1),
		Type:    enums.TransactionTypeWaste,
		StaffID: uuid.New(),
	})
	if len(result.Affected) != 0 {
		t.Fatalf("expected no affected items, got %d", len(result.Affected))
	}
	if !result.Primary.CurrentQuantity.Equal(qty(4)) {
		t.Fatalf("expected primary at 4, got %s", result.Primary.CurrentQuantity)
	}
}

func TestEngine_PropagationStopsAfterOneHop(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	sliceMenuID := uuid.New()
	crumbMenuID := uuid.New()

	cake := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    uuid.New(),
		Name:            "Whole Cake",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(4),
		Links: []models.InventoryItemLink{{
			TargetMenuItemID: sliceMenuID,
			ConversionRatio:  qty(8),
			IsActive:         true,
		}},
	})
	f.seedItem(t, &models.InventoryItem{
		RestaurantID:    cake.RestaurantID,
		MenuItemID:      &sliceMenuID,
		Name:            "Cake Slice",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(40),
		Links: []models.InventoryItemLink{{
			TargetMenuItemID: crumbMenuID,
			ConversionRatio:  qty(10),
			IsActive:         true,
		}},
	})
	crumbs := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    cake.RestaurantID,
		MenuItemID:      &crumbMenuID,
		Name:            "Crumbs",
		Unit:            enums.UnitGram,
		CurrentQuantity: qty(100),
	})

	f.apply(t, Change{
		ItemID:  cake.ID,
		Delta:   qty(-1),
		Type:    enums.TransactionTypeWaste,
		StaffID: uuid.New(),
	})

	got, err := f.items.GetByID(ctx, crumbs.ID)
	if err != nil {
		t.Fatalf("reload crumbs: %v", err)
	}
	if !got.CurrentQuantity.Equal(qty(100)) {
		t.Fatalf("expected second-hop item untouched, got %s", got.CurrentQuantity)
	}
}

func TestEngine_ReversePropagation(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	sliceMenuID := uuid.New()

	cake := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    uuid.New(),
		Name:            "Whole Cake",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(10),
		Links: []models.InventoryItemLink{{
			TargetMenuItemID: sliceMenuID,
			ConversionRatio:  qty(8),
			ReverseRatio:     decimal.NewFromFloat(0.125),
			ReverseEnabled:   true,
			IsActive:         true,
		}},
	})
	ratio := decimal.NewFromFloat(0.125)
	slice := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    cake.RestaurantID,
		MenuItemID:      &sliceMenuID,
		Name:            "Cake Slice",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(80),
		BaseItemID:      &cake.ID,
		BaseRatio:       &ratio,
	})

	result := f.apply(t, Change{
		ItemID:  slice.ID,
		Delta:   qty(-4),
		Type:    enums.TransactionTypeOrderDeduction,
		StaffID: uuid.New(),
	})

	if len(result.Affected) != 1 {
		t.Fatalf("expected base item affected, got %d", len(result.Affected))
	}
	got, err := f.items.GetByID(ctx, cake.ID)
	if err != nil {
		t.Fatalf("reload cake: %v", err)
	}
	if !got.CurrentQuantity.Equal(decimal.NewFromFloat(9.5)) {
		t.Fatalf("expected cake at 9.5, got %s", got.CurrentQuantity)
	}
	txn := result.Affected[0].Transaction
	if txn.Reason == nil || *txn.Reason != "reverse link from Cake Slice (ratio=0.125)" {
		t.Fatalf("unexpected reason: %v", txn.Reason)
	}
}

func TestEngine_ReverseDisabledDoesNotPropagate(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()
	sliceMenuID := uuid.New()

	cake := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    uuid.New(),
		Name:            "Whole Cake",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(10),
		Links: []models.InventoryItemLink{{
			TargetMenuItemID: sliceMenuID,
			ConversionRatio:  qty(8),
			ReverseRatio:     decimal.NewFromFloat(0.125),
			ReverseEnabled:   false,
			IsActive:         true,
		}},
	})
	slice := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    cake.RestaurantID,
		MenuItemID:      &sliceMenuID,
		Name:            "Cake Slice",
		Unit:            enums.UnitPiece,
		CurrentQuantity: qty(80),
		BaseItemID:      &cake.ID,
	})

	result := f.apply(t, Change{
		ItemID:  slice.ID,
		Delta:   qty(-4),
		Type:    enums.TransactionTypeOrderDeduction,
		StaffID: uuid.New(),
	})
	if len(result.Affected) != 0 {
		t.Fatalf("expected no reverse effect, got %d", len(result.Affected))
	}
	got, err := f.items.GetByID(ctx, cake.ID)
	if err != nil {
		t.Fatalf("reload cake: %v", err)
	}
	if !got.CurrentQuantity.Equal(qty(10)) {
		t.Fatalf("expected cake untouched, got %s", got.CurrentQuantity)
	}
}

func TestEngine_RestockStamp(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)

	item := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    uuid.New(),
		Name:            "Olive Oil",
		Unit:            enums.UnitLiter,
		CurrentQuantity: qty(2),
	})

	result := f.apply(t, Change{
		ItemID:       item.ID,
		Delta:        qty(10),
		Type:         enums.TransactionTypeRestock,
		StaffID:      uuid.New(),
		StampRestock: true,
	})
	if result.Primary.LastRestockedAt == nil {
		t.Fatal("expected restock timestamp set")
	}
	if result.Primary.LastRestockedQty == nil || !result.Primary.LastRestockedQty.Equal(qty(10)) {
		t.Fatalf("expected restock qty 10, got %v", result.Primary.LastRestockedQty)
	}
}

func TestEngine_ConcurrentAdjustmentsSerialize(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	ctx := context.Background()

	item := f.seedItem(t, &models.InventoryItem{
		RestaurantID:    uuid.New(),
		Name:            "Tomatoes",
		Unit:            enums.UnitKilogram,
		CurrentQuantity: qty(10),
	})

	locker := NewComponentLocker(16)
	deltas := []decimal.Decimal{qty(5), qty(-3)}

	var wg sync.WaitGroup
	errs := make(chan error, len(deltas))
	for _, delta := range deltas {
		wg.Add(1)
		go func(d decimal.Decimal) {
			defer wg.Done()
			release, err := locker.Lock(ctx, item.ID)
			if err != nil {
				errs <- err
				return
			}
			defer release()
			errs <- f.db.Transaction(func(tx *gorm.DB) error {
				_, applyErr := f.engine.Apply(ctx, tx, Change{
					ItemID:  item.ID,
					Delta:   d,
					Type:    enums.TransactionTypeManualAdjustment,
					StaffID: uuid.New(),
				})
				return applyErr
			})
		}(delta)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent apply: %v", err)
		}
	}

	got, err := f.items.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.CurrentQuantity.Equal(qty(12)) {
		t.Fatalf("expected 12 after +5/-3, got %s", got.CurrentQuantity)
	}

	txns, err := f.ledger.History(ctx, item.ID, ledger.HistoryFilter{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", len(txns))
	}
	// Entries must chain: the later entry starts where the earlier ended.
	older, newer := txns[1], txns[0]
	if !newer.PreviousQuantity.Equal(older.NewQuantity) {
		t.Fatalf("ledger entries do not chain: %s then %s", older.NewQuantity, newer.PreviousQuantity)
	}
}
