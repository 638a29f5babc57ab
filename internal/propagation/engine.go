package propagation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/internal/inventory"
	"github.com/plateiq/restaurant-backend/internal/ledger"
	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
	"github.com/plateiq/restaurant-backend/pkg/logger"
	"github.com/plateiq/restaurant-backend/pkg/metrics"
)

// Change describes one requested quantity movement on a primary item. Delta
// is the requested change before clamping; propagation to linked items is
// always computed from this requested delta, not from the clamped amount the
// primary actually absorbed.
type Change struct {
	ItemID  uuid.UUID
	Delta   decimal.Decimal
	Type    enums.InventoryTransactionType
	StaffID uuid.UUID
	OrderID *uuid.UUID
	Reason  *string
	Notes   *string

	// StampRestock updates the item's restock bookkeeping alongside the
	// quantity when the delta is positive.
	StampRestock bool
}

// Effect is one linked item the change reached, with the ledger entry that
// recorded it.
type Effect struct {
	Item        *models.InventoryItem
	Transaction *models.InventoryTransaction
}

// Result reports everything a single Apply call touched.
type Result struct {
	Primary            *models.InventoryItem
	PrimaryTransaction *models.InventoryTransaction
	PrimaryClamped     bool
	Affected           []Effect
}

// Engine applies a quantity change to an item and carries it one hop across
// the item's conversion edges: forward to every active link target, and
// backward to the base item when the base's own edge allows it. Items the
// hop reaches do not cascade further.
type Engine struct {
	items   inventory.Repository
	ledger  ledger.Service
	metrics *metrics.InventoryMetrics
	log     *logger.Logger
}

// NewEngine wires a propagation engine.
func NewEngine(items inventory.Repository, led ledger.Service, m *metrics.InventoryMetrics, log *logger.Logger) (*Engine, error) {
	if items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if led == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{items: items, ledger: led, metrics: m, log: log}, nil
}

// ComponentIDs resolves the set of item IDs a change to item can touch: the
// item itself, every resolvable forward link target, and the base item.
// Callers lock these before opening the transaction. Unresolvable targets are
// skipped here the same way Apply skips them.
func (e *Engine) ComponentIDs(ctx context.Context, item *models.InventoryItem) []uuid.UUID {
	ids := []uuid.UUID{item.ID}
	for _, link := range item.ActiveLinks() {
		target, err := e.items.GetByMenuItemID(ctx, link.TargetMenuItemID)
		if err != nil {
			continue
		}
		ids = append(ids, target.ID)
	}
	if item.BaseItemID != nil {
		ids = append(ids, *item.BaseItemID)
	}
	return ids
}

// Apply executes the change inside the caller's transaction. The caller must
// already hold the component lock covering the item and its neighbors.
func (e *Engine) Apply(ctx context.Context, tx *gorm.DB, change Change) (*Result, error) {
	if change.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if change.Delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}

	repo := e.items.WithTx(tx)
	led := e.ledger.WithTx(tx)

	item, err := repo.GetByID(ctx, change.ItemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}

	primaryTxn, clamped, err := e.applyDelta(ctx, repo, led, item, change.Delta, change, change.Reason)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Primary:            item,
		PrimaryTransaction: primaryTxn,
		PrimaryClamped:     clamped,
	}
	touched := 1

	for _, link := range item.ActiveLinks() {
		target, err := repo.GetByMenuItemID(ctx, link.TargetMenuItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				lctx := e.log.WithItemID(ctx, item.ID.String())
				e.log.Warn(e.log.WithField(lctx, "target_menu_item_id", link.TargetMenuItemID.String()),
					"conversion link target has no inventory item, skipping")
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load link target")
		}

		delta := change.Delta.Mul(link.ConversionRatio)
		if delta.IsZero() {
			continue
		}
		reason := fmt.Sprintf("forward link from %s (ratio=%s)", item.Name, link.ConversionRatio.String())
		txn, _, err := e.applyDelta(ctx, repo, led, target, delta, change, &reason)
		if err != nil {
			return nil, err
		}
		result.Affected = append(result.Affected, Effect{Item: target, Transaction: txn})
		touched++
	}

	if effect, err := e.applyReverse(ctx, repo, led, item, change); err != nil {
		return nil, err
	} else if effect != nil {
		result.Affected = append(result.Affected, *effect)
		touched++
	}

	e.metrics.ObserveCascade(touched)
	return result, nil
}

// applyReverse carries the change back to the item's base item, but only when
// the base's own edge at this item is active and marked reverse-enabled.
func (e *Engine) applyReverse(ctx context.Context, repo inventory.Repository, led ledger.Service, item *models.InventoryItem, change Change) (*Effect, error) {
	if item.BaseItemID == nil || item.MenuItemID == nil {
		return nil, nil
	}

	base, err := repo.GetByID(ctx, *item.BaseItemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			lctx := e.log.WithItemID(ctx, item.ID.String())
			e.log.Warn(e.log.WithField(lctx, "base_item_id", item.BaseItemID.String()),
				"base item missing, skipping reverse propagation")
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load base item")
	}

	for _, link := range base.ActiveLinks() {
		if link.TargetMenuItemID != *item.MenuItemID || !link.ReverseEnabled {
			continue
		}
		delta := change.Delta.Mul(link.ReverseRatio)
		if delta.IsZero() {
			return nil, nil
		}
		reason := fmt.Sprintf("reverse link from %s (ratio=%s)", item.Name, link.ReverseRatio.String())
		txn, _, err := e.applyDelta(ctx, repo, led, base, delta, change, &reason)
		if err != nil {
			return nil, err
		}
		return &Effect{Item: base, Transaction: txn}, nil
	}
	return nil, nil
}

// applyDelta moves one item by delta, clamping the projection at zero, and
// appends the matching ledger entry. The recorded QuantityChange is the
// applied amount so that previous + change always equals new.
func (e *Engine) applyDelta(ctx context.Context, repo inventory.Repository, led ledger.Service, item *models.InventoryItem, delta decimal.Decimal, change Change, reason *string) (*models.InventoryTransaction, bool, error) {
	prev := item.CurrentQuantity
	next := prev.Add(delta)
	clamped := false
	if next.IsNegative() {
		next = decimal.Zero
		clamped = true
		e.metrics.IncClamp()
		lctx := e.log.WithItemID(ctx, item.ID.String())
		e.log.Warn(e.log.WithFields(lctx, map[string]any{
			"requested_delta": delta.String(),
			"previous":        prev.String(),
		}), "quantity clamped at zero")
	}

	item.CurrentQuantity = next
	if change.StampRestock && item.ID == change.ItemID && delta.IsPositive() {
		now := time.Now().UTC()
		item.LastRestockedAt = &now
		item.LastRestockedQty = &delta
	}
	if _, err := repo.Update(ctx, item); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item quantity")
	}

	txn, err := led.RecordTransaction(ctx, ledger.RecordTransactionInput{
		ItemID:           item.ID,
		Type:             change.Type,
		QuantityChange:   next.Sub(prev),
		PreviousQuantity: prev,
		NewQuantity:      next,
		OrderID:          change.OrderID,
		StaffID:          change.StaffID,
		Reason:           reason,
		Notes:            change.Notes,
	})
	if err != nil {
		return nil, false, err
	}
	e.metrics.IncTransaction(string(change.Type))
	return txn, clamped, nil
}
