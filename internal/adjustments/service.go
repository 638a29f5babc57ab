package adjustments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/internal/alerts"
	"github.com/plateiq/restaurant-backend/internal/inventory"
	"github.com/plateiq/restaurant-backend/internal/propagation"
	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
)

// txRunner abstracts the transactional entry point of the DB client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AdjustInput sets an item's quantity to an absolute value through the
// ledger. Type tells the ledger why the stock moved.
type AdjustInput struct {
	ItemID      uuid.UUID
	Type        enums.InventoryTransactionType
	NewQuantity decimal.Decimal
	StaffID     uuid.UUID
	Reason      *string
	Notes       *string
}

// AdjustResult reports the committed adjustment and anything it set off.
type AdjustResult struct {
	Item        *models.InventoryItem
	Transaction *models.InventoryTransaction
	Clamped     bool
	Affected    []propagation.Effect
	Alerts      []models.InventoryAlert
}

// Service applies staff-entered quantity adjustments with full linked-item
// propagation.
type Service interface {
	AdjustQuantity(ctx context.Context, input AdjustInput) (*AdjustResult, error)
}

type service struct {
	items  inventory.Repository
	engine *propagation.Engine
	locker *propagation.ComponentLocker
	alerts alerts.Service
	runner txRunner
}

// NewService wires an adjustment service.
func NewService(items inventory.Repository, engine *propagation.Engine, locker *propagation.ComponentLocker, alertSvc alerts.Service, runner txRunner) (Service, error) {
	if items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("propagation engine required")
	}
	if locker == nil {
		return nil, fmt.Errorf("component locker required")
	}
	if alertSvc == nil {
		return nil, fmt.Errorf("alert service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{items: items, engine: engine, locker: locker, alerts: alertSvc, runner: runner}, nil
}

// AdjustQuantity sets the item's quantity, records the matching ledger entry,
// and carries the movement one hop across the item's conversion edges. The
// whole movement commits atomically under the component lock; alerts are
// evaluated after the commit so a failed transaction never leaves alerts
// behind.
func (s *service) AdjustQuantity(ctx context.Context, input AdjustInput) (*AdjustResult, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if !input.Type.IsAdjustment() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("type %q is not a manual adjustment", input.Type))
	}
	if input.NewQuantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new quantity cannot be negative")
	}

	item, err := s.items.GetByID(ctx, input.ItemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}

	release, err := s.locker.Lock(ctx, s.engine.ComponentIDs(ctx, item)...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "acquire component lock")
	}
	defer release()

	var result *propagation.Result
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		// Reload under the lock: the pre-lock read may be stale.
		current, err := s.items.WithTx(tx).GetByID(ctx, input.ItemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory item")
		}

		delta := input.NewQuantity.Sub(current.CurrentQuantity)
		if delta.IsZero() {
			result = &propagation.Result{Primary: current}
			return nil
		}

		result, err = s.engine.Apply(ctx, tx, propagation.Change{
			ItemID:       input.ItemID,
			Delta:        delta,
			Type:         input.Type,
			StaffID:      input.StaffID,
			Reason:       input.Reason,
			Notes:        input.Notes,
			StampRestock: input.Type == enums.TransactionTypeRestock,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	fired := s.evaluateAlerts(ctx, result)
	return &AdjustResult{
		Item:        result.Primary,
		Transaction: result.PrimaryTransaction,
		Clamped:     result.PrimaryClamped,
		Affected:    result.Affected,
		Alerts:      fired,
	}, nil
}

// evaluateAlerts classifies every item the change touched. Alert failures
// are swallowed by the alert service's own error wrapping upstream; here a
// failed evaluation must not fail the already committed adjustment.
func (s *service) evaluateAlerts(ctx context.Context, result *propagation.Result) []models.InventoryAlert {
	touched := []*models.InventoryItem{result.Primary}
	for _, effect := range result.Affected {
		touched = append(touched, effect.Item)
	}
	fired, _ := s.alerts.EvaluateAll(ctx, touched)
	return fired
}
