package deduction

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
	"github.com/plateiq/restaurant-backend/pkg/logger"
)

// txRunner abstracts the transactional entry point of the DB client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderLine is one fulfilled menu item within an order.
type OrderLine struct {
	MenuItemID uuid.UUID
	Quantity   int64
}

// DeductInput describes a fulfilled order whose stock should be consumed.
type DeductInput struct {
	OrderID uuid.UUID
	StaffID uuid.UUID
	Lines   []OrderLine
}

// ItemDeduction is the outcome for one stocked item the order consumed.
type ItemDeduction struct {
	Item        *models.InventoryItem
	Transaction *models.InventoryTransaction
	Clamped     bool
	Affected    []propagation.Effect
}

// DeductResult reports everything an order deduction moved. SkippedLines
// counts order lines that resolved to no deductible item; they are not
// errors, an order can always be fulfilled regardless of stock tracking.
type DeductResult struct {
	Deductions   []ItemDeduction
	SkippedLines int
	Alerts       []models.InventoryAlert
}

// Service consumes stock for fulfilled orders.
type Service interface {
	DeductForOrder(ctx context.Context, input DeductInput) (*DeductResult, error)
}

type service struct {
	items  inventory.Repository
	engine *propagation.Engine
	locker *propagation.ComponentLocker
	alerts alerts.Service
	runner txRunner
	log    *logger.Logger
}

// NewService wires an order deduction service.
func NewService(items inventory.Repository, engine *propagation.Engine, locker *propagation.ComponentLocker, alertSvc alerts.Service, runner txRunner, log *logger.Logger) (Service, error) {
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
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{items: items, engine: engine, locker: locker, alerts: alertSvc, runner: runner, log: log}, nil
}

// DeductForOrder resolves each order line to its stocked item and consumes
// ConsumptionPerOrder x quantity from it, with one-hop propagation per item.
// Lines whose menu item is untracked, or whose item has auto-deduct off,
// are skipped silently. The whole order commits in a single transaction
// under one lock covering every touched component, so a crash mid-order
// never leaves a partially deducted order behind.
func (s *service) DeductForOrder(ctx context.Context, input DeductInput) (*DeductResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order line required")
	}
	for i, line := range input.Lines {
		if line.MenuItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: menu item id required", i))
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be positive", i))
		}
	}

	targets, skipped, err := s.resolveLines(ctx, input.Lines)
	if err != nil {
		return nil, err
	}
	result := &DeductResult{SkippedLines: skipped}
	if len(targets) == 0 {
		return result, nil
	}

	componentIDs := make([]uuid.UUID, 0, len(targets)*2)
	for _, target := range targets {
		componentIDs = append(componentIDs, s.engine.ComponentIDs(ctx, target.item)...)
	}
	release, err := s.locker.Lock(ctx, componentIDs...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "acquire component lock")
	}
	defer release()

	orderID := input.OrderID
	err = s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		for _, target := range targets {
			delta := target.item.ConsumptionPerOrder.Mul(decimal.NewFromInt(target.quantity)).Neg()
			if delta.IsZero() {
				continue
			}
			applied, err := s.engine.Apply(ctx, tx, propagation.Change{
				ItemID:  target.item.ID,
				Delta:   delta,
				Type:    enums.TransactionTypeOrderDeduction,
				StaffID: input.StaffID,
				OrderID: &orderID,
			})
			if err != nil {
				return err
			}
			result.Deductions = append(result.Deductions, ItemDeduction{
				Item:        applied.Primary,
				Transaction: applied.PrimaryTransaction,
				Clamped:     applied.PrimaryClamped,
				Affected:    applied.Affected,
			})
		}
		return nil
	})
	if err != nil {
		result.Deductions = nil
		return nil, err
	}

	result.Alerts = s.evaluateAlerts(ctx, result.Deductions)
	return result, nil
}

type resolvedLine struct {
	item     *models.InventoryItem
	quantity int64
}

// resolveLines maps order lines onto deductible items, merging repeated menu
// items so each stocked item is deducted once per order.
func (s *service) resolveLines(ctx context.Context, lines []OrderLine) ([]resolvedLine, int, error) {
	merged := make(map[uuid.UUID]int64, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := merged[line.MenuItemID]; !ok {
			order = append(order, line.MenuItemID)
		}
		merged[line.MenuItemID] += line.Quantity
	}

	var targets []resolvedLine
	skipped := 0
	for _, menuItemID := range order {
		item, err := s.items.GetByMenuItemID(ctx, menuItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				skipped++
				continue
			}
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve order line")
		}
		if !item.IsTracked || !item.AutoDeduct {
			lctx := s.log.WithItemID(ctx, item.ID.String())
			s.log.Info(lctx, "skipping deduction for untracked or manual item")
			skipped++
			continue
		}
		targets = append(targets, resolvedLine{item: item, quantity: merged[menuItemID]})
	}
	return targets, skipped, nil
}

func (s *service) evaluateAlerts(ctx context.Context, deductions []ItemDeduction) []models.InventoryAlert {
	var touched []*models.InventoryItem
	for _, d := range deductions {
		touched = append(touched, d.Item)
		for _, effect := range d.Affected {
			touched = append(touched, effect.Item)
		}
	}
	fired, _ := s.alerts.EvaluateAll(ctx, touched)
	return fired
}
