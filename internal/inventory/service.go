package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/internal/ledger"
	"github.com/plateiq/restaurant-backend/pkg/db"
	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
)

// txRunner abstracts the transactional entry point of the DB client.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ledgerRecorder is the slice of the ledger service item creation needs so
// that nonzero opening stock always has a backing transaction.
type ledgerRecorder interface {
	RecordTransaction(ctx context.Context, input ledger.RecordTransactionInput) (*models.InventoryTransaction, error)
	WithTx(tx *gorm.DB) ledger.Service
}

// Service defines CRUD and query operations over inventory items.
type Service interface {
	Create(ctx context.Context, staffID uuid.UUID, input CreateItemInput) (*models.InventoryItem, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	GetByMenuItemID(ctx context.Context, menuItemID uuid.UUID) (*models.InventoryItem, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error)
	ListBelowThreshold(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error)
}

type service struct {
	repo   Repository
	ledger ledgerRecorder
	runner txRunner
}

// NewService wires an inventory service.
func NewService(repo Repository, ledger ledgerRecorder, runner txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if runner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, ledger: ledger, runner: runner}, nil
}

func (s *service) Create(ctx context.Context, staffID uuid.UUID, input CreateItemInput) (*models.InventoryItem, error) {
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	item := &models.InventoryItem{
		RestaurantID:        input.RestaurantID,
		MenuItemID:          input.MenuItemID,
		Name:                input.Name,
		CurrentQuantity:     input.CurrentQuantity,
		Unit:                input.Unit,
		CustomUnitLabel:     input.CustomUnitLabel,
		MinimumThreshold:    input.MinimumThreshold,
		ConsumptionPerOrder: input.ConsumptionPerOrder,
		MaxCapacity:         input.MaxCapacity,
		CostPerUnit:         input.CostPerUnit,
		Supplier:            input.Supplier,
		IsTracked:           input.IsTracked,
		AutoDeduct:          input.AutoDeduct,
		BaseItemID:          input.BaseItemID,
		BaseRatio:           input.BaseRatio,
		Links:               buildLinks(input.Links),
	}
	if item.ConsumptionPerOrder.IsZero() {
		item.ConsumptionPerOrder = decimal.NewFromInt(1)
	}

	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).Create(ctx, item)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "menu item already has an inventory item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
		}
		item = created

		if !item.CurrentQuantity.IsZero() {
			reason := "initial stock"
			_, err := s.ledger.WithTx(tx).RecordTransaction(ctx, ledger.RecordTransactionInput{
				ItemID:           item.ID,
				Type:             enums.TransactionTypeRestock,
				QuantityChange:   item.CurrentQuantity,
				PreviousQuantity: decimal.Zero,
				NewQuantity:      item.CurrentQuantity,
				StaffID:          staffID,
				Reason:           &reason,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	var item *models.InventoryItem
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.GetByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
		}

		applyUpdate(current, input)

		if _, err := repo.Update(ctx, current); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "menu item already has an inventory item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
		}

		if input.Links != nil {
			if err := repo.ReplaceLinks(ctx, id, buildLinks(input.Links)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace conversion links")
			}
		}

		item, err = repo.GetByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the item and its conversion edges. Ledger entries referencing
// the item are retained as an audit trail.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory item")
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func (s *service) GetByMenuItemID(ctx context.Context, menuItemID uuid.UUID) (*models.InventoryItem, error) {
	if menuItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	item, err := s.repo.GetByMenuItemID(ctx, menuItemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func (s *service) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	items, err := s.repo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}
	return items, nil
}

func (s *service) ListBelowThreshold(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	items, err := s.repo.ListBelowThreshold(ctx, restaurantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock items")
	}
	return items, nil
}

func validateCreate(input CreateItemInput) error {
	if input.RestaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if !input.Unit.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", input.Unit))
	}
	if input.Unit == enums.UnitCustom && (input.CustomUnitLabel == nil || *input.CustomUnitLabel == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "custom unit requires a label")
	}
	if input.CurrentQuantity.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "current quantity cannot be negative")
	}
	if input.MinimumThreshold.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum threshold cannot be negative")
	}
	if input.ConsumptionPerOrder.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "consumption per order cannot be negative")
	}
	if input.MaxCapacity != nil && !input.MaxCapacity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "max capacity must be positive")
	}
	if input.BaseRatio != nil && !input.BaseRatio.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base ratio must be positive")
	}
	return validateLinks(input.Links, input.MenuItemID)
}

func validateUpdate(input UpdateItemInput) error {
	if input.Name != nil && *input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if input.Unit != nil && !input.Unit.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", *input.Unit))
	}
	if input.MinimumThreshold != nil && input.MinimumThreshold.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum threshold cannot be negative")
	}
	if input.ConsumptionPerOrder != nil && input.ConsumptionPerOrder.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "consumption per order cannot be negative")
	}
	if input.MaxCapacity != nil && !input.MaxCapacity.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "max capacity must be positive")
	}
	if input.BaseRatio != nil && !input.BaseRatio.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base ratio must be positive")
	}
	if input.Links != nil {
		return validateLinks(input.Links, input.MenuItemID)
	}
	return nil
}

func validateLinks(links []LinkInput, ownMenuItemID *uuid.UUID) error {
	seen := make(map[uuid.UUID]struct{}, len(links))
	for i, link := range links {
		if link.TargetMenuItemID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("link %d: target menu item id required", i))
		}
		if ownMenuItemID != nil && link.TargetMenuItemID == *ownMenuItemID {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("link %d: item cannot link to itself", i))
		}
		if _, dup := seen[link.TargetMenuItemID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("link %d: duplicate target menu item", i))
		}
		seen[link.TargetMenuItemID] = struct{}{}
		if !link.ConversionRatio.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("link %d: conversion ratio must be positive", i))
		}
		if link.ReverseEnabled && !link.ReverseRatio.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("link %d: reverse ratio must be positive", i))
		}
	}
	return nil
}

func buildLinks(inputs []LinkInput) []models.InventoryItemLink {
	if inputs == nil {
		return nil
	}
	links := make([]models.InventoryItemLink, len(inputs))
	for i, in := range inputs {
		links[i] = models.InventoryItemLink{
			TargetMenuItemID: in.TargetMenuItemID,
			ConversionRatio:  in.ConversionRatio,
			ReverseRatio:     in.ReverseRatio,
			ReverseEnabled:   in.ReverseEnabled,
			IsActive:         in.IsActive,
			Position:         i,
		}
	}
	return links
}

func applyUpdate(item *models.InventoryItem, input UpdateItemInput) {
	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Unit != nil {
		item.Unit = *input.Unit
	}
	if input.CustomUnitLabel != nil {
		item.CustomUnitLabel = input.CustomUnitLabel
	}
	if input.MinimumThreshold != nil {
		item.MinimumThreshold = *input.MinimumThreshold
	}
	if input.ConsumptionPerOrder != nil {
		item.ConsumptionPerOrder = *input.ConsumptionPerOrder
	}
	if input.MaxCapacity != nil {
		item.MaxCapacity = input.MaxCapacity
	}
	if input.CostPerUnit != nil {
		item.CostPerUnit = *input.CostPerUnit
	}
	if input.Supplier != nil {
		item.Supplier = input.Supplier
	}
	if input.IsTracked != nil {
		item.IsTracked = *input.IsTracked
	}
	if input.AutoDeduct != nil {
		item.AutoDeduct = *input.AutoDeduct
	}
	if input.MenuItemID != nil {
		item.MenuItemID = input.MenuItemID
	}
	if input.BaseItemID != nil {
		item.BaseItemID = input.BaseItemID
	}
	if input.BaseRatio != nil {
		item.BaseRatio = input.BaseRatio
	}
}
