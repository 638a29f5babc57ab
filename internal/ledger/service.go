package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
	pkgerrors "github.com/plateiq/restaurant-backend/pkg/errors"
)

// itemReader is the slice of the inventory repository the ledger needs for
// the backfill pre-check.
type itemReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
}

// Service defines operations that append to and read the transaction ledger.
type Service interface {
	RecordTransaction(ctx context.Context, input RecordTransactionInput) (*models.InventoryTransaction, error)
	BackfillInitialTransaction(ctx context.Context, itemID, staffID uuid.UUID) (*models.InventoryTransaction, error)
	History(ctx context.Context, itemID uuid.UUID, filter HistoryFilter) ([]models.InventoryTransaction, error)
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo         Repository
	items        itemReader
	historyLimit int
}

// RecordTransactionInput captures the immutable data one ledger entry requires.
// The caller is responsible for having computed PreviousQuantity/NewQuantity
// consistently; the ledger only checks internal coherence.
type RecordTransactionInput struct {
	ItemID           uuid.UUID
	Type             enums.InventoryTransactionType
	QuantityChange   decimal.Decimal
	PreviousQuantity decimal.Decimal
	NewQuantity      decimal.Decimal
	OrderID          *uuid.UUID
	StaffID          uuid.UUID
	Reason           *string
	Notes            *string
}

const defaultHistoryLimit = 250

// NewService wires a ledger service with the provided repository and item
// reader. historyLimit caps every history read; zero selects the default.
func NewService(repo Repository, items itemReader, historyLimit int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("item reader required")
	}
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &service{repo: repo, items: items, historyLimit: historyLimit}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), items: s.items, historyLimit: s.historyLimit}
}

func (s *service) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*models.InventoryTransaction, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if input.NewQuantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new quantity cannot be negative")
	}

	txn := &models.InventoryTransaction{
		ItemID:           input.ItemID,
		Type:             input.Type,
		QuantityChange:   input.QuantityChange,
		PreviousQuantity: input.PreviousQuantity,
		NewQuantity:      input.NewQuantity,
		OrderID:          input.OrderID,
		StaffID:          input.StaffID,
		Reason:           input.Reason,
		Notes:            input.Notes,
	}

	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append transaction")
	}
	return txn, nil
}

// BackfillInitialTransaction synthesizes a restock entry for a legacy item
// that carries a nonzero quantity without any history. Calling it again is a
// no-op: the pre-check makes the migration idempotent.
func (s *service) BackfillInitialTransaction(ctx context.Context, itemID, staffID uuid.UUID) (*models.InventoryTransaction, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}

	count, err := s.repo.CountByItemID(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count transactions")
	}
	if count > 0 {
		return nil, nil
	}

	reason := "initial quantity backfill"
	return s.RecordTransaction(ctx, RecordTransactionInput{
		ItemID:           itemID,
		Type:             enums.TransactionTypeRestock,
		QuantityChange:   item.CurrentQuantity,
		PreviousQuantity: decimal.Zero,
		NewQuantity:      item.CurrentQuantity,
		StaffID:          staffID,
		Reason:           &reason,
	})
}

func (s *service) History(ctx context.Context, itemID uuid.UUID, filter HistoryFilter) ([]models.InventoryTransaction, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if filter.Bucket != "" && !filter.Bucket.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid bucket %q", filter.Bucket))
	}
	if filter.Limit <= 0 || filter.Limit > s.historyLimit {
		filter.Limit = s.historyLimit
	}

	txns, err := s.repo.ListByItemID(ctx, itemID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}
