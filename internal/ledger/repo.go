package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/enums"
)

// HistoryFilter narrows transaction history reads. Zero values mean no
// filtering; Limit is normalized by the service before it reaches the repo.
type HistoryFilter struct {
	From   *time.Time
	To     *time.Time
	Bucket enums.TransactionBucket
	Limit  int
}

// Repository manages persistence for inventory transactions. Rows are
// append-only: there is deliberately no update or delete surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, txn *models.InventoryTransaction) error
	ListByItemID(ctx context.Context, itemID uuid.UUID, filter HistoryFilter) ([]models.InventoryTransaction, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.InventoryTransaction, error)
	CountByItemID(ctx context.Context, itemID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, txn *models.InventoryTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListByItemID(ctx context.Context, itemID uuid.UUID, filter HistoryFilter) ([]models.InventoryTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC")

	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if types := filter.Bucket.Types(); len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var txns []models.InventoryTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.InventoryTransaction, error) {
	var txns []models.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) CountByItemID(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryTransaction{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count, err
}
