package alerts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/pkg/db/models"
	"github.com/plateiq/restaurant-backend/pkg/pagination"
)

// ListFilter narrows alert listings.
type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

// Repository manages persistence for inventory alerts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, alert *models.InventoryAlert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryAlert, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, filter ListFilter) ([]models.InventoryAlert, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, restaurantID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an alert repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, alert *models.InventoryAlert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryAlert, error) {
	var alert models.InventoryAlert
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *repository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, filter ListFilter) ([]models.InventoryAlert, error) {
	query := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC, id DESC")
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var alerts []models.InventoryAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repository) MarkRead(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryAlert{}).
		Where("id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) MarkAllRead(ctx context.Context, restaurantID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryAlert{}).
		Where("restaurant_id = ? AND is_read = ?", restaurantID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}
