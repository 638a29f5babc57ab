package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plateiq/restaurant-backend/pkg/db/models"
)

// Repository defines persistence operations for inventory items and their
// conversion edges.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	Update(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	GetByMenuItemID(ctx context.Context, menuItemID uuid.UUID) (*models.InventoryItem, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error)
	ListBelowThreshold(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error)
	ReplaceLinks(ctx context.Context, itemID uuid.UUID, links []models.InventoryItemLink) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	for i := range item.Links {
		if item.Links[i].ID == uuid.Nil {
			item.Links[i].ID = uuid.New()
		}
		item.Links[i].ItemID = item.ID
		item.Links[i].Position = i
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Update persists the item's own columns. Links are managed separately via
// ReplaceLinks so that a plain field update never touches the edge list.
func (r *repository) Update(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if err := r.db.WithContext(ctx).
		Omit("Links").
		Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Select("Links").
		Delete(&models.InventoryItem{ID: id})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Preload("Links", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) GetByMenuItemID(ctx context.Context, menuItemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Preload("Links", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("menu_item_id = ?", menuItemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Preload("Links", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("restaurant_id = ?", restaurantID).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListBelowThreshold(ctx context.Context, restaurantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND is_tracked = ? AND current_quantity <= minimum_threshold", restaurantID, true).
		Order("current_quantity ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ReplaceLinks(ctx context.Context, itemID uuid.UUID, links []models.InventoryItemLink) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&models.InventoryItemLink{}).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		for i := range links {
			if links[i].ID == uuid.Nil {
				links[i].ID = uuid.New()
			}
			links[i].ItemID = itemID
			links[i].Position = i
		}
		return tx.Create(&links).Error
	})
}
