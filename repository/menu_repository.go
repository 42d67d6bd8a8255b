package repository

import (
	"context"

	"food-marketplace-api/models"

	"gorm.io/gorm"
)

type MenuRepository interface {
	Get(ctx context.Context, id uint) (*models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
	Save(ctx context.Context, item *models.MenuItem) error
	Delete(ctx context.Context, id uint) error
	// ListByIDs returns the items of restaurantID among ids; ids that belong
	// elsewhere or do not exist are simply absent from the result.
	ListByIDs(ctx context.Context, restaurantID uint, ids []uint) ([]models.MenuItem, error)
}

type menuRepository struct {
	db *gorm.DB
}

func NewMenuRepository(db *gorm.DB) MenuRepository {
	return &menuRepository{db: db}
}

func (r *menuRepository) Get(ctx context.Context, id uint) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, notFoundOr(err, "get menu item", "menu item", id)
	}
	return &item, nil
}

func (r *menuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return backend(err, "create menu item")
	}
	return nil
}

func (r *menuRepository) Save(ctx context.Context, item *models.MenuItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return backend(err, "save menu item")
	}
	return nil
}

func (r *menuRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.MenuItem{}, id)
	if res.Error != nil {
		return backend(res.Error, "delete menu item")
	}
	if res.RowsAffected == 0 {
		return notFoundOr(gorm.ErrRecordNotFound, "delete menu item", "menu item", id)
	}
	return nil
}

func (r *menuRepository) ListByIDs(ctx context.Context, restaurantID uint, ids []uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ?", restaurantID, ids).
		Find(&items).Error
	if err != nil {
		return nil, backend(err, "load menu items")
	}
	return items, nil
}
