package repository

import (
	"context"
	"strings"

	"food-marketplace-api/models"

	"gorm.io/gorm"
)

type RestaurantRepository interface {
	ListActive(ctx context.Context, search string) ([]models.Restaurant, error)
	Get(ctx context.Context, id uint) (*models.Restaurant, error)
	GetWithMenu(ctx context.Context, id uint, onlyAvailable bool) (*models.Restaurant, error)
	IDsOwnedBy(ctx context.Context, ownerID uint) ([]uint, error)
	FirstOwnedBy(ctx context.Context, ownerID uint) (*models.Restaurant, error)
	Create(ctx context.Context, restaurant *models.Restaurant) error
	Update(ctx context.Context, restaurant *models.Restaurant) error
}

type restaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

// ListActive returns active restaurants, most punctual first. search matches
// the name case-insensitively.
func (r *restaurantRepository) ListActive(ctx context.Context, search string) ([]models.Restaurant, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if s := strings.TrimSpace(search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}
	var restaurants []models.Restaurant
	if err := q.Order("on_time_accuracy desc, id asc").Find(&restaurants).Error; err != nil {
		return nil, backend(err, "list restaurants")
	}
	return restaurants, nil
}

func (r *restaurantRepository) Get(ctx context.Context, id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, id).Error; err != nil {
		return nil, notFoundOr(err, "get restaurant", "restaurant", id)
	}
	return &restaurant, nil
}

func (r *restaurantRepository) GetWithMenu(ctx context.Context, id uint, onlyAvailable bool) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).
		Preload("MenuItems", func(db *gorm.DB) *gorm.DB {
			if onlyAvailable {
				db = db.Where("is_available = ?", true)
			}
			return db.Order("name asc")
		}).
		First(&restaurant, id).Error
	if err != nil {
		return nil, notFoundOr(err, "get restaurant", "restaurant", id)
	}
	return &restaurant, nil
}

func (r *restaurantRepository) IDsOwnedBy(ctx context.Context, ownerID uint) ([]uint, error) {
	ids := []uint{}
	err := r.db.WithContext(ctx).Model(&models.Restaurant{}).
		Where("owner_id = ?", ownerID).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, backend(err, "list owned restaurants")
	}
	return ids, nil
}

// FirstOwnedBy returns the owner's oldest restaurant; the restaurant
// dashboard manages one restaurant per owner.
func (r *restaurantRepository) FirstOwnedBy(ctx context.Context, ownerID uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id asc").First(&restaurant).Error
	if err != nil {
		return nil, notFoundOr(err, "get owned restaurant", "restaurant for owner", ownerID)
	}
	return &restaurant, nil
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	if err := r.db.WithContext(ctx).Create(restaurant).Error; err != nil {
		return backend(err, "create restaurant")
	}
	return nil
}

func (r *restaurantRepository) Update(ctx context.Context, restaurant *models.Restaurant) error {
	if err := r.db.WithContext(ctx).Omit("MenuItems", "Owner").Save(restaurant).Error; err != nil {
		return backend(err, "update restaurant")
	}
	return nil
}
