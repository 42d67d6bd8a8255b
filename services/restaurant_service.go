package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/cache"
	"food-marketplace-api/logging"
	"food-marketplace-api/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	listCachePrefix   = "restaurants:list:"
	detailCachePrefix = "restaurants:detail:"

	defaultAvgPrepTime    = 20
	defaultOnTimeAccuracy = 100
)

type RestaurantInput struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Description string   `json:"description" validate:"max=1000"`
	Address     string   `json:"address" validate:"max=255"`
	Phone       string   `json:"phone" validate:"max=32"`
	AvgPrepTime *int     `json:"avg_prep_time" validate:"omitempty,min=0,max=240"`
	IsActive    *bool    `json:"is_active"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type MenuItemInput struct {
	ID          *uint           `json:"id"`
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=1000"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	IsAvailable *bool           `json:"is_available"`
}

type RestaurantService struct {
	repos Repositories
	cache cache.Store
	log   *logrus.Logger
	opts  Options
}

func NewRestaurantService(repos Repositories, store cache.Store, log *logrus.Logger, opts Options) *RestaurantService {
	if store == nil {
		store = cache.NewMemory()
	}
	return &RestaurantService{repos: repos, cache: store, log: log, opts: opts.withDefaults()}
}

// ListRestaurants returns active restaurants, most punctual first.
func (s *RestaurantService) ListRestaurants(ctx context.Context, search string) ([]models.Restaurant, error) {
	key := listCachePrefix + strings.ToLower(strings.TrimSpace(search))
	var restaurants []models.Restaurant
	if s.cache.Get(ctx, key, &restaurants) {
		s.opts.Metrics.CacheLookup(true)
		return restaurants, nil
	}
	s.opts.Metrics.CacheLookup(false)

	restaurants, err := s.repos.Restaurants.ListActive(ctx, search)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, key, restaurants)
	return restaurants, nil
}

// GetRestaurant returns an active restaurant with its available menu items.
func (s *RestaurantService) GetRestaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	key := fmt.Sprintf("%s%d", detailCachePrefix, id)
	var restaurant models.Restaurant
	if s.cache.Get(ctx, key, &restaurant) {
		s.opts.Metrics.CacheLookup(true)
		return &restaurant, nil
	}
	s.opts.Metrics.CacheLookup(false)

	r, err := s.repos.Restaurants.GetWithMenu(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return nil, apperr.NotFound("restaurant %d not found", id)
	}
	s.remember(ctx, key, r)
	return r, nil
}

func (s *RestaurantService) CreateRestaurant(ctx context.Context, caller models.Caller, in RestaurantInput) (*models.Restaurant, error) {
	if !caller.Is(models.RoleRestaurant) {
		return nil, apperr.Forbidden("only restaurant accounts can create a restaurant")
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}
	_, err := s.repos.Restaurants.FirstOwnedBy(ctx, caller.UserID)
	if err == nil {
		return nil, apperr.Conflict("you already have a restaurant")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	r := &models.Restaurant{
		OwnerID:        caller.UserID,
		AvgPrepTime:    defaultAvgPrepTime,
		OnTimeAccuracy: defaultOnTimeAccuracy,
		IsActive:       true,
	}
	applyRestaurantInput(r, in)
	if err := s.repos.Restaurants.Create(ctx, r); err != nil {
		return nil, err
	}
	s.invalidate(ctx, r.ID)

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"restaurant_id": r.ID,
		"owner_id":      caller.UserID,
	}).Info("restaurant created")
	return r, nil
}

// MyRestaurant returns the caller's restaurant with its whole menu,
// unavailable items included.
func (s *RestaurantService) MyRestaurant(ctx context.Context, caller models.Caller) (*models.Restaurant, error) {
	owned, err := s.owned(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.repos.Restaurants.GetWithMenu(ctx, owned.ID, false)
}

func (s *RestaurantService) UpdateRestaurant(ctx context.Context, caller models.Caller, in RestaurantInput) (*models.Restaurant, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := checkCoordinates(in.Latitude, in.Longitude); err != nil {
		return nil, err
	}
	r, err := s.owned(ctx, caller)
	if err != nil {
		return nil, err
	}
	applyRestaurantInput(r, in)
	if err := s.repos.Restaurants.Update(ctx, r); err != nil {
		return nil, err
	}
	s.invalidate(ctx, r.ID)
	return r, nil
}

// UpsertMenuItem creates a menu item, or updates one when in.ID is set.
func (s *RestaurantService) UpsertMenuItem(ctx context.Context, caller models.Caller, in MenuItemInput) (*models.MenuItem, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if !in.Price.IsPositive() {
		return nil, apperr.Validation("price must be greater than 0")
	}
	r, err := s.owned(ctx, caller)
	if err != nil {
		return nil, err
	}

	item := &models.MenuItem{RestaurantID: r.ID, IsAvailable: true}
	if in.ID != nil {
		if item, err = s.ownedItem(ctx, r, *in.ID); err != nil {
			return nil, err
		}
	}
	item.Name = strings.TrimSpace(in.Name)
	item.Description = in.Description
	item.Price = in.Price.Round(2)
	item.ImageURL = in.ImageURL
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}

	if in.ID == nil {
		err = s.repos.Menu.Create(ctx, item)
	} else {
		err = s.repos.Menu.Save(ctx, item)
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, r.ID)
	return item, nil
}

func (s *RestaurantService) DeleteMenuItem(ctx context.Context, caller models.Caller, itemID uint) error {
	r, err := s.owned(ctx, caller)
	if err != nil {
		return err
	}
	if _, err := s.ownedItem(ctx, r, itemID); err != nil {
		return err
	}
	if err := s.repos.Menu.Delete(ctx, itemID); err != nil {
		return err
	}
	s.invalidate(ctx, r.ID)
	return nil
}

func (s *RestaurantService) ToggleMenuItemAvailability(ctx context.Context, caller models.Caller, itemID uint) (*models.MenuItem, error) {
	r, err := s.owned(ctx, caller)
	if err != nil {
		return nil, err
	}
	item, err := s.ownedItem(ctx, r, itemID)
	if err != nil {
		return nil, err
	}
	item.IsAvailable = !item.IsAvailable
	if err := s.repos.Menu.Save(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, r.ID)
	return item, nil
}

func (s *RestaurantService) owned(ctx context.Context, caller models.Caller) (*models.Restaurant, error) {
	if !caller.Is(models.RoleRestaurant) {
		return nil, apperr.Forbidden("only restaurant owners can manage restaurants")
	}
	r, err := s.repos.Restaurants.FirstOwnedBy(ctx, caller.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("you have not created a restaurant yet")
	}
	return r, err
}

func (s *RestaurantService) ownedItem(ctx context.Context, r *models.Restaurant, itemID uint) (*models.MenuItem, error) {
	item, err := s.repos.Menu.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RestaurantID != r.ID {
		return nil, apperr.Forbidden("menu item %d belongs to another restaurant", itemID)
	}
	return item, nil
}

func (s *RestaurantService) remember(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.opts.CacheTTL); err != nil {
		logging.FromContext(ctx, s.log).WithError(err).WithField("key", key).Warn("cache set")
	}
}

func (s *RestaurantService) invalidate(ctx context.Context, restaurantID uint) {
	entry := logging.FromContext(ctx, s.log)
	if err := s.cache.Del(ctx, fmt.Sprintf("%s%d", detailCachePrefix, restaurantID)); err != nil {
		entry.WithError(err).Warn("cache invalidate detail")
	}
	if err := s.cache.DelPrefix(ctx, listCachePrefix); err != nil {
		entry.WithError(err).Warn("cache invalidate list")
	}
}

func applyRestaurantInput(r *models.Restaurant, in RestaurantInput) {
	r.Name = strings.TrimSpace(in.Name)
	r.Description = in.Description
	r.Address = in.Address
	r.Phone = in.Phone
	if in.AvgPrepTime != nil {
		r.AvgPrepTime = *in.AvgPrepTime
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
	if in.Latitude != nil {
		r.Latitude = in.Latitude
		r.Longitude = in.Longitude
	}
}

func checkCoordinates(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return apperr.Validation("latitude and longitude must be given together")
	}
	return nil
}
