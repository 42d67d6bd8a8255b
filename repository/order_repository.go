package repository

import (
	"context"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"

	"gorm.io/gorm"
)

// TransitionCommand describes one conditional status write. The update only
// applies while the order is still in ExpectedStatus (and, when
// RequireUnassigned is set, has no driver), so concurrent writers cannot
// both succeed.
type TransitionCommand struct {
	OrderID               uint
	ExpectedStatus        models.OrderStatus
	NewStatus             models.OrderStatus
	RequireUnassigned     bool
	DriverID              *uint
	ActualDeliveryTime    *time.Time
	EstimatedDeliveryTime *time.Time
	History               models.OrderStatusHistory
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order, initial models.OrderStatusHistory) error
	Get(ctx context.Context, id uint) (*models.Order, error)
	History(ctx context.Context, orderID uint) ([]models.OrderStatusHistory, error)
	ApplyTransition(ctx context.Context, cmd TransitionCommand) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uint, status models.OrderStatus) ([]models.Order, error)
	ListByRestaurants(ctx context.Context, restaurantIDs []uint, status models.OrderStatus) ([]models.Order, error)
	ListByDriver(ctx context.Context, driverID uint, status models.OrderStatus) ([]models.Order, error)
	ListAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	ListAvailableForPickup(ctx context.Context) ([]models.Order, error)
	QueueDepth(ctx context.Context, restaurantID uint) (int, error)
	QueueDepthBefore(ctx context.Context, order *models.Order) (int, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order, its items and the initial history row in one transaction
func (r *orderRepository) Create(ctx context.Context, order *models.Order, initial models.OrderStatusHistory) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		initial.OrderID = order.ID
		return tx.Create(&initial).Error
	})
	if err != nil {
		return backend(err, "create order")
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, notFoundOr(err, "get order", "order", id)
	}
	return &order, nil
}

func (r *orderRepository) History(ctx context.Context, orderID uint) ([]models.OrderStatusHistory, error) {
	var history []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp asc, id asc").
		Find(&history).Error
	if err != nil {
		return nil, backend(err, "load order history")
	}
	return history, nil
}

func (r *orderRepository) ApplyTransition(ctx context.Context, cmd TransitionCommand) (*models.Order, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     cmd.NewStatus,
			"updated_at": cmd.History.Timestamp,
		}
		if cmd.DriverID != nil {
			updates["driver_id"] = *cmd.DriverID
		}
		if cmd.ActualDeliveryTime != nil {
			updates["actual_delivery_time"] = *cmd.ActualDeliveryTime
		}
		if cmd.EstimatedDeliveryTime != nil {
			updates["estimated_delivery_time"] = *cmd.EstimatedDeliveryTime
		}

		q := tx.Model(&models.Order{}).Where("id = ? AND status = ?", cmd.OrderID, cmd.ExpectedStatus)
		if cmd.RequireUnassigned {
			q = q.Where("driver_id IS NULL")
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return backend(res.Error, "update order status")
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", cmd.OrderID).Count(&count).Error; err != nil {
				return backend(err, "check order")
			}
			if count == 0 {
				return apperr.NotFound("order %d not found", cmd.OrderID)
			}
			return apperr.Conflict("order %d was changed by someone else; refresh and try again", cmd.OrderID)
		}

		entry := cmd.History
		entry.ID = 0
		entry.OrderID = cmd.OrderID

		// history stays ordered by timestamp even if the caller's clock lags the last entry
		var last models.OrderStatusHistory
		err := tx.Where("order_id = ?", cmd.OrderID).
			Order("timestamp desc, id desc").Limit(1).Find(&last).Error
		if err != nil {
			return backend(err, "load last history entry")
		}
		if last.ID != 0 && entry.Timestamp.Before(last.Timestamp) {
			entry.Timestamp = last.Timestamp
		}
		if err := tx.Create(&entry).Error; err != nil {
			return backend(err, "append order history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, cmd.OrderID)
}

func (r *orderRepository) list(ctx context.Context, status models.OrderStatus, scope func(*gorm.DB) *gorm.DB) ([]models.Order, error) {
	q := scope(r.db.WithContext(ctx).Preload("Items"))
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, backend(err, "list orders")
	}
	return orders, nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uint, status models.OrderStatus) ([]models.Order, error) {
	return r.list(ctx, status, func(q *gorm.DB) *gorm.DB {
		return q.Where("customer_id = ?", customerID)
	})
}

func (r *orderRepository) ListByRestaurants(ctx context.Context, restaurantIDs []uint, status models.OrderStatus) ([]models.Order, error) {
	if len(restaurantIDs) == 0 {
		return []models.Order{}, nil
	}
	return r.list(ctx, status, func(q *gorm.DB) *gorm.DB {
		return q.Where("restaurant_id IN ?", restaurantIDs)
	})
}

func (r *orderRepository) ListByDriver(ctx context.Context, driverID uint, status models.OrderStatus) ([]models.Order, error) {
	return r.list(ctx, status, func(q *gorm.DB) *gorm.DB {
		return q.Where("driver_id = ?", driverID)
	})
}

func (r *orderRepository) ListAll(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	return r.list(ctx, status, func(q *gorm.DB) *gorm.DB { return q })
}

// ListAvailableForPickup returns on_way orders no driver has accepted yet
func (r *orderRepository) ListAvailableForPickup(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, models.StatusOnWay, func(q *gorm.DB) *gorm.DB {
		return q.Where("driver_id IS NULL")
	})
}

// QueueDepth counts the restaurant's orders still waiting for or in the kitchen
func (r *orderRepository) QueueDepth(ctx context.Context, restaurantID uint) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("restaurant_id = ? AND status IN ?", restaurantID,
			[]models.OrderStatus{models.StatusPending, models.StatusPreparing}).
		Count(&count).Error
	if err != nil {
		return 0, backend(err, "count queue")
	}
	return int(count), nil
}

// QueueDepthBefore counts the kitchen orders at the same restaurant that were
// placed ahead of order. Ties on created_at are broken by id.
func (r *orderRepository) QueueDepthBefore(ctx context.Context, order *models.Order) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("restaurant_id = ? AND status IN ?", order.RestaurantID,
			[]models.OrderStatus{models.StatusPending, models.StatusPreparing}).
		Where("created_at < ? OR (created_at = ? AND id < ?)", order.CreatedAt, order.CreatedAt, order.ID).
		Count(&count).Error
	if err != nil {
		return 0, backend(err, "count queue ahead")
	}
	return int(count), nil
}
