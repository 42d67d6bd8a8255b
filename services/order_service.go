package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/config"
	"food-marketplace-api/eta"
	"food-marketplace-api/events"
	"food-marketplace-api/logging"
	"food-marketplace-api/models"
	"food-marketplace-api/repository"
	"food-marketplace-api/statemachine"

	"github.com/sirupsen/logrus"
)

type OrderItemInput struct {
	MenuItemID uint `json:"menu_item_id" validate:"required"`
	Quantity   int  `json:"quantity" validate:"required,min=1"`
}

type PlaceOrderInput struct {
	RestaurantID      uint             `json:"restaurant_id" validate:"required"`
	Items             []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress   string           `json:"delivery_address" validate:"required"`
	Notes             string           `json:"notes" validate:"max=500"`
	DeliveryLatitude  *float64         `json:"delivery_latitude" validate:"omitempty,latitude"`
	DeliveryLongitude *float64         `json:"delivery_longitude" validate:"omitempty,longitude"`
	DistanceKm        *float64         `json:"distance_km" validate:"omitempty,gte=0"`
}

type UpdateStatusInput struct {
	Status   models.OrderStatus `json:"status" validate:"required"`
	Note     string             `json:"note" validate:"max=500"`
	DriverID *uint              `json:"driver_id"`
}

// OrderDetail is an order together with its full status history.
type OrderDetail struct {
	Order   *models.Order               `json:"order"`
	History []models.OrderStatusHistory `json:"history"`
}

type OrderService struct {
	repos     Repositories
	publisher events.Publisher
	log       *logrus.Logger
	opts      Options
}

func NewOrderService(repos Repositories, publisher events.Publisher, log *logrus.Logger, opts Options) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{repos: repos, publisher: publisher, log: log, opts: opts.withDefaults()}
}

// PlaceOrder creates a pending order for the calling customer. Prices are
// copied from the current menu.
func (s *OrderService) PlaceOrder(ctx context.Context, caller models.Caller, in PlaceOrderInput) (*models.Order, error) {
	if !caller.Is(models.RoleCustomer) {
		return nil, apperr.Forbidden("only customers can place orders")
	}
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if (in.DeliveryLatitude == nil) != (in.DeliveryLongitude == nil) {
		return nil, apperr.Validation("delivery_latitude and delivery_longitude must be given together")
	}

	restaurant, err := s.repos.Restaurants.Get(ctx, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !restaurant.IsActive {
		return nil, apperr.Validation("restaurant %d is not accepting orders", restaurant.ID)
	}

	ids := make([]uint, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.MenuItemID)
	}
	menu, err := s.repos.Menu.ListByIDs(ctx, restaurant.ID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.MenuItem, len(menu))
	for _, m := range menu {
		byID[m.ID] = m
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		m, ok := byID[it.MenuItemID]
		if !ok {
			return nil, apperr.Validation("menu item %d does not belong to restaurant %d", it.MenuItemID, restaurant.ID)
		}
		if !m.IsAvailable {
			return nil, apperr.Validation("menu item '%s' is not available", m.Name)
		}
		items = append(items, models.OrderItem{
			MenuItemID: m.ID,
			Name:       m.Name,
			Price:      m.Price,
			Quantity:   it.Quantity,
		})
	}

	now := s.opts.Now()
	order := &models.Order{
		CustomerID:        caller.UserID,
		RestaurantID:      restaurant.ID,
		Items:             items,
		DeliveryFee:       s.opts.DeliveryFee.Round(2),
		DeliveryAddress:   in.DeliveryAddress,
		DeliveryLatitude:  in.DeliveryLatitude,
		DeliveryLongitude: in.DeliveryLongitude,
		Notes:             strings.TrimSpace(in.Notes),
		Status:            models.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	order.TotalPrice = order.ItemsTotal()
	if km, ok := deliveryDistance(restaurant, order, in.DistanceKm); ok {
		order.DistanceKm = &km
	}

	if s.opts.ETAMode == config.ETAModeEstimator {
		depth, err := s.repos.Orders.QueueDepth(ctx, restaurant.ID)
		if err != nil {
			return nil, err
		}
		order.EstimatedDeliveryTime = eta.Calculate(etaParams(restaurant, depth, order), now).EstimatedDeliveryTime
	} else {
		order.EstimatedDeliveryTime = now.Add(s.opts.FlatEstimate)
	}

	initial := models.OrderStatusHistory{
		Status:    models.StatusPending,
		Note:      "Order placed",
		ChangedBy: &caller.UserID,
		Timestamp: now,
	}
	if err := s.repos.Orders.Create(ctx, order, initial); err != nil {
		return nil, err
	}
	s.opts.Metrics.OrderCreated()

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"order_id":      order.ID,
		"restaurant_id": order.RestaurantID,
		"total":         order.TotalPrice.StringFixed(2),
	}).Info("order placed")

	s.publish(ctx, events.OrderEvent{
		Type:              events.OrderCreated,
		OrderID:           order.ID,
		CustomerID:        order.CustomerID,
		RestaurantID:      order.RestaurantID,
		RestaurantOwnerID: restaurant.OwnerID,
		NewStatus:         order.Status,
		Note:              initial.Note,
		At:                now,
	})
	return order, nil
}

// EstimateDelivery runs the estimator for an order as it stands now,
// independent of the estimate stored when the order was placed.
func (s *OrderService) EstimateDelivery(ctx context.Context, caller models.Caller, orderID uint) (eta.Result, error) {
	order, restaurant, err := s.loadVisible(ctx, caller, orderID)
	if err != nil {
		return eta.Result{}, err
	}
	now := s.opts.Now()
	switch order.Status {
	case models.StatusPending, models.StatusPreparing:
		ahead, err := s.repos.Orders.QueueDepthBefore(ctx, order)
		if err != nil {
			return eta.Result{}, err
		}
		return eta.Calculate(etaParams(restaurant, ahead, order), now), nil
	case models.StatusOnWay:
		return eta.Calculate(eta.Params{DistanceKm: orderDistance(order)}, now), nil
	default:
		return eta.Result{}, apperr.Validation("order %d is %s, nothing left to estimate", order.ID, order.Status)
	}
}

func (s *OrderService) GetOrder(ctx context.Context, caller models.Caller, orderID uint) (*OrderDetail, error) {
	order, restaurant, err := s.loadVisible(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	history, err := s.repos.Orders.History(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Restaurant = restaurant
	return &OrderDetail{Order: order, History: history}, nil
}

// ListOrders returns the orders visible to the caller under roleHint, most
// recent first. An empty hint means the caller's own role.
func (s *OrderService) ListOrders(ctx context.Context, caller models.Caller, roleHint models.UserRole, status models.OrderStatus) ([]models.Order, error) {
	user, err := s.repos.Users.Get(ctx, caller.UserID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Authentication("caller could not be resolved")
	}
	if err != nil {
		return nil, err
	}
	if status != "" && !statemachine.IsValidStatus(status) {
		return nil, apperr.Validation("unknown status %q", status)
	}

	role := roleHint
	if role == "" {
		role = user.Role
	}
	switch role {
	case models.RoleCustomer:
		return s.repos.Orders.ListByCustomer(ctx, user.ID, status)
	case models.RoleRestaurant:
		ids, err := s.repos.Restaurants.IDsOwnedBy(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return s.repos.Orders.ListByRestaurants(ctx, ids, status)
	case models.RoleDriver:
		return s.repos.Orders.ListByDriver(ctx, user.ID, status)
	case models.RoleAdmin:
		if user.Role != models.RoleAdmin {
			return nil, apperr.Forbidden("admin listing requires the admin role")
		}
		return s.repos.Orders.ListAll(ctx, status)
	default:
		return nil, apperr.Validation("unknown role %q", role)
	}
}

// AvailableForPickup lists on_way orders no driver has accepted yet.
func (s *OrderService) AvailableForPickup(ctx context.Context, caller models.Caller) ([]models.Order, error) {
	if !caller.Is(models.RoleDriver) && !caller.Is(models.RoleAdmin) {
		return nil, apperr.Forbidden("only drivers can list available deliveries")
	}
	return s.repos.Orders.ListAvailableForPickup(ctx)
}

// UpdateStatus validates and applies one lifecycle transition. The write is
// conditional on the status the order was loaded with, so a concurrent change
// surfaces as Conflict instead of being overwritten.
func (s *OrderService) UpdateStatus(ctx context.Context, caller models.Caller, orderID uint, in UpdateStatusInput) (*models.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	order, err := s.repos.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	restaurant, err := s.repos.Restaurants.Get(ctx, order.RestaurantID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParty(caller, order, restaurant, in.Status); err != nil {
		return nil, err
	}
	if err := statemachine.CanTransition(order.Status, in.Status, caller.Role); err != nil {
		return nil, withTransitionDetails(err, order.Status)
	}

	driverID, err := s.resolveDriver(ctx, caller, order, in)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	note := strings.TrimSpace(in.Note)
	if note == "" {
		note = fmt.Sprintf("Status changed to %s", in.Status)
	}
	cmd := repository.TransitionCommand{
		OrderID:           order.ID,
		ExpectedStatus:    order.Status,
		NewStatus:         in.Status,
		DriverID:          driverID,
		RequireUnassigned: driverID != nil && order.DriverID == nil,
		History: models.OrderStatusHistory{
			Status:    in.Status,
			Note:      note,
			ChangedBy: &caller.UserID,
			Timestamp: now,
		},
	}
	if in.Status == models.StatusDelivered {
		cmd.ActualDeliveryTime = &now
	}
	if in.Status == models.StatusOnWay && s.opts.ETAMode == config.ETAModeEstimator {
		est := eta.Calculate(eta.Params{DistanceKm: orderDistance(order)}, now).EstimatedDeliveryTime
		cmd.EstimatedDeliveryTime = &est
	}

	updated, err := s.apply(ctx, cmd)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"order_id": order.ID,
		"from":     order.Status,
		"to":       updated.Status,
		"actor":    caller.Role,
	}).Info("order status changed")

	s.publish(ctx, events.OrderEvent{
		Type:              events.OrderStatusChanged,
		OrderID:           updated.ID,
		CustomerID:        updated.CustomerID,
		RestaurantID:      updated.RestaurantID,
		RestaurantOwnerID: restaurant.OwnerID,
		DriverID:          updated.DriverID,
		OldStatus:         order.Status,
		NewStatus:         updated.Status,
		Note:              note,
		At:                now,
	})
	return updated, nil
}

// ClaimDelivery lets a driver take an on_way order that has no driver. Of
// several drivers racing for the same order exactly one wins; the others
// get Conflict.
func (s *OrderService) ClaimDelivery(ctx context.Context, caller models.Caller, orderID uint, note string) (*models.Order, error) {
	order, err := s.repos.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := statemachine.CanClaim(order.Status, order.DriverID != nil, caller.Role); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			s.opts.Metrics.TransitionConflict()
		}
		return nil, err
	}
	restaurant, err := s.repos.Restaurants.Get(ctx, order.RestaurantID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	if note = strings.TrimSpace(note); note == "" {
		note = "Driver accepted delivery"
	}
	cmd := repository.TransitionCommand{
		OrderID:           order.ID,
		ExpectedStatus:    models.StatusOnWay,
		NewStatus:         models.StatusOnWay,
		RequireUnassigned: true,
		DriverID:          &caller.UserID,
		History: models.OrderStatusHistory{
			Status:    models.StatusOnWay,
			Note:      note,
			ChangedBy: &caller.UserID,
			Timestamp: now,
		},
	}
	if s.opts.ETAMode == config.ETAModeEstimator {
		est := eta.Calculate(eta.Params{DistanceKm: orderDistance(order)}, now).EstimatedDeliveryTime
		cmd.EstimatedDeliveryTime = &est
	}

	updated, err := s.apply(ctx, cmd)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.log).WithFields(logrus.Fields{
		"order_id":  order.ID,
		"driver_id": caller.UserID,
	}).Info("delivery accepted")

	s.publish(ctx, events.OrderEvent{
		Type:              events.OrderDriverAssigned,
		OrderID:           updated.ID,
		CustomerID:        updated.CustomerID,
		RestaurantID:      updated.RestaurantID,
		RestaurantOwnerID: restaurant.OwnerID,
		DriverID:          updated.DriverID,
		OldStatus:         models.StatusOnWay,
		NewStatus:         models.StatusOnWay,
		Note:              note,
		At:                now,
	})
	return updated, nil
}

func (s *OrderService) apply(ctx context.Context, cmd repository.TransitionCommand) (*models.Order, error) {
	updated, err := s.repos.Orders.ApplyTransition(ctx, cmd)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.opts.Metrics.TransitionConflict()
		}
		return nil, err
	}
	s.opts.Metrics.Transition(string(cmd.ExpectedStatus), string(cmd.NewStatus))
	return updated, nil
}

// authorizeParty checks that the caller is a party to the order in the role
// it is acting as. Whether the move itself is allowed is the state machine's call.
func (s *OrderService) authorizeParty(caller models.Caller, order *models.Order, restaurant *models.Restaurant, target models.OrderStatus) error {
	switch caller.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleCustomer:
		if order.CustomerID != caller.UserID {
			return apperr.Forbidden("this order does not belong to you")
		}
	case models.RoleRestaurant:
		if restaurant.OwnerID != caller.UserID {
			return apperr.Forbidden("this order belongs to another restaurant")
		}
	case models.RoleDriver:
		if order.DriverID != nil && *order.DriverID != caller.UserID {
			return apperr.Forbidden("you are not the assigned driver for this order")
		}
		if order.DriverID == nil && order.Status == models.StatusOnWay && target == models.StatusDelivered {
			return apperr.Forbidden("accept the delivery before completing it")
		}
	default:
		return apperr.Forbidden("role %q cannot change orders", caller.Role)
	}
	return nil
}

// resolveDriver decides which driver, if any, the transition assigns.
func (s *OrderService) resolveDriver(ctx context.Context, caller models.Caller, order *models.Order, in UpdateStatusInput) (*uint, error) {
	if in.DriverID != nil {
		if in.Status != models.StatusOnWay {
			return nil, apperr.Validation("a driver can only be assigned when the order goes on_way")
		}
		if caller.Is(models.RoleDriver) && *in.DriverID != caller.UserID {
			return nil, apperr.Forbidden("drivers can only assign themselves")
		}
		if order.DriverID != nil && *order.DriverID != *in.DriverID {
			return nil, apperr.Conflict("order %d already has a driver", order.ID)
		}
		driver, err := s.repos.Users.Get(ctx, *in.DriverID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Validation("driver %d does not exist", *in.DriverID)
		}
		if err != nil {
			return nil, err
		}
		if driver.Role != models.RoleDriver {
			return nil, apperr.Validation("user %d is not a driver", driver.ID)
		}
		id := driver.ID
		return &id, nil
	}
	if caller.Is(models.RoleDriver) && in.Status == models.StatusOnWay && order.DriverID == nil {
		id := caller.UserID
		return &id, nil
	}
	return nil, nil
}

// loadVisible loads an order and its restaurant, failing with Forbidden when
// the caller is not a party to it.
func (s *OrderService) loadVisible(ctx context.Context, caller models.Caller, orderID uint) (*models.Order, *models.Restaurant, error) {
	order, err := s.repos.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	restaurant, err := s.repos.Restaurants.Get(ctx, order.RestaurantID)
	if err != nil {
		return nil, nil, err
	}
	if !canView(caller, order, restaurant) {
		return nil, nil, apperr.Forbidden("you cannot view order %d", order.ID)
	}
	return order, restaurant, nil
}

func canView(caller models.Caller, order *models.Order, restaurant *models.Restaurant) bool {
	switch caller.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return order.CustomerID == caller.UserID
	case models.RoleRestaurant:
		return restaurant.OwnerID == caller.UserID
	case models.RoleDriver:
		if order.DriverID != nil {
			return *order.DriverID == caller.UserID
		}
		return order.Status == models.StatusOnWay
	}
	return false
}

func (s *OrderService) publish(ctx context.Context, ev events.OrderEvent) {
	pctx, cancel := detachedContext(ctx)
	defer cancel()
	if err := s.publisher.Publish(pctx, ev); err != nil {
		s.opts.Metrics.PublishFailed()
		logging.FromContext(ctx, s.log).WithError(err).WithFields(logrus.Fields{
			"order_id": ev.OrderID,
			"event":    ev.Type,
		}).Warn("publish order event")
	}
}

func withTransitionDetails(err error, current models.OrderStatus) error {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind != apperr.KindInvalidTransition {
		return err
	}
	next := statemachine.ValidTransitionsFrom(current)
	if next == nil {
		next = []models.OrderStatus{}
	}
	return e.WithDetail("current_status", current).WithDetail("valid_next_states", next)
}

func etaParams(restaurant *models.Restaurant, queueDepth int, order *models.Order) eta.Params {
	return eta.Params{
		AvgPrepTime: restaurant.AvgPrepTime,
		QueueDepth:  queueDepth,
		DistanceKm:  orderDistance(order),
	}
}

// deliveryDistance prefers the straight-line distance between restaurant and
// delivery point, then a client-supplied distance.
func deliveryDistance(restaurant *models.Restaurant, order *models.Order, supplied *float64) (float64, bool) {
	if restaurant.HasLocation() && order.DeliveryLatitude != nil && order.DeliveryLongitude != nil {
		return eta.Distance(*restaurant.Latitude, *restaurant.Longitude, *order.DeliveryLatitude, *order.DeliveryLongitude), true
	}
	if supplied != nil {
		return *supplied, true
	}
	return 0, false
}

func orderDistance(order *models.Order) float64 {
	if order.DistanceKm == nil {
		return 0
	}
	return *order.DistanceKm
}
