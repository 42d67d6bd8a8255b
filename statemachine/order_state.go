package statemachine

import (
	"strings"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor models.UserRole    `json:"actor"`
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Restaurant starts preparing a pending order
	{From: models.StatusPending, To: models.StatusPreparing, Actor: models.RoleRestaurant},
	// Restaurant marks the order ready, or a driver accepts it straight from the kitchen
	{From: models.StatusPreparing, To: models.StatusOnWay, Actor: models.RoleRestaurant},
	{From: models.StatusPreparing, To: models.StatusOnWay, Actor: models.RoleDriver},
	// Driver completes the delivery
	{From: models.StatusOnWay, To: models.StatusDelivered, Actor: models.RoleDriver},
	// Either party can cancel while the order is still pending
	{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleCustomer},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleRestaurant},
}

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor models.UserRole
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
		// admins may drive any edge of the table, never anything outside it
		m[transitionKey{t.From, t.To, models.RoleAdmin}] = true
	}
	return m
}()

var terminal = map[models.OrderStatus]bool{
	models.StatusDelivered: true,
	models.StatusCancelled: true,
}

// IsTerminal reports whether no transition leaves status
func IsTerminal(status models.OrderStatus) bool {
	return terminal[status]
}

// IsValidStatus reports whether status is one of the known states
func IsValidStatus(status models.OrderStatus) bool {
	for _, s := range models.AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor models.UserRole) error {
	if !IsValidStatus(to) {
		return apperr.Validation("unknown status %q", to)
	}
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	if IsTerminal(from) {
		return apperr.InvalidTransition("invalid transition: %s → %s, %s is a terminal state", from, to, from)
	}
	return apperr.InvalidTransition(
		"invalid transition: %s → %s is not allowed for actor '%s'. Valid transitions from %s are: %s",
		from, to, actor, from, describeValidFrom(from),
	)
}

// CanClaim checks whether actor may take over an order that is already on
// its way but has no driver yet.
func CanClaim(status models.OrderStatus, driverAssigned bool, actor models.UserRole) error {
	if actor != models.RoleDriver {
		return apperr.Forbidden("only drivers can accept deliveries")
	}
	if status != models.StatusOnWay {
		return apperr.InvalidTransition("order is %s, only on_way orders can be accepted", status)
	}
	if driverAssigned {
		return apperr.Conflict("order has already been accepted by another driver")
	}
	return nil
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// AllTransitions returns the full state machine for documentation
func AllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
