// Package services holds the marketplace use cases. Every operation takes
// the acting models.Caller explicitly; nothing reads identity from ambient
// request state.
package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/config"
	"food-marketplace-api/eta"
	"food-marketplace-api/repository"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repositories bundles the storage dependencies shared by the services.
type Repositories struct {
	Orders      repository.OrderRepository
	Restaurants repository.RestaurantRepository
	Menu        repository.MenuRepository
	Users       repository.UserRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Orders:      repository.NewOrderRepository(db),
		Restaurants: repository.NewRestaurantRepository(db),
		Menu:        repository.NewMenuRepository(db),
		Users:       repository.NewUserRepository(db),
	}
}

// Recorder receives lifecycle counters; *metrics.Metrics implements it.
type Recorder interface {
	OrderCreated()
	Transition(from, to string)
	TransitionConflict()
	PublishFailed()
	CacheLookup(hit bool)
}

type nopRecorder struct{}

func (nopRecorder) OrderCreated() {}

func (nopRecorder) Transition(string, string) {}

func (nopRecorder) TransitionConflict() {}

func (nopRecorder) PublishFailed() {}

func (nopRecorder) CacheLookup(bool) {}

type Options struct {
	ETAMode      string
	DeliveryFee  decimal.Decimal
	FlatEstimate time.Duration
	CacheTTL     time.Duration
	Now          func() time.Time
	Metrics      Recorder
}

// OptionsFromConfig maps the loaded configuration onto service options.
func OptionsFromConfig(cfg config.Config, rec Recorder) Options {
	return Options{
		ETAMode:      cfg.ETAMode,
		DeliveryFee:  cfg.DeliveryFee,
		FlatEstimate: cfg.FlatEstimate,
		CacheTTL:     cfg.CacheTTL,
		Metrics:      rec,
	}
}

func (o Options) withDefaults() Options {
	if o.ETAMode == "" {
		o.ETAMode = config.ETAModeFlat
	}
	if o.FlatEstimate <= 0 {
		o.FlatEstimate = eta.FlatEstimate
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
	return o
}

var validate = newValidator()

// newValidator reports fields by their json names so messages match the
// request body the client sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput runs struct tag validation and reports the first failing
// field as a Validation error.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Validation("%s", describeFieldError(fe))
	}
	return apperr.Validation("invalid input: %v", err)
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind().String() == "slice" {
			return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed '%s' validation", field, fe.Tag())
	}
}

// publishTimeout bounds how long a committed change waits on event fan-out.
const publishTimeout = 5 * time.Second

func detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
}
