// Package repository is the storage boundary. Every method takes a context
// and returns apperr errors: NotFound for missing rows, Conflict when a
// conditional write lost a race, Backend for anything the database reports.
package repository

import (
	"errors"
	"fmt"

	"food-marketplace-api/apperr"

	"gorm.io/gorm"
)

func backend(err error, op string) error {
	return apperr.Backend(fmt.Errorf("%s: %w", op, err), op)
}

func notFoundOr(err error, op, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %d not found", what, id)
	}
	return backend(err, op)
}
