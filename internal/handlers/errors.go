package handlers

import (
	"errors"

	"bazaar/internal/models"

	"github.com/gofiber/fiber/v2"
)

// statusForBusinessError maps the business-error taxonomy to HTTP statuses.
// Everything in the taxonomy is recoverable-by-caller, so it maps to 4xx;
// anything unrecognised is a system fault and maps to 500.
func statusForBusinessError(err error) int {
	switch {
	case errors.Is(err, models.ErrDuplicateVariant):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrVariantNotFound),
		errors.Is(err, models.ErrLineNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrVariantUnavailable),
		errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrOutOfStock),
		errors.Is(err, models.ErrQuantityExceedsLimit),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrInvalidCoupon),
		errors.Is(err, models.ErrNoCouponApplied),
		errors.Is(err, models.ErrInvalidTransition):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// businessError reports whether err belongs to the recoverable taxonomy.
func businessError(err error) bool {
	return statusForBusinessError(err) != fiber.StatusInternalServerError
}
