package repositories

import (
	"errors"

	"bazaar/internal/models"
)

// ErrCartNotFound is returned by GetByShopper when the shopper has no cart
// yet. The cart service treats it as a signal to create one lazily, so
// implementations must return it (wrapped or not) rather than a generic
// failure.
var ErrCartNotFound = errors.New("cart not found")

// CartRepository defines the interface for cart data access. Carts are
// keyed by shopper: each shopper owns exactly one cart, so no cross-shopper
// coordination is needed on cart contents.
type CartRepository interface {
	GetByShopper(shopperID string) (*models.Cart, error)
	Save(cart *models.Cart) error
}
