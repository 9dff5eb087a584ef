package repositories

import (
	"bazaar/internal/models"
)

// ProductRepository defines the interface for product data access.
//
// AdjustStock is the only way stock counters change: it applies delta
// (negative for decrement) to the product's own counter, or to the variant
// identified by combination when one is given, as a single conditional
// mutation. If the resulting quantity would go negative and allowNegative is
// false, it fails with models.ErrInsufficientStock and leaves the counter
// untouched. The interface deliberately exposes no separate read-then-write
// pair for stock counters; a check followed by a decrement is a race that
// can oversell.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	AdjustStock(productID string, combination models.Combination, delta int, allowNegative bool) error
}
