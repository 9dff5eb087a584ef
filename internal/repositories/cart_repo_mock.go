package repositories

import (
	"fmt"
	"sync"

	"bazaar/internal/models"
)

// MockCartRepository is an in-memory implementation of CartRepository,
// keyed by shopper ID.
type MockCartRepository struct {
	carts map[string]models.Cart
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[string]models.Cart),
	}
}

// GetByShopper returns the shopper's cart, or an error if none exists yet.
// The cart service handles lazy creation; the repository does not.
func (r *MockCartRepository) GetByShopper(shopperID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[shopperID]
	if !ok {
		return nil, fmt.Errorf("shopper %s: %w", shopperID, ErrCartNotFound)
	}
	return &cart, nil
}

// Save stores the cart, replacing any previous state for the shopper.
func (r *MockCartRepository) Save(cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart.ShopperID == "" {
		return fmt.Errorf("cart is missing a shopper ID")
	}
	r.carts[cart.ShopperID] = *cart
	return nil
}
