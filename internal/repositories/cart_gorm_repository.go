package repositories

import (
	"fmt"

	"bazaar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{
		db: db,
	}
}

// GetByShopper retrieves the shopper's cart from the database.
func (r *GORMCartRepository) GetByShopper(shopperID string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.First(&cart, "shopper_id = ?", shopperID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("shopper %s: %w", shopperID, ErrCartNotFound)
		}
		return nil, fmt.Errorf("failed to get cart for shopper %s: %w", shopperID, err)
	}
	return &cart, nil
}

// Save upserts the cart. Each shopper has exactly one cart row, so an
// existing cart is overwritten in place.
func (r *GORMCartRepository) Save(cart *models.Cart) error {
	if cart.ShopperID == "" {
		return fmt.Errorf("cart is missing a shopper ID")
	}
	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	if err := r.db.Save(cart).Error; err != nil {
		return fmt.Errorf("failed to save cart for shopper %s: %w", cart.ShopperID, err)
	}
	return nil
}
