package repositories

import (
	"fmt"
	"sync"

	"bazaar/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// cloneProduct copies a product so its variant slice no longer aliases the
// stored one. Without this a later AdjustStock would mutate variants
// underneath copies already handed out, outside the lock.
func cloneProduct(p models.Product) models.Product {
	if p.Variants != nil {
		variants := make([]models.Variant, len(p.Variants))
		copy(variants, p.Variants)
		p.Variants = variants
	}
	return p
}

// GetAll returns all products.
func (r *MockProductRepository) GetAll() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, cloneProduct(p))
	}
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s not found", id)
	}
	product = cloneProduct(product)
	return &product, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s not found for update", product.ID)
	}
	r.products[product.ID] = cloneProduct(*product)
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s not found for deletion", id)
	}
	delete(r.products, id)
	return nil
}

// AdjustStock applies delta to the product's (or variant's) stock counter.
// The bounds check and the mutation happen under the same write lock, so a
// concurrent decrement can never observe the pre-check value and oversell.
func (r *MockProductRepository) AdjustStock(productID string, combination models.Combination, delta int, allowNegative bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[productID]
	if !ok {
		return fmt.Errorf("product with ID %s not found for stock adjustment", productID)
	}

	if len(combination) == 0 {
		newQty := product.StockQuantity + delta
		if newQty < 0 && !allowNegative {
			return fmt.Errorf("product %s: %w (have %d, requested %d)",
				productID, models.ErrInsufficientStock, product.StockQuantity, -delta)
		}
		product.StockQuantity = newQty
		r.products[productID] = product
		return nil
	}

	product = cloneProduct(product)
	variant := product.FindVariant(combination)
	if variant == nil {
		return fmt.Errorf("product %s combination %s: %w", productID, combination.Key(), models.ErrVariantNotFound)
	}
	newQty := variant.StockQuantity + delta
	if newQty < 0 && !allowNegative {
		return fmt.Errorf("product %s combination %s: %w (have %d, requested %d)",
			productID, combination.Key(), models.ErrInsufficientStock, variant.StockQuantity, -delta)
	}
	variant.StockQuantity = newQty
	r.products[productID] = product
	return nil
}
