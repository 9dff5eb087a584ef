package repositories

import (
	"fmt"
	"time"

	"bazaar/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database.
func (r *GORMProductRepository) GetAll() ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Save(product) // Save will update all fields, including zero values
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// This case happens if the record doesn't exist.
		// GORM's Save doesn't return ErrRecordNotFound if no rows affected
		// for an update, so we check RowsAffected.
		return fmt.Errorf("product with ID %s not found for update", product.ID)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(id string) error {
	res := r.db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for deletion", id)
	}
	return nil
}

// AdjustStock applies delta to the product's (or variant's) stock counter.
//
// The base counter uses a guarded UPDATE — the bounds check lives in the
// WHERE clause, so the check and the mutation are one statement and a
// concurrent decrement cannot slip between them. The variant counter lives
// inside the serialized variants column, so it is updated with an
// optimistic guard on updated_at instead; a lost race surfaces as an error
// rather than being retried here, since a blind retry after a write
// conflict can double-decrement.
func (r *GORMProductRepository) AdjustStock(productID string, combination models.Combination, delta int, allowNegative bool) error {
	if len(combination) == 0 {
		return r.adjustBaseStock(productID, delta, allowNegative)
	}
	return r.adjustVariantStock(productID, combination, delta, allowNegative)
}

func (r *GORMProductRepository) adjustBaseStock(productID string, delta int, allowNegative bool) error {
	query := r.db.Model(&models.Product{}).Where("id = ?", productID)
	if !allowNegative {
		query = query.Where("stock_quantity + ? >= 0", delta)
	}
	res := query.UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to adjust stock for product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Zero rows means either the product is missing or the guard
		// rejected the decrement. Distinguish the two for the caller.
		var count int64
		if err := r.db.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check product %s after stock adjustment: %w", productID, err)
		}
		if count == 0 {
			return fmt.Errorf("product with ID %s not found for stock adjustment", productID)
		}
		return fmt.Errorf("product %s: %w", productID, models.ErrInsufficientStock)
	}
	return nil
}

func (r *GORMProductRepository) adjustVariantStock(productID string, combination models.Combination, delta int, allowNegative bool) error {
	var product models.Product
	if err := r.db.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("product with ID %s not found for stock adjustment", productID)
		}
		return fmt.Errorf("failed to load product %s for stock adjustment: %w", productID, err)
	}

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

	res := r.db.Model(&models.Product{}).
		Where("id = ? AND updated_at = ?", productID, product.UpdatedAt).
		Select("variants", "updated_at").
		Updates(models.Product{Variants: product.Variants, Model: gorm.Model{UpdatedAt: time.Now()}})
	if res.Error != nil {
		return fmt.Errorf("failed to adjust variant stock for product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("concurrent update conflict adjusting stock for product %s combination %s", productID, combination.Key())
	}
	return nil
}
