package services

import (
	"fmt"

	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/shopspring/decimal"
)

// CatalogService owns per-product variant definitions: it is the only place
// variants are added, patched or removed, and it enforces the uniqueness of
// combinations within a product.
type CatalogService struct {
	repo repositories.ProductRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.ProductRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *CatalogService) GetAllProducts() ([]models.Product, error) {
	return s.repo.GetAll()
}

// GetProductByID retrieves a single product by its ID.
func (s *CatalogService) GetProductByID(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// CreateProduct creates a new product after checking its option axes and any
// seed variants for consistency.
func (s *CatalogService) CreateProduct(product *models.Product) error {
	for _, axis := range product.OptionAxes {
		if !axis.Valid() {
			return fmt.Errorf("invalid option axis %q", axis)
		}
	}
	seen := make(map[string]bool, len(product.Variants))
	for _, v := range product.Variants {
		for _, opt := range v.Options {
			if err := opt.Validate(); err != nil {
				return fmt.Errorf("invalid variant option: %w", err)
			}
		}
		key := v.Combination(product.OptionAxes).Key()
		if seen[key] {
			return fmt.Errorf("combination %s: %w", key, models.ErrDuplicateVariant)
		}
		seen[key] = true
	}
	return s.repo.Create(product)
}

// UpdateProduct updates an existing product.
func (s *CatalogService) UpdateProduct(product *models.Product) error {
	return s.repo.Update(product)
}

// DeleteProduct deletes a product by its ID.
func (s *CatalogService) DeleteProduct(id string) error {
	return s.repo.Delete(id)
}

// VariantInput carries the fields of a new variant. Pointer fields are
// overrides: a nil price falls back to the product's base price at
// resolution time, a nil stock quantity copies the product's base stock,
// and a nil active flag defaults to true.
type VariantInput struct {
	Options           []models.VariantOption `json:"options" validate:"required,min=1,dive"`
	Price             *decimal.Decimal       `json:"price,omitempty"`
	ComparePrice      *decimal.Decimal       `json:"compare_price,omitempty"`
	Cost              *decimal.Decimal       `json:"cost,omitempty"`
	StockQuantity     *int                   `json:"stock_quantity,omitempty"`
	LowStockThreshold *int                   `json:"low_stock_threshold,omitempty"`
	SKU               string                 `json:"sku,omitempty"`
	Images            []string               `json:"images,omitempty"`
	Active            *bool                  `json:"active,omitempty"`
	WeightGrams       int                    `json:"weight_grams,omitempty"`
	Dimensions        *models.Dimensions     `json:"dimensions,omitempty"`
}

// AddVariant registers a new purchasable combination on the product. It
// fails with models.ErrDuplicateVariant if a variant with the same
// combination already exists; the variant list is left unchanged in that
// case.
func (s *CatalogService) AddVariant(productID string, input VariantInput) (*models.Variant, error) {
	product, err := s.repo.GetByID(productID)
	if err != nil {
		return nil, err
	}

	for _, opt := range input.Options {
		if err := opt.Validate(); err != nil {
			return nil, fmt.Errorf("invalid variant option: %w", err)
		}
	}

	variant := models.Variant{
		Options:      input.Options,
		Price:        input.Price,
		ComparePrice: input.ComparePrice,
		Cost:         input.Cost,
		SKU:          input.SKU,
		Images:       input.Images,
		Active:       true,
		WeightGrams:  input.WeightGrams,
		Dimensions:   input.Dimensions,
	}
	if input.Active != nil {
		variant.Active = *input.Active
	}
	// Unspecified stock fields inherit the product's base values.
	if input.StockQuantity != nil {
		variant.StockQuantity = *input.StockQuantity
	} else {
		variant.StockQuantity = product.StockQuantity
	}
	if input.LowStockThreshold != nil {
		variant.LowStockThreshold = *input.LowStockThreshold
	} else {
		variant.LowStockThreshold = product.LowStockThreshold
	}

	combination := variant.Combination(product.OptionAxes)
	if existing := product.FindVariant(combination); existing != nil {
		return nil, fmt.Errorf("combination %s: %w", combination.Key(), models.ErrDuplicateVariant)
	}

	product.Variants = append(product.Variants, variant)
	if err := s.repo.Update(product); err != nil {
		return nil, fmt.Errorf("failed to save variant: %w", err)
	}
	return &product.Variants[len(product.Variants)-1], nil
}

// VariantPatch carries a partial update for an existing variant. Nil fields
// are left untouched; the variant's options (and therefore its combination)
// cannot be changed by a patch.
type VariantPatch struct {
	Price             *decimal.Decimal   `json:"price,omitempty"`
	ComparePrice      *decimal.Decimal   `json:"compare_price,omitempty"`
	Cost              *decimal.Decimal   `json:"cost,omitempty"`
	StockQuantity     *int               `json:"stock_quantity,omitempty"`
	LowStockThreshold *int               `json:"low_stock_threshold,omitempty"`
	SKU               *string            `json:"sku,omitempty"`
	Images            []string           `json:"images,omitempty"`
	Active            *bool              `json:"active,omitempty"`
	WeightGrams       *int               `json:"weight_grams,omitempty"`
	Dimensions        *models.Dimensions `json:"dimensions,omitempty"`
}

// UpdateVariant merges the patch onto the variant identified by the
// combination. It fails with models.ErrVariantNotFound if the combination is
// not registered on the product.
func (s *CatalogService) UpdateVariant(productID string, combination models.Combination, patch VariantPatch) (*models.Variant, error) {
	product, err := s.repo.GetByID(productID)
	if err != nil {
		return nil, err
	}

	variant := product.FindVariant(combination)
	if variant == nil {
		return nil, fmt.Errorf("combination %s: %w", combination.Key(), models.ErrVariantNotFound)
	}

	if patch.Price != nil {
		variant.Price = patch.Price
	}
	if patch.ComparePrice != nil {
		variant.ComparePrice = patch.ComparePrice
	}
	if patch.Cost != nil {
		variant.Cost = patch.Cost
	}
	if patch.StockQuantity != nil {
		variant.StockQuantity = *patch.StockQuantity
	}
	if patch.LowStockThreshold != nil {
		variant.LowStockThreshold = *patch.LowStockThreshold
	}
	if patch.SKU != nil {
		variant.SKU = *patch.SKU
	}
	if patch.Images != nil {
		variant.Images = patch.Images
	}
	if patch.Active != nil {
		variant.Active = *patch.Active
	}
	if patch.WeightGrams != nil {
		variant.WeightGrams = *patch.WeightGrams
	}
	if patch.Dimensions != nil {
		variant.Dimensions = patch.Dimensions
	}

	if err := s.repo.Update(product); err != nil {
		return nil, fmt.Errorf("failed to save variant update: %w", err)
	}
	return variant, nil
}

// RemoveVariant deletes the variant identified by the combination. Cart
// lines referencing the removed variant are not cascade-deleted; the price
// resolver treats the combination as unavailable from then on.
func (s *CatalogService) RemoveVariant(productID string, combination models.Combination) error {
	product, err := s.repo.GetByID(productID)
	if err != nil {
		return err
	}

	want := combination.Sorted(product.OptionAxes)
	for i := range product.Variants {
		if product.Variants[i].Combination(product.OptionAxes).Equal(want) {
			product.Variants = append(product.Variants[:i], product.Variants[i+1:]...)
			if err := s.repo.Update(product); err != nil {
				return fmt.Errorf("failed to save variant removal: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("combination %s: %w", combination.Key(), models.ErrVariantNotFound)
}

// FindByCombination returns the variant exactly matching the combination
// (options compared in the product's declared axis order).
func (s *CatalogService) FindByCombination(productID string, combination models.Combination) (*models.Variant, error) {
	product, err := s.repo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	variant := product.FindVariant(combination)
	if variant == nil {
		return nil, fmt.Errorf("combination %s: %w", combination.Key(), models.ErrVariantNotFound)
	}
	return variant, nil
}

// FindByOptions matches a caller-supplied option list against the product's
// variants as a set of (type, value) pairs, tolerant of option ordering.
func (s *CatalogService) FindByOptions(productID string, options models.Combination) (*models.Variant, error) {
	product, err := s.repo.GetByID(productID)
	if err != nil {
		return nil, err
	}
	variant := product.FindVariantByOptions(options)
	if variant == nil {
		return nil, fmt.Errorf("options %s: %w", options.Key(), models.ErrVariantNotFound)
	}
	return variant, nil
}

// GenerateAllCombinations enumerates the full Cartesian product of the
// option values currently registered on the product's variants, one value
// list per declared axis, deduplicated per axis. It is pure enumeration for
// admin tooling (to show which theoretical combinations are still
// unassigned) and creates no variants.
func (s *CatalogService) GenerateAllCombinations(productID string) ([]models.Combination, error) {
	product, err := s.repo.GetByID(productID)
	if err != nil {
		return nil, err
	}

	// Collect the distinct values seen per axis, preserving first-seen order.
	valuesByAxis := make(map[models.OptionType][]string, len(product.OptionAxes))
	seen := make(map[models.SelectedOption]bool)
	for _, v := range product.Variants {
		for _, opt := range v.Options {
			sel := models.SelectedOption{Type: opt.Type, Value: opt.Value}
			if !seen[sel] {
				seen[sel] = true
				valuesByAxis[opt.Type] = append(valuesByAxis[opt.Type], opt.Value)
			}
		}
	}

	combinations := []models.Combination{{}}
	for _, axis := range product.OptionAxes {
		values := valuesByAxis[axis]
		if len(values) == 0 {
			continue // no values registered on this axis yet
		}
		next := make([]models.Combination, 0, len(combinations)*len(values))
		for _, base := range combinations {
			for _, value := range values {
				extended := make(models.Combination, len(base), len(base)+1)
				copy(extended, base)
				extended = append(extended, models.SelectedOption{Type: axis, Value: value})
				next = append(next, extended)
			}
		}
		combinations = next
	}

	if len(combinations) == 1 && len(combinations[0]) == 0 {
		return nil, nil // no axis has any registered values
	}
	return combinations, nil
}
