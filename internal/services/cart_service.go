package services

import (
	"errors"
	"fmt"

	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/shopspring/decimal"
)

// CartService owns a shopper's working selection and keeps it numerically
// consistent: every mutation re-resolves prices through the pricing service
// and ends by recomputing the aggregate block with models.ComputeTotals.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
	pricing     *PricingService
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository, pricing *PricingService) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		pricing:     pricing,
	}
}

// GetOrCreate returns the shopper's cart, creating an empty one on first
// access. Idempotent: a second call returns the same cart.
func (s *CartService) GetOrCreate(shopperID string) (*models.Cart, error) {
	cart, err := s.cartRepo.GetByShopper(shopperID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repositories.ErrCartNotFound) {
		return nil, err
	}

	cart = &models.Cart{ShopperID: shopperID}
	if err := s.cartRepo.Save(cart); err != nil {
		return nil, fmt.Errorf("failed to create cart for shopper %s: %w", shopperID, err)
	}
	return cart, nil
}

// Totals derives the cart's aggregate block. Totals are never stored
// independently of the lines, so this is safe to call at any point.
func (s *CartService) Totals(cart *models.Cart) models.CartTotals {
	return models.ComputeTotals(cart.Lines, cart.Coupon)
}

// AddLine adds quantity units of the selection to the shopper's cart. If a
// line for the same (product, variant) pair already exists the quantities
// are merged — a cart never holds two lines with an identical pair. The
// post-merge quantity is checked against both available stock and the
// product's per-order cap.
func (s *CartService) AddLine(shopperID, productID string, quantity int, options models.Combination) (*models.Cart, models.CartTotals, error) {
	if quantity < 1 {
		return nil, models.CartTotals{}, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}

	cart, err := s.GetOrCreate(shopperID)
	if err != nil {
		return nil, models.CartTotals{}, err
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, models.CartTotals{}, err
	}

	combination, err := s.canonicalCombination(product, options)
	if err != nil {
		return nil, models.CartTotals{}, err
	}

	merged := quantity
	lineIdx := findLine(cart.Lines, productID, combination)
	if lineIdx >= 0 {
		merged += cart.Lines[lineIdx].Quantity
	}

	if err := s.checkLimits(product, combination, merged); err != nil {
		return nil, models.CartTotals{}, err
	}

	unit, original, discount, err := s.capturePrices(product, combination)
	if err != nil {
		return nil, models.CartTotals{}, err
	}

	if lineIdx >= 0 {
		cart.Lines[lineIdx].Quantity = merged
		cart.Lines[lineIdx].UnitPrice = unit
		cart.Lines[lineIdx].OriginalPrice = original
		cart.Lines[lineIdx].Discount = discount
	} else {
		cart.Lines = append(cart.Lines, models.CartLine{
			ProductID:     productID,
			Combination:   combination,
			Quantity:      quantity,
			UnitPrice:     unit,
			OriginalPrice: original,
			Discount:      discount,
		})
	}

	return s.persist(cart)
}

// SetLineQuantity replaces the quantity of an existing line. Quantity 0 is
// equivalent to removing the line. The line's captured price fields are
// re-resolved from the current pricing state, so a vendor price change is
// reflected before checkout.
func (s *CartService) SetLineQuantity(shopperID, productID string, options models.Combination, quantity int) (*models.Cart, models.CartTotals, error) {
	if quantity < 0 {
		return nil, models.CartTotals{}, fmt.Errorf("quantity must not be negative, got %d", quantity)
	}
	if quantity == 0 {
		return s.RemoveLine(shopperID, productID, options)
	}

	cart, err := s.GetOrCreate(shopperID)
	if err != nil {
		return nil, models.CartTotals{}, err
	}
	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, models.CartTotals{}, err
	}

	combination, err := s.canonicalCombination(product, options)
	if err != nil {
		return nil, models.CartTotals{}, err
	}

	lineIdx := findLine(cart.Lines, productID, combination)
	if lineIdx < 0 {
		return nil, models.CartTotals{}, fmt.Errorf("product %s: %w", productID, models.ErrLineNotFound)
	}

	if err := s.checkLimits(product, combination, quantity); err != nil {
		return nil, models.CartTotals{}, err
	}

	unit, original, discount, err := s.capturePrices(product, combination)
	if err != nil {
		return nil, models.CartTotals{}, err
	}

	cart.Lines[lineIdx].Quantity = quantity
	cart.Lines[lineIdx].UnitPrice = unit
	cart.Lines[lineIdx].OriginalPrice = original
	cart.Lines[lineIdx].Discount = discount

	return s.persist(cart)
}

// RemoveLine deletes one line from the cart.
func (s *CartService) RemoveLine(shopperID, productID string, options models.Combination) (*models.Cart, models.CartTotals, error) {
	cart, err := s.GetOrCreate(shopperID)
	if err != nil {
		return nil, models.CartTotals{}, err
	}

	lineIdx := findLine(cart.Lines, productID, options)
	if lineIdx < 0 {
		return nil, models.CartTotals{}, fmt.Errorf("product %s: %w", productID, models.ErrLineNotFound)
	}
	cart.Lines = append(cart.Lines[:lineIdx], cart.Lines[lineIdx+1:]...)

	return s.persist(cart)
}

// Clear empties all lines and drops any applied coupon. The cart itself is
// never deleted.
func (s *CartService) Clear(shopperID string) (*models.Cart, models.CartTotals, error) {
	cart, err := s.GetOrCreate(shopperID)
	if err != nil {
		return nil, models.CartTotals{}, err
	}
	cart.Lines = nil
	cart.Coupon = nil
	return s.persist(cart)
}

// persist saves the cart and returns it with the freshly derived totals.
// Called as the last step of every mutation.
func (s *CartService) persist(cart *models.Cart) (*models.Cart, models.CartTotals, error) {
	if err := s.cartRepo.Save(cart); err != nil {
		return nil, models.CartTotals{}, fmt.Errorf("failed to save cart: %w", err)
	}
	return cart, models.ComputeTotals(cart.Lines, cart.Coupon), nil
}

// canonicalCombination resolves a caller-supplied option list (any order)
// to the matching variant's combination in the product's declared axis
// order. An empty option list selects the base product.
func (s *CartService) canonicalCombination(product *models.Product, options models.Combination) (models.Combination, error) {
	if len(options) == 0 {
		return nil, nil
	}
	variant := product.FindVariantByOptions(options)
	if variant == nil {
		return nil, fmt.Errorf("options %s: %w", options.Key(), models.ErrVariantUnavailable)
	}
	return variant.Combination(product.OptionAxes), nil
}

// checkLimits validates a prospective line quantity against the per-order
// cap and the available stock.
func (s *CartService) checkLimits(product *models.Product, combination models.Combination, quantity int) error {
	if product.MaxPerOrder > 0 && quantity > product.MaxPerOrder {
		return fmt.Errorf("product %s allows at most %d per order: %w",
			product.ID, product.MaxPerOrder, models.ErrQuantityExceedsLimit)
	}

	state, err := s.pricing.ResolveStock(product, combination)
	if err != nil {
		return err
	}
	if !state.Unlimited && !product.AllowBackorders && state.Quantity < quantity {
		return fmt.Errorf("product %s has %d left, requested %d: %w",
			product.ID, state.Quantity, quantity, models.ErrOutOfStock)
	}
	return nil
}

// capturePrices resolves the current effective price for the selection and
// derives the captured line fields: unit price, the pre-discount original
// price, and the per-unit discount (already reflected in the unit price).
func (s *CartService) capturePrices(product *models.Product, combination models.Combination) (unit, original, discount decimal.Decimal, err error) {
	quote, err := s.pricing.ResolvePrice(product, combination)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	unit = quote.Price
	original = unit
	if quote.ComparePrice != nil && quote.ComparePrice.GreaterThan(unit) {
		original = *quote.ComparePrice
	}
	return unit, original, original.Sub(unit), nil
}

// findLine locates the line holding the given (product, variant) pair, or
// -1 if no such line exists. Combinations are compared as sets so the
// stored ordering never matters.
func findLine(lines []models.CartLine, productID string, combination models.Combination) int {
	for i, line := range lines {
		if line.Matches(productID, combination) {
			return i
		}
	}
	return -1
}
