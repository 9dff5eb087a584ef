package services

import (
	"errors"
	"fmt"
	"strings"

	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/shopspring/decimal"
)

// CouponRule is what the coupon registry knows about one code: how the
// discount value is interpreted (percentage rate or fixed amount).
type CouponRule struct {
	Code  string
	Type  models.DiscountType
	Value decimal.Decimal
}

// CouponRegistry maps a code to its rule. In production this is an external
// collaborator; the core only ever reads from it.
type CouponRegistry interface {
	Lookup(code string) (*CouponRule, bool)
}

// StaticCouponRegistry is an in-memory CouponRegistry backed by a fixed
// table, sufficient for this scope. Codes are matched case-insensitively.
type StaticCouponRegistry struct {
	rules map[string]CouponRule
}

// NewStaticCouponRegistry builds a registry from the given rules.
func NewStaticCouponRegistry(rules ...CouponRule) *StaticCouponRegistry {
	registry := &StaticCouponRegistry{rules: make(map[string]CouponRule, len(rules))}
	for _, rule := range rules {
		rule.Code = strings.ToUpper(rule.Code)
		registry.rules[rule.Code] = rule
	}
	return registry
}

// Lookup returns the rule for the code, if one is registered.
func (r *StaticCouponRegistry) Lookup(code string) (*CouponRule, bool) {
	rule, ok := r.rules[strings.ToUpper(code)]
	if !ok {
		return nil, false
	}
	return &rule, true
}

// CouponService evaluates coupon codes against a cart snapshot. Its only
// side effect is recording the applied coupon on the cart; the discount
// itself is pure arithmetic over the subtotal.
type CouponService struct {
	cartRepo repositories.CartRepository
	registry CouponRegistry
}

// NewCouponService creates a new CouponService.
func NewCouponService(cartRepo repositories.CartRepository, registry CouponRegistry) *CouponService {
	return &CouponService{
		cartRepo: cartRepo,
		registry: registry,
	}
}

// Apply evaluates the code against the shopper's cart and records it.
// Percentage coupons discount subtotal × rate/100; fixed coupons discount
// min(amount, subtotal), so the total can never go negative. Applying a new
// coupon while one is active replaces it — there is no stacking.
func (s *CouponService) Apply(shopperID, code string) (*models.Cart, models.CartTotals, error) {
	cart, err := s.cartRepo.GetByShopper(shopperID)
	if err != nil {
		// A shopper with no cart record has an empty cart.
		if errors.Is(err, repositories.ErrCartNotFound) {
			return nil, models.CartTotals{}, fmt.Errorf("shopper %s: %w", shopperID, models.ErrEmptyCart)
		}
		return nil, models.CartTotals{}, err
	}
	if len(cart.Lines) == 0 {
		return nil, models.CartTotals{}, fmt.Errorf("cannot apply coupon: %w", models.ErrEmptyCart)
	}

	rule, ok := s.registry.Lookup(code)
	if !ok {
		return nil, models.CartTotals{}, fmt.Errorf("code %q: %w", code, models.ErrInvalidCoupon)
	}

	subtotal := models.ComputeTotals(cart.Lines, nil).Subtotal
	var discount decimal.Decimal
	switch rule.Type {
	case models.DiscountPercentage:
		discount = subtotal.Mul(rule.Value).Div(decimal.NewFromInt(100))
	case models.DiscountFixed:
		discount = rule.Value
		if discount.GreaterThan(subtotal) {
			discount = subtotal // a fixed discount never exceeds the subtotal
		}
	default:
		return nil, models.CartTotals{}, fmt.Errorf("code %q has unknown discount type %q: %w", code, rule.Type, models.ErrInvalidCoupon)
	}

	cart.Coupon = &models.AppliedCoupon{
		Code:     strings.ToUpper(code),
		Discount: discount,
		Type:     rule.Type,
	}
	if err := s.cartRepo.Save(cart); err != nil {
		return nil, models.CartTotals{}, fmt.Errorf("failed to save applied coupon: %w", err)
	}
	return cart, models.ComputeTotals(cart.Lines, cart.Coupon), nil
}

// Remove clears the applied coupon. The recomputation rule brings the
// totals back automatically since the coupon discount becomes zero.
func (s *CouponService) Remove(shopperID string) (*models.Cart, models.CartTotals, error) {
	cart, err := s.cartRepo.GetByShopper(shopperID)
	if err != nil {
		// No cart record means no coupon to remove.
		if errors.Is(err, repositories.ErrCartNotFound) {
			return nil, models.CartTotals{}, fmt.Errorf("shopper %s: %w", shopperID, models.ErrNoCouponApplied)
		}
		return nil, models.CartTotals{}, err
	}
	if cart.Coupon == nil {
		return nil, models.CartTotals{}, models.ErrNoCouponApplied
	}

	cart.Coupon = nil
	if err := s.cartRepo.Save(cart); err != nil {
		return nil, models.CartTotals{}, fmt.Errorf("failed to save coupon removal: %w", err)
	}
	return cart, models.ComputeTotals(cart.Lines, cart.Coupon), nil
}
