package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DiscountType distinguishes how a coupon's value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// AppliedCoupon records the coupon currently applied to a cart: its
// upper-cased code, the discount amount computed against the subtotal at
// application time, and the discount type. Only one coupon may be active at
// a time; applying another replaces it.
type AppliedCoupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
	Type     DiscountType    `json:"type"`
}

// CartLine is one (product, optional variant, quantity) entry in a cart.
// UnitPrice, OriginalPrice and Discount are captured from the resolver on
// every mutation — never trusted across mutations — so a vendor price change
// is reflected before checkout.
type CartLine struct {
	ProductID     string          `json:"product_id"`
	Combination   Combination     `json:"combination,omitempty"` // empty for the base product
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Discount      decimal.Decimal `json:"discount"` // per-unit, already reflected in UnitPrice
}

// Matches reports whether the line references the given (product, variant)
// pair. A cart never holds two lines with the same pair.
func (l CartLine) Matches(productID string, combination Combination) bool {
	return l.ProductID == productID && l.Combination.EqualAsSet(combination)
}

// Cart is a shopper's working selection. One cart per shopper, created
// lazily on first mutation, never deleted, only emptied.
type Cart struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ShopperID  string         `json:"shopper_id" gorm:"uniqueIndex;type:varchar(36)"`
	Lines      []CartLine     `json:"lines" gorm:"serializer:json"`
	Coupon     *AppliedCoupon `json:"coupon,omitempty" gorm:"serializer:json"`
	gorm.Model `json:"-"`
}

// CartTotals is the derived aggregate block of a cart. It is never stored
// independently of the line items; a corrupted aggregate can always be
// repaired by replaying the lines through ComputeTotals.
type CartTotals struct {
	TotalItems    int             `json:"total_items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	Total         decimal.Decimal `json:"total"`
}

// ComputeTotals derives the aggregate block from the line list and the
// applied coupon. This is the single source of the recomputation rule:
//
//	subtotal      = Σ(unitPrice × quantity)
//	totalDiscount = Σ(perLineDiscount × quantity) + couponDiscount
//	total         = subtotal − couponDiscount
//
// The coupon discount is clamped to the subtotal so the total can never go
// negative, even if lines were removed after the coupon was applied.
func ComputeTotals(lines []CartLine, coupon *AppliedCoupon) CartTotals {
	totals := CartTotals{
		Subtotal:      decimal.Zero,
		TotalDiscount: decimal.Zero,
		Total:         decimal.Zero,
	}

	for _, line := range lines {
		qty := decimal.NewFromInt(int64(line.Quantity))
		totals.TotalItems += line.Quantity
		totals.Subtotal = totals.Subtotal.Add(line.UnitPrice.Mul(qty))
		totals.TotalDiscount = totals.TotalDiscount.Add(line.Discount.Mul(qty))
	}

	couponDiscount := decimal.Zero
	if coupon != nil {
		couponDiscount = coupon.Discount
		if couponDiscount.GreaterThan(totals.Subtotal) {
			couponDiscount = totals.Subtotal
		}
	}

	totals.TotalDiscount = totals.TotalDiscount.Add(couponDiscount)
	totals.Total = totals.Subtotal.Sub(couponDiscount)
	return totals
}
