package models

import "errors"

// Business errors returned by the catalog, pricing, cart, coupon and order
// services. They represent a rejected operation, not a system fault, so
// handlers map them to 4xx responses. Match with errors.Is; call sites wrap
// them with fmt.Errorf("...: %w", err) to add context.
var (
	ErrDuplicateVariant     = errors.New("variant with this combination already exists")
	ErrVariantNotFound      = errors.New("variant not found")
	ErrVariantUnavailable   = errors.New("variant is not available for purchase")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOutOfStock           = errors.New("product is out of stock")
	ErrQuantityExceedsLimit = errors.New("quantity exceeds the per-order limit")
	ErrLineNotFound         = errors.New("cart line not found")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidCoupon        = errors.New("invalid coupon code")
	ErrNoCouponApplied      = errors.New("no coupon applied to cart")
	ErrInvalidTransition    = errors.New("invalid order status transition")
)
