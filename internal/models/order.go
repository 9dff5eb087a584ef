package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is an order's position in its lifecycle state machine.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderProcessing     OrderStatus = "processing"
	OrderShipped        OrderStatus = "shipped"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
	OrderReturned       OrderStatus = "returned"
	OrderRefunded       OrderStatus = "refunded"
)

// orderTransitions is the full transition table. Cancellation is reachable
// from any state prior to shipping; returns and refunds only after delivery.
// Terminal states (cancelled, returned, refunded) have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderConfirmed, OrderCancelled},
	OrderConfirmed:      {OrderProcessing, OrderCancelled},
	OrderProcessing:     {OrderShipped, OrderCancelled},
	OrderShipped:        {OrderOutForDelivery},
	OrderOutForDelivery: {OrderDelivered},
	OrderDelivered:      {OrderReturned, OrderRefunded},
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Shipped reports whether the order has left the warehouse; cancellation
// past this point no longer releases stock.
func (s OrderStatus) Shipped() bool {
	switch s {
	case OrderShipped, OrderOutForDelivery, OrderDelivered, OrderReturned, OrderRefunded:
		return true
	}
	return false
}

// StatusHistoryEntry is one append-only record of a status change.
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderLine is a frozen copy of a cart line at the moment of purchase,
// with the price resolved at checkout, not the cart's captured one.
type OrderLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Combination Combination     `json:"combination,omitempty"`
	SKU         string          `json:"sku,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PricingBlock is the frozen aggregate of an order.
type PricingBlock struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// ShippingInfo is the delivery address captured at checkout.
type ShippingInfo struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Phone      string `json:"phone"`
}

// PaymentInfo records how the order is paid.
type PaymentInfo struct {
	Method string `json:"method"`
	Status string `json:"status"`
}

// Order is an immutable snapshot created at checkout. It never
// back-references the cart it was built from and stays valid even if the
// source product or variant is later changed or deleted. Only Status and
// History change after creation, and History is append-only.
type Order struct {
	ID          string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderNumber string               `json:"order_number" gorm:"uniqueIndex;type:varchar(40)"`
	ShopperID   string               `json:"shopper_id" gorm:"index;type:varchar(36)"`
	Lines       []OrderLine          `json:"lines" gorm:"serializer:json"`
	Pricing     PricingBlock         `json:"pricing" gorm:"serializer:json"`
	Coupon      *AppliedCoupon       `json:"coupon,omitempty" gorm:"serializer:json"`
	Shipping    ShippingInfo         `json:"shipping" gorm:"serializer:json"`
	Payment     PaymentInfo          `json:"payment" gorm:"serializer:json"`
	Status      OrderStatus          `json:"status" gorm:"type:varchar(20)"`
	History     []StatusHistoryEntry `json:"history" gorm:"serializer:json"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}
