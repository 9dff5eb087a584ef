package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/pkg/rabbitmq"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderNotifier is the notification collaborator boundary. Failures here
// are logged and swallowed — a missed notification must never fail the
// order operation that triggered it.
type OrderNotifier interface {
	PublishOrderEvent(routingKey string, event rabbitmq.OrderEvent) error
}

// OrderService freezes carts into immutable order snapshots and walks them
// through the status state machine.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
	pricing     *PricingService
	notifier    OrderNotifier // may be nil when no broker is configured
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, cartRepo repositories.CartRepository,
	productRepo repositories.ProductRepository, pricing *PricingService, notifier OrderNotifier) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		pricing:     pricing,
		notifier:    notifier,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// GetOrdersByShopper retrieves one shopper's orders.
func (s *OrderService) GetOrdersByShopper(shopperID string) ([]models.Order, error) {
	return s.orderRepo.GetByShopper(shopperID)
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

// checkoutLine pairs an order line with the product it was resolved
// against, so the decrement loop and its compensation see the same state.
type checkoutLine struct {
	product *models.Product
	line    models.OrderLine
	cart    models.CartLine
}

// CreateFromCart freezes the shopper's cart into a new order. Every line's
// price is resolved at this moment — never the cart's captured copy — and
// stock is decremented per line through the atomic adjust primitive. If any
// line's decrement fails, all previously applied decrements are compensated
// with increments before the error is surfaced, and no partial order is
// persisted. On success the cart is emptied and an order.created event is
// published (publish failures are logged, never returned).
func (s *OrderService) CreateFromCart(shopperID string, shipping models.ShippingInfo, paymentMethod string) (*models.Order, error) {
	cart, err := s.cartRepo.GetByShopper(shopperID)
	if err != nil {
		if errors.Is(err, repositories.ErrCartNotFound) {
			return nil, fmt.Errorf("shopper %s: %w", shopperID, models.ErrEmptyCart)
		}
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, fmt.Errorf("shopper %s: %w", shopperID, models.ErrEmptyCart)
	}

	// Phase 1: resolve every line's current price before touching any stock
	// counter. A resolution failure here aborts with nothing to roll back.
	lines := make([]checkoutLine, 0, len(cart.Lines))
	freshLines := make([]models.CartLine, 0, len(cart.Lines))
	for _, cl := range cart.Lines {
		product, err := s.productRepo.GetByID(cl.ProductID)
		if err != nil {
			return nil, fmt.Errorf("checkout failed for product %s: %w", cl.ProductID, err)
		}
		quote, err := s.pricing.ResolvePrice(product, cl.Combination)
		if err != nil {
			return nil, fmt.Errorf("checkout failed for product %s: %w", cl.ProductID, err)
		}

		orderLine := models.OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Combination: cl.Combination,
			Quantity:    cl.Quantity,
			UnitPrice:   quote.Price,
			LineTotal:   quote.Price.Mul(decimal.NewFromInt(int64(cl.Quantity))),
		}
		if len(cl.Combination) > 0 {
			if variant := product.FindVariant(cl.Combination); variant != nil {
				orderLine.SKU = variant.SKU
			}
		}

		fresh := cl
		fresh.UnitPrice = quote.Price
		fresh.OriginalPrice = quote.Price
		if quote.ComparePrice != nil && quote.ComparePrice.GreaterThan(quote.Price) {
			fresh.OriginalPrice = *quote.ComparePrice
		}
		fresh.Discount = fresh.OriginalPrice.Sub(quote.Price)
		lines = append(lines, checkoutLine{product: product, line: orderLine, cart: cl})
		freshLines = append(freshLines, fresh)
	}

	// Phase 2: decrement stock line by line. There is no multi-record
	// transaction to lean on, so a failure partway triggers compensating
	// increments for everything already applied.
	applied := make([]checkoutLine, 0, len(lines))
	for _, l := range lines {
		if err := s.pricing.AdjustStock(l.product, l.cart.Combination, -l.cart.Quantity, l.product.AllowBackorders); err != nil {
			s.rollbackDecrements(applied)
			return nil, fmt.Errorf("checkout failed for product %s: %w", l.product.ID, err)
		}
		applied = append(applied, l)
	}

	totals := models.ComputeTotals(freshLines, cart.Coupon)
	order := &models.Order{
		ID:          uuid.New().String(),
		OrderNumber: generateOrderNumber(),
		ShopperID:   shopperID,
		Pricing: models.PricingBlock{
			Subtotal: totals.Subtotal,
			Discount: totals.TotalDiscount,
			Total:    totals.Total,
		},
		Coupon:   cart.Coupon,
		Shipping: shipping,
		Payment:  models.PaymentInfo{Method: paymentMethod, Status: "pending"},
		Status:   models.OrderPending,
		History: []models.StatusHistoryEntry{{
			Status:    models.OrderPending,
			Note:      "Order placed",
			Actor:     shopperID,
			Timestamp: time.Now(),
		}},
	}
	for _, l := range lines {
		order.Lines = append(order.Lines, l.line)
	}

	if err := s.orderRepo.Create(order); err != nil {
		s.rollbackDecrements(applied)
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}

	// The order is durable; empty the cart. A failure here only leaves a
	// stale cart behind, so it is logged rather than surfaced.
	cart.Lines = nil
	cart.Coupon = nil
	if err := s.cartRepo.Save(cart); err != nil {
		log.Printf("Warning: failed to clear cart for shopper %s after checkout: %v", shopperID, err)
	}

	s.notify("order.created", order.ID, order.Status)
	return order, nil
}

// rollbackDecrements compensates already-applied stock decrements after a
// mid-checkout failure. Increments are applied with the negative floor
// disabled so a compensation can never itself be rejected; a failed
// compensation is logged because there is nothing else left to do with it.
func (s *OrderService) rollbackDecrements(applied []checkoutLine) {
	for _, l := range applied {
		if err := s.pricing.AdjustStock(l.product, l.cart.Combination, l.cart.Quantity, true); err != nil {
			log.Printf("Warning: failed to roll back stock for product %s (combination %q, qty %d): %v",
				l.product.ID, l.cart.Combination.Key(), l.cart.Quantity, err)
		}
	}
}

// Transition moves the order to newStatus, appending an immutable history
// entry. It fails with models.ErrInvalidTransition — and appends nothing —
// if newStatus is not reachable from the current status. Cancelling an
// order that has not yet shipped releases its reserved stock.
func (s *OrderService) Transition(orderID string, newStatus models.OrderStatus, note, actor string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("cannot move order %s from %s to %s: %w",
			orderID, order.Status, newStatus, models.ErrInvalidTransition)
	}

	if newStatus == models.OrderCancelled && !order.Status.Shipped() {
		s.releaseStock(order)
	}

	entry := models.StatusHistoryEntry{
		Status:    newStatus,
		Note:      note,
		Actor:     actor,
		Timestamp: time.Now(),
	}
	if err := s.orderRepo.UpdateStatus(orderID, newStatus, entry); err != nil {
		return nil, fmt.Errorf("failed to update order status for order %s: %w", orderID, err)
	}

	s.notify("order.status_updated", orderID, newStatus)
	return s.orderRepo.GetByID(orderID)
}

// releaseStock returns an unshipped cancelled order's quantities to the
// catalog. The order must stay valid even if its products were changed or
// deleted since checkout, so a line that can no longer be restocked is
// logged and skipped, never an error.
func (s *OrderService) releaseStock(order *models.Order) {
	for _, line := range order.Lines {
		product, err := s.productRepo.GetByID(line.ProductID)
		if err != nil {
			log.Printf("Warning: cannot release stock for deleted product %s on order %s: %v",
				line.ProductID, order.ID, err)
			continue
		}
		if err := s.pricing.AdjustStock(product, line.Combination, line.Quantity, true); err != nil {
			log.Printf("Warning: failed to release stock for product %s on order %s: %v",
				line.ProductID, order.ID, err)
		}
	}
}

// notify publishes an order lifecycle event. The notification collaborator
// is best-effort by contract: failures are logged and swallowed.
func (s *OrderService) notify(routingKey, orderID string, status models.OrderStatus) {
	if s.notifier == nil {
		log.Println("Notifier is not configured. Skipping order event publication.")
		return
	}
	event := rabbitmq.OrderEvent{OrderID: orderID, NewStatus: string(status)}
	if err := s.notifier.PublishOrderEvent(routingKey, event); err != nil {
		log.Printf("Warning: failed to publish %s event for order %s: %v", routingKey, orderID, err)
	} else {
		log.Printf("Successfully published %s event for order %s", routingKey, orderID)
	}
}
