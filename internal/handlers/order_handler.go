package handlers

import (
	"fmt"
	"log"

	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for checkout and order lifecycle.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/checkout", h.HandleCheckout)
	// Status transitions, e.g. confirm/ship/cancel. Managed by vendor or
	// admin roles in a fuller deployment; the state machine itself guards
	// which moves are legal.
	orderRoutes.Patch("/:id/status", h.HandleTransition)
}

// HandleGetOrders retrieves the authenticated shopper's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	orders, err := h.service.GetOrdersByShopper(shopper)
	if err != nil {
		log.Printf("Error getting orders for shopper %s: %v", shopper, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrderByID(orderID)
	if err != nil {
		log.Printf("Error getting order by ID %s: %v", orderID, err)
		if err.Error() == fmt.Sprintf("order with ID %s not found", orderID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Order with ID %s not found", orderID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve order",
			"error":   err.Error(),
		})
	}
	return c.JSON(order)
}

// checkoutRequest carries the shipping details and payment method for
// freezing the cart into an order.
type checkoutRequest struct {
	Shipping      models.ShippingInfo `json:"shipping" validate:"required"`
	PaymentMethod string              `json:"payment_method" validate:"required"`
}

// HandleCheckout freezes the shopper's cart into a new order.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	order, err := h.service.CreateFromCart(shopper, req.Shipping, req.PaymentMethod)
	if err != nil {
		log.Printf("Error creating order for shopper %s: %v", shopper, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Checkout rejected",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create order",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// transitionRequest carries the target status and an optional note.
type transitionRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
	Note   string             `json:"note,omitempty"`
}

// HandleTransition moves an order through its status state machine.
func (h *OrderHandler) HandleTransition(c *fiber.Ctx) error {
	orderID := c.Params("id")
	actor, _ := c.Locals("user_id").(string)

	var req transitionRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing transition request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if req.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Status is required for order status update.",
		})
	}

	order, err := h.service.Transition(orderID, req.Status, req.Note, actor)
	if err != nil {
		log.Printf("Error transitioning order %s to %s: %v", orderID, req.Status, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": fmt.Sprintf("Order %s cannot move to %s", orderID, req.Status),
				"error":   err.Error(),
			})
		}
		if err.Error() == fmt.Sprintf("order with ID %s not found", orderID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Order with ID %s not found", orderID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update order status",
			"error":   err.Error(),
		})
	}
	return c.JSON(order)
}
