package handlers

import (
	"log"

	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the shopper's cart and coupons.
// The shopper identity always comes from the verified JWT claims placed in
// the context by the auth middleware.
type CartHandler struct {
	carts    *services.CartService
	coupons  *services.CouponService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *services.CartService, coupons *services.CouponService) *CartHandler {
	return &CartHandler{
		carts:    carts,
		coupons:  coupons,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/lines", h.HandleAddLine)
	cartRoutes.Put("/lines", h.HandleSetLineQuantity)
	cartRoutes.Delete("/lines", h.HandleRemoveLine)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/coupon", h.HandleApplyCoupon)
	cartRoutes.Delete("/coupon", h.HandleRemoveCoupon)
}

// shopperID extracts the verified shopper identity set by the auth
// middleware.
func shopperID(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals("user_id").(string)
	return id, ok && id != ""
}

func cartResponse(cart *models.Cart, totals models.CartTotals) fiber.Map {
	return fiber.Map{
		"cart":   cart,
		"totals": totals,
	}
}

// HandleGetCart returns the shopper's cart, creating an empty one on first
// access.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	cart, err := h.carts.GetOrCreate(shopper)
	if err != nil {
		log.Printf("Error getting cart for shopper %s: %v", shopper, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(cartResponse(cart, h.carts.Totals(cart)))
}

// addLineRequest is the request body for adding a selection to the cart.
type addLineRequest struct {
	ProductID string             `json:"product_id" validate:"required"`
	Quantity  int                `json:"quantity" validate:"required,gte=1"`
	Options   models.Combination `json:"options,omitempty"`
}

// HandleAddLine adds a (product, variant, quantity) selection to the cart.
func (h *CartHandler) HandleAddLine(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	var req addLineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	cart, totals, err := h.carts.AddLine(shopper, req.ProductID, req.Quantity, req.Options)
	if err != nil {
		log.Printf("Error adding line for shopper %s: %v", shopper, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Could not add item to cart",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not add item to cart",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(cartResponse(cart, totals))
}

// setQuantityRequest is the request body for replacing a line's quantity.
// Quantity 0 removes the line.
type setQuantityRequest struct {
	ProductID string             `json:"product_id" validate:"required"`
	Quantity  int                `json:"quantity" validate:"gte=0"`
	Options   models.Combination `json:"options,omitempty"`
}

// HandleSetLineQuantity replaces an existing line's quantity.
func (h *CartHandler) HandleSetLineQuantity(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	var req setQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	cart, totals, err := h.carts.SetLineQuantity(shopper, req.ProductID, req.Options, req.Quantity)
	if err != nil {
		log.Printf("Error setting quantity for shopper %s: %v", shopper, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Could not update cart line",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update cart line",
			"error":   err.Error(),
		})
	}
	return c.JSON(cartResponse(cart, totals))
}

// removeLineRequest identifies the line to drop.
type removeLineRequest struct {
	ProductID string             `json:"product_id" validate:"required"`
	Options   models.Combination `json:"options,omitempty"`
}

// HandleRemoveLine removes one line from the cart.
func (h *CartHandler) HandleRemoveLine(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	var req removeLineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	cart, totals, err := h.carts.RemoveLine(shopper, req.ProductID, req.Options)
	if err != nil {
		log.Printf("Error removing line for shopper %s: %v", shopper, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Could not remove cart line",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not remove cart line",
			"error":   err.Error(),
		})
	}
	return c.JSON(cartResponse(cart, totals))
}

// HandleClearCart empties the cart and drops any applied coupon.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	cart, totals, err := h.carts.Clear(shopper)
	if err != nil {
		log.Printf("Error clearing cart for shopper %s: %v", shopper, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not clear cart",
			"error":   err.Error(),
		})
	}
	return c.JSON(cartResponse(cart, totals))
}

// applyCouponRequest carries the coupon code to evaluate.
type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// HandleApplyCoupon applies a coupon code to the cart. Applying a new code
// while one is active replaces it.
func (h *CartHandler) HandleApplyCoupon(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	var req applyCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}

	cart, totals, err := h.coupons.Apply(shopper, req.Code)
	if err != nil {
		log.Printf("Error applying coupon for shopper %s: %v", shopper, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Could not apply coupon",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not apply coupon",
			"error":   err.Error(),
		})
	}
	return c.JSON(cartResponse(cart, totals))
}

// HandleRemoveCoupon clears the applied coupon.
func (h *CartHandler) HandleRemoveCoupon(c *fiber.Ctx) error {
	shopper, ok := shopperID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Missing shopper identity",
		})
	}

	cart, totals, err := h.coupons.Remove(shopper)
	if err != nil {
		log.Printf("Error removing coupon for shopper %s: %v", shopper, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Could not remove coupon",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not remove coupon",
			"error":   err.Error(),
		})
	}
	return c.JSON(cartResponse(cart, totals))
}
