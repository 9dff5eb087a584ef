package handlers

import (
	"fmt"
	"log"

	"bazaar/internal/models"
	"bazaar/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles HTTP requests for products and their variants.
type CatalogHandler struct {
	service  *services.CatalogService
	validate *validator.Validate
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)

	// Variant management. Combinations are structured (lists of
	// type/value pairs), so they travel in request bodies, not the path.
	productRoutes.Post("/:id/variants", h.HandleAddVariant)
	productRoutes.Patch("/:id/variants", h.HandleUpdateVariant)
	productRoutes.Delete("/:id/variants", h.HandleRemoveVariant)
	productRoutes.Post("/:id/variants/find", h.HandleFindVariant)
	productRoutes.Get("/:id/combinations", h.HandleGenerateCombinations)
}

// HandleGetProducts retrieves all products.
func (h *CatalogHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		log.Printf("Error getting all products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve products",
			"error":   err.Error(),
		})
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *CatalogHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID := c.Params("id")
	product, err := h.service.GetProductByID(productID)
	if err != nil {
		log.Printf("Error getting product by ID %s: %v", productID, err)
		if err.Error() == fmt.Sprintf("product with ID %s not found", productID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Product with ID %s not found", productID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve product",
			"error":   err.Error(),
		})
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a new product.
func (h *CatalogHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		log.Printf("Error parsing product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(product); err != nil {
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

	if vendorID, ok := c.Locals("user_id").(string); ok {
		product.VendorID = vendorID
	}

	if err := h.service.CreateProduct(&product); err != nil {
		log.Printf("Error creating product: %v", err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Product creation rejected",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create product",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct updates an existing product.
func (h *CatalogHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	product.ID = c.Params("id")

	if err := h.service.UpdateProduct(&product); err != nil {
		log.Printf("Error updating product %s: %v", product.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update product",
			"error":   err.Error(),
		})
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product by its ID.
func (h *CatalogHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	if err := h.service.DeleteProduct(productID); err != nil {
		log.Printf("Error deleting product %s: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete product",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %s deleted successfully", productID),
	})
}

// HandleAddVariant registers a new variant on a product.
func (h *CatalogHandler) HandleAddVariant(c *fiber.Ctx) error {
	productID := c.Params("id")
	var input services.VariantInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(input); err != nil {
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

	variant, err := h.service.AddVariant(productID, input)
	if err != nil {
		log.Printf("Error adding variant to product %s: %v", productID, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Variant creation rejected",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not add variant",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(variant)
}

// variantUpdateRequest identifies a variant by its combination and carries
// the partial update to merge onto it.
type variantUpdateRequest struct {
	Combination models.Combination    `json:"combination" validate:"required,min=1,dive"`
	Patch       services.VariantPatch `json:"patch"`
}

// HandleUpdateVariant merges a patch onto an existing variant.
func (h *CatalogHandler) HandleUpdateVariant(c *fiber.Ctx) error {
	productID := c.Params("id")
	var req variantUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	variant, err := h.service.UpdateVariant(productID, req.Combination, req.Patch)
	if err != nil {
		log.Printf("Error updating variant on product %s: %v", productID, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Variant update rejected",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update variant",
			"error":   err.Error(),
		})
	}
	return c.JSON(variant)
}

// variantSelectRequest identifies a variant by combination or option list.
type variantSelectRequest struct {
	Combination models.Combination `json:"combination" validate:"required,min=1,dive"`
}

// HandleRemoveVariant deletes a variant. Live cart lines referencing it are
// not cascade-deleted; the resolver treats the combination as unavailable
// from then on.
func (h *CatalogHandler) HandleRemoveVariant(c *fiber.Ctx) error {
	productID := c.Params("id")
	var req variantSelectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.service.RemoveVariant(productID, req.Combination); err != nil {
		log.Printf("Error removing variant on product %s: %v", productID, err)
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Variant removal rejected",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not remove variant",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Variant removed successfully",
	})
}

// HandleFindVariant looks a variant up by its options. The match is
// order-independent by default; ?exact=true requires the combination in the
// product's declared axis order.
func (h *CatalogHandler) HandleFindVariant(c *fiber.Ctx) error {
	productID := c.Params("id")
	var req variantSelectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	var (
		variant *models.Variant
		err     error
	)
	if c.QueryBool("exact") {
		variant, err = h.service.FindByCombination(productID, req.Combination)
	} else {
		variant, err = h.service.FindByOptions(productID, req.Combination)
	}
	if err != nil {
		if businessError(err) {
			return c.Status(statusForBusinessError(err)).JSON(fiber.Map{
				"message": "Variant not found",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not look up variant",
			"error":   err.Error(),
		})
	}
	return c.JSON(variant)
}

// HandleGenerateCombinations enumerates the theoretical Cartesian product
// of the product's registered option values, for admin tooling.
func (h *CatalogHandler) HandleGenerateCombinations(c *fiber.Ctx) error {
	productID := c.Params("id")
	combinations, err := h.service.GenerateAllCombinations(productID)
	if err != nil {
		log.Printf("Error generating combinations for product %s: %v", productID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not generate combinations",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"combinations": combinations,
		"count":        len(combinations),
	})
}
