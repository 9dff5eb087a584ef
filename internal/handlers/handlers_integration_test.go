package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"bazaar/internal/handlers"
	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp() (*fiber.App, *services.AuthService, error) {
	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	err = db.AutoMigrate(&models.Product{}, &models.Cart{}, &models.Order{}, &models.User{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	catalogService := services.NewCatalogService(productRepo)
	pricingService := services.NewPricingService(productRepo)
	cartService := services.NewCartService(cartRepo, productRepo, pricingService)
	couponRegistry := services.NewStaticCouponRegistry(
		services.CouponRule{Code: "WELCOME10", Type: models.DiscountPercentage, Value: decimal.NewFromInt(10)},
		services.CouponRule{Code: "FLAT50", Type: models.DiscountFixed, Value: decimal.NewFromInt(50)},
	)
	couponService := services.NewCouponService(cartRepo, couponRegistry)
	orderService := services.NewOrderService(orderRepo, cartRepo, productRepo, pricingService, nil) // no broker in tests
	authService := services.NewAuthService(userRepo, jwtSecret)

	catalogHandler := handlers.NewCatalogHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService, couponService)
	orderHandler := handlers.NewOrderHandler(orderService)
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()

	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1)

	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	catalogHandler.RegisterRoutes(protectedRoutes)
	cartHandler.RegisterRoutes(protectedRoutes)
	orderHandler.RegisterRoutes(protectedRoutes)

	return app, authService, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// doJSON fires a JSON request at the app and returns the response.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// registerAndLogin creates a user through the public auth routes and returns
// a bearer token for the protected ones.
func registerAndLogin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]string
	decodeBody(t, resp, &loginResp)
	require.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

// cartEnvelope mirrors the cart handlers' response shape.
type cartEnvelope struct {
	Cart   models.Cart       `json:"cart"`
	Totals models.CartTotals `json:"totals"`
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, authService, err := setupApp()
	require.NoError(t, err)

	userToRegister := map[string]string{
		"username": "authflow",
		"email":    "authflow@example.com",
		"password": "password123",
	}
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate registration (same username)
	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", userToRegister)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "authflow",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]string
	decodeBody(t, resp, &loginResp)
	assert.NotEmpty(t, loginResp["token"])

	claims, err := authService.ValidateToken(loginResp["token"])
	assert.NoError(t, err)
	assert.Equal(t, "authflow", claims["username"])
	assert.Contains(t, claims, "user_id")
	assert.Equal(t, models.RoleShopper, claims["role"])
}

func TestStorefrontFlow(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)
	token := registerAndLogin(t, app, "storefront")

	// --- Create a product with one option axis ---
	resp := doJSON(t, app, http.MethodPost, "/api/v1/products", token, map[string]interface{}{
		"name":            "Canvas Backpack",
		"description":     "Daypack in two colors",
		"base_price":      1500,
		"stock_quantity":  50,
		"track_inventory": true,
		"option_axes":     []string{"color"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var product models.Product
	decodeBody(t, resp, &product)
	require.NotEmpty(t, product.ID)

	// --- Register a variant ---
	redOptions := []map[string]string{{"type": "color", "name": "Red", "value": "red"}}
	resp = doJSON(t, app, http.MethodPost, "/api/v1/products/"+product.ID+"/variants", token, map[string]interface{}{
		"options":        redOptions,
		"price":          1800,
		"stock_quantity": 10,
		"sku":            "CB-RED",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Registering the same combination again is a conflict.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/products/"+product.ID+"/variants", token, map[string]interface{}{
		"options": redOptions,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// --- Look the variant up by its options ---
	selection := []map[string]string{{"type": "color", "value": "red"}}
	resp = doJSON(t, app, http.MethodPost, "/api/v1/products/"+product.ID+"/variants/find", token, map[string]interface{}{
		"combination": selection,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var variant models.Variant
	decodeBody(t, resp, &variant)
	assert.Equal(t, "CB-RED", variant.SKU)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+product.ID+"/combinations", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var combos struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &combos)
	assert.Equal(t, 1, combos.Count)

	// --- Add the variant to the cart ---
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/lines", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   2,
		"options":    selection,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var envelope cartEnvelope
	decodeBody(t, resp, &envelope)
	require.Len(t, envelope.Cart.Lines, 1)
	assert.True(t, envelope.Totals.Subtotal.Equal(decimal.NewFromInt(3600)), "2 × 1800, got %s", envelope.Totals.Subtotal)

	// Adding the same selection again merges into the existing line.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/lines", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   1,
		"options":    selection,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decodeBody(t, resp, &envelope)
	require.Len(t, envelope.Cart.Lines, 1)
	assert.Equal(t, 3, envelope.Cart.Lines[0].Quantity)

	// Removing a line that was never added is a 404, not a server fault.
	resp = doJSON(t, app, http.MethodDelete, "/api/v1/cart/lines", token, map[string]interface{}{
		"product_id": "not-in-cart",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Asking for more than the variant has in stock is rejected.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/lines", token, map[string]interface{}{
		"product_id": product.ID,
		"quantity":   20,
		"options":    selection,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// --- Apply a percentage coupon, case-insensitively ---
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/coupon", token, map[string]string{"code": "welcome10"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &envelope)
	require.NotNil(t, envelope.Cart.Coupon)
	assert.Equal(t, "WELCOME10", envelope.Cart.Coupon.Code)
	// 10% of 5400
	assert.True(t, envelope.Totals.Total.Equal(decimal.NewFromInt(4860)), "got %s", envelope.Totals.Total)

	// An unknown code is rejected without touching the applied coupon.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/coupon", token, map[string]string{"code": "BOGUS"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// --- Checkout ---
	resp = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", token, map[string]interface{}{
		"shipping": map[string]string{
			"name":        "Ama Mensah",
			"address":     "14 Harbour Road",
			"city":        "Accra",
			"postal_code": "GA-145",
			"country":     "GH",
		},
		"payment_method": "card",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var order models.Order
	decodeBody(t, resp, &order)
	require.NotEmpty(t, order.ID)
	assert.Equal(t, models.OrderPending, order.Status)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "CB-RED", order.Lines[0].SKU)
	assert.True(t, order.Pricing.Total.Equal(decimal.NewFromInt(4860)), "got %s", order.Pricing.Total)

	// The cart is empty after checkout, coupon gone.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/cart", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var emptied cartEnvelope
	decodeBody(t, resp, &emptied)
	assert.Empty(t, emptied.Cart.Lines)
	assert.Nil(t, emptied.Cart.Coupon)

	// Checkout consumed stock: 10 − 3 on the red variant.
	resp = doJSON(t, app, http.MethodPost, "/api/v1/products/"+product.ID+"/variants/find", token, map[string]interface{}{
		"combination": selection,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &variant)
	assert.Equal(t, 7, variant.StockQuantity)

	// --- Walk the order forward ---
	resp = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status", token, map[string]string{
		"status": "confirmed",
		"note":   "payment captured",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &order)
	assert.Equal(t, models.OrderConfirmed, order.Status)
	assert.Len(t, order.History, 2)

	// Jumping straight to delivered is not a legal move.
	resp = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status", token, map[string]string{
		"status": "delivered",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	// History survives the database round-trip and only ever grows; the
	// earlier entries come back untouched.
	resp = doJSON(t, app, http.MethodPatch, "/api/v1/orders/"+order.ID+"/status", token, map[string]string{
		"status": "processing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &order)
	assert.Equal(t, models.OrderProcessing, order.Status)
	require.Len(t, order.History, 3)
	assert.Equal(t, models.OrderPending, order.History[0].Status)
	assert.Equal(t, "payment captured", order.History[1].Note)
	assert.Equal(t, models.OrderProcessing, order.History[2].Status)

	// --- Shopper sees their order ---
	resp = doJSON(t, app, http.MethodGet, "/api/v1/orders", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var orders []models.Order
	decodeBody(t, resp, &orders)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestCheckoutWithEmptyCart(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)
	token := registerAndLogin(t, app, "emptycart")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", token, map[string]interface{}{
		"shipping": map[string]string{
			"name":        "Ama Mensah",
			"address":     "14 Harbour Road",
			"city":        "Accra",
			"postal_code": "GA-145",
			"country":     "GH",
		},
		"payment_method": "card",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestCartEndpointsWithoutAuth(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, "/api/v1/cart/lines", "", map[string]interface{}{
		"product_id": "prod-1",
		"quantity":   1,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
