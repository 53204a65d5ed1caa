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

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"sweetshop/internal/handlers"
	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
	"sweetshop/internal/services"
)

// setupApp boots a Fiber app over a fresh in-memory SQLite database with the
// same route wiring as main.go.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	// A uniquely named shared-cache database keeps the schema visible
	// across pooled connections while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Sweet{})
	assert.NoError(t, err)

	userRepo := repositories.NewGORMUserRepository(db)
	sweetRepo := repositories.NewGORMSweetRepository(db)

	authService := services.NewAuthService(userRepo, "test_jwt_secret")
	sweetService := services.NewSweetService(sweetRepo, nil) // no RabbitMQ in tests

	authHandler := handlers.NewAuthHandler(authService)
	sweetHandler := handlers.NewSweetHandler(sweetService)

	app := fiber.New()
	api := app.Group("/api")

	authHandler.RegisterRoutes(api)
	sweetHandler.RegisterPublicRoutes(api)

	protected := api.Group("", middleware.AuthRequired(authService))
	sweetHandler.RegisterProtectedRoutes(protected)

	return app
}

// doRequest performs a JSON request against the test app. token may be empty.
func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// registerUser creates an account through the API and returns its token.
func registerUser(t *testing.T, app *fiber.App, email, password string, role models.Role) string {
	t.Helper()

	payload := map[string]interface{}{"email": email, "password": password}
	if role != "" {
		payload["role"] = role
	}
	resp := doRequest(t, app, http.MethodPost, "/api/auth/register", payload, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.Token)
	return body.Token
}

// createSweet creates a sweet as admin and returns it.
func createSweet(t *testing.T, app *fiber.App, adminToken string, payload map[string]interface{}) models.Sweet {
	t.Helper()

	resp := doRequest(t, app, http.MethodPost, "/api/sweets", payload, adminToken)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var sweet models.Sweet
	decodeBody(t, resp, &sweet)
	assert.NotEmpty(t, sweet.ID)
	return sweet
}

func TestMain(m *testing.M) {
	// Suppress handler logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	// Register
	resp := doRequest(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var registered struct {
		User  map[string]interface{} `json:"user"`
		Token string                 `json:"token"`
	}
	decodeBody(t, resp, &registered)
	assert.Equal(t, "alice@example.com", registered.User["email"])
	assert.Equal(t, "user", registered.User["role"])
	assert.NotContains(t, registered.User, "password")
	assert.NotEmpty(t, registered.Token)

	// Registering the same email again fails, case-insensitively.
	resp = doRequest(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"email":    "ALICE@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Login
	resp = doRequest(t, app, http.MethodPost, "/api/auth/login", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var loggedIn struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &loggedIn)
	assert.NotEmpty(t, loggedIn.Token)

	// Wrong password and unknown email both come back as a plain 401.
	resp = doRequest(t, app, http.MethodPost, "/api/auth/login", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "wrongpassword",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/login", map[string]interface{}{
		"email":    "nobody@example.com",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	app := setupApp(t)

	resp := doRequest(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"email":    "not-an-email",
		"password": "password123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"email":    "short@example.com",
		"password": "123",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"email":    "badrole@example.com",
		"password": "password123",
		"role":     "superuser",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminGatesOnMutations(t *testing.T) {
	app := setupApp(t)
	adminToken := registerUser(t, app, "admin@example.com", "password123", models.RoleAdmin)
	userToken := registerUser(t, app, "user@example.com", "password123", "")

	sweet := createSweet(t, app, adminToken, map[string]interface{}{
		"name": "Gelato", "category": "ice_cream", "price": 7.99, "quantity": 5,
	})

	// Without a token every mutation is a 401.
	resp := doRequest(t, app, http.MethodPost, "/api/sweets", map[string]interface{}{
		"name": "Cookie", "category": "cookie", "price": 2.49,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/sweets/"+sweet.ID+"/purchase", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A valid non-admin token gets 403 on admin-only routes.
	resp = doRequest(t, app, http.MethodPost, "/api/sweets", map[string]interface{}{
		"name": "Cookie", "category": "cookie", "price": 2.49,
	}, userToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPut, "/api/sweets/"+sweet.ID, map[string]interface{}{
		"price": 1.00,
	}, userToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodDelete, "/api/sweets/"+sweet.ID, nil, userToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, "/api/sweets/"+sweet.ID+"/restock", map[string]interface{}{
		"amount": 10,
	}, userToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// But purchase only needs authentication.
	resp = doRequest(t, app, http.MethodPost, "/api/sweets/"+sweet.ID+"/purchase", nil, userToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateUpdateDeleteSweet(t *testing.T) {
	app := setupApp(t)
	adminToken := registerUser(t, app, "admin@example.com", "password123", models.RoleAdmin)

	sweet := createSweet(t, app, adminToken, map[string]interface{}{
		"name":        "Salted Caramel Bonbon",
		"category":    "chocolate",
		"price":       15.99,
		"quantity":    35,
		"description": "Salted caramel in milk chocolate",
	})
	assert.NotEmpty(t, sweet.AdminID, "adminId comes from the creator's token")

	// Partial update touches only the supplied fields; an adminId in the
	// payload is ignored.
	resp := doRequest(t, app, http.MethodPut, "/api/sweets/"+sweet.ID, map[string]interface{}{
		"price":   14.49,
		"adminId": "someone-else",
	}, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Sweet
	decodeBody(t, resp, &updated)
	assert.Equal(t, 14.49, updated.Price)
	assert.Equal(t, sweet.Name, updated.Name)
	assert.Equal(t, sweet.Quantity, updated.Quantity)
	assert.Equal(t, sweet.AdminID, updated.AdminID)

	// Validation failures are a 400.
	resp = doRequest(t, app, http.MethodPut, "/api/sweets/"+sweet.ID, map[string]interface{}{
		"price": -1.0,
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Updating an unknown id is a 404.
	resp = doRequest(t, app, http.MethodPut, "/api/sweets/"+uuid.New().String(), map[string]interface{}{
		"price": 1.0,
	}, adminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Delete, then the record is gone.
	resp = doRequest(t, app, http.MethodDelete, "/api/sweets/"+sweet.ID, nil, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var deleted struct {
		Message string `json:"message"`
	}
	decodeBody(t, resp, &deleted)
	assert.Equal(t, "Sweet deleted successfully", deleted.Message)

	resp = doRequest(t, app, http.MethodDelete, "/api/sweets/"+sweet.ID, nil, adminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateSweetValidation(t *testing.T) {
	app := setupApp(t)
	adminToken := registerUser(t, app, "admin@example.com", "password123", models.RoleAdmin)

	// Missing price.
	resp := doRequest(t, app, http.MethodPost, "/api/sweets", map[string]interface{}{
		"name": "Cookie", "category": "cookie",
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Malformed image URL.
	resp = doRequest(t, app, http.MethodPost, "/api/sweets", map[string]interface{}{
		"name": "Cookie", "category": "cookie", "price": 2.49, "imageUrl": "not a url",
	}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Quantity defaults to zero when absent.
	sweet := createSweet(t, app, adminToken, map[string]interface{}{
		"name": "Cookie", "category": "cookie", "price": 2.49,
	})
	assert.Equal(t, 0, sweet.Quantity)
}

func TestPurchaseUntilOutOfStock(t *testing.T) {
	app := setupApp(t)
	adminToken := registerUser(t, app, "admin@example.com", "password123", models.RoleAdmin)
	userToken := registerUser(t, app, "user@example.com", "password123", "")

	sweet := createSweet(t, app, adminToken, map[string]interface{}{
		"name": "Truffle", "category": "chocolate", "price": 5.00, "quantity": 2,
	})

	purchaseURL := "/api/sweets/" + sweet.ID + "/purchase"

	resp := doRequest(t, app, http.MethodPost, purchaseURL, nil, userToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var after models.Sweet
	decodeBody(t, resp, &after)
	assert.Equal(t, 1, after.Quantity)

	resp = doRequest(t, app, http.MethodPost, purchaseURL, nil, userToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &after)
	assert.Equal(t, 0, after.Quantity)

	// Third purchase refuses with out-of-stock; quantity stays at zero.
	resp = doRequest(t, app, http.MethodPost, purchaseURL, nil, userToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodGet, "/api/sweets", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var sweets []models.Sweet
	decodeBody(t, resp, &sweets)
	assert.Len(t, sweets, 1)
	assert.Equal(t, 0, sweets[0].Quantity)

	// Unknown id is a 404, distinct from out-of-stock.
	resp = doRequest(t, app, http.MethodPost, "/api/sweets/"+uuid.New().String()+"/purchase", nil, userToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRestock(t *testing.T) {
	app := setupApp(t)
	adminToken := registerUser(t, app, "admin@example.com", "password123", models.RoleAdmin)

	sweet := createSweet(t, app, adminToken, map[string]interface{}{
		"name": "Croissant", "category": "pastry", "price": 4.99, "quantity": 0,
	})

	restockURL := "/api/sweets/" + sweet.ID + "/restock"

	resp := doRequest(t, app, http.MethodPost, restockURL, map[string]interface{}{"amount": 10}, adminToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var restocked models.Sweet
	decodeBody(t, resp, &restocked)
	assert.Equal(t, 10, restocked.Quantity)

	// Non-positive and missing amounts are rejected.
	resp = doRequest(t, app, http.MethodPost, restockURL, map[string]interface{}{"amount": 0}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, restockURL, map[string]interface{}{"amount": -5}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, http.MethodPost, restockURL, map[string]interface{}{}, adminToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown id is a 404.
	resp = doRequest(t, app, http.MethodPost, "/api/sweets/"+uuid.New().String()+"/restock",
		map[string]interface{}{"amount": 10}, adminToken)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchSweets(t *testing.T) {
	app := setupApp(t)
	adminToken := registerUser(t, app, "admin@example.com", "password123", models.RoleAdmin)

	createSweet(t, app, adminToken, map[string]interface{}{
		"name": "Dark Chocolate Truffle", "category": "chocolate", "price": 12.99, "quantity": 50,
	})
	createSweet(t, app, adminToken, map[string]interface{}{
		"name": "Red Velvet Cupcake", "category": "cake", "price": 6.99, "quantity": 30,
	})
	createSweet(t, app, adminToken, map[string]interface{}{
		"name": "Strawberry Cheesecake", "category": "cake", "price": 8.99, "quantity": 20,
	})

	search := func(query string) []models.Sweet {
		resp := doRequest(t, app, http.MethodGet, "/api/sweets/search?"+query, nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var sweets []models.Sweet
		decodeBody(t, resp, &sweets)
		return sweets
	}

	// No filters behaves like the full listing.
	assert.Len(t, search(""), 3)

	// Name is a case-insensitive substring match.
	results := search("name=truffle")
	assert.Len(t, results, 1)
	assert.Equal(t, "Dark Chocolate Truffle", results[0].Name)

	// Category is exact.
	results = search("category=cake")
	assert.Len(t, results, 2)
	for _, s := range results {
		assert.Equal(t, "cake", s.Category)
	}
	assert.Empty(t, search("category=cak"))

	// Price bounds are inclusive and AND with category.
	results = search("category=cake&minPrice=7.00")
	assert.Len(t, results, 1)
	assert.Equal(t, "Strawberry Cheesecake", results[0].Name)

	results = search("minPrice=6.99&maxPrice=8.99")
	assert.Len(t, results, 2)

	// Malformed numeric bounds are a 400.
	resp := doRequest(t, app, http.MethodGet, "/api/sweets/search?minPrice=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
