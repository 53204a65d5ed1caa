package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
	"sweetshop/internal/services"
)

// SweetHandler handles HTTP requests for the sweet inventory.
type SweetHandler struct {
	service  *services.SweetService
	validate *validator.Validate
}

// NewSweetHandler creates a new SweetHandler.
func NewSweetHandler(service *services.SweetService) *SweetHandler {
	return &SweetHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterPublicRoutes registers the routes that need no authentication.
func (h *SweetHandler) RegisterPublicRoutes(router fiber.Router) {
	sweetRoutes := router.Group("/sweets")
	sweetRoutes.Get("/", h.HandleGetSweets)
	sweetRoutes.Get("/search", h.HandleSearchSweets)
}

// RegisterProtectedRoutes registers the authenticated routes. The router
// must already carry the AuthRequired middleware; admin-only routes add
// AdminRequired on top.
func (h *SweetHandler) RegisterProtectedRoutes(router fiber.Router) {
	sweetRoutes := router.Group("/sweets")
	sweetRoutes.Post("/", middleware.AdminRequired(), h.HandleCreateSweet)
	sweetRoutes.Put("/:id", middleware.AdminRequired(), h.HandleUpdateSweet)
	sweetRoutes.Delete("/:id", middleware.AdminRequired(), h.HandleDeleteSweet)
	sweetRoutes.Post("/:id/purchase", h.HandlePurchaseSweet)
	sweetRoutes.Post("/:id/restock", middleware.AdminRequired(), h.HandleRestockSweet)
}

// CreateSweetRequest represents the request body for creating a sweet.
// ID and AdminID are assigned server-side.
type CreateSweetRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Category    string  `json:"category" validate:"required"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	ImageURL    string  `json:"imageUrl" validate:"omitempty,url"`
	Description string  `json:"description" validate:"omitempty,max=500"`
}

// UpdateSweetRequest represents a partial update. Absent fields are left
// unchanged; adminId in the payload is ignored.
type UpdateSweetRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Category    *string  `json:"category" validate:"omitempty,min=1"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Quantity    *int     `json:"quantity" validate:"omitempty,gte=0"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,url"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
}

// RestockRequest represents the request body for restocking a sweet.
type RestockRequest struct {
	Amount int `json:"amount" validate:"required,gt=0"`
}

// HandleGetSweets returns the full inventory.
func (h *SweetHandler) HandleGetSweets(c *fiber.Ctx) error {
	sweets, err := h.service.GetAllSweets()
	if err != nil {
		log.Printf("Error getting all sweets: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch sweets",
		})
	}
	return c.JSON(sweets)
}

// HandleSearchSweets filters the inventory by the query parameters
// name, category, minPrice and maxPrice.
func (h *SweetHandler) HandleSearchSweets(c *fiber.Ctx) error {
	filter := repositories.SearchFilter{
		Name:     c.Query("name"),
		Category: c.Query("category"),
	}

	if raw := c.Query("minPrice"); raw != "" {
		minPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "minPrice must be a number",
			})
		}
		filter.MinPrice = &minPrice
	}
	if raw := c.Query("maxPrice"); raw != "" {
		maxPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "maxPrice must be a number",
			})
		}
		filter.MaxPrice = &maxPrice
	}

	sweets, err := h.service.SearchSweets(filter)
	if err != nil {
		log.Printf("Error searching sweets: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Search failed",
		})
	}
	return c.JSON(sweets)
}

// HandleCreateSweet creates a new sweet owned by the calling admin.
func (h *SweetHandler) HandleCreateSweet(c *fiber.Ctx) error {
	var req CreateSweetRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing create sweet request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": firstViolation(err),
		})
	}

	adminID, _ := c.Locals(middleware.LocalUserID).(string)
	sweet := models.Sweet{
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		ImageURL:    req.ImageURL,
		Description: req.Description,
	}
	if err := h.service.CreateSweet(&sweet, adminID); err != nil {
		log.Printf("Error creating sweet: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create sweet",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(sweet)
}

// HandleUpdateSweet applies a partial update to an existing sweet.
func (h *SweetHandler) HandleUpdateSweet(c *fiber.Ctx) error {
	var req UpdateSweetRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update sweet request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": firstViolation(err),
		})
	}

	sweet, err := h.service.UpdateSweet(c.Params("id"), repositories.SweetUpdate{
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
		ImageURL:    req.ImageURL,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Sweet not found",
			})
		}
		log.Printf("Error updating sweet %s: %v", c.Params("id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update sweet",
		})
	}

	return c.JSON(sweet)
}

// HandleDeleteSweet removes a sweet by its ID.
func (h *SweetHandler) HandleDeleteSweet(c *fiber.Ctx) error {
	if err := h.service.DeleteSweet(c.Params("id")); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Sweet not found",
			})
		}
		log.Printf("Error deleting sweet %s: %v", c.Params("id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to delete sweet",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sweet deleted successfully",
	})
}

// HandlePurchaseSweet decrements the sweet's quantity by one for any
// authenticated caller.
func (h *SweetHandler) HandlePurchaseSweet(c *fiber.Ctx) error {
	sweet, err := h.service.PurchaseSweet(c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Sweet not found",
			})
		case errors.Is(err, repositories.ErrOutOfStock):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Sweet is out of stock",
			})
		default:
			log.Printf("Error purchasing sweet %s: %v", c.Params("id"), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Purchase failed",
			})
		}
	}

	return c.JSON(sweet)
}

// HandleRestockSweet increments the sweet's quantity by the given amount.
func (h *SweetHandler) HandleRestockSweet(c *fiber.Ctx) error {
	var req RestockRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing restock request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid restock amount",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid restock amount",
		})
	}

	sweet, err := h.service.RestockSweet(c.Params("id"), req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Sweet not found",
			})
		case errors.Is(err, services.ErrInvalidAmount):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid restock amount",
			})
		default:
			log.Printf("Error restocking sweet %s: %v", c.Params("id"), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Restock failed",
			})
		}
	}

	return c.JSON(sweet)
}
