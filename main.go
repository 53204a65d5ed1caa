package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sweetshop/internal/handlers"
	"sweetshop/internal/middleware"
	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
	"sweetshop/internal/services"
	"sweetshop/pkg/rabbitmq"
)

const lowStockThreshold = 5

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("JWT_SECRET", "sweet-shop-secret-key-2024")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	jwtSecret := viper.GetString("JWT_SECRET")
	databaseDSN := viper.GetString("DATABASE_DSN")
	rabbitMQURL := viper.GetString("RABBITMQ_URL")

	if os.Getenv("JWT_SECRET") == "" {
		log.Println("WARNING: JWT_SECRET is not set; using the built-in development secret. Override it in production.")
	}

	// --- Initialize RabbitMQ client (optional) ---
	var mqClient *rabbitmq.Client
	if rabbitMQURL != "" {
		var err error
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set; inventory events disabled")
	}

	// --- Initialize repositories ---
	// With no database DSN configured the shop runs on the volatile
	// in-memory store, seeded with a demo catalog.
	var (
		userRepo  repositories.UserRepository
		sweetRepo repositories.SweetRepository
	)
	if databaseDSN != "" {
		db, err := gorm.Open(postgres.Open(databaseDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.User{}, &models.Sweet{}); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		userRepo = repositories.NewGORMUserRepository(db)
		sweetRepo = repositories.NewGORMSweetRepository(db)
	} else {
		memUsers := repositories.NewMemoryUserRepository()
		memSweets := repositories.NewMemorySweetRepository()
		seedDemoData(memUsers, memSweets)
		userRepo = memUsers
		sweetRepo = memSweets
	}

	// --- Initialize services ---
	authService := services.NewAuthService(userRepo, jwtSecret)
	var publisher services.EventPublisher
	if mqClient != nil {
		publisher = mqClient
	}
	sweetService := services.NewSweetService(sweetRepo, publisher)

	// --- Initialize handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	sweetHandler := handlers.NewSweetHandler(sweetService)

	// --- Initialize Fiber app ---
	app := fiber.New()
	app.Use(logger.New())

	// --- API routes ---
	api := app.Group("/api")

	// Public: register/login, browse and search the catalog.
	authHandler.RegisterRoutes(api)
	sweetHandler.RegisterPublicRoutes(api)

	// Authenticated: inventory mutations; admin-only gates are applied
	// per-route inside the handler.
	protected := api.Group("", middleware.AuthRequired(authService))
	sweetHandler.RegisterProtectedRoutes(protected)

	// --- Health check endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start inventory event consumer ---
	if mqClient != nil {
		log.Println("Starting RabbitMQ consumer for inventory events...")
		if consumerErr := mqClient.ConsumeInventoryEvents(handleInventoryEvent); consumerErr != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
		}
	}

	// --- Start HTTP server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// handleInventoryEvent logs inventory events and flags sweets running low
// on stock after a purchase.
func handleInventoryEvent(msg amqp.Delivery) error {
	log.Printf("Received inventory event %s (tag: %d): %s", msg.Type, msg.DeliveryTag, string(msg.Body))

	if msg.Type != rabbitmq.SweetPurchased {
		return nil
	}

	var event struct {
		SweetID  string `json:"sweetId"`
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	}
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Failed to decode purchase event: %v", err)
		return nil // malformed events are dropped, not requeued
	}

	if event.Quantity < lowStockThreshold {
		log.Printf("Low stock alert: %s (%s) has %d left", event.Name, event.SweetID, event.Quantity)
	}
	return nil
}

// seedDemoData populates the in-memory store with the demo admin account
// and a small catalog so the shop is browsable out of the box.
func seedDemoData(userRepo repositories.UserRepository, sweetRepo repositories.SweetRepository) {
	admin := models.User{
		Email:    "admin@sweetshop.com",
		Password: "$2a$10$XQxBtXWpQJxK.3PVZQ1J5.OMgVrZj1Kj5QKQZQJ5QKQZQJ5QKQZQ",
		Role:     models.RoleAdmin,
	}
	if err := userRepo.Create(&admin); err != nil {
		log.Printf("Error seeding admin user: %v", err)
		return
	}

	sweets := []models.Sweet{
		{
			Name:        "Belgian Dark Chocolate Truffle",
			Category:    "chocolate",
			Price:       12.99,
			Quantity:    50,
			ImageURL:    "https://images.unsplash.com/photo-1481391319762-47dff72954d9?w=400&q=80",
			Description: "Rich, velvety dark chocolate truffles made with premium Belgian cocoa",
		},
		{
			Name:        "Rainbow Lollipop Swirl",
			Category:    "candy",
			Price:       3.99,
			Quantity:    100,
			ImageURL:    "https://images.unsplash.com/photo-1575224300306-1b8da36134ec?w=400&q=80",
			Description: "Colorful handcrafted lollipops with a delightful fruity flavor",
		},
		{
			Name:        "Red Velvet Cupcake",
			Category:    "cake",
			Price:       6.99,
			Quantity:    30,
			ImageURL:    "https://images.unsplash.com/photo-1614707267537-b85aaf00c4b7?w=400&q=80",
			Description: "Moist red velvet cupcake topped with cream cheese frosting",
		},
		{
			Name:        "Classic Chocolate Chip Cookie",
			Category:    "cookie",
			Price:       2.49,
			Quantity:    75,
			ImageURL:    "https://images.unsplash.com/photo-1499636136210-6f4ee915583e?w=400&q=80",
			Description: "Freshly baked cookies loaded with premium chocolate chips",
		},
		{
			Name:        "French Butter Croissant",
			Category:    "pastry",
			Price:       4.99,
			Quantity:    25,
			ImageURL:    "https://images.unsplash.com/photo-1555507036-ab1f4038808a?w=400&q=80",
			Description: "Flaky, buttery croissants made with authentic French technique",
		},
		{
			Name:        "Vanilla Bean Gelato",
			Category:    "ice_cream",
			Price:       7.99,
			Quantity:    40,
			ImageURL:    "https://images.unsplash.com/photo-1570197788417-0e82375c9371?w=400&q=80",
			Description: "Creamy Italian gelato made with real Madagascar vanilla beans",
		},
		{
			Name:        "Salted Caramel Bonbon",
			Category:    "chocolate",
			Price:       15.99,
			Quantity:    35,
			ImageURL:    "https://images.unsplash.com/photo-1549007994-cb92caebd54b?w=400&q=80",
			Description: "Luxurious salted caramel encased in smooth milk chocolate",
		},
		{
			Name:        "Strawberry Cheesecake Slice",
			Category:    "cake",
			Price:       8.99,
			Quantity:    20,
			ImageURL:    "https://images.unsplash.com/photo-1508737027454-e6454ef45afd?w=400&q=80",
			Description: "Creamy New York style cheesecake with fresh strawberry topping",
		},
	}

	for i := range sweets {
		sweets[i].AdminID = admin.ID
		if err := sweetRepo.Create(&sweets[i]); err != nil {
			log.Printf("Error seeding sweet %s: %v", sweets[i].Name, err)
		} else {
			log.Printf("Seeded sweet: %s (ID: %s)", sweets[i].Name, sweets[i].ID)
		}
	}
}
