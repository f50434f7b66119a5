package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/placementhq/portal_auth/config"
	"github.com/placementhq/portal_auth/controllers"
	"github.com/placementhq/portal_auth/middleware"
	"github.com/placementhq/portal_auth/repositories"
	"github.com/placementhq/portal_auth/routes"
	"github.com/placementhq/portal_auth/services"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (optional; resend throttling degrades gracefully)
	rdb := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	authCfg := config.LoadAuthConfig()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Placement Portal Auth is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize repositories
	otpRepo := repositories.NewOTPRepository(client)
	userRepo := repositories.NewUserRepository(client)

	// Initialize services
	mailer, err := services.NewEmailService()
	if err != nil {
		log.Fatal("Email configuration error: ", err)
	}
	otpService := services.NewOTPService(otpRepo, authCfg)
	authService := services.NewAuthService(otpService, userRepo, mailer, rdb, authCfg)

	// Initialize controllers and routes
	authController := controllers.NewAuthController(authService)
	routes.RegisterAuthRoutes(e, authController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
