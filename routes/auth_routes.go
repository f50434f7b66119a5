package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/placementhq/portal_auth/controllers"
	"github.com/placementhq/portal_auth/middleware"
)

// RegisterAuthRoutes sets up the authentication routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	// Public authentication routes
	e.POST("/api/auth/send-otp", authController.SendOTP)
	e.POST("/api/auth/verify-otp", authController.VerifyOTP)

	// Protected routes
	me := e.Group("/api/auth")
	me.Use(middleware.JWTMiddleware())
	me.GET("/me", authController.GetMe)
}
