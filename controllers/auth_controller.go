// controllers/auth_controller.go
package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/placementhq/portal_auth/middleware"
	"github.com/placementhq/portal_auth/models"
	"github.com/placementhq/portal_auth/services"
	"github.com/placementhq/portal_auth/utils"
)

// AuthController handles the passwordless login endpoints
type AuthController struct {
	auth *services.AuthService
}

// NewAuthController creates a new auth controller
func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// SendOTP handles POST /api/auth/send-otp. The response body is the same
// whether or not an account exists for the address.
func (ac *AuthController) SendOTP(c echo.Context) error {
	var req models.SendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A valid email is required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}

	if err := ac.auth.SendOTP(c.Request().Context(), email); err != nil {
		if errors.Is(err, services.ErrTooManyRequests) {
			return c.JSON(http.StatusTooManyRequests, models.Response{
				Status:  http.StatusTooManyRequests,
				Message: "Too many OTP requests. Please wait before trying again.",
			})
		}
		// Delivery and storage failures surface as one generic error;
		// details stay in the server log
		c.Logger().Errorf("send-otp failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send OTP. Please try again later.",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "OTP sent successfully. Please check your email.",
	})
}

// VerifyOTP handles POST /api/auth/verify-otp
func (ac *AuthController) VerifyOTP(c echo.Context) error {
	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email and a numeric OTP are required",
		})
	}
	// Reject wrong-sized codes before they reach the store; a malformed
	// submission must not consume a verification attempt
	if len(req.OTP) != ac.auth.CodeLength() {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("OTP must be exactly %d digits", ac.auth.CodeLength()),
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}

	result, err := ac.auth.CompleteLogin(c.Request().Context(), email, req.OTP)
	if err != nil {
		var invalidCode *services.InvalidCodeError
		switch {
		case errors.As(err, &invalidCode):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid OTP",
				Data: map[string]interface{}{
					"remainingAttempts": invalidCode.Remaining,
				},
			})
		case errors.Is(err, services.ErrInvalidCode):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "OTP not found or has expired. Please request a new one.",
			})
		case errors.Is(err, services.ErrLockedOut):
			return c.JSON(http.StatusTooManyRequests, models.Response{
				Status:  http.StatusTooManyRequests,
				Message: "Maximum verification attempts exceeded. Please request a new OTP.",
			})
		}
		c.Logger().Errorf("verify-otp failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Login failed. Please try again later.",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data:    result,
	})
}

// GetMe handles GET /api/auth/me. Requires the JWT middleware.
func (ac *AuthController) GetMe(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Authentication required",
		})
	}

	user, err := ac.auth.CurrentUser(c.Request().Context(), claims.UserID)
	if err != nil {
		c.Logger().Errorf("failed to load user %s: %v", claims.UserID, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to retrieve profile",
		})
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Profile retrieved",
		Data:    map[string]interface{}{"user": user},
	})
}
