package services

import (
	"context"
	"log"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/placementhq/portal_auth/config"
	"github.com/placementhq/portal_auth/middleware"
	"github.com/placementhq/portal_auth/models"
	"github.com/placementhq/portal_auth/utils"
)

// UserStore is the persistence contract for user records.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Create(ctx context.Context, email, fullName, role string) (*models.User, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
}

// AuthService orchestrates the two-step passwordless login flow:
// SendOTP emails a code, CompleteLogin verifies it and returns a signed
// session token, creating the user on first login.
type AuthService struct {
	otp    *OTPService
	users  UserStore
	mailer Mailer
	redis  *redis.Client
	cfg    config.AuthConfig
}

func NewAuthService(otp *OTPService, users UserStore, mailer Mailer, rdb *redis.Client, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		otp:    otp,
		users:  users,
		mailer: mailer,
		redis:  rdb,
		cfg:    cfg,
	}
}

// CodeLength reports the configured OTP length so the transport layer
// can reject wrong-sized codes before they reach the store.
func (s *AuthService) CodeLength() int {
	return s.cfg.CodeLength
}

// SendOTP generates and emails a login code. The behavior is identical
// for known and unknown emails so the endpoint cannot be used to probe
// which addresses have accounts.
func (s *AuthService) SendOTP(ctx context.Context, email string) error {
	// Resend throttle, independent of the per-IP rate limiter and of the
	// per-record attempt counter. Skipped when Redis is unavailable.
	if s.redis != nil {
		if err := utils.ValidateOTPRequests(ctx, email, s.redis); err != nil {
			if err == utils.ErrTooManyOTPRequests {
				return ErrTooManyRequests
			}
			log.Printf("OTP request throttle check failed: %v", err)
		}
	}

	code, err := s.otp.Generate(ctx, email)
	if err != nil {
		return err
	}

	if err := s.mailer.SendOTP(email, code); err != nil {
		// The hashed record stays in place; a retry of delivery without
		// regenerating would still validate.
		log.Printf("OTP delivery failed for %s: %v", utils.MaskEmail(email), err)
		return ErrDeliveryFailed
	}

	return nil
}

// CompleteLogin verifies the submitted code and, on success, upserts the
// user record and issues a session token. OTP verification errors
// propagate unchanged.
func (s *AuthService) CompleteLogin(ctx context.Context, email, code string) (*models.LoginResponse, error) {
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// First-time login: create the account with a name derived from
		// the email local part and the default role
		name := strings.SplitN(email, "@", 2)[0]
		user, err = s.users.Create(ctx, email, name, models.RoleStudent)
		if err != nil {
			return nil, err
		}
		log.Printf("New user created: %s", utils.MaskEmail(email))
	} else if !user.IsVerified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsVerified = true
	}

	token, err := middleware.GenerateJWT(user.ID.Hex(), user.Email, user.Role, s.cfg.TokenLifetime)
	if err != nil {
		return nil, err
	}

	log.Printf("User logged in: %s", utils.MaskEmail(email))

	return &models.LoginResponse{
		Token: token,
		User:  user,
	}, nil
}

// CurrentUser returns the profile for an authenticated user id.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}
