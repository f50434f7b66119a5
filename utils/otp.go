package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrTooManyOTPRequests is returned when an email has exceeded the
// resend budget for the current window.
var ErrTooManyOTPRequests = errors.New("too many OTP requests")

// GenerateSecureOTP generates a fixed-length decimal OTP using a
// cryptographically secure random source.
func GenerateSecureOTP(length int) (string, error) {
	const digits = "0123456789"
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		result[i] = digits[num.Int64()]
	}
	return string(result), nil
}

// ValidateOTPRequests enforces a per-email resend budget backed by Redis.
// Limit: 5 requests per hour per email. Independent of the per-record
// attempt counter and of the per-IP rate limiter.
func ValidateOTPRequests(ctx context.Context, email string, rdb *redis.Client) error {
	key := "otp_requests:" + email
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	// Set expiry if first request in the window
	if count == 1 {
		rdb.Expire(ctx, key, 1*time.Hour)
	}

	if count > 5 {
		return ErrTooManyOTPRequests
	}

	return nil
}
