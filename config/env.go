package config

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds the tunables for the OTP login flow
type AuthConfig struct {
	CodeLength    int
	OTPTTL        time.Duration
	MaxAttempts   int
	BcryptCost    int
	TokenLifetime time.Duration
}

// LoadAuthConfig reads the auth configuration from environment variables,
// falling back to the documented defaults.
func LoadAuthConfig() AuthConfig {
	cfg := AuthConfig{
		CodeLength:    getEnvInt("OTP_CODE_LENGTH", 6),
		OTPTTL:        time.Duration(getEnvInt("OTP_TTL_MINUTES", 10)) * time.Minute,
		MaxAttempts:   getEnvInt("OTP_MAX_ATTEMPTS", 5),
		BcryptCost:    getEnvInt("OTP_BCRYPT_COST", 10),
		TokenLifetime: time.Duration(getEnvInt("JWT_LIFETIME_HOURS", 24*7)) * time.Hour,
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return cfg
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
