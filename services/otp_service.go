package services

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/placementhq/portal_auth/config"
	"github.com/placementhq/portal_auth/models"
	"github.com/placementhq/portal_auth/utils"
)

// OTPStore is the persistence contract for OTP records.
type OTPStore interface {
	Put(ctx context.Context, email, codeHash string, ttl time.Duration) error
	Get(ctx context.Context, email string) (*models.Otp, error)
	IncrementAttempts(ctx context.Context, email string) (int, error)
	Delete(ctx context.Context, email string) error
}

// OTPService issues and verifies one-time passwords. Codes are stored
// bcrypt-hashed and are single-use; all operations for a given email are
// serialized through a per-email lock so concurrent verifications cannot
// bypass the attempt counter or both succeed.
type OTPService struct {
	store OTPStore
	locks *utils.KeyMutex
	cfg   config.AuthConfig
}

func NewOTPService(store OTPStore, cfg config.AuthConfig) *OTPService {
	return &OTPService{
		store: store,
		locks: utils.NewKeyMutex(),
		cfg:   cfg,
	}
}

// Generate creates a fresh OTP for the email, replacing any outstanding
// one, and returns the plaintext code for delivery. The plaintext is
// never persisted or logged.
func (s *OTPService) Generate(ctx context.Context, email string) (string, error) {
	s.locks.Lock(email)
	defer s.locks.Unlock(email)

	code, err := utils.GenerateSecureOTP(s.cfg.CodeLength)
	if err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.BcryptCost)
	if err != nil {
		return "", err
	}

	if err := s.store.Put(ctx, email, string(hash), s.cfg.OTPTTL); err != nil {
		return "", err
	}

	log.Printf("OTP generated for %s", utils.MaskEmail(email))
	return code, nil
}

// Verify checks the submitted code against the stored hash. On success
// the record is deleted (single use). On mismatch the attempt counter is
// incremented and the error reports the remaining attempts; once the
// maximum is reached the record is purged and ErrLockedOut returned.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
	s.locks.Lock(email)
	defer s.locks.Unlock(email)

	record, err := s.store.Get(ctx, email)
	if err != nil {
		return err
	}
	if record == nil {
		// Absent and expired are collapsed into one case
		return ErrInvalidCode
	}

	if record.Attempts >= s.cfg.MaxAttempts {
		if err := s.store.Delete(ctx, email); err != nil {
			return err
		}
		return ErrLockedOut
	}

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		attempts, err := s.store.IncrementAttempts(ctx, email)
		if err != nil {
			return err
		}
		return &InvalidCodeError{Remaining: s.cfg.MaxAttempts - attempts}
	}

	// Valid code: delete the record so it can never be replayed
	if err := s.store.Delete(ctx, email); err != nil {
		return err
	}

	log.Printf("OTP verified for %s", utils.MaskEmail(email))
	return nil
}
