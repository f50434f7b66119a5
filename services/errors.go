package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCode covers both a wrong code and a missing/expired
	// record. The two causes are deliberately indistinguishable to the
	// caller.
	ErrInvalidCode = errors.New("invalid or expired OTP")
	// ErrLockedOut is returned once the maximum verification attempts
	// have been exhausted; the record is purged and a new code must be
	// requested.
	ErrLockedOut = errors.New("maximum verification attempts exceeded")
	// ErrDeliveryFailed is returned when the OTP email could not be sent.
	ErrDeliveryFailed = errors.New("failed to send OTP email")
	// ErrTooManyRequests is returned when an email exceeds its resend
	// budget.
	ErrTooManyRequests = errors.New("too many OTP requests")
)

// InvalidCodeError is an ErrInvalidCode that carries the number of
// attempts remaining before lockout. Only returned on an ordinary
// mismatch, never when the record is absent or locked out.
type InvalidCodeError struct {
	Remaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid OTP, %d attempt(s) remaining", e.Remaining)
}

// Is makes errors.Is(err, ErrInvalidCode) match.
func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}
