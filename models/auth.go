package models

// SendOTPRequest is the body of POST /api/auth/send-otp
type SendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest is the body of POST /api/auth/verify-otp
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,number"`
}

// LoginResponse is returned after a successful OTP verification
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
