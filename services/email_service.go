package services

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mailer delivers a plaintext OTP to an email address.
type Mailer interface {
	SendOTP(email, code string) error
}

// EmailService sends OTP emails over SMTP. Constructed once at startup
// and injected into AuthService.
type EmailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewEmailService builds an EmailService from SMTP_* environment
// variables. Returns an error when required configuration is missing so
// the process fails at startup rather than on the first login attempt.
func NewEmailService() (*EmailService, error) {
	host := os.Getenv("SMTP_HOST")
	portStr := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("FROM_EMAIL")
	if from == "" {
		from = user
	}

	if host == "" || portStr == "" || user == "" || pass == "" {
		return nil, fmt.Errorf("missing SMTP configuration")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP port: %v", err)
	}

	return &EmailService{
		host:     host,
		port:     port,
		username: user,
		password: pass,
		from:     from,
	}, nil
}

// SendOTP emails the login code to the address.
func (s *EmailService) SendOTP(email, code string) error {
	subject := "Your Login OTP — College Placement Portal"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Verify Your Login</h2>
			<p>Use the following one-time password to complete your login:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in 10 minutes.</p>
			<p>If you didn't request this code, you can safely ignore this email.</p>
			<p>Thank you,<br>College Placement Portal</p>
		</body>
		</html>
	`, code)

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}
