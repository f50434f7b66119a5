package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/labstack/echo/v4"

	"github.com/placementhq/portal_auth/config"
	"github.com/placementhq/portal_auth/models"
	"github.com/placementhq/portal_auth/services"
)

type fakeOTPStore struct {
	mu      sync.Mutex
	records map[string]*models.Otp
}

func (s *fakeOTPStore) Put(_ context.Context, email, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.records[email] = &models.Otp{Email: email, CodeHash: codeHash, ExpiresAt: now.Add(ttl), CreatedAt: now}
	return nil
}

func (s *fakeOTPStore) Get(_ context.Context, email string) (*models.Otp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[email]
	if !ok || time.Now().After(record.ExpiresAt) {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *fakeOTPStore) IncrementAttempts(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[email]
	if !ok {
		return 0, errors.New("no record")
	}
	record.Attempts++
	return record.Attempts, nil
}

func (s *fakeOTPStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, email)
	return nil
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[email]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) Create(_ context.Context, email, fullName, role string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &models.User{
		ID: primitive.NewObjectID(), Email: email, FullName: fullName,
		Role: role, IsVerified: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.users[email] = user
	copied := *user
	return &copied, nil
}

func (s *fakeUserStore) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			user.IsVerified = true
			return nil
		}
	}
	return errors.New("user not found")
}

type fakeMailer struct {
	mu       sync.Mutex
	lastCode string
}

func (m *fakeMailer) SendOTP(_, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCode = code
	return nil
}

func (m *fakeMailer) code() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

type testValidator struct {
	validator *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.validator.Struct(i)
}

func newTestServer(t *testing.T) (*echo.Echo, *fakeMailer) {
	return newTestServerWithRedis(t, nil)
}

func newTestServerWithRedis(t *testing.T, rdb *redis.Client) (*echo.Echo, *fakeMailer) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-0123456789abcdef")

	cfg := config.AuthConfig{
		CodeLength:    6,
		OTPTTL:        10 * time.Minute,
		MaxAttempts:   5,
		BcryptCost:    bcrypt.MinCost,
		TokenLifetime: 7 * 24 * time.Hour,
	}

	mailer := &fakeMailer{}
	otpSvc := services.NewOTPService(&fakeOTPStore{records: make(map[string]*models.Otp)}, cfg)
	users := &fakeUserStore{users: make(map[string]*models.User)}
	authSvc := services.NewAuthService(otpSvc, users, mailer, rdb, cfg)

	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	ac := NewAuthController(authSvc)
	e.POST("/api/auth/send-otp", ac.SendOTP)
	e.POST("/api/auth/verify-otp", ac.VerifyOTP)

	return e, mailer
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSendOTPEndpoint(t *testing.T) {
	e, mailer := newTestServer(t)

	rec := postJSON(e, "/api/auth/send-otp", `{"email":"Student@X.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, mailer.code(), 6)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "OTP sent")
}

func TestSendOTPEndpoint_Throttled(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	e, _ := newTestServerWithRedis(t, rdb)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, postJSON(e, "/api/auth/send-otp", `{"email":"a@x.com"}`).Code, "request %d", i)
	}

	rec := postJSON(e, "/api/auth/send-otp", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "Too many OTP requests")
}

func TestSendOTPEndpoint_InvalidEmail(t *testing.T) {
	e, _ := newTestServer(t)

	for _, body := range []string{`{}`, `{"email":"not-an-email"}`, `{"email":""}`} {
		rec := postJSON(e, "/api/auth/send-otp", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestVerifyOTPEndpoint_FullLoginFlow(t *testing.T) {
	e, mailer := newTestServer(t)

	require.Equal(t, http.StatusOK, postJSON(e, "/api/auth/send-otp", `{"email":"new@x.com"}`).Code)

	rec := postJSON(e, "/api/auth/verify-otp", `{"email":"new@x.com","otp":"`+mailer.code()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Token)
	require.NotNil(t, resp.Data.User)
	assert.Equal(t, "new@x.com", resp.Data.User.Email)
	assert.Equal(t, models.RoleStudent, resp.Data.User.Role)
}

func TestVerifyOTPEndpoint_WrongCode(t *testing.T) {
	e, mailer := newTestServer(t)

	require.Equal(t, http.StatusOK, postJSON(e, "/api/auth/send-otp", `{"email":"a@x.com"}`).Code)

	wrong := "000000"
	if mailer.code() == wrong {
		wrong = "000001"
	}

	rec := postJSON(e, "/api/auth/verify-otp", `{"email":"a@x.com","otp":"`+wrong+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Data["remainingAttempts"])
}

func TestVerifyOTPEndpoint_Lockout(t *testing.T) {
	e, mailer := newTestServer(t)

	require.Equal(t, http.StatusOK, postJSON(e, "/api/auth/send-otp", `{"email":"a@x.com"}`).Code)

	wrong := "000000"
	if mailer.code() == wrong {
		wrong = "000001"
	}

	body := `{"email":"a@x.com","otp":"` + wrong + `"}`
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusBadRequest, postJSON(e, "/api/auth/verify-otp", body).Code)
	}

	// Even the correct code is refused now
	rec := postJSON(e, "/api/auth/verify-otp", `{"email":"a@x.com","otp":"`+mailer.code()+`"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestVerifyOTPEndpoint_MalformedCodeRejectedBeforeStore(t *testing.T) {
	e, mailer := newTestServer(t)

	require.Equal(t, http.StatusOK, postJSON(e, "/api/auth/send-otp", `{"email":"a@x.com"}`).Code)

	// Signed, fractional, non-digit, and wrong-length codes all fail
	// validation up front
	for _, otp := range []string{"-1.5", "-12345", "12.456", "12a456", "12345", "1234567", "1234567890123456789012345678901234567890", ""} {
		body, err := json.Marshal(map[string]string{"email": "a@x.com", "otp": otp})
		require.NoError(t, err)
		rec := postJSON(e, "/api/auth/verify-otp", string(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "otp %q", otp)
	}

	// None of those submissions consumed a verification attempt: a wrong
	// code of the right shape still has the full budget left
	wrong := "000000"
	if mailer.code() == wrong {
		wrong = "000001"
	}
	rec := postJSON(e, "/api/auth/verify-otp", `{"email":"a@x.com","otp":"`+wrong+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Data["remainingAttempts"])

	// And the real code still logs in
	rec = postJSON(e, "/api/auth/verify-otp", `{"email":"a@x.com","otp":"`+mailer.code()+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifyOTPEndpoint_NoActiveCode(t *testing.T) {
	e, _ := newTestServer(t)

	rec := postJSON(e, "/api/auth/verify-otp", `{"email":"a@x.com","otp":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Data)
}
