package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/financial-coach-api/internal/middleware"
	"github.com/noah-isme/financial-coach-api/internal/models"
	appErrors "github.com/noah-isme/financial-coach-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error *appErrors.Error        `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

type fakeAuthService struct {
	session    *models.AuthResponse
	err        error
	lastLogin  models.LoginRequest
	lastLogout models.RefreshTokenRequest
	logoutHits int
	current    *models.CurrentUser
	revoked    int64
	revokeArgs []string
}

func (f *fakeAuthService) Register(_ context.Context, _ models.RegisterRequest) (*models.AuthResponse, error) {
	return f.session, f.err
}

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	f.lastLogin = req
	return f.session, f.err
}

func (f *fakeAuthService) Refresh(_ context.Context, _ models.RefreshTokenRequest) (*models.AuthResponse, error) {
	return f.session, f.err
}

func (f *fakeAuthService) Logout(_ context.Context, req models.RefreshTokenRequest) error {
	f.logoutHits++
	f.lastLogout = req
	return f.err
}

func (f *fakeAuthService) CurrentUser(_ context.Context, _ string) (*models.CurrentUser, error) {
	return f.current, f.err
}

func (f *fakeAuthService) RevokeUserSessions(_ context.Context, userID, actorID, _, _ string) (int64, error) {
	f.revokeArgs = []string{userID, actorID}
	return f.revoked, f.err
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sampleSession() *models.AuthResponse {
	return &models.AuthResponse{
		UserID:       "user-1",
		Email:        "ana@example.com",
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    models.TokenTypeBearer,
		ExpiresIn:    900,
		Roles:        []string{"USER"},
	}
}

func TestAuthHandlerRegisterReturnsCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthService{session: sampleSession()})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/register", map[string]string{
		"email": "ana@example.com", "password": "password123", "confirmPassword": "password123",
	})

	handler.Register(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "Bearer", envelope.Data["tokenType"])
	assert.Equal(t, "refresh", envelope.Data["refreshToken"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAuthHandlerRegisterRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthService{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString("{"))

	handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerRegisterMapsDuplicateEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthService{err: appErrors.ErrDuplicateEmail})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/register", map[string]string{
		"email": "ana@example.com", "password": "password123", "confirmPassword": "password123",
	})

	handler.Register(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerLoginPassesClientMetadata(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeAuthService{session: sampleSession()}
	handler := NewAuthHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/login", map[string]string{"email": "ana@example.com", "password": "password123"})
	c.Request.Header.Set("User-Agent", "coach-test")

	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "coach-test", svc.lastLogin.UserAgent)
	assert.Equal(t, "ana@example.com", svc.lastLogin.Email)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthService{err: appErrors.ErrInvalidCredentials})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/login", map[string]string{"email": "ana@example.com", "password": "nope"})

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "email or password incorrect", decodeEnvelope(t, rec).Error.Message)
}

func TestAuthHandlerRefreshExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthService{err: appErrors.ErrExpiredToken})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/refresh", map[string]string{"refreshToken": "stale"})

	handler.Refresh(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "EXPIRED_TOKEN", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerLogoutSucceeds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = jsonRequest(http.MethodPost, "/logout", map[string]string{"refreshToken": "unknown"})

	handler.Logout(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logout successful", decodeEnvelope(t, rec).Data["message"])
	assert.Equal(t, "unknown", svc.lastLogout.RefreshToken)
}

func TestAuthHandlerLogoutRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeAuthService{}
	handler := NewAuthHandler(svc)

	for _, body := range []interface{}{map[string]string{"refreshToken": "  "}, map[string]string{}} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = jsonRequest(http.MethodPost, "/logout", body)

		handler.Logout(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Zero(t, svc.logoutHits)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthService{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/me", nil)

	handler.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerMeReturnsCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthService{current: &models.CurrentUser{UserID: "user-1", Email: "ana@example.com", Roles: []string{"USER"}}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana@example.com", decodeEnvelope(t, rec).Data["email"])
}

func TestAuthHandlerRevokeSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeAuthService{revoked: 3}
	handler := NewAuthHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/api/users/user-2/sessions", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-2"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Roles: []string{"ADMIN"}})

	handler.RevokeSessions(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeEnvelope(t, rec).Data["revoked"])
	assert.Equal(t, []string{"user-2", "admin-1"}, svc.revokeArgs)
}
