package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unibody-docs-api/internal/middleware"
	"github.com/noah-isme/unibody-docs-api/internal/models"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
)

type fakeAuthService struct {
	loginReq   models.LoginRequest
	loginRes   *models.LoginResponse
	refreshRes *models.RefreshTokenResponse
	loggedOut  string
	changedBy  *models.Principal
	me         *models.UserInfo
	err        error
}

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.loginReq = req
	return f.loginRes, f.err
}

func (f *fakeAuthService) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return f.refreshRes, f.err
}

func (f *fakeAuthService) Logout(_ context.Context, _ *models.Principal, refreshToken string, _ models.RequestMeta) error {
	f.loggedOut = refreshToken
	return f.err
}

func (f *fakeAuthService) ChangePassword(_ context.Context, p *models.Principal, _ models.ChangePasswordRequest) error {
	f.changedBy = p
	return f.err
}

func (f *fakeAuthService) Me(context.Context, *models.Principal) (*models.UserInfo, error) {
	return f.me, f.err
}

func TestAuthLoginCapturesClient(t *testing.T) {
	svc := &fakeAuthService{loginRes: &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}}
	h := NewAuthHandler(svc)

	c, rec := newGinContext(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"admin@uni.edu","password":"secret123"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("User-Agent", "portal/1.0")
	h.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@uni.edu", svc.loginReq.Email)
	assert.Equal(t, "portal/1.0", svc.loginReq.UserAgent)
	assert.NotEmpty(t, svc.loginReq.IP)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"access_token":"access"`)
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{err: appErrors.ErrInvalidCredentials})

	c, rec := newGinContext(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"admin@uni.edu","password":"wrong"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, rec).Code)
}

func TestAuthLogoutRequiresToken(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, rec := newGinContext(http.MethodPost, "/auth/logout", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, subAdminA)
	h.Logout(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.loggedOut)

	c, rec = newGinContext(http.MethodPost, "/auth/logout", strings.NewReader(`{"refresh_token":"rt-1"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, subAdminA)
	h.Logout(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "rt-1", svc.loggedOut)
}

func TestAuthChangePasswordUsesCaller(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, rec := newGinContext(http.MethodPost, "/auth/change-password", strings.NewReader(`{"old_password":"secret123","new_password":"newsecret123"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, adminA)
	h.ChangePassword(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, adminA, svc.changedBy)
}

func TestAuthMe(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{me: &models.UserInfo{ID: "admin-a", Role: models.RoleAdmin}})

	c, rec := newGinContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, adminA)
	h.Me(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(t, rec).Data), `"role":"admin"`)
}
