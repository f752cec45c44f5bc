package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unibody-docs-api/internal/models"
	"github.com/noah-isme/unibody-docs-api/internal/service"
	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
	"github.com/noah-isme/unibody-docs-api/pkg/policy"
)

type stubAuthenticator map[string]*models.Principal

func (s stubAuthenticator) Authenticate(_ context.Context, bearer string) (*models.Principal, error) {
	switch bearer {
	case "":
		return nil, appErrors.ErrTokenMissing
	case "Bearer expired":
		return nil, appErrors.ErrTokenExpired
	}
	p, ok := s[bearer]
	if !ok {
		return nil, appErrors.ErrTokenMalformed
	}
	return p, nil
}

var testPrincipals = stubAuthenticator{
	"Bearer sub":   {UserID: "sub-a", Role: models.RoleSubAdmin, Active: true},
	"Bearer admin": {UserID: "admin-a", Role: models.RoleAdmin, Active: true},
	"Bearer root":  {UserID: "root", Role: models.RoleSuperAdmin, Active: true},
}

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body.Code
}

func whoAmI(c *gin.Context) {
	p := CurrentPrincipal(c)
	if p == nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, p.UserID)
}

func TestJWTRequiresValidToken(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWT(testPrincipals), whoAmI)

	w := perform(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrTokenMissing.Code, errorCode(t, w))

	w = perform(r, http.MethodGet, "/me", "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, errorCode(t, w))

	w = perform(r, http.MethodGet, "/me", "Bearer admin")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-a", w.Body.String())
}

func TestOptionalJWT(t *testing.T) {
	r := gin.New()
	r.GET("/documents", OptionalJWT(testPrincipals), whoAmI)

	w := perform(r, http.MethodGet, "/documents", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	w = perform(r, http.MethodGet, "/documents", "Bearer sub")
	assert.Equal(t, "sub-a", w.Body.String())

	w = perform(r, http.MethodGet, "/documents", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrTokenMalformed.Code, errorCode(t, w))
}

func TestRequireCapability(t *testing.T) {
	pol, err := policy.New()
	require.NoError(t, err)

	r := gin.New()
	r.POST("/documents/:id/approve", JWT(testPrincipals), RequireCapability(pol, policy.DocumentReview), whoAmI)
	r.POST("/units", JWT(testPrincipals), RequireCapability(pol, policy.UnitManage), whoAmI)

	w := perform(r, http.MethodPost, "/documents/d1/approve", "Bearer sub")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, w))

	w = perform(r, http.MethodPost, "/documents/d1/approve", "Bearer admin")
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, http.MethodPost, "/units", "Bearer admin")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodPost, "/units", "Bearer root")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireCapabilityWithoutPrincipal(t *testing.T) {
	pol, err := policy.New()
	require.NoError(t, err)

	r := gin.New()
	r.GET("/stats", RequireCapability(pol, policy.DocumentStats), whoAmI)

	w := perform(r, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(r, http.MethodGet, "/ping", "")
	perform(r, http.MethodGet, "/missing", "")
	perform(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/list", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		SetCacheHit(c, true)
		c.JSON(http.StatusOK, ExtractMeta(c))
	})

	w := perform(r, http.MethodGet, "/list", "")
	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, processingTimeMs)
}
