package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unibody-docs-api/internal/models"
	"github.com/noah-isme/unibody-docs-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated *models.Principal.
const ContextUserKey = "currentUser"

// Authenticator resolves a bearer credential into a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*models.Principal, error)
}

// JWT protects routes by requiring a valid access token for an active account.
func JWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := auth.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, principal)
		c.Next()
	}
}

// OptionalJWT lets requests without credentials through as anonymous callers.
// A credential that is present but invalid is still rejected.
func OptionalJWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		principal, err := auth.Authenticate(c.Request.Context(), header)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextUserKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by JWT, or nil for anonymous callers.
func CurrentPrincipal(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.Principal)
	return principal
}
