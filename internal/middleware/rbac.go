package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/unibody-docs-api/pkg/errors"
	"github.com/noah-isme/unibody-docs-api/pkg/policy"
	"github.com/noah-isme/unibody-docs-api/pkg/response"
)

// RequireCapability gates a route on the caller's role holding capability.
// It must run after JWT.
func RequireCapability(p *policy.Policy, capability policy.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := CurrentPrincipal(c)
		if principal == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !principal.Active {
			response.Error(c, appErrors.ErrInactiveAccount)
			c.Abort()
			return
		}
		if !p.Allowed(principal.Role, capability) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "your role does not permit "+capability.Action+" on "+capability.Object+"s"))
			c.Abort()
			return
		}
		c.Next()
	}
}
