package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unibody-docs-api/internal/middleware"
	"github.com/noah-isme/unibody-docs-api/pkg/policy"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth      *AuthHandler
	Documents *DocumentHandler
	Units     *UnitHandler
	Users     *UserHandler
	Metrics   *MetricsHandler
}

// RegisterRoutes mounts the API on group. Document reads accept anonymous
// callers; everything else needs a bearer token and, where listed, a capability.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, auth middleware.Authenticator, pol *policy.Policy) {
	requireAuth := middleware.JWT(auth)
	optionalAuth := middleware.OptionalJWT(auth)
	can := func(capability policy.Capability) gin.HandlerFunc {
		return middleware.RequireCapability(pol, capability)
	}

	group.GET("/health", h.Metrics.Health)

	authGroup := group.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", requireAuth, h.Auth.Logout)
	authGroup.POST("/change-password", requireAuth, h.Auth.ChangePassword)
	authGroup.GET("/me", requireAuth, h.Auth.Me)

	docs := group.Group("/documents")
	docs.GET("", optionalAuth, h.Documents.List)
	docs.GET("/pending", requireAuth, can(policy.DocumentReview), h.Documents.Pending)
	docs.GET("/stats", requireAuth, can(policy.DocumentStats), h.Documents.Stats)
	docs.GET("/export", requireAuth, can(policy.DocumentExport), h.Documents.Export)
	docs.POST("", requireAuth, can(policy.DocumentUpload), h.Documents.Create)
	docs.GET("/:id", optionalAuth, h.Documents.Get)
	docs.PUT("/:id", requireAuth, can(policy.DocumentModify), h.Documents.Update)
	docs.DELETE("/:id", requireAuth, can(policy.DocumentModify), h.Documents.Delete)
	docs.POST("/:id/approve", requireAuth, can(policy.DocumentReview), h.Documents.Approve)
	docs.POST("/:id/reject", requireAuth, can(policy.DocumentReview), h.Documents.Reject)
	docs.GET("/:id/download", optionalAuth, h.Documents.Download)
	docs.GET("/:id/preview", h.Documents.Preview)

	units := group.Group("/units", requireAuth)
	units.GET("", can(policy.UnitRead), h.Units.List)
	units.GET("/:id", can(policy.UnitRead), h.Units.Get)
	units.POST("", can(policy.UnitManage), h.Units.Create)
	units.PUT("/:id", can(policy.UnitManage), h.Units.Update)
	units.DELETE("/:id", can(policy.UnitManage), h.Units.Delete)

	users := group.Group("/users", requireAuth)
	users.GET("", can(policy.UserRead), h.Users.List)
	users.GET("/:id", can(policy.UserRead), h.Users.Get)
	users.POST("", can(policy.UserManage), h.Users.Create)
	users.PUT("/:id", can(policy.UserManage), h.Users.Update)
	users.DELETE("/:id", can(policy.UserManage), h.Users.Delete)

	group.GET("/metrics/summary", requireAuth, can(policy.MetricsRead), h.Metrics.Summary)
}
