package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/unibody-docs-api/internal/middleware"
	"github.com/noah-isme/unibody-docs-api/internal/models"
)

// principalFromContext returns the caller, or nil when the request is anonymous.
func principalFromContext(c *gin.Context) *models.Principal {
	return middleware.CurrentPrincipal(c)
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
