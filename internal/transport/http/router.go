package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/olmedhq/erp-gateway/internal/transport/http/handler"
	"github.com/olmedhq/erp-gateway/internal/transport/http/middleware"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(
	logger *slog.Logger,
	jobHandler *handler.JobHandler,
	tokenHandler *handler.TokenHandler,
	executeHandler *handler.ExecuteHandler,
	webhookHandler *handler.WebhookHandler,
	syncHandler *handler.SyncHandler,
	jwtKey []byte,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(jwtKey)

	// Admin API
	jobs := r.Group("/jobs", authMW)
	jobs.POST("", jobHandler.Upsert)
	jobs.GET("", jobHandler.List)
	jobs.GET("/:id", jobHandler.GetByID)
	jobs.PATCH("/:id/active", jobHandler.SetActive)
	jobs.DELETE("/:id", jobHandler.Remove)

	auth := r.Group("/auth", authMW)
	auth.GET("/token", tokenHandler.Current)
	auth.POST("/refresh", tokenHandler.Refresh)
	auth.POST("/login", tokenHandler.Login)
	auth.POST("/logout", tokenHandler.Logout)

	r.POST("/execute", authMW, executeHandler.Execute)
	r.POST("/sync/reload", authMW, syncHandler.Reload)

	// Webhook intake is authenticated by its HMAC signature, not JWT.
	r.POST("/webhooks/:source", webhookHandler.Receive)

	return r
}
