package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olmedhq/erp-gateway/internal/token"
)

type TokenHandler struct {
	manager *token.Manager
	logger  *slog.Logger
}

func NewTokenHandler(manager *token.Manager, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{manager: manager, logger: logger.With("component", "token_handler")}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Current returns the cached token without touching the ERP.
func (h *TokenHandler) Current(ctx *gin.Context) {
	tok := h.manager.Current()
	if tok == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errTokenNotFound})
		return
	}
	ctx.JSON(http.StatusOK, tokenResponse{Token: tok.Token, ExpiresAt: tok.ExpiresAt, CreatedAt: tok.CreatedAt})
}

// Refresh runs the refresh-if-needed flow and returns whatever token
// is current afterwards.
func (h *TokenHandler) Refresh(ctx *gin.Context) {
	tok, err := h.manager.EnsureFresh(ctx.Request.Context())
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "refresh token", "error", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": errUpstreamFailure})
		return
	}
	ctx.JSON(http.StatusOK, tokenResponse{Token: tok.Token, ExpiresAt: tok.ExpiresAt, CreatedAt: tok.CreatedAt})
}

// Login forces a full credential exchange.
func (h *TokenHandler) Login(ctx *gin.Context) {
	tok, err := h.manager.Login(ctx.Request.Context())
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "login", "error", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": errUpstreamFailure})
		return
	}
	ctx.JSON(http.StatusOK, tokenResponse{Token: tok.Token, ExpiresAt: tok.ExpiresAt, CreatedAt: tok.CreatedAt})
}

// Logout drops the cached token; remote failures are absorbed.
func (h *TokenHandler) Logout(ctx *gin.Context) {
	h.manager.Logout(ctx.Request.Context())
	ctx.Status(http.StatusNoContent)
}
