package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/olmedhq/erp-gateway/internal/erp"
	"github.com/olmedhq/erp-gateway/internal/metrics"
	"github.com/olmedhq/erp-gateway/internal/token"
	"github.com/olmedhq/erp-gateway/internal/webhook"
)

// erpPaths maps a webhook type to the ERP endpoint the decrypted
// payload is relayed to.
var erpPaths = map[string]string{
	"order":   "/api/orders/import",
	"invoice": "/api/invoices/import",
	"product": "/api/products/import",
}

type WebhookHandler struct {
	verifier *webhook.Verifier
	erp      *erp.Client
	tokens   *token.Manager
	logger   *slog.Logger
}

func NewWebhookHandler(verifier *webhook.Verifier, erpClient *erp.Client, tokens *token.Manager, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		erp:      erpClient,
		tokens:   tokens,
		logger:   logger.With("component", "webhook_handler"),
	}
}

type webhookRequest struct {
	ID        string `json:"id"        binding:"required,max=256"`
	Type      string `json:"type"      binding:"required,max=64"`
	Payload   string `json:"payload"   binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Receive verifies, decrypts and relays one marketplace webhook. The
// route is not behind the admin JWT; the HMAC signature is the
// authentication.
func (h *WebhookHandler) Receive(ctx *gin.Context) {
	source := ctx.Param("source")

	var req webhookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		metrics.WebhooksTotal.WithLabelValues(source, "malformed").Inc()
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path, ok := erpPaths[req.Type]
	if !ok {
		metrics.WebhooksTotal.WithLabelValues(source, "unknown_type").Inc()
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errUnknownPayload})
		return
	}

	plaintext, ok := h.verifier.TryDecryptAndVerify(req.ID, req.Type, req.Payload, req.Signature)
	if !ok {
		metrics.WebhooksTotal.WithLabelValues(source, "rejected").Inc()
		h.logger.WarnContext(ctx.Request.Context(), "webhook verification failed", "source", source, "webhook_id", req.ID)
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidWebhook})
		return
	}

	bearer := ""
	if tok, err := h.tokens.EnsureFresh(ctx.Request.Context()); err != nil {
		h.logger.WarnContext(ctx.Request.Context(), "relaying webhook without shared token", "error", err)
	} else {
		bearer = tok.Token
	}

	status, _, err := h.erp.Forward(ctx.Request.Context(), path, []byte(plaintext), bearer)
	if err != nil {
		metrics.WebhooksTotal.WithLabelValues(source, "relay_error").Inc()
		h.logger.ErrorContext(ctx.Request.Context(), "relay webhook", "source", source, "webhook_id", req.ID, "error", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": errUpstreamFailure})
		return
	}
	if status < 200 || status >= 300 {
		metrics.WebhooksTotal.WithLabelValues(source, "upstream_rejected").Inc()
		h.logger.WarnContext(ctx.Request.Context(), "erp rejected webhook", "source", source, "webhook_id", req.ID, "status_code", status)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": errUpstreamFailure, "erp_status": status})
		return
	}

	metrics.WebhooksTotal.WithLabelValues(source, "relayed").Inc()
	ctx.JSON(http.StatusOK, gin.H{"status": "relayed", "webhook_id": req.ID})
}
