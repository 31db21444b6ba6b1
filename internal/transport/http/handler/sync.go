package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/olmedhq/erp-gateway/internal/registry"
	"github.com/olmedhq/erp-gateway/internal/syncconfig"
)

type SyncHandler struct {
	registry *registry.Registry
	stores   []*syncconfig.Store
	logger   *slog.Logger
}

func NewSyncHandler(reg *registry.Registry, logger *slog.Logger, stores ...*syncconfig.Store) *SyncHandler {
	return &SyncHandler{registry: reg, stores: stores, logger: logger.With("component", "sync_handler")}
}

// Reload re-reads the sync-config files and reconciles the registry.
func (h *SyncHandler) Reload(ctx *gin.Context) {
	added, removed, err := syncconfig.Apply(h.registry, h.logger, h.stores...)
	if err != nil {
		h.logger.ErrorContext(ctx.Request.Context(), "reload sync configs", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	h.logger.InfoContext(ctx.Request.Context(), "sync configs reloaded", "added", added, "removed", removed)
	ctx.JSON(http.StatusOK, gin.H{"added": added, "removed": removed})
}
