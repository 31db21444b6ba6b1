package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/olmedhq/erp-gateway/internal/domain"
	"github.com/olmedhq/erp-gateway/internal/scheduler"
)

type ExecuteHandler struct {
	executor *scheduler.Executor
	logger   *slog.Logger
}

func NewExecuteHandler(executor *scheduler.Executor, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{executor: executor, logger: logger.With("component", "execute_handler")}
}

// Execute runs one request template immediately, bypassing the
// registry. The outcome is returned to the caller instead of being
// recorded anywhere.
func (h *ExecuteHandler) Execute(ctx *gin.Context) {
	var req requestTemplate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome := h.executor.Execute(ctx.Request.Context(), domain.RequestTemplate{
		Method:        req.Method,
		URL:           req.URL,
		Headers:       req.Headers,
		Body:          req.Body,
		UseSharedAuth: req.UseSharedAuth,
	})

	ctx.JSON(http.StatusOK, toOutcomeResponse(outcome))
}
