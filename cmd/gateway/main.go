package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/olmedhq/erp-gateway/config"
	"github.com/olmedhq/erp-gateway/internal/alert"
	"github.com/olmedhq/erp-gateway/internal/domain"
	"github.com/olmedhq/erp-gateway/internal/erp"
	"github.com/olmedhq/erp-gateway/internal/health"
	ctxlog "github.com/olmedhq/erp-gateway/internal/log"
	"github.com/olmedhq/erp-gateway/internal/metrics"
	"github.com/olmedhq/erp-gateway/internal/registry"
	"github.com/olmedhq/erp-gateway/internal/scheduler"
	"github.com/olmedhq/erp-gateway/internal/syncconfig"
	"github.com/olmedhq/erp-gateway/internal/token"
	httptransport "github.com/olmedhq/erp-gateway/internal/transport/http"
	"github.com/olmedhq/erp-gateway/internal/transport/http/handler"
	"github.com/olmedhq/erp-gateway/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	erpClient, err := erp.NewClient(
		cfg.ErpBaseURL,
		cfg.ErpUsername,
		cfg.ErpPassword,
		time.Duration(cfg.RequestTimeoutSec)*time.Second,
		logger,
	)
	if err != nil {
		stop()
		log.Fatalf("erp client: %v", err)
	}

	encKey, err := hex.DecodeString(cfg.WebhookEncryptionKey)
	if err != nil {
		stop()
		log.Fatalf("webhook encryption key: %v", err)
	}
	verifier, err := webhook.NewVerifier(encKey, []byte(cfg.WebhookSignatureKey))
	if err != nil {
		stop()
		log.Fatalf("webhook verifier: %v", err)
	}

	metrics.Register()
	checker := health.NewChecker(erpClient, logger, prometheus.DefaultRegisterer)

	// Shared token lifecycle
	tokenStore := token.NewStore()
	tokenManager := token.NewManager(tokenStore, erpClient, logger, domain.ProviderOlmed)
	go tokenManager.KeepFresh(ctx, time.Duration(cfg.TokenRefreshIntervalSec)*time.Second)

	// Jobs
	reg := registry.New()
	productStore := syncconfig.NewStore("products", cfg.ProductSyncPath, logger)
	orderStore := syncconfig.NewStore("orders", cfg.OrderSyncPath, logger)
	if added, removed, err := syncconfig.Apply(reg, logger, productStore, orderStore); err != nil {
		logger.Warn("initial sync-config load failed, registry starts empty", "error", err)
	} else {
		logger.Info("sync configs loaded", "added", added, "removed", removed)
	}

	notifier := alert.NewNotifier(cfg.Env, cfg.ResendAPIKey, cfg.AlertFrom, cfg.AlertTo, logger)
	executor := scheduler.NewExecutor(tokenManager, erpClient.Host(), time.Duration(cfg.RequestTimeoutSec)*time.Second, logger)
	runner := scheduler.NewRunner(
		reg,
		executor,
		notifier,
		logger,
		time.Duration(cfg.TickIntervalSec)*time.Second,
		cfg.MaxConcurrentExecutions,
		cfg.AlertFailureThreshold,
	)
	go runner.Start(ctx)

	// HTTP
	jobHandler := handler.NewJobHandler(reg, logger)
	tokenHandler := handler.NewTokenHandler(tokenManager, logger)
	executeHandler := handler.NewExecuteHandler(executor, logger)
	webhookHandler := handler.NewWebhookHandler(verifier, erpClient, tokenManager, logger)
	syncHandler := handler.NewSyncHandler(reg, logger, productStore, orderStore)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(
			logger,
			jobHandler,
			tokenHandler,
			executeHandler,
			webhookHandler,
			syncHandler,
			[]byte(cfg.JWTSecret),
		),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
