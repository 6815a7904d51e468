package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	financeapp "github.com/libraria/acquisitions/internal/application/finance"
	findomain "github.com/libraria/acquisitions/internal/domain/finance"
	"github.com/libraria/acquisitions/internal/domain/invoice"
	"github.com/libraria/acquisitions/internal/infrastructure/config"
	"github.com/libraria/acquisitions/internal/infrastructure/exchange"
	financeclient "github.com/libraria/acquisitions/internal/infrastructure/finance"
	"github.com/libraria/acquisitions/internal/infrastructure/logger"
	"github.com/libraria/acquisitions/internal/interfaces/http/handler"
	"github.com/libraria/acquisitions/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	client := financeclient.NewClient(financeclient.ClientConfig{
		BaseURL: cfg.Finance.BaseURL,
		Tenant:  cfg.Finance.Tenant,
		Token:   cfg.Finance.Token,
		Timeout: cfg.Finance.Timeout,
	}, log)

	rateCache, err := buildRateCache(cfg, log)
	if err != nil {
		log.Fatal("failed to build exchange rate cache", zap.Error(err))
	}
	resolver := exchange.NewResolver(client, rateCache, log)

	guard := findomain.NewBudgetExpenseClassGuard(client, log)
	reconciler := findomain.NewTransactionReconciler(client, client, client, resolver, guard, log)
	proration := invoice.NewProrationEngine(log)
	service := financeapp.NewInvoiceFinancialService(proration, reconciler, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	router.NewRouter(engine).
		Register(handler.NewInvoiceHandler(service, cfg.Finance.Tenant, log)).
		Setup()

	server := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: engine,
	}

	go func() {
		log.Info("server starting",
			zap.String("app", cfg.App.Name),
			zap.String("port", cfg.App.Port),
			zap.String("env", cfg.App.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}

// buildRateCache selects the exchange-rate cache backend from config
func buildRateCache(cfg *config.Config, log *zap.Logger) (exchange.RateCache, error) {
	if cfg.Exchange.CacheStore == "redis" {
		return exchange.NewRedisRateCache(exchange.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Exchange.CacheTTL)
	}
	return exchange.NewInMemoryRateCache(
		exchange.WithTTL(cfg.Exchange.CacheTTL),
		exchange.WithCacheLogger(log),
	), nil
}
