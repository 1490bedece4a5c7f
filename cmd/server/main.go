package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditapp "github.com/finledger/backend/internal/application/audit"
	emiapp "github.com/finledger/backend/internal/application/emi"
	financeapp "github.com/finledger/backend/internal/application/finance"
	ledgerapp "github.com/finledger/backend/internal/application/ledger"
	"github.com/finledger/backend/internal/infrastructure/config"
	"github.com/finledger/backend/internal/infrastructure/logger"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
	"github.com/finledger/backend/internal/interfaces/http/handler"
	"github.com/finledger/backend/internal/interfaces/http/middleware"
	"github.com/finledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting consistency engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	tracing := telemetry.NewDBTracing(telemetry.DBTracingConfig{
		Enabled:         cfg.Tracing.Enabled,
		LogFullSQL:      cfg.Tracing.LogFullSQL,
		SlowQueryThresh: cfg.Tracing.SlowQueryThreshold,
	}, log)
	if err := tracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Core engine wiring: every mutating operation flows through the
	// transaction scope.
	scope := persistence.NewGormTransactionScope(db.DB)
	registry := ledgerapp.NewAccountRegistry(log)
	posting := ledgerapp.NewPostingEngine(registry, log)

	purchaseService := financeapp.NewPurchaseService(scope, posting, log,
		financeapp.WithPurchaseMaxRetries(cfg.Engine.MaxRetries))
	paymentService := financeapp.NewPaymentService(scope, posting, log,
		financeapp.WithPaymentMaxRetries(cfg.Engine.MaxRetries))
	emiService := emiapp.NewEMIService(scope, posting, log,
		emiapp.WithEMIMaxRetries(cfg.Engine.MaxRetries))
	auditService := auditapp.NewAuditService(scope, log)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.Recovery(log))
	engine.Use(middleware.RequestLogger(log))
	middleware.SetupValidator()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	r := router.NewRouter(engine)
	r.Register(handler.NewFinanceHandler(purchaseService, paymentService))
	r.Register(handler.NewEMIHandler(emiService))
	r.Register(handler.NewAuditHandler(auditService))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()
	log.Info("Server listening", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
