package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-adp-billing/api/swagger"
	"github.com/noah-isme/sma-adp-billing/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-adp-billing/internal/middleware"
	"github.com/noah-isme/sma-adp-billing/internal/models"
	"github.com/noah-isme/sma-adp-billing/internal/repository"
	"github.com/noah-isme/sma-adp-billing/internal/service"
	"github.com/noah-isme/sma-adp-billing/pkg/cache"
	"github.com/noah-isme/sma-adp-billing/pkg/config"
	"github.com/noah-isme/sma-adp-billing/pkg/database"
	"github.com/noah-isme/sma-adp-billing/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-adp-billing/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-adp-billing/pkg/middleware/requestid"
)

// @title SMA ADP Billing API
// @version 1.0.0
// @description Tranche amounts, scholarships, global discount and payment status
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, settings cache disabled", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	studentRepo := repository.NewBillingStudentRepository(db)
	trancheRepo := repository.NewTrancheRepository(db)
	scholarshipRepo := repository.NewScholarshipRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	configRepo := repository.NewConfigurationRepository(db)

	cacheSvc := service.NewCacheService(repository.NewCacheRepository(rdb), metricsSvc, cfg.Billing.SettingsCacheTTL, logr, cfg.Billing.CacheEnabled && rdb != nil)
	settingsSvc := service.NewDiscountSettingsService(configRepo, cacheSvc, validate, logr, service.DiscountSettingsServiceConfig{
		CacheTTL: cfg.Billing.SettingsCacheTTL,
	})
	engine := service.NewDiscountEngine(scholarshipRepo, service.NewTrancheAmountResolver(), metricsSvc, logr)
	statusSvc := service.NewPaymentStatusService(studentRepo, trancheRepo, paymentRepo, settingsSvc, engine, metricsSvc, logr, service.PaymentStatusServiceConfig{
		ClassConcurrency: cfg.Billing.ClassStatusConcurrency,
	})
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, logr)

	probes := map[string]handler.ReadinessProbe{"postgres": db}
	if rdb != nil {
		probes["redis"] = redisProbe(rdb)
	}

	statusHandler := handler.NewPaymentStatusHandler(statusSvc, validate)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, probes)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenSvc))

	billing := api.Group("/billing")
	{
		students := billing.Group("/students")
		students.GET("/:id/status", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleBursar), string(models.RoleSuperAdmin), internalmiddleware.SelfRole), statusHandler.StudentStatus)
		students.POST("/:id/quote", internalmiddleware.RBAC(string(models.RoleAdmin), string(models.RoleBursar), string(models.RoleSuperAdmin), internalmiddleware.SelfRole), statusHandler.Quote)

		billing.GET("/classes/:id/status", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleBursar, models.RoleSuperAdmin, models.RoleTeacher), statusHandler.ClassStatus)

		billing.GET("/settings", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleBursar, models.RoleSuperAdmin), settingsHandler.Get)
		billing.PUT("/settings", internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), settingsHandler.Update)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func redisProbe(client *redis.Client) handler.ProbeFunc {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
