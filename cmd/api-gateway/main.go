package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/unibody-docs-api/api/swagger"
	"github.com/noah-isme/unibody-docs-api/internal/handler"
	"github.com/noah-isme/unibody-docs-api/internal/middleware"
	"github.com/noah-isme/unibody-docs-api/internal/repository"
	"github.com/noah-isme/unibody-docs-api/internal/service"
	"github.com/noah-isme/unibody-docs-api/pkg/cache"
	"github.com/noah-isme/unibody-docs-api/pkg/config"
	"github.com/noah-isme/unibody-docs-api/pkg/database"
	"github.com/noah-isme/unibody-docs-api/pkg/export"
	"github.com/noah-isme/unibody-docs-api/pkg/jobs"
	"github.com/noah-isme/unibody-docs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/unibody-docs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/unibody-docs-api/pkg/middleware/requestid"
	"github.com/noah-isme/unibody-docs-api/pkg/policy"
)

// @title University Body Documents API
// @version 1.0.0
// @description Document publication and approval workflow for university bodies
// @BasePath /api/v1
// @schemes http https
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	pol, err := policy.New()
	if err != nil {
		logr.Fatal("failed to build access policy", zap.Error(err))
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc, closeCache := newCacheService(ctx, cfg, metricsSvc, logr)
	defer closeCache()

	auditSvc := service.NewAuditService(repository.NewAuditRepository(db), nil, metricsSvc, logr.Named("audit"))
	auditQueue := jobs.NewQueue("audit", auditSvc.Handle, jobs.QueueConfig{
		Workers:      cfg.Audit.Workers,
		BufferSize:   cfg.Audit.BufferSize,
		MaxRetries:   cfg.Audit.MaxRetries,
		RetryDelay:   cfg.Audit.RetryDelay,
		DrainTimeout: cfg.ShutdownTimeout,
		Logger:       logr.Named("jobs"),
	})
	auditSvc.AttachQueue(auditQueue)
	auditQueue.Start(context.Background())
	defer auditQueue.Stop()

	validate := validator.New()
	userRepo := repository.NewUserRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	documentSvc := service.NewDocumentService(documentRepo, unitRepo, cacheSvc, auditSvc, metricsSvc, validate, logr.Named("documents"), service.DocumentConfig{
		MaxFileSizeBytes: cfg.Documents.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Documents.AllowedMIMEs,
		MutationWindow:   cfg.Documents.MutationWindow,
		CacheTTL:         cfg.Cache.TTL,
	}).WithRenderers(map[string]service.DatasetRenderer{
		"csv": export.NewCSVExporter(),
		"pdf": export.NewPDFExporter(),
	})
	unitSvc := service.NewUnitService(unitRepo, userRepo, auditSvc, validate, logr.Named("units"))
	userSvc := service.NewUserService(userRepo, unitRepo, auditSvc, validate, logr.Named("users"))

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Documents.MaxFileSizeBytes + 1<<20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Documents: handler.NewDocumentHandler(documentSvc),
		Units:     handler.NewUnitHandler(unitSvc),
		Users:     handler.NewUserHandler(userSvc),
		Metrics:   metricsHandler,
	}, authSvc, pol)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "cache", cfg.Cache.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newCacheService picks the listing cache backend. An unreachable Redis
// degrades to the in-process cache rather than failing startup.
func newCacheService(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func()) {
	cacheLog := logr.Named("cache")
	noop := func() {}
	switch cfg.Cache.Driver {
	case config.CacheDriverNone:
		return service.NewCacheService(nil, metrics, cfg.Cache.TTL, cacheLog, false), noop
	case config.CacheDriverRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err == nil {
			repo := repository.NewRedisCacheRepository(client, cacheLog)
			return service.NewCacheService(repo, metrics, cfg.Cache.TTL, cacheLog, true), func() { _ = repo.Close() }
		}
		cacheLog.Warn("redis unavailable, falling back to memory cache", zap.Error(err))
	}
	return service.NewCacheService(repository.NewMemoryCacheRepository(cfg.Cache.TTL), metrics, cfg.Cache.TTL, cacheLog, true), noop
}
