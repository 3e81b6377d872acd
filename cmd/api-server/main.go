package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/financial-coach-api/api/swagger"
	"github.com/noah-isme/financial-coach-api/internal/handler"
	"github.com/noah-isme/financial-coach-api/internal/repository"
	"github.com/noah-isme/financial-coach-api/internal/service"
	"github.com/noah-isme/financial-coach-api/pkg/cache"
	"github.com/noah-isme/financial-coach-api/pkg/config"
	"github.com/noah-isme/financial-coach-api/pkg/database"
	"github.com/noah-isme/financial-coach-api/pkg/export"
	"github.com/noah-isme/financial-coach-api/pkg/jobs"
	"github.com/noah-isme/financial-coach-api/pkg/logger"
)

// @title Financial Coach Auth API
// @version 1.0.0
// @description Account registration, JWT sessions and financial profiles
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, profile cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	auditDispatcher := service.NewAuditDispatcher(auditRepo, jobs.Config{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
		Logger:     logr,
	})
	auditDispatcher.Start(ctx)

	issuer := service.NewTokenIssuer(service.TokenConfig{
		SigningKey:      cfg.JWT.SigningKey,
		AccessTokenTTL:  cfg.JWT.AccessExpiration,
		RefreshTokenTTL: cfg.JWT.RefreshExpiration,
		Issuer:          cfg.JWT.Issuer,
	}, time.Now)

	authSvc := service.NewAuthService(service.AuthServiceParams{
		Users:       userRepo,
		Roles:       roleRepo,
		Ledger:      tokenRepo,
		Audit:       auditDispatcher,
		Tx:          db,
		Tokens:      issuer,
		Credentials: service.NewPasswordAuthenticator(userRepo),
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
	})

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Profile.CacheTTL, logr, cacheRepo.Enabled())
	profileSvc := service.NewProfileService(profileRepo, userRepo, cacheSvc, validate, logr, service.ProfileServiceConfig{CacheTTL: cfg.Profile.CacheTTL})
	exportSvc := service.NewProfileExportService(profileSvc, export.NewCSVExporter(), export.NewPDFExporter(cfg.ServiceName), logr)

	router := handler.NewRouter(handler.RouterDependencies{
		Auth:        handler.NewAuthHandler(authSvc),
		Profile:     handler.NewProfileHandler(profileSvc, exportSvc),
		Health:      handler.NewHealthHandler(cfg.ServiceName, db, cacheRepo, metricsSvc),
		TokenParser: issuer,
		Audit:       auditDispatcher,
		Metrics:     metricsSvc,
		Logger:      logr,
		CORS:        cfg.CORS,
		EnableDocs:  cfg.Env != config.EnvProduction,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := auditDispatcher.Stop(shutdownCtx); err != nil {
		logr.Warn("audit queue not fully flushed", zap.Error(err))
	}
	logr.Info("server stopped")
}
