package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/financial-coach-api/internal/middleware"
	"github.com/noah-isme/financial-coach-api/internal/models"
	"github.com/noah-isme/financial-coach-api/internal/service"
	"github.com/noah-isme/financial-coach-api/pkg/config"
	"github.com/noah-isme/financial-coach-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/financial-coach-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/financial-coach-api/pkg/middleware/requestid"
)

// RouterDependencies carries everything the HTTP surface needs.
type RouterDependencies struct {
	Auth        *AuthHandler
	Profile     *ProfileHandler
	Health      *HealthHandler
	TokenParser middleware.AccessTokenParser
	Audit       middleware.AuditWriter
	Metrics     *service.MetricsService
	Logger      *zap.Logger
	CORS        config.CORSConfig
	EnableDocs  bool
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps RouterDependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.CORS))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", deps.Health.Health)
	r.GET("/ready", deps.Health.Ready)
	r.GET("/metrics", deps.Health.Prometheus)
	if deps.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.POST("/register", deps.Auth.Register)
	r.POST("/login", deps.Auth.Login)
	r.POST("/refresh", deps.Auth.Refresh)
	r.POST("/logout", deps.Auth.Logout)

	secured := r.Group("")
	secured.Use(middleware.JWT(deps.TokenParser))
	secured.GET("/me", deps.Auth.Me)

	profile := secured.Group("/api/profile")
	profile.GET("", deps.Profile.Get)
	profile.GET("/exists", deps.Profile.Exists)
	profile.GET("/export", deps.Profile.Export)
	profile.POST("", middleware.Audit(deps.Audit, models.AuditActionProfileCreate, "profile"), deps.Profile.Create)
	profile.PUT("", middleware.Audit(deps.Audit, models.AuditActionProfileUpdate, "profile"), deps.Profile.Update)
	profile.DELETE("", middleware.Audit(deps.Audit, models.AuditActionProfileDelete, "profile"), deps.Profile.Delete)

	users := secured.Group("/api/users")
	users.DELETE("/:id/sessions", middleware.RBAC(string(models.RoleAdmin), middleware.RoleSelf), deps.Auth.RevokeSessions)

	return r
}
