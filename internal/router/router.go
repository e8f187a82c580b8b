package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/handler"
	"github.com/stemsi/degree-audit-backend/internal/middleware"
	"github.com/stemsi/degree-audit-backend/internal/response"
	"github.com/stemsi/degree-audit-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Audit  *handler.AuditHandler
	Degree *handler.DegreeHandler
	Health *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// Multipart parts beyond this spill to temp files.
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.Health.Health)

	// ─── 1. Requirement Catalogue (Public, Cached) ──────────────────────
	degrees := router.Group("/api/v1/degrees")
	degrees.Use(middleware.CacheControl(5 * time.Minute))
	{
		degrees.GET("", handlers.Degree.GetAll)
		degrees.GET("/:key", handlers.Degree.GetByKey)
	}

	// Rate limiter for audit runs, keyed by student.
	auditLimiter := middleware.NewRateLimiter(cfg.UploadRatePerMinute, time.Minute)

	// ─── 2. Student Group (JWT) ─────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.NoStore(),
	)
	{
		studentAPI.POST("/audits", auditLimiter.Middleware(), handlers.Audit.UploadReport)
		studentAPI.POST("/audits/text", auditLimiter.Middleware(), handlers.Audit.AuditText)
		studentAPI.GET("/audits", handlers.Audit.List)
		studentAPI.GET("/audits/:id", handlers.Audit.Get)
		studentAPI.GET("/audits/:id/plan", handlers.Audit.Plan)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.POST("/degrees/reload",
			middleware.RequirePermission(service.PermissionReloadDegrees),
			handlers.Degree.Reload,
		)
	}

	return router
}
