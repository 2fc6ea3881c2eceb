package v1

import (
	"github.com/defect-tracker/middleware"
	"github.com/defect-tracker/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterDeps carries what the HTTP surface needs
type RouterDeps struct {
	Auth          AuthService
	Authenticator middleware.Authenticator
	Defects       DefectService
	Projects      ProjectService
	Reports       ReportService
	Accounts      AccountService
	LoginLimiter  *middleware.RateLimiter
	CookieSecure  bool
	AllowOrigins  []string
	Log           *zap.Logger
}

var (
	writers    = []string{models.RoleAdmin, models.RoleManager, models.RoleEngineer}
	managers   = []string{models.RoleAdmin, models.RoleManager}
	commenters = []string{models.RoleAdmin, models.RoleManager, models.RoleEngineer, models.RoleViewer}
	adminsOnly = []string{models.RoleAdmin}
)

// NewEngine builds the gin engine with global middleware, /health, /metrics and /api/v1
func NewEngine(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(deps.AllowOrigins))
	router.Use(middleware.ZapLogger(log))
	router.Use(middleware.Prometheus())

	router.GET("/health", HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	RegisterRoutes(router.Group("/api/v1"), deps)
	return router
}

// RegisterRoutes registers all v1 API routes
func RegisterRoutes(router *gin.RouterGroup, deps RouterDeps) {
	authHandler := NewAuthHandler(deps.Auth, deps.CookieSecure)
	defectHandler := NewDefectHandler(deps.Defects)
	projectHandler := NewProjectHandler(deps.Projects)
	reportHandler := NewReportHandler(deps.Reports)
	accountHandler := NewAccountHandler(deps.Accounts)
	lookupHandler := NewLookupHandler(deps.Projects, deps.Accounts)

	authenticated := middleware.AuthMiddleware(deps.Authenticator)

	// Auth endpoints
	authGroup := router.Group("/auth")
	{
		login := []gin.HandlerFunc{authHandler.Login}
		if deps.LoginLimiter != nil {
			login = append([]gin.HandlerFunc{middleware.RateLimitByIP(deps.LoginLimiter)}, login...)
		}
		authGroup.POST("/login", login...)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", authenticated, authHandler.Me)
	}

	api := router.Group("")
	api.Use(authenticated)

	api.GET("/dashboard", reportHandler.Dashboard)
	api.GET("/lookups", lookupHandler.Get)

	defectGroup := api.Group("/defects")
	{
		defectGroup.GET("", defectHandler.List)
		defectGroup.GET("/:id", defectHandler.Get)
		defectGroup.POST("", middleware.RequireRoles(writers...), defectHandler.Create)
		defectGroup.PUT("/:id", middleware.RequireRoles(writers...), defectHandler.Update)
		defectGroup.DELETE("/:id", middleware.RequireRoles(managers...), defectHandler.Delete)
		defectGroup.POST("/:id/status", middleware.RequireRoles(writers...), defectHandler.ChangeStatus)
		defectGroup.POST("/:id/comments", middleware.RequireRoles(commenters...), defectHandler.AddComment)
		// author or Admin is checked by the service
		defectGroup.PUT("/:id/comments/:commentId", defectHandler.EditComment)
		defectGroup.GET("/:id/attachments/:attachmentId", defectHandler.DownloadAttachment)
		defectGroup.GET("/:id/comments/:commentId/attachments/:attachmentId", defectHandler.DownloadCommentAttachment)
	}

	projectGroup := api.Group("/projects")
	{
		projectGroup.GET("", projectHandler.List)
		projectGroup.GET("/:id", projectHandler.Get)
		projectGroup.POST("", middleware.RequireRoles(managers...), projectHandler.Create)
		projectGroup.PUT("/:id", middleware.RequireRoles(managers...), projectHandler.Update)
		projectGroup.DELETE("/:id", middleware.RequireRoles(managers...), projectHandler.Delete)
	}

	reportGroup := api.Group("/reports")
	reportGroup.Use(middleware.RequireRoles(managers...))
	{
		reportGroup.GET("", reportHandler.Index)
		reportGroup.GET("/defects", reportHandler.Defects)
		reportGroup.GET("/projects", reportHandler.Projects)
		reportGroup.GET("/statistics", reportHandler.Statistics)
	}

	accountGroup := api.Group("/account")
	accountGroup.Use(middleware.RequireRoles(adminsOnly...))
	{
		accountGroup.GET("/users", accountHandler.ListUsers)
		accountGroup.POST("/users", accountHandler.CreateUser)
		accountGroup.GET("/users/:id", accountHandler.GetUser)
		accountGroup.PUT("/users/:id", accountHandler.EditUser)
		accountGroup.DELETE("/users/:id", accountHandler.DeleteUser)
		accountGroup.GET("/roles", accountHandler.ListRoles)
		accountGroup.POST("/roles", accountHandler.CreateRole)
		accountGroup.DELETE("/roles/:id", accountHandler.DeleteRole)
	}
}
