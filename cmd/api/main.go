package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/intellilearn/admin-api/api/swagger"
	"github.com/intellilearn/admin-api/internal/handler"
	"github.com/intellilearn/admin-api/internal/middleware"
	"github.com/intellilearn/admin-api/internal/models"
	"github.com/intellilearn/admin-api/internal/repository"
	"github.com/intellilearn/admin-api/internal/service"
	"github.com/intellilearn/admin-api/pkg/cache"
	"github.com/intellilearn/admin-api/pkg/config"
	"github.com/intellilearn/admin-api/pkg/database"
	"github.com/intellilearn/admin-api/pkg/logger"
	corsmiddleware "github.com/intellilearn/admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/intellilearn/admin-api/pkg/middleware/requestid"
)

// @title IntelliLearn Admin API
// @version 1.0.0
// @description School partnership intake and roster administration backend
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, statistics caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	contactRepo := repository.NewContactRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, cfg.Cache.StatsTTL, cfg.Cache.Enabled, logr)
	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "intellilearn-admin-api",
	}, logr)
	mailSvc := service.NewMailService(service.NewDialer(cfg.SMTP), emailLogRepo, cfg.SMTP, metricsSvc, validate, logr)
	contactSvc := service.NewContactService(contactRepo, mailSvc, authSvc, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, contactRepo, authSvc, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, authSvc, cacheSvc, validate, logr)

	contactHandler := handler.NewContactHandler(contactSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	notificationHandler := handler.NewNotificationHandler(mailSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	auth := middleware.JWT(authSvc)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RolePrincipal, models.RoleTeacher)

	// Public intake and login.
	r.POST("/school-contact", contactHandler.Submit)
	r.POST("/teachers/login", teacherHandler.Login)

	// Admin approval workflow.
	admin := r.Group("/admin", auth, adminOnly)
	{
		admin.GET("/school-contacts", contactHandler.List)
		admin.GET("/school-contacts/pending", contactHandler.ListPending)
		admin.GET("/school-contacts/approved", contactHandler.ListApproved)
		admin.GET("/school-contacts/:id", contactHandler.Get)
		admin.POST("/school-contacts/:id/approve", contactHandler.Approve)
		admin.POST("/school-contacts/:id/reject", contactHandler.Reject)
		admin.POST("/school-contacts/:id/review", contactHandler.Review)
		admin.POST("/school-contacts/:id/activate", contactHandler.Activate)
		admin.POST("/school-contacts/:id/deactivate", contactHandler.Deactivate)
		admin.PUT("/institutions/:id/status", contactHandler.UpdateStatus)
		admin.POST("/institutions/:id/send-credentials", contactHandler.SendCredentials)

		admin.POST("/send-email", notificationHandler.Send)
		admin.GET("/emails", notificationHandler.Logs)
		admin.GET("/email-stats", notificationHandler.Statistics)
	}

	// Teacher roster.
	teachers := r.Group("/teachers", auth)
	{
		teachers.POST("/register", staff, teacherHandler.Register)
		teachers.GET("", staff, teacherHandler.List)
		teachers.GET("/statistics", staff, teacherHandler.Statistics)
		teachers.GET("/export", staff, teacherHandler.Export)
		teachers.GET("/bulk-import/template", staff, teacherHandler.ImportTemplate)
		teachers.POST("/bulk-import", staff, teacherHandler.BulkImport)
		teachers.POST("/change-password", anyRole, teacherHandler.ChangePassword)
		teachers.GET("/:id", anyRole, teacherHandler.Get)
		teachers.PUT("/:id", anyRole, teacherHandler.Update)
		teachers.DELETE("/:id", staff, teacherHandler.Delete)
		teachers.PUT("/:id/status", staff, teacherHandler.ChangeStatus)
		teachers.POST("/:id/reset-password", staff, teacherHandler.ResetPassword)
	}

	// Student roster.
	students := r.Group("/students", auth, anyRole)
	{
		students.GET("", studentHandler.List)
		students.POST("", staff, studentHandler.Create)
		students.GET("/statistics", studentHandler.Statistics)
		students.GET("/template", studentHandler.Template)
		students.POST("/bulk-import", staff, studentHandler.BulkImport)
		students.POST("/bulk-delete", staff, studentHandler.BulkDelete)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", staff, studentHandler.Update)
		students.DELETE("/:id", staff, studentHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
