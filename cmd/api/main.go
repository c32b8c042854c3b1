package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "skillmatrix/docs" // This is for Swagger
	"skillmatrix/internal/auth"
	"skillmatrix/internal/config"
	"skillmatrix/internal/database"
	"skillmatrix/internal/handlers"
	"skillmatrix/internal/logger"
	"skillmatrix/internal/middleware"
	"skillmatrix/internal/models"
	"skillmatrix/internal/repository"
	"skillmatrix/internal/service"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Skill Matrix API
// @version 1.0
// @description Backend API for skill assessment and competency tracking

// @contact.name API Support
// @contact.email support@skillmatrix.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(logger.Config{Level: cfg.Log.Level})

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	deptRepo := repository.NewDepartmentRepository(db.DB)
	skillRepo := repository.NewSkillRepository(db.DB)
	assessmentRepo := repository.NewAssessmentRepository(db.DB)
	historyRepo := repository.NewAssessmentHistoryRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	statsRepo := repository.NewStatsRepository(db.DB)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	authSvc := service.NewAuthService(userRepo, sessionRepo, auditRepo, authService,
		cfg.JWT.Expiration, cfg.JWT.RefreshExpiration)
	userSvc := service.NewUserService(userRepo, deptRepo, authService)
	catalogSvc := service.NewCatalogService(deptRepo, skillRepo, userRepo)
	assessmentSvc := service.NewAssessmentService(db.DB, assessmentRepo, historyRepo, notificationRepo, userRepo, skillRepo)
	statsSvc := service.NewStatsService(statsRepo, userRepo, deptRepo)
	dashboardSvc := service.NewDashboardService(statsSvc, statsRepo, assessmentRepo, notificationRepo, deptRepo)
	notificationSvc := service.NewNotificationService(notificationRepo)
	auditSvc := service.NewAuditService(auditRepo, userRepo)

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	rbacMw := middleware.NewRBACMiddleware(userRepo)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	auditMw := middleware.NewAuditMiddleware(auditRepo)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, userSvc)
	userHandler := handlers.NewUserHandler(userSvc, auditSvc)
	catalogHandler := handlers.NewCatalogHandler(catalogSvc)
	assessmentHandler := handlers.NewAssessmentHandler(assessmentSvc)
	reportHandler := handlers.NewReportHandler(statsSvc, assessmentSvc, userSvc)
	dashboardHandler := handlers.NewDashboardHandler(dashboardSvc)
	notificationHandler := handlers.NewNotificationHandler(notificationSvc)
	auditHandler := handlers.NewAuditHandler(auditSvc)

	// Route helpers
	protect := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(http.HandlerFunc(h))
	}
	protectRoles := func(h http.HandlerFunc, roles ...models.Role) http.Handler {
		return authMw.Authenticate(rbacMw.RequireAnyRole(roles...)(http.HandlerFunc(h)))
	}
	protectAudited := func(h http.HandlerFunc, action, resource string, roles ...models.Role) http.Handler {
		return authMw.Authenticate(
			rbacMw.RequireAnyRole(roles...)(
				auditMw.Log(action, resource)(http.HandlerFunc(h)),
			),
		)
	}

	// Setup router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)

	// Auth routes
	mux.Handle("POST /api/v1/auth/logout", protect(authHandler.Logout))
	mux.Handle("POST /api/v1/auth/logout-all", protect(authHandler.LogoutAll))
	mux.Handle("POST /api/v1/auth/change-password", protect(authHandler.ChangePassword))
	mux.Handle("GET /api/v1/auth/me", protect(authHandler.Me))

	// Dashboard
	mux.Handle("GET /api/v1/dashboard",
		authMw.Authenticate(rbacMw.RequireActive(http.HandlerFunc(dashboardHandler.Get))))

	// Assessments
	mux.Handle("POST /api/v1/assessments", protect(assessmentHandler.Submit))
	mux.Handle("GET /api/v1/assessments", protect(assessmentHandler.List))
	mux.Handle("GET /api/v1/assessments/my", protect(assessmentHandler.My))
	mux.Handle("GET /api/v1/assessments/{id}", protect(assessmentHandler.Get))
	mux.Handle("GET /api/v1/assessments/{id}/history", protect(assessmentHandler.History))
	mux.Handle("POST /api/v1/assessments/{id}/review", protect(assessmentHandler.Review))
	mux.Handle("POST /api/v1/assessments/{id}/adjust", protect(assessmentHandler.Adjust))

	// Users
	mux.Handle("POST /api/v1/users",
		protectAudited(userHandler.Create, "user.create", "users", models.RoleAdmin, models.RoleHR))
	mux.Handle("GET /api/v1/users", protect(userHandler.List))
	mux.Handle("GET /api/v1/users/{id}", protect(userHandler.Get))
	mux.Handle("PUT /api/v1/users/{id}",
		protectAudited(userHandler.Update, "user.update", "users", models.RoleAdmin, models.RoleHR))
	mux.Handle("POST /api/v1/users/{id}/deactivate",
		protectAudited(userHandler.Deactivate, "user.deactivate", "users", models.RoleAdmin, models.RoleHR))
	mux.Handle("POST /api/v1/users/{id}/reactivate",
		protectAudited(userHandler.Reactivate, "user.reactivate", "users", models.RoleAdmin, models.RoleHR))

	// Departments and required skills
	mux.Handle("GET /api/v1/departments", protect(catalogHandler.ListDepartments))
	mux.Handle("GET /api/v1/departments/{id}", protect(catalogHandler.GetDepartment))
	mux.Handle("POST /api/v1/departments",
		protectAudited(catalogHandler.CreateDepartment, "department.create", "departments", models.RoleAdmin, models.RoleHR))
	mux.Handle("PUT /api/v1/departments/{id}",
		protectAudited(catalogHandler.UpdateDepartment, "department.update", "departments", models.RoleAdmin, models.RoleHR))
	mux.Handle("DELETE /api/v1/departments/{id}",
		protectAudited(catalogHandler.DeleteDepartment, "department.delete", "departments", models.RoleAdmin, models.RoleHR))
	mux.Handle("GET /api/v1/departments/{id}/required-skills", protect(catalogHandler.GetRequiredSkills))
	mux.Handle("PUT /api/v1/departments/{id}/required-skills",
		protectAudited(catalogHandler.SetRequiredSkill, "department.required_skill.set", "departments", models.RoleAdmin, models.RoleHR))
	mux.Handle("DELETE /api/v1/departments/{id}/required-skills/{skillId}",
		protectAudited(catalogHandler.RemoveRequiredSkill, "department.required_skill.remove", "departments", models.RoleAdmin, models.RoleHR))

	// Skill catalog
	mux.Handle("GET /api/v1/skill-categories", protect(catalogHandler.ListCategories))
	mux.Handle("POST /api/v1/skill-categories",
		protectRoles(catalogHandler.CreateCategory, models.RoleAdmin, models.RoleHR))
	mux.Handle("PUT /api/v1/skill-categories/{id}",
		protectRoles(catalogHandler.UpdateCategory, models.RoleAdmin, models.RoleHR))
	mux.Handle("GET /api/v1/skills", protect(catalogHandler.ListSkills))
	mux.Handle("GET /api/v1/skills/{id}", protect(catalogHandler.GetSkill))
	mux.Handle("POST /api/v1/skills",
		protectRoles(catalogHandler.CreateSkill, models.RoleAdmin, models.RoleHR))
	mux.Handle("PUT /api/v1/skills/{id}",
		protectRoles(catalogHandler.UpdateSkill, models.RoleAdmin, models.RoleHR))
	mux.Handle("DELETE /api/v1/skills/{id}",
		protectRoles(catalogHandler.DeactivateSkill, models.RoleAdmin, models.RoleHR))

	// Reports
	mux.Handle("GET /api/v1/reports/me", protect(reportHandler.MyStats))
	mux.Handle("GET /api/v1/reports/users/{id}", protect(reportHandler.UserStats))
	mux.Handle("GET /api/v1/reports/departments/{id}", protect(reportHandler.DepartmentStats))
	mux.Handle("GET /api/v1/reports/departments/{id}/gaps", protect(reportHandler.SkillGaps))
	mux.Handle("POST /api/v1/reports/compare", protect(reportHandler.Compare))
	mux.Handle("GET /api/v1/reports/trend",
		authMw.Authenticate(rbacMw.RequireElevated(http.HandlerFunc(reportHandler.Trend))))
	mux.Handle("GET /api/v1/reports/export", protect(reportHandler.ExportAssessments))
	mux.Handle("GET /api/v1/reports/export/users", protect(reportHandler.ExportUsers))
	mux.Handle("GET /api/v1/reports/export/departments", protect(reportHandler.ExportDepartments))

	// Notifications
	mux.Handle("GET /api/v1/notifications", protect(notificationHandler.List))
	mux.Handle("GET /api/v1/notifications/unread-count", protect(notificationHandler.UnreadCount))
	mux.Handle("POST /api/v1/notifications/{id}/read", protect(notificationHandler.MarkRead))
	mux.Handle("POST /api/v1/notifications/read-all", protect(notificationHandler.MarkAllRead))
	mux.Handle("DELETE /api/v1/notifications/{id}", protect(notificationHandler.Delete))

	// Audit log
	mux.Handle("GET /api/v1/audit", protectRoles(auditHandler.List, models.RoleAdmin))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"error"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`))
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.SecurityHeaders(
		corsMw.Handler(
			rateLimiter.Limit(
				middleware.LoggingMiddleware(mux),
			),
		),
	)

	// Periodic session cleanup
	cleanupTicker := time.NewTicker(1 * time.Hour)
	defer cleanupTicker.Stop()
	go func() {
		for range cleanupTicker.C {
			if err := authSvc.CleanupExpiredSessions(); err != nil {
				slog.Error("Session cleanup failed", "error", err)
			}
		}
	}()

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down")

	// Graceful shutdown with timeout
	ctx, cancel := getContext(30 * time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server stopped")
}
