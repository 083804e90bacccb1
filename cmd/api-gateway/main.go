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

	_ "github.com/noah-isme/course-ledger-api/api/swagger"
	"github.com/noah-isme/course-ledger-api/internal/handler"
	"github.com/noah-isme/course-ledger-api/internal/middleware"
	"github.com/noah-isme/course-ledger-api/internal/repository"
	"github.com/noah-isme/course-ledger-api/internal/service"
	"github.com/noah-isme/course-ledger-api/pkg/cache"
	"github.com/noah-isme/course-ledger-api/pkg/config"
	"github.com/noah-isme/course-ledger-api/pkg/database"
	"github.com/noah-isme/course-ledger-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-ledger-api/pkg/middleware/requestid"
)

// @title Course Ledger API
// @version 0.1.0
// @description Enrollment lifecycle reconciliation and teaching statistics
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

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Statistics.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, statistics cache disabled", "error", err)
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewRedisCacheRepository(redisClient)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Statistics.CacheTTL, logr, cacheRepo != nil)

	validate := validator.New()

	store := repository.NewStore(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statisticsRepo := repository.NewStatisticsRepository(db)

	teacherSvc := service.NewTeacherService(teacherRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, teacherRepo, cacheSvc, validate, logr)
	rosterSvc := service.NewRosterService(store, cacheSvc, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, logr)
	sessionSvc := service.NewSessionService(store, sessionRepo, cacheSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(store, attendanceRepo, logr)
	statisticsSvc := service.NewStatisticsService(statisticsRepo, cacheSvc, metricsSvc, logr)
	auditSvc := service.NewAuditService(auditRepo, logr)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/metrics", metricsHandler.Handle)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.Auth(cfg.Auth.TokenSecret))

	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	api.GET("/teachers", teacherHandler.List)
	api.POST("/teachers", teacherHandler.Create)
	api.GET("/teachers/:id", teacherHandler.Get)
	api.PUT("/teachers/:id", teacherHandler.Update)
	api.DELETE("/teachers/:id", teacherHandler.Delete)

	studentHandler := handler.NewStudentHandler(studentSvc)
	api.GET("/students", studentHandler.List)
	api.POST("/students", studentHandler.Create)
	api.GET("/students/:id", studentHandler.Get)
	api.PUT("/students/:id", studentHandler.Update)

	courseHandler := handler.NewCourseHandler(courseSvc)
	api.GET("/courses", courseHandler.List)
	api.POST("/courses", courseHandler.Create)
	api.GET("/courses/:id", courseHandler.Get)
	api.PUT("/courses/:id", courseHandler.Update)
	api.DELETE("/courses/:id", courseHandler.Delete)

	rosterHandler := handler.NewRosterHandler(rosterSvc, enrollmentSvc)
	api.GET("/courses/:id/roster", rosterHandler.List)
	api.PUT("/courses/:id/roster", rosterHandler.Apply)

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	api.GET("/courses/:id/sessions", sessionHandler.List)
	api.PUT("/courses/:id/sessions", sessionHandler.Reconcile)

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	api.GET("/sessions/:id/attendance", attendanceHandler.List)
	api.PUT("/sessions/:id/attendance", attendanceHandler.Record)

	statisticsHandler := handler.NewStatisticsHandler(statisticsSvc)
	api.GET("/statistics/hours", statisticsHandler.Hours)
	api.GET("/statistics/enrollments", statisticsHandler.Enrollments)
	api.GET("/statistics/retention", statisticsHandler.Retention)

	auditHandler := handler.NewAuditHandler(auditSvc)
	api.GET("/audit-logs", auditHandler.List)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
