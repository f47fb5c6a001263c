package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ustozhub/ustozhub-api/api/swagger"
	"github.com/ustozhub/ustozhub-api/internal/handler"
	"github.com/ustozhub/ustozhub-api/internal/middleware"
	"github.com/ustozhub/ustozhub-api/internal/models"
	"github.com/ustozhub/ustozhub-api/internal/repository"
	"github.com/ustozhub/ustozhub-api/internal/service"
	"github.com/ustozhub/ustozhub-api/pkg/cache"
	"github.com/ustozhub/ustozhub-api/pkg/config"
	"github.com/ustozhub/ustozhub-api/pkg/database"
	"github.com/ustozhub/ustozhub-api/pkg/export"
	"github.com/ustozhub/ustozhub-api/pkg/jobs"
	"github.com/ustozhub/ustozhub-api/pkg/logger"
	corsmiddleware "github.com/ustozhub/ustozhub-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ustozhub/ustozhub-api/pkg/middleware/requestid"
	"github.com/ustozhub/ustozhub-api/pkg/notify"
	"github.com/ustozhub/ustozhub-api/pkg/payments"
)

// @title UstozHub API
// @version 0.1.0
// @description Tutoring marketplace: availability, slot discovery and booking
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Slot caching degrades gracefully without Redis.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, slot caching disabled", "error", err)
		redisClient = nil
	}

	teacherRepo := repository.NewTeacherRepository(db)
	ruleRepo := repository.NewAvailabilityRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "ustozhub-api",
		Audience:           []string{"ustozhub"},
	})
	teacherSvc := service.NewTeacherService(teacherRepo, nil, logr, cfg.Booking.DefaultTimezone)
	slotSvc := service.NewSlotService(teacherRepo, ruleRepo, bookingRepo, subjectRepo, cacheRepo, cfg.Booking, logr)
	availabilitySvc := service.NewAvailabilityService(ruleRepo, teacherRepo, slotSvc, nil, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, teacherRepo, nil, logr)
	scheduleSvc := service.NewScheduleService(teacherRepo, ruleRepo, bookingRepo, export.NewPDFExporter(), logr)
	notificationSvc := service.NewNotificationService(notify.NewLogNotifier(logr), teacherRepo, cfg.Notifications, logr)

	queue := jobs.NewQueue("notifications", notificationSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	bookingSvc := service.NewBookingService(
		bookingRepo,
		teacherRepo,
		slotSvc,
		payments.NewNoopProvider(logr),
		queue,
		db,
		nil,
		logr,
	)

	authHandler := handler.NewAuthHandler(authSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	slotHandler := handler.NewSlotHandler(slotSvc, metricsSvc, cfg.Booking)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc, metricsSvc, export.NewCSVExporter())
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	teachers := api.Group("/teachers")
	{
		teachers.GET("", middleware.OptionalJWT(authSvc), teacherHandler.List)
		teachers.GET("/me", middleware.JWT(authSvc), teacherHandler.Me)
		teachers.GET("/:id", teacherHandler.Get)
		teachers.GET("/:id/slots", slotHandler.List)
		teachers.GET("/:id/availability", availabilityHandler.List)
		teachers.GET("/:id/offerings", subjectHandler.List)
		teachers.GET("/:id/schedule", middleware.JWT(authSvc), scheduleHandler.Get)

		teachers.POST("", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), teacherHandler.Create)
		teachers.PATCH("/:id/verification", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), teacherHandler.SetVerification)

		owned := teachers.Group("", middleware.JWT(authSvc), middleware.TeacherSelf(teacherSvc))
		{
			owned.PUT("/:id", teacherHandler.Update)
			owned.DELETE("/:id", teacherHandler.Delete)
			owned.POST("/:id/availability", middleware.Audit(userRepo, "availability.create", "availability_rule"), availabilityHandler.Create)
			owned.PUT("/:id/availability/:rid", middleware.Audit(userRepo, "availability.update", "availability_rule"), availabilityHandler.Update)
			owned.DELETE("/:id/availability/:rid", middleware.Audit(userRepo, "availability.delete", "availability_rule"), availabilityHandler.Delete)
			owned.POST("/:id/offerings", subjectHandler.Create)
			owned.PUT("/:id/offerings/:oid", subjectHandler.Update)
			owned.DELETE("/:id/offerings/:oid", subjectHandler.Delete)
		}
	}

	bookings := api.Group("/bookings", middleware.JWT(authSvc))
	{
		bookings.GET("", bookingHandler.List)
		if cfg.Exports.Enabled {
			bookings.GET("/export", middleware.RequireRoles(models.RoleAdmin), bookingHandler.ExportCSV)
		}
		bookings.GET("/:id", bookingHandler.Get)
		bookings.POST("", middleware.Audit(userRepo, "booking.create", "booking"), bookingHandler.Create)
		bookings.PATCH("/:id/status", middleware.Audit(userRepo, "booking.transition", "booking"), bookingHandler.UpdateStatus)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
