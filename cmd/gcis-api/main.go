package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/grayson-dev/gcis-api/api/swagger"
	"github.com/grayson-dev/gcis-api/internal/cams"
	"github.com/grayson-dev/gcis-api/internal/handler"
	"github.com/grayson-dev/gcis-api/internal/middleware"
	"github.com/grayson-dev/gcis-api/internal/repository"
	"github.com/grayson-dev/gcis-api/internal/service"
	"github.com/grayson-dev/gcis-api/pkg/cache"
	"github.com/grayson-dev/gcis-api/pkg/config"
	"github.com/grayson-dev/gcis-api/pkg/database"
	"github.com/grayson-dev/gcis-api/pkg/logger"
	corsmiddleware "github.com/grayson-dev/gcis-api/pkg/middleware/cors"
	reqidmiddleware "github.com/grayson-dev/gcis-api/pkg/middleware/requestid"
)

// @title GCIS API
// @version 1.0.0
// @description Course schedule record keeper with CAMS reconciliation
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, change summary cache disabled", "error", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	scheduleRepo := repository.NewScheduleRepository(db)
	camsRepo := repository.NewCamsRepository(db)
	termRepo := repository.NewTermRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	bulkRepo := repository.NewBulkRepository(db, cfg.Load.BatchSize)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  cfg.JWT.Expiration,
		RefreshExpiry: cfg.JWT.RefreshExpiration,
	})
	reconcileSvc := service.NewReconcileService(scheduleRepo, camsRepo, metricsSvc, logr)
	changeSvc := service.NewChangeService(termRepo, courseRepo, userRepo, reconcileSvc,
		redisClient, cfg.Changes.CacheTTL, metricsSvc, logr)
	exportSvc := service.NewExportService(changeSvc, cfg.Changes.Timezone, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, referenceRepo, changeSvc, logr)
	termSvc := service.NewTermService(termRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, logr)
	profileSvc := service.NewProfileService(userRepo, changeSvc, logr)

	var loadSvc *service.LoadService
	if cfg.Load.Enabled {
		camsDB, err := database.NewCams(cfg.Cams)
		if err != nil {
			logr.Sugar().Fatalw("cams connection failed", "error", err)
		}
		defer camsDB.Close()
		client, err := cams.NewClient(camsDB, cfg.Cams.TermIDs)
		if err != nil {
			logr.Sugar().Fatalw("cams client init failed", "error", err)
		}
		loadSvc = service.NewLoadService(client, bulkRepo, referenceRepo, metricsSvc, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	termHandler := handler.NewTermHandler(termSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	changeHandler := handler.NewChangeHandler(changeSvc, exportSvc)
	loadHandler := handler.NewLoadHandler(loadSvc, changeSvc, cfg.Load.Enabled)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		}

		api.GET("/terms", termHandler.List)
		api.GET("/terms/:id", termHandler.Get)
		api.GET("/courses", courseHandler.List)
		api.GET("/courses/:id", courseHandler.Get)

		protected := api.Group("", middleware.JWT(authSvc))
		{
			protected.GET("/schedules", scheduleHandler.List)
			protected.POST("/schedules", scheduleHandler.Create)
			protected.GET("/schedules/:id", scheduleHandler.Get)
			protected.PUT("/schedules/:id", scheduleHandler.Update)
			protected.DELETE("/schedules/:id", scheduleHandler.Delete)

			protected.GET("/profile/subjects", profileHandler.Get)
			protected.PUT("/profile/subjects", profileHandler.Put)

			protected.GET("/changes/:term", changeHandler.Summary)
			protected.GET("/changes/:term/export", changeHandler.Export)

			protected.POST("/load", loadHandler.Run)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
