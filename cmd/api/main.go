package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/controle-mandatos/mandatos-api/api/swagger"
	"github.com/controle-mandatos/mandatos-api/internal/handler"
	"github.com/controle-mandatos/mandatos-api/internal/middleware"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	"github.com/controle-mandatos/mandatos-api/internal/repository"
	"github.com/controle-mandatos/mandatos-api/internal/service"
	"github.com/controle-mandatos/mandatos-api/pkg/cache"
	"github.com/controle-mandatos/mandatos-api/pkg/config"
	"github.com/controle-mandatos/mandatos-api/pkg/database"
	"github.com/controle-mandatos/mandatos-api/pkg/export"
	"github.com/controle-mandatos/mandatos-api/pkg/jobs"
	"github.com/controle-mandatos/mandatos-api/pkg/logger"
	corsmiddleware "github.com/controle-mandatos/mandatos-api/pkg/middleware/cors"
	reqidmiddleware "github.com/controle-mandatos/mandatos-api/pkg/middleware/requestid"
)

// @title Controle de Mandatos API
// @version 1.0.0
// @description Mandate registry with eligibility evaluation, succession cascades and reviewed mutations
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	personRepo := repository.NewPersonRepository(db)
	organizationRepo := repository.NewOrganizationRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	directiveRepo := repository.NewDirectiveRepository(db)
	occupationRepo := repository.NewOccupationRepository(db)
	changeRequestRepo := repository.NewChangeRequestRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	historySvc := service.NewHistoryService(historyRepo, jobs.QueueConfig{
		Workers:    cfg.History.QueueWorkers,
		BufferSize: cfg.History.QueueBuffer,
		MaxRetries: cfg.History.QueueRetries,
	}, logr)
	queueCtx, queueCancel := context.WithCancel(context.Background())
	historySvc.Start(queueCtx)
	defer func() {
		queueCancel()
		historySvc.Stop()
	}()

	metricsSvc := service.NewMetricsService()

	personSvc := service.NewPersonService(personRepo, historySvc, validate, logr)
	organizationSvc := service.NewOrganizationService(organizationRepo, historySvc, validate, logr)
	positionSvc := service.NewPositionService(positionRepo, organizationRepo, historySvc, validate, logr)
	directiveSvc := service.NewDirectiveService(directiveRepo, historySvc, validate, logr)

	eligibilitySvc := service.NewEligibilityService(personRepo, positionRepo, organizationRepo, occupationRepo, cacheRepo, service.EligibilityConfig{
		TermLimit:    cfg.Mandates.TermLimit,
		CacheEnabled: cfg.Eligibility.CacheEnabled,
		CacheTTL:     cfg.Eligibility.CacheTTL,
	}, validate, logr)

	occupationSvc := service.NewOccupationService(occupationRepo, directiveRepo, eligibilitySvc, historySvc, cacheRepo, cfg.Mandates.TermLimit, validate, logr)
	successionSvc := service.NewSuccessionService(occupationRepo, positionRepo, personRepo, historySvc, cacheRepo, metricsSvc, validate, logr)

	appliers := service.NewEntityAppliers(personSvc, organizationSvc, positionSvc, directiveSvc, occupationSvc)
	changeRequestSvc := service.NewChangeRequestService(changeRequestRepo, appliers, validate, logr)

	searchSvc := service.NewSearchService(searchRepo, cacheRepo, service.SearchConfig{
		CacheEnabled: cfg.Search.CacheEnabled,
		CacheTTL:     cfg.Search.CacheTTL,
	}, validate, logr)
	reportSvc := service.NewReportService(reportRepo, export.NewCSVExporter(), export.NewPDFExporter(), validate, logr)
	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		Secret:            cfg.JWT.Secret,
		Expiration:        cfg.JWT.Expiration,
		RefreshExpiration: cfg.JWT.RefreshExpiration,
	}, validate, logr)

	go publishPendingGauge(queueCtx, changeRequestSvc, metricsSvc, logr)

	personHandler := handler.NewPersonHandler(personSvc)
	organizationHandler := handler.NewOrganizationHandler(organizationSvc)
	positionHandler := handler.NewPositionHandler(positionSvc)
	directiveHandler := handler.NewDirectiveHandler(directiveSvc)
	occupationHandler := handler.NewOccupationHandler(occupationSvc, successionSvc)
	eligibilityHandler := handler.NewEligibilityHandler(eligibilitySvc)
	changeRequestHandler := handler.NewChangeRequestHandler(changeRequestSvc)
	searchHandler := handler.NewSearchHandler(searchSvc)
	historyHandler := handler.NewHistoryHandler(historySvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	authHandler := handler.NewAuthHandler(authSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	authed := api.Group("", middleware.JWT(authSvc))

	read := authed.Group("", middleware.RequireRoles(models.RoleViewer, models.RoleEditor, models.RoleReviewer))
	{
		read.GET("/people", personHandler.List)
		read.GET("/people/:id", personHandler.Get)
		read.GET("/organizations", organizationHandler.List)
		read.GET("/organizations/:id", organizationHandler.Get)
		read.GET("/positions", positionHandler.List)
		read.GET("/positions/:id", positionHandler.Get)
		read.GET("/directives", directiveHandler.List)
		read.GET("/directives/:id", directiveHandler.Get)
		read.GET("/occupations", occupationHandler.List)
		read.GET("/occupations/:id", occupationHandler.Get)
		read.GET("/occupations/:id/next-successor", occupationHandler.NextSuccessor)
		read.GET("/eligibility", eligibilityHandler.Check)
		read.GET("/search", searchHandler.Search)
		read.GET("/history", historyHandler.List)
		if cfg.Reports.Enabled {
			read.GET("/reports/occupancy", reportHandler.Occupancy)
			read.GET("/reports/occupancy/export", reportHandler.Export)
		}
	}

	// Direct mutations bypass review and are reserved for administrators.
	admin := authed.Group("", middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/people", personHandler.Create)
		admin.PUT("/people/:id", personHandler.Update)
		admin.POST("/people/:id/deactivate", personHandler.Deactivate)
		admin.POST("/people/:id/reactivate", personHandler.Reactivate)
		admin.DELETE("/people/:id", personHandler.Delete)

		admin.POST("/organizations", organizationHandler.Create)
		admin.PUT("/organizations/:id", organizationHandler.Update)
		admin.POST("/organizations/:id/deactivate", organizationHandler.Deactivate)
		admin.POST("/organizations/:id/reactivate", organizationHandler.Reactivate)
		admin.DELETE("/organizations/:id", organizationHandler.Delete)

		admin.POST("/positions", positionHandler.Create)
		admin.PUT("/positions/:id", positionHandler.Update)
		admin.POST("/positions/:id/deactivate", positionHandler.Deactivate)
		admin.POST("/positions/:id/reactivate", positionHandler.Reactivate)
		admin.DELETE("/positions/:id", positionHandler.Delete)

		admin.POST("/directives", directiveHandler.Create)
		admin.PUT("/directives/:id", directiveHandler.Update)
		admin.DELETE("/directives/:id", directiveHandler.Delete)

		admin.POST("/occupations", occupationHandler.Create)
		admin.PUT("/occupations/:id", occupationHandler.Update)
		admin.DELETE("/occupations/:id", occupationHandler.Delete)
		admin.PUT("/occupations/:id/finalize", occupationHandler.Finalize)
	}

	editors := authed.Group("", middleware.RequireRoles(models.RoleEditor, models.RoleReviewer))
	{
		editors.POST("/change-requests", changeRequestHandler.Submit)
		editors.GET("/change-requests", changeRequestHandler.List)
		editors.GET("/change-requests/:id", changeRequestHandler.Get)
	}

	reviewers := authed.Group("", middleware.RequireRoles(models.RoleReviewer))
	{
		reviewers.POST("/change-requests/:id/decide", changeRequestHandler.Decide)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}

// publishPendingGauge refreshes the review backlog metric until ctx ends.
func publishPendingGauge(ctx context.Context, changeRequests *service.ChangeRequestService, metrics *service.MetricsService, logr *zap.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := changeRequests.CountPending(ctx)
			if err != nil {
				logr.Warn("pending count failed", zap.Error(err))
				continue
			}
			metrics.SetPendingChangeRequests(count)
		}
	}
}
