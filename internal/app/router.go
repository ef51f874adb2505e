package app

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/sma-lms-gradesync/internal/handler"
	"github.com/noah-isme/sma-lms-gradesync/internal/middleware"
	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	"github.com/noah-isme/sma-lms-gradesync/pkg/config"
	"github.com/noah-isme/sma-lms-gradesync/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-lms-gradesync/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-lms-gradesync/pkg/middleware/requestid"
)

// NewRouter mounts the HTTP API. ctx bounds background housekeeping of the rate limiter.
func (a *App) NewRouter(ctx context.Context) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(a.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics))

	metricsHandler := handler.NewMetricsHandler(a.Metrics, map[string]handler.ReadinessCheck{
		"postgres": a.PingDB,
		"redis":    a.PingRedis,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if a.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	lmsHandler := handler.NewLMSHandler(a.OAuth, a.Mappings, a.Jobs, a.GradeSync, a.Config.LMS.SuccessRedirect)

	api := r.Group(a.Config.APIPrefix)

	public := api.Group("/lms")
	public.GET("/callback", middleware.RateLimit(ctx, a.Config.LMS.CallbackRatePerMinute), lmsHandler.Callback)
	public.GET("/results/:token", lmsHandler.SignedResult)

	secured := api.Group("")
	secured.Use(middleware.JWT(a.Auth))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleConvenor)
	secured.POST("/lms/login-url", staff, lmsHandler.LoginURL)
	secured.GET("/lms/endpoint", staff, lmsHandler.Endpoint)

	units := secured.Group("/units/:" + middleware.UnitParam + "/lms")
	units.Use(middleware.RequireUnitConvenor(a.Units))
	units.GET("", lmsHandler.GetMapping)
	units.POST("", lmsHandler.CreateMapping)
	units.PUT("", lmsHandler.UpdateMapping)
	units.DELETE("", lmsHandler.DeleteMapping)
	units.POST("/grades", lmsHandler.TriggerGradeSync)
	units.GET("/grades", lmsHandler.GradeSyncResult)
	units.GET("/grades/available", lmsHandler.GradeSyncAvailable)
	units.GET("/grades/weighted", lmsHandler.GradesWeighted)

	return r
}
