package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/clawbackhq/clawback-backend/internal/http/handlers"
	httpMW "github.com/clawbackhq/clawback-backend/internal/http/middleware"
	"github.com/clawbackhq/clawback-backend/internal/observability"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AuthMiddleware *httpMW.AuthMiddleware
	Metrics        *observability.Metrics

	WorkflowHandler *httpH.WorkflowHandler
	RealtimeHandler *httpH.RealtimeHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("clawback-backend"))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())
	r.Use(httpMW.Metrics(cfg.Metrics))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		if cfg.WorkflowHandler != nil {
			protected.POST("/workflow/phase/:phase", cfg.WorkflowHandler.TriggerPhase)
			protected.GET("/workflow/:syncID/progress", cfg.WorkflowHandler.GetProgress)
			protected.GET("/workflow/:syncID/transitions", cfg.WorkflowHandler.ListTransitions)
			protected.GET("/progress", cfg.WorkflowHandler.ListProgress)
		}
	}

	return r
}
