package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	httpapi "github.com/clawbackhq/clawback-backend/internal/http"
	httpH "github.com/clawbackhq/clawback-backend/internal/http/handlers"
	httpMW "github.com/clawbackhq/clawback-backend/internal/http/middleware"
	"github.com/clawbackhq/clawback-backend/internal/observability"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/realtime"
)

type Handlers struct {
	Workflow *httpH.WorkflowHandler
	Realtime *httpH.RealtimeHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, serviceset Services, reposet Repos, hub *realtime.SSEHub) Handlers {
	return Handlers{
		Workflow: httpH.NewWorkflowHandler(log, serviceset.Trigger, reposet.Transitions, reposet.Progress),
		Realtime: httpH.NewRealtimeHandler(log, hub),
		Health:   httpH.NewHealthHandler(db),
	}
}

func wireRouter(log *logger.Logger, handlerset Handlers) *gin.Engine {
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:             log,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log),
		Metrics:         observability.Current(),
		WorkflowHandler: handlerset.Workflow,
		RealtimeHandler: handlerset.Realtime,
		HealthHandler:   handlerset.Health,
	})
}
