package app

import (
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/queue"
	"github.com/clawbackhq/clawback-backend/internal/realtime"
	"github.com/clawbackhq/clawback-backend/internal/realtime/bus"
	"github.com/clawbackhq/clawback-backend/internal/services"
	"github.com/clawbackhq/clawback-backend/internal/temporalx"
	"github.com/clawbackhq/clawback-backend/internal/temporalx/temporalworker"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
	"github.com/clawbackhq/clawback-backend/internal/workflow/phases"
)

type Services struct {
	Bus      bus.Bus
	Notifier services.WorkflowNotifier
	Registry *workflow.Registry
	Executor *workflow.Executor
	Queue    workflow.QueueClient
	Trigger  workflow.TriggerService

	Temporal temporalsdkclient.Client
	Worker   *temporalworker.Runner
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, hub *realtime.SSEHub) (Services, error) {
	var set Services

	// SSE events go through Redis when it is configured so every API
	// replica sees them; otherwise they stay on the in-process hub.
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	if cfg.RedisAddr != "" {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis SSE bus unavailable; falling back to in-process hub", "error", err)
		} else {
			set.Bus = b
			emitter = &services.RedisEmitter{Bus: b}
		}
	}
	set.Notifier = services.NewWorkflowNotifier(emitter)

	set.Registry = workflow.NewRegistry()
	if err := phases.RegisterAll(set.Registry, reposet.Sellers, reposet.Claims, log); err != nil {
		return set, err
	}
	set.Executor = workflow.NewExecutor(set.Registry, reposet.Transitions, reposet.Progress, set.Notifier, log)

	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Warn("Temporal client init failed; phases will execute inline", "error", err)
		tc = nil
	}
	if tc == nil {
		set.Queue = queue.NewNullClient(log)
	} else {
		set.Temporal = tc
		set.Queue = queue.NewTemporalClient(tc, temporalx.LoadConfig().TaskQueue, log)
		worker, err := temporalworker.NewRunner(log, tc, set.Executor)
		if err != nil {
			return set, err
		}
		set.Worker = worker
	}

	set.Trigger = workflow.NewTriggerService(set.Queue, set.Executor, reposet.Transitions, set.Notifier, log)
	return set, nil
}
