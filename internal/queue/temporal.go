package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	enums "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/clawbackhq/clawback-backend/internal/observability"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// disabledLogEvery throttles the degraded-mode warning: the first
// suppressed enqueue logs, then every Nth after that.
const disabledLogEvery = 100

// TemporalClient enqueues phase triggers as Temporal workflow
// executions. The trigger's dedupe key doubles as the workflow ID with
// REJECT_DUPLICATE reuse, so the broker itself drops concurrent
// duplicates.
//
// The client degrades permanently for the process lifetime on the first
// broker error: once a StartWorkflow call fails for infrastructure
// reasons, every later Enqueue reports queued=false immediately and the
// trigger path runs phases inline. Flapping between queued and inline
// execution mid-workflow is worse than staying inline.
type TemporalClient struct {
	tc         client.Client
	taskQueue  string
	log        *logger.Logger
	disabled   atomic.Bool
	suppressed atomic.Int64
}

func NewTemporalClient(tc client.Client, taskQueue string, baseLog *logger.Logger) *TemporalClient {
	return &TemporalClient{
		tc:        tc,
		taskQueue: taskQueue,
		log:       baseLog.With("component", "TemporalQueueClient"),
	}
}

func (c *TemporalClient) Enqueue(ctx context.Context, trig *workflow.Trigger) (bool, error) {
	if c.disabled.Load() {
		n := c.suppressed.Add(1)
		if n == 1 || n%disabledLogEvery == 0 {
			c.log.Warn("Queue disabled; executing phases inline",
				"suppressed", n,
				"phase", trig.Phase)
		}
		observability.Current().IncQueueEnqueue("disabled")
		return false, nil
	}

	opts := client.StartWorkflowOptions{
		ID:                    workflow.TriggerKey(trig.UserID, trig.Phase, trig.SyncID),
		TaskQueue:             c.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
	_, err := c.tc.ExecuteWorkflow(ctx, opts, "phase_run", trig)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			// The same (user, phase, sync) is already queued or running.
			observability.Current().IncQueueEnqueue("duplicate")
			return true, nil
		}
		c.disable(err)
		observability.Current().IncQueueEnqueue("error")
		return false, err
	}
	observability.Current().IncQueueEnqueue("queued")
	return true, nil
}

func (c *TemporalClient) InFlight(ctx context.Context, key string) (bool, error) {
	if c.disabled.Load() {
		return false, nil
	}
	resp, err := c.tc.DescribeWorkflowExecution(ctx, key, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	info := resp.GetWorkflowExecutionInfo()
	if info == nil {
		return false, nil
	}
	return info.GetStatus() == enums.WORKFLOW_EXECUTION_STATUS_RUNNING, nil
}

func (c *TemporalClient) disable(cause error) {
	if c.disabled.Swap(true) {
		return
	}
	c.log.Error("Queue broker unreachable; disabling queue for process lifetime", "error", cause)
	observability.Current().SetQueueDisabled(true)
}
