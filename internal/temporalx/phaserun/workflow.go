package phaserun

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	wf "github.com/clawbackhq/clawback-backend/internal/workflow"
)

// Workflow runs exactly one recovery phase. The workflow ID is the
// trigger's dedupe key, so the broker rejects duplicate submissions of
// the same (user, phase, sync) while one is in flight. All state lives
// in the transition log and progress projection; the workflow itself is
// a thin retry envelope around the executor activity.
func Workflow(ctx workflow.Context, trig *wf.Trigger) (*wf.JobResult, error) {
	if trig == nil {
		return nil, temporal.NewNonRetryableApplicationError("missing trigger", "invalid_trigger", nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        30 * time.Second,
			BackoffCoefficient:     1.0,
			MaximumInterval:        30 * time.Second,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ErrTypeUnknownPhase},
		},
	})

	var out wf.JobResult
	if err := workflow.ExecuteActivity(ctx, ActivityRun, trig).Get(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
