package phaserun

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/clawbackhq/clawback-backend/internal/observability"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	wf "github.com/clawbackhq/clawback-backend/internal/workflow"
)

type Activities struct {
	Log  *logger.Logger
	Exec *wf.Executor
}

// Run drives one phase through the executor. A business failure
// (Success=false) completes the activity normally; only infrastructure
// errors propagate so the retry policy can take another attempt.
func (a *Activities) Run(ctx context.Context, trig *wf.Trigger) (*wf.JobResult, error) {
	if a == nil || a.Exec == nil {
		return nil, fmt.Errorf("phaserun: activity not configured")
	}

	stopHB := startHeartbeat(ctx)
	defer stopHB()

	started := time.Now()
	result, err := a.Exec.Execute(ctx, trig)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.Current().ObserveActivity(ActivityRun, status, time.Since(started))

	if err != nil {
		if wf.IsUnknownPhase(err) {
			return result, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeUnknownPhase, err)
		}
		return result, err
	}
	return result, nil
}

func startHeartbeat(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		tick := time.NewTicker(10 * time.Second)
		defer tick.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-tick.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
