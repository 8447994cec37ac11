package phaserun

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	wf "github.com/clawbackhq/clawback-backend/internal/workflow"
)

func newEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	return env
}

func testTrigger(phase int) *wf.Trigger {
	return wf.NewTrigger(uuid.New(), "sync-1", phase, nil)
}

func TestWorkflowReturnsExecutorResult(t *testing.T) {
	env := newEnv(t)
	env.RegisterActivityWithOptions(func(ctx context.Context, trig *wf.Trigger) (*wf.JobResult, error) {
		return &wf.JobResult{Success: true, Phase: trig.Phase, Message: "Account connected"}, nil
	}, activity.RegisterOptions{Name: ActivityRun})

	env.ExecuteWorkflow(WorkflowName, testTrigger(1))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out wf.JobResult
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.True(t, out.Success)
	assert.Equal(t, "Account connected", out.Message)
}

func TestWorkflowBusinessFailureCompletesNormally(t *testing.T) {
	env := newEnv(t)
	attempts := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, trig *wf.Trigger) (*wf.JobResult, error) {
		attempts++
		return &wf.JobResult{Success: false, Phase: trig.Phase, Message: "No claims found"}, nil
	}, activity.RegisterOptions{Name: ActivityRun})

	env.ExecuteWorkflow(WorkflowName, testTrigger(3))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	var out wf.JobResult
	require.NoError(t, env.GetWorkflowResult(&out))
	assert.False(t, out.Success)
	assert.Equal(t, 1, attempts) // deterministic outcome, never retried
}

func TestWorkflowRetriesInfrastructureErrors(t *testing.T) {
	env := newEnv(t)
	attempts := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, trig *wf.Trigger) (*wf.JobResult, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("evidence API timeout")
		}
		return &wf.JobResult{Success: true, Phase: trig.Phase, Message: "ok"}, nil
	}, activity.RegisterOptions{Name: ActivityRun})

	env.ExecuteWorkflow(WorkflowName, testTrigger(4))

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, 3, attempts)
}

func TestWorkflowUnknownPhaseIsNotRetried(t *testing.T) {
	env := newEnv(t)
	attempts := 0
	env.RegisterActivityWithOptions(func(ctx context.Context, trig *wf.Trigger) (*wf.JobResult, error) {
		attempts++
		return nil, temporal.NewNonRetryableApplicationError("Unknown step: 99", ErrTypeUnknownPhase, nil)
	}, activity.RegisterOptions{Name: ActivityRun})

	env.ExecuteWorkflow(WorkflowName, testTrigger(99))

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ErrTypeUnknownPhase, appErr.Type())
	assert.Equal(t, 1, attempts)
}

func TestWorkflowRejectsMissingTrigger(t *testing.T) {
	env := newEnv(t)
	env.RegisterActivityWithOptions(func(ctx context.Context, trig *wf.Trigger) (*wf.JobResult, error) {
		t.Fatal("activity must not run without a trigger")
		return nil, nil
	}, activity.RegisterOptions{Name: ActivityRun})

	env.ExecuteWorkflow(WorkflowName, nil)

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}
