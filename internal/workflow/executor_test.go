package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

type fakeLogRepo struct {
	entries   []*types.PhaseTransition
	appendErr error
}

func (f *fakeLogRepo) Append(dbc dbctx.Context, entry *types.PhaseTransition) (*types.PhaseTransition, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, entry)
	return entry, nil
}

func (f *fakeLogRepo) Latest(dbc dbctx.Context, userID uuid.UUID, syncID string) (*types.PhaseTransition, error) {
	for i := len(f.entries) - 1; i >= 0; i-- {
		e := f.entries[i]
		if e.UserID == userID && e.SyncID == syncID {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeLogRepo) ListBySync(dbc dbctx.Context, userID uuid.UUID, syncID string, limit int) ([]*types.PhaseTransition, error) {
	var out []*types.PhaseTransition
	for _, e := range f.entries {
		if e.UserID == userID && e.SyncID == syncID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLogRepo) byStatus(status string) []*types.PhaseTransition {
	var out []*types.PhaseTransition
	for _, e := range f.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

type fakeProgressRepo struct {
	rows map[string]*types.SyncProgress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rows: map[string]*types.SyncProgress{}}
}

func progressKey(userID uuid.UUID, syncID string) string {
	return userID.String() + "|" + syncID
}

func (f *fakeProgressRepo) Upsert(dbc dbctx.Context, record *types.SyncProgress) (*types.SyncProgress, error) {
	record.UpdatedAt = time.Now()
	f.rows[progressKey(record.UserID, record.SyncID)] = record
	return record, nil
}

func (f *fakeProgressRepo) Get(dbc dbctx.Context, userID uuid.UUID, syncID string) (*types.SyncProgress, error) {
	return f.rows[progressKey(userID, syncID)], nil
}

func (f *fakeProgressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.SyncProgress, error) {
	var out []*types.SyncProgress
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeProgressRepo) MarkCompletedOnce(dbc dbctx.Context, userID uuid.UUID, syncID string, lastResult string) (bool, error) {
	row, ok := f.rows[progressKey(userID, syncID)]
	if !ok || row.Status == types.SyncStatusCompleted {
		return false, nil
	}
	row.Status = types.SyncStatusCompleted
	row.ProgressPercent = 100
	row.LastResult = lastResult
	return true, nil
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) PhaseQueued(userID uuid.UUID, syncID string, phase int, label string) {
	f.events = append(f.events, fmt.Sprintf("queued:%d", phase))
}

func (f *fakeNotifier) PhaseCompleted(userID uuid.UUID, syncID string, phase int, label, message string) {
	f.events = append(f.events, fmt.Sprintf("completed:%d", phase))
}

func (f *fakeNotifier) PhaseFailed(userID uuid.UUID, syncID string, phase int, label, reason string) {
	f.events = append(f.events, fmt.Sprintf("failed:%d", phase))
}

func (f *fakeNotifier) WorkflowRollback(userID uuid.UUID, syncID string, failedPhase, targetPhase int, reason string) {
	f.events = append(f.events, fmt.Sprintf("rollback:%d->%d", failedPhase, targetPhase))
}

func (f *fakeNotifier) WorkflowCompleted(userID uuid.UUID, syncID string) {
	f.events = append(f.events, "workflow_completed")
}

func (f *fakeNotifier) count(event string) int {
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

type stubHandler struct {
	phase  int
	result *JobResult
	err    error
	panics bool
}

func (h *stubHandler) Phase() int { return h.phase }

func (h *stubHandler) Run(ctx context.Context, trig *Trigger) (*JobResult, error) {
	if h.panics {
		panic("handler exploded")
	}
	return h.result, h.err
}

type executorFixture struct {
	exec     *Executor
	logRepo  *fakeLogRepo
	progress *fakeProgressRepo
	notify   *fakeNotifier
	registry *Registry
}

func newExecutorFixture(t *testing.T, handlers ...PhaseHandler) *executorFixture {
	t.Helper()
	logg, err := logger.New("test")
	require.NoError(t, err)

	fx := &executorFixture{
		logRepo:  &fakeLogRepo{},
		progress: newFakeProgressRepo(),
		notify:   &fakeNotifier{},
		registry: NewRegistry(),
	}
	for _, h := range handlers {
		require.NoError(t, fx.registry.Register(h))
	}
	fx.exec = NewExecutor(fx.registry, fx.logRepo, fx.progress, fx.notify, logg)
	return fx
}

func (fx *executorFixture) seedCompleted(userID uuid.UUID, syncID string, phase int) {
	_, _ = fx.logRepo.Append(dbctx.Context{}, &types.PhaseTransition{
		UserID:     userID,
		SyncID:     syncID,
		Phase:      phase,
		PhaseLabel: Label(phase),
		Status:     types.TransitionStatusCompleted,
	})
}

func TestProgressPercent(t *testing.T) {
	want := map[int]int{1: 14, 2: 29, 3: 43, 4: 57, 5: 71, 6: 86, 7: 100}
	for step, pct := range want {
		assert.Equal(t, pct, ProgressPercent(step, TotalPhases), "step %d", step)
	}
}

func TestExecutorSuccessLogsStartedCompletedPair(t *testing.T) {
	userID := uuid.New()
	fx := newExecutorFixture(t, &stubHandler{
		phase:  2,
		result: &JobResult{Success: true, Phase: 2, Message: "Synced 10 orders and 5 inventory items"},
	})
	fx.seedCompleted(userID, "sync-1", 1)

	result, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 2, nil))
	require.NoError(t, err)
	require.True(t, result.Success)

	started := fx.logRepo.byStatus(types.TransitionStatusStarted)
	completed := fx.logRepo.byStatus(types.TransitionStatusCompleted)
	require.Len(t, started, 1)
	require.Len(t, completed, 2) // seeded phase 1 plus this run

	run := completed[1]
	assert.Equal(t, 2, run.Phase)
	require.NotNil(t, run.PreviousPhase)
	assert.Equal(t, 1, *run.PreviousPhase)
	require.NotNil(t, run.DurationMs)

	row, _ := fx.progress.Get(dbctx.Context{}, userID, "sync-1")
	require.NotNil(t, row)
	assert.Equal(t, 2, row.Step)
	assert.Equal(t, 29, row.ProgressPercent)
	assert.Equal(t, types.SyncStatusRunning, row.Status)
	assert.Equal(t, 1, fx.notify.count("completed:2"))
}

func TestExecutorAuditWriteFailureKeepsHandlerResult(t *testing.T) {
	userID := uuid.New()
	fx := newExecutorFixture(t, &stubHandler{
		phase:  2,
		result: &JobResult{Success: true, Phase: 2, Message: "Synced 10 orders and 5 inventory items"},
	})
	fx.seedCompleted(userID, "sync-1", 1)
	fx.logRepo.appendErr = errors.New("audit store down")

	result, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 2, nil))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "Synced 10 orders and 5 inventory items", result.Message)
	assert.Equal(t, 1, fx.notify.count("completed:2"))

	// Only the seeded entry survives; the lost audit writes must not
	// turn a finished phase into a retryable error.
	require.Len(t, fx.logRepo.entries, 1)

	row, _ := fx.progress.Get(dbctx.Context{}, userID, "sync-1")
	require.NotNil(t, row)
	assert.Equal(t, 2, row.Step)
}

func TestExecutorFirstPhaseHasNoPreviousPhase(t *testing.T) {
	userID := uuid.New()
	fx := newExecutorFixture(t, &stubHandler{
		phase:  1,
		result: &JobResult{Success: true, Phase: 1, Message: "Account connected"},
	})

	_, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 1, nil))
	require.NoError(t, err)

	started := fx.logRepo.byStatus(types.TransitionStatusStarted)
	require.Len(t, started, 1)
	assert.Nil(t, started[0].PreviousPhase)
}

func TestExecutorFinalPhaseBroadcastsCompletionOnce(t *testing.T) {
	userID := uuid.New()
	fx := newExecutorFixture(t, &stubHandler{
		phase:  7,
		result: &JobResult{Success: true, Phase: 7, Message: "Recovered $12.50"},
	})
	fx.seedCompleted(userID, "sync-1", 6)

	_, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 7, nil))
	require.NoError(t, err)

	row, _ := fx.progress.Get(dbctx.Context{}, userID, "sync-1")
	require.NotNil(t, row)
	assert.Equal(t, types.SyncStatusCompleted, row.Status)
	assert.Equal(t, 100, row.ProgressPercent)
	assert.Equal(t, 1, fx.notify.count("workflow_completed"))

	// A redelivered phase 7 must not broadcast completion again.
	_, err = fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 7, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, fx.notify.count("workflow_completed"))
}

func TestExecutorBusinessFailureTriggersRollbackWithoutRetry(t *testing.T) {
	userID := uuid.New()
	fx := newExecutorFixture(t, &stubHandler{
		phase:  3,
		result: &JobResult{Success: false, Phase: 3, Message: "No claims found"},
	})
	fx.seedCompleted(userID, "sync-1", 2)

	result, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 3, nil))
	require.NoError(t, err) // deterministic outcome, the queue must not retry
	require.False(t, result.Success)

	failed := fx.logRepo.byStatus(types.TransitionStatusFailed)
	require.Len(t, failed, 1)
	assert.True(t, failed[0].RollbackTriggered)

	rolled := fx.logRepo.byStatus(types.TransitionStatusRolledBack)
	require.Len(t, rolled, 1)
	require.NotNil(t, rolled[0].RollbackToPhase)
	assert.Equal(t, 2, *rolled[0].RollbackToPhase)
	assert.Equal(t, 1, fx.notify.count("rollback:3->2"))

	row, _ := fx.progress.Get(dbctx.Context{}, userID, "sync-1")
	require.NotNil(t, row)
	assert.Equal(t, types.SyncStatusFailed, row.Status)
}

func TestExecutorHandlerErrorIsRethrownForRetry(t *testing.T) {
	userID := uuid.New()
	handlerErr := errors.New("evidence API timeout")
	fx := newExecutorFixture(t, &stubHandler{phase: 3, err: handlerErr})
	fx.seedCompleted(userID, "sync-1", 2)

	_, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 3, nil))
	require.ErrorIs(t, err, handlerErr)

	failed := fx.logRepo.byStatus(types.TransitionStatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "evidence API timeout", failed[0].ErrorMessage)
	require.Len(t, fx.logRepo.byStatus(types.TransitionStatusRolledBack), 1)
}

func TestExecutorRollbackSkippedWhenPreviousPhaseIsFirst(t *testing.T) {
	userID := uuid.New()
	fx := newExecutorFixture(t, &stubHandler{
		phase:  2,
		result: &JobResult{Success: false, Phase: 2, Message: "Data sync failed"},
	})
	fx.seedCompleted(userID, "sync-1", 1)

	_, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 2, nil))
	require.NoError(t, err)

	failed := fx.logRepo.byStatus(types.TransitionStatusFailed)
	require.Len(t, failed, 1)
	assert.False(t, failed[0].RollbackTriggered)
	assert.Empty(t, fx.logRepo.byStatus(types.TransitionStatusRolledBack))
}

func TestExecutorUnknownPhaseFailsWithoutRollback(t *testing.T) {
	userID := uuid.New()
	fx := newExecutorFixture(t)
	fx.seedCompleted(userID, "sync-1", 2)

	result, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 99, nil))
	require.Error(t, err)
	assert.True(t, IsUnknownPhase(err))
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, "Unknown step: 99", result.Error)

	failed := fx.logRepo.byStatus(types.TransitionStatusFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "Unknown step: 99", failed[0].ErrorMessage)
	assert.Empty(t, fx.logRepo.byStatus(types.TransitionStatusRolledBack))
}

func TestExecutorRecoversHandlerPanic(t *testing.T) {
	userID := uuid.New()
	fx := newExecutorFixture(t, &stubHandler{phase: 4, panics: true})
	fx.seedCompleted(userID, "sync-1", 3)

	_, err := fx.exec.Execute(context.Background(), NewTrigger(userID, "sync-1", 4, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")

	failed := fx.logRepo.byStatus(types.TransitionStatusFailed)
	require.Len(t, failed, 1)
	require.Len(t, fx.logRepo.byStatus(types.TransitionStatusRolledBack), 1)
}
