package workflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

func dbctxForTest() dbctx.Context { return dbctx.Context{} }

type fakeQueue struct {
	queued    bool
	err       error
	inFlight  bool
	enqueues  int
	lastTrig  *Trigger
	inFlights int
}

func (f *fakeQueue) Enqueue(ctx context.Context, trig *Trigger) (bool, error) {
	f.enqueues++
	f.lastTrig = trig
	return f.queued, f.err
}

func (f *fakeQueue) InFlight(ctx context.Context, key string) (bool, error) {
	f.inFlights++
	return f.inFlight, nil
}

type triggerFixture struct {
	svc     TriggerService
	queue   *fakeQueue
	logRepo *fakeLogRepo
	notify  *fakeNotifier
}

func newTriggerFixture(t *testing.T, queue *fakeQueue, handlers ...PhaseHandler) *triggerFixture {
	t.Helper()
	logg, err := logger.New("test")
	require.NoError(t, err)

	fx := &triggerFixture{
		queue:   queue,
		logRepo: &fakeLogRepo{},
		notify:  &fakeNotifier{},
	}
	registry := NewRegistry()
	for _, h := range handlers {
		require.NoError(t, registry.Register(h))
	}
	exec := NewExecutor(registry, fx.logRepo, newFakeProgressRepo(), fx.notify, logg)
	fx.svc = NewTriggerService(queue, exec, fx.logRepo, fx.notify, logg)
	return fx
}

func TestTriggerKeyStableAndDistinct(t *testing.T) {
	userID := uuid.New()
	a := TriggerKey(userID, 1, "sync-1")
	assert.Equal(t, a, TriggerKey(userID, 1, "sync-1"))
	assert.NotEqual(t, a, TriggerKey(userID, 2, "sync-1"))
	assert.NotEqual(t, a, TriggerKey(userID, 1, "sync-2"))
	assert.NotEqual(t, a, TriggerKey(uuid.New(), 1, "sync-1"))
}

func TestTriggerQueuedPath(t *testing.T) {
	fx := newTriggerFixture(t, &fakeQueue{queued: true})

	result, err := fx.svc.TriggerPhase(context.Background(), uuid.New(), "sync-1", 2, map[string]any{
		"ordersCount": 10, "inventoryItems": 3,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Data Sync queued", result.Message)
	assert.Equal(t, 1, fx.queue.enqueues)
	assert.Equal(t, 1, fx.notify.count("queued:2"))
	assert.Empty(t, fx.logRepo.entries) // nothing executed yet
}

func TestTriggerInlineFallbackWhenNotQueued(t *testing.T) {
	fx := newTriggerFixture(t, &fakeQueue{queued: false}, &stubHandler{
		phase:  2,
		result: &JobResult{Success: true, Phase: 2, Message: "ok"},
	})

	result, err := fx.svc.TriggerPhase(context.Background(), uuid.New(), "sync-1", 2, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	// Inline execution leaves a started/completed pair behind.
	assert.Len(t, fx.logRepo.byStatus(types.TransitionStatusStarted), 1)
	assert.Len(t, fx.logRepo.byStatus(types.TransitionStatusCompleted), 1)
}

func TestTriggerPhaseOneSkipsWhenAlreadyCompleted(t *testing.T) {
	userID := uuid.New()
	fx := newTriggerFixture(t, &fakeQueue{queued: true})
	_, _ = fx.logRepo.Append(dbctxForTest(), &types.PhaseTransition{
		UserID: userID,
		SyncID: "sync-1",
		Phase:  1,
		Status: types.TransitionStatusCompleted,
	})

	result, err := fx.svc.TriggerPhase(context.Background(), userID, "sync-1", 1, map[string]any{"sellerId": "A1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Workflow already initialized", result.Message)
	assert.Zero(t, fx.queue.enqueues)
	require.Len(t, fx.logRepo.entries, 1) // nothing new was appended
}

func TestTriggerPhaseOneSkipsWhenInFlight(t *testing.T) {
	fx := newTriggerFixture(t, &fakeQueue{queued: true, inFlight: true})

	result, err := fx.svc.TriggerPhase(context.Background(), uuid.New(), "sync-1", 1, map[string]any{"sellerId": "A1"})
	require.NoError(t, err)
	assert.Equal(t, "Workflow already initialized", result.Message)
	assert.Zero(t, fx.queue.enqueues)
	assert.Equal(t, 1, fx.queue.inFlights)
}

func TestTriggerPhaseOneGuardDoesNotApplyToLaterPhases(t *testing.T) {
	userID := uuid.New()
	fx := newTriggerFixture(t, &fakeQueue{queued: true})
	_, _ = fx.logRepo.Append(dbctxForTest(), &types.PhaseTransition{
		UserID: userID,
		SyncID: "sync-1",
		Phase:  1,
		Status: types.TransitionStatusCompleted,
	})

	result, err := fx.svc.TriggerPhase(context.Background(), userID, "sync-1", 2, map[string]any{
		"ordersCount": 1, "inventoryItems": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Data Sync queued", result.Message)
	assert.Equal(t, 1, fx.queue.enqueues)
}

func TestTriggerRejectsInvalidInput(t *testing.T) {
	fx := newTriggerFixture(t, &fakeQueue{queued: true})

	_, err := fx.svc.TriggerPhase(context.Background(), uuid.Nil, "sync-1", 1, nil)
	require.Error(t, err)

	_, err = fx.svc.TriggerPhase(context.Background(), uuid.New(), "  ", 1, nil)
	require.Error(t, err)

	_, err = fx.svc.TriggerPhase(context.Background(), uuid.New(), "sync-1", 0, nil)
	require.Error(t, err)
}
