package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/services"
)

// QueueClient hands a trigger to the durable queue. Enqueue reports
// queued=false when the broker is absent or degraded, in which case the
// caller runs the phase inline. InFlight reports whether a job with the
// given dedupe key is currently queued or executing.
type QueueClient interface {
	Enqueue(ctx context.Context, trig *Trigger) (queued bool, err error)
	InFlight(ctx context.Context, key string) (bool, error)
}

// TriggerKey is the dedupe key for one (user, phase, sync) tuple. It
// doubles as the queue's workflow ID so the broker rejects duplicate
// submissions of the same phase.
func TriggerKey(userID uuid.UUID, phase int, syncID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", userID, phase, syncID)))
	return "recovery-phase-" + hex.EncodeToString(sum[:16])
}

type TriggerService interface {
	TriggerPhase(ctx context.Context, userID uuid.UUID, syncID string, phase int, metadata map[string]any) (*JobResult, error)
}

type triggerService struct {
	queue   QueueClient
	exec    *Executor
	logRepo reporecovery.TransitionLogRepo
	notify  services.WorkflowNotifier
	log     *logger.Logger
}

func NewTriggerService(
	queue QueueClient,
	exec *Executor,
	logRepo reporecovery.TransitionLogRepo,
	notify services.WorkflowNotifier,
	baseLog *logger.Logger,
) TriggerService {
	return &triggerService{
		queue:   queue,
		exec:    exec,
		logRepo: logRepo,
		notify:  notify,
		log:     baseLog.With("service", "WorkflowTriggerService"),
	}
}

// TriggerPhase applies the idempotency guard, then enqueues the phase or,
// when the queue is unavailable, executes it inline. Duplicate phase-1
// triggers are dropped silently: connecting an account twice is a normal
// consequence of webhook redelivery, not an error.
func (s *triggerService) TriggerPhase(ctx context.Context, userID uuid.UUID, syncID string, phase int, metadata map[string]any) (*JobResult, error) {
	trig := NewTrigger(userID, syncID, phase, metadata)
	if err := trig.Validate(); err != nil {
		return nil, err
	}

	if phase == 1 {
		skip, err := s.alreadyInitialized(ctx, trig)
		if err != nil {
			return nil, err
		}
		if skip {
			s.log.Info("Skipping duplicate workflow trigger",
				"user_id", userID.String(),
				"sync_id", syncID)
			return &JobResult{
				Success: true,
				Phase:   phase,
				Message: "Workflow already initialized",
			}, nil
		}
	}

	queued, err := s.queue.Enqueue(ctx, trig)
	if err != nil {
		s.log.Warn("Queue enqueue failed; executing phase inline",
			"phase", phase,
			"sync_id", syncID,
			"error", err)
	}
	if queued {
		s.notify.PhaseQueued(userID, syncID, phase, trig.PhaseLabel)
		return &JobResult{
			Success: true,
			Phase:   phase,
			Message: fmt.Sprintf("%s queued", trig.PhaseLabel),
		}, nil
	}

	s.notify.PhaseQueued(userID, syncID, phase, trig.PhaseLabel)
	return s.exec.Execute(ctx, trig)
}

// alreadyInitialized reports whether phase 1 for this sync has already
// completed or is in flight on the queue.
func (s *triggerService) alreadyInitialized(ctx context.Context, trig *Trigger) (bool, error) {
	latest, err := s.logRepo.Latest(dbctx.Context{Ctx: ctx}, trig.UserID, trig.SyncID)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	if latest != nil && latest.Phase == 1 && latest.Status == types.TransitionStatusCompleted {
		return true, nil
	}
	inFlight, err := s.queue.InFlight(ctx, TriggerKey(trig.UserID, trig.Phase, trig.SyncID))
	if err != nil {
		s.log.Warn("In-flight lookup failed; proceeding with trigger",
			"sync_id", trig.SyncID,
			"error", err)
		return false, nil
	}
	return inFlight, nil
}
