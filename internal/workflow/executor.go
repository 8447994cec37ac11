package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/observability"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/services"
)

/*
Executor runs one phase of the recovery workflow end to end:

 1. resolve the previous phase from the latest transition log entry
 2. append the "started" entry and move the progress projection to running
 3. dispatch to the registered phase handler
 4. append the terminal ("completed" or "failed") entry with the duration
 5. on failure past phase 1, decide and record the rollback alert

The transition log is the source of truth; the progress row is a
projection upserted with last-write-wins semantics. Rollback is
alert-only: prior phases may have non-idempotent external side effects,
so nothing is re-enqueued automatically.
*/
type Executor struct {
	registry *Registry
	logRepo  reporecovery.TransitionLogRepo
	progress reporecovery.SyncProgressRepo
	notify   services.WorkflowNotifier
	log      *logger.Logger
}

func NewExecutor(
	registry *Registry,
	logRepo reporecovery.TransitionLogRepo,
	progress reporecovery.SyncProgressRepo,
	notify services.WorkflowNotifier,
	baseLog *logger.Logger,
) *Executor {
	return &Executor{
		registry: registry,
		logRepo:  logRepo,
		progress: progress,
		notify:   notify,
		log:      baseLog.With("component", "WorkflowExecutor"),
	}
}

func ProgressPercent(step, totalSteps int) int {
	if totalSteps <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(step) / float64(totalSteps)))
}

// Execute returns the phase's JobResult plus an error only for
// infrastructure failures that the queue should retry. Business failures
// (Success=false) and unknown phases come back with a nil or
// non-retryable error respectively.
func (e *Executor) Execute(ctx context.Context, trig *Trigger) (*JobResult, error) {
	if err := trig.Validate(); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	label := Label(trig.Phase)

	latest, err := e.logRepo.Latest(dbc, trig.UserID, trig.SyncID)
	if err != nil {
		return nil, fmt.Errorf("resolve previous phase: %w", err)
	}
	var prev *int
	if latest != nil {
		p := latest.Phase
		prev = &p
	}

	e.appendTransition(dbc, &types.PhaseTransition{
		UserID:        trig.UserID,
		SyncID:        trig.SyncID,
		Phase:         trig.Phase,
		PhaseLabel:    label,
		Status:        types.TransitionStatusStarted,
		PreviousPhase: prev,
		Metadata:      marshalMetadata(trig.Metadata),
	})
	observability.Current().ObservePhase(trig.Phase, types.TransitionStatusStarted, 0)
	e.upsertProgress(dbc, trig, label, types.SyncStatusRunning, "")

	handler, ok := e.registry.Get(trig.Phase)
	if !ok {
		return e.finishUnknown(dbc, trig, label, prev)
	}

	startedAt := time.Now()
	result, runErr := e.runHandler(ctx, handler, trig)
	elapsed := time.Since(startedAt)

	if runErr == nil && result != nil && result.Success {
		return e.finishSuccess(dbc, trig, label, prev, result, elapsed)
	}
	return e.finishFailure(dbc, trig, label, prev, result, elapsed, runErr)
}

// runHandler converts handler panics into errors so a bad phase
// implementation cannot take the worker down.
func (e *Executor) runHandler(ctx context.Context, h PhaseHandler, trig *Trigger) (result *JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Phase handler panicked",
				"phase", trig.Phase,
				"sync_id", trig.SyncID,
				"panic", fmt.Sprintf("%v", r))
			result = nil
			err = fmt.Errorf("phase %d handler panicked: %v", trig.Phase, r)
		}
	}()
	return h.Run(ctx, trig)
}

func (e *Executor) finishSuccess(dbc dbctx.Context, trig *Trigger, label string, prev *int, result *JobResult, elapsed time.Duration) (*JobResult, error) {
	ms := elapsed.Milliseconds()
	e.appendTransition(dbc, &types.PhaseTransition{
		UserID:        trig.UserID,
		SyncID:        trig.SyncID,
		Phase:         trig.Phase,
		PhaseLabel:    label,
		Status:        types.TransitionStatusCompleted,
		PreviousPhase: prev,
		DurationMs:    &ms,
	})
	observability.Current().ObservePhase(trig.Phase, types.TransitionStatusCompleted, elapsed)

	if trig.Phase >= trig.total() {
		e.upsertProgress(dbc, trig, label, types.SyncStatusRunning, result.Message)
		flipped, err := e.progress.MarkCompletedOnce(dbc, trig.UserID, trig.SyncID, result.Message)
		if err != nil {
			e.log.Warn("Failed to finalize sync progress", "sync_id", trig.SyncID, "error", err)
		} else if flipped {
			observability.Current().IncWorkflowCompleted()
			e.notify.WorkflowCompleted(trig.UserID, trig.SyncID)
		}
	} else {
		e.upsertProgress(dbc, trig, label, types.SyncStatusRunning, result.Message)
	}

	e.notify.PhaseCompleted(trig.UserID, trig.SyncID, trig.Phase, label, result.Message)
	e.log.Info("Phase completed",
		"phase", trig.Phase,
		"label", label,
		"sync_id", trig.SyncID,
		"duration_ms", ms)
	return result, nil
}

func (e *Executor) finishFailure(dbc dbctx.Context, trig *Trigger, label string, prev *int, result *JobResult, elapsed time.Duration, runErr error) (*JobResult, error) {
	reason := failureReason(result, runErr)
	rollback := trig.Phase > 1 && prev != nil && *prev != 1

	ms := elapsed.Milliseconds()
	e.appendTransition(dbc, &types.PhaseTransition{
		UserID:            trig.UserID,
		SyncID:            trig.SyncID,
		Phase:             trig.Phase,
		PhaseLabel:        label,
		Status:            types.TransitionStatusFailed,
		PreviousPhase:     prev,
		DurationMs:        &ms,
		ErrorMessage:      reason,
		RollbackTriggered: rollback,
	})
	observability.Current().ObservePhase(trig.Phase, types.TransitionStatusFailed, elapsed)
	e.upsertProgress(dbc, trig, label, types.SyncStatusFailed, reason)
	e.notify.PhaseFailed(trig.UserID, trig.SyncID, trig.Phase, label, reason)

	if rollback {
		e.recordRollback(dbc, trig, label, *prev, reason)
	}

	e.log.Warn("Phase failed",
		"phase", trig.Phase,
		"label", label,
		"sync_id", trig.SyncID,
		"rollback", rollback,
		"reason", reason)

	if result == nil {
		result = &JobResult{
			Success: false,
			Phase:   trig.Phase,
			Message: "Phase execution failed",
			Error:   reason,
		}
	}
	return result, runErr
}

// finishUnknown handles a handler-table miss. No JobResult was ever
// produced, there is no meaningful rollback target, and retrying cannot
// change the outcome.
func (e *Executor) finishUnknown(dbc dbctx.Context, trig *Trigger, label string, prev *int) (*JobResult, error) {
	unknown := &UnknownPhaseError{Phase: trig.Phase}
	e.appendTransition(dbc, &types.PhaseTransition{
		UserID:        trig.UserID,
		SyncID:        trig.SyncID,
		Phase:         trig.Phase,
		PhaseLabel:    label,
		Status:        types.TransitionStatusFailed,
		PreviousPhase: prev,
		ErrorMessage:  unknown.Error(),
	})
	observability.Current().ObservePhase(trig.Phase, types.TransitionStatusFailed, 0)
	e.upsertProgress(dbc, trig, label, types.SyncStatusFailed, unknown.Error())
	e.notify.PhaseFailed(trig.UserID, trig.SyncID, trig.Phase, label, unknown.Error())
	e.log.Error("No handler registered for phase", "phase", trig.Phase, "sync_id", trig.SyncID)
	return &JobResult{
		Success: false,
		Phase:   trig.Phase,
		Message: "Phase dispatch failed",
		Error:   unknown.Error(),
	}, unknown
}

func (e *Executor) recordRollback(dbc dbctx.Context, trig *Trigger, label string, target int, reason string) {
	e.appendTransition(dbc, &types.PhaseTransition{
		UserID:            trig.UserID,
		SyncID:            trig.SyncID,
		Phase:             trig.Phase,
		PhaseLabel:        label,
		Status:            types.TransitionStatusRolledBack,
		PreviousPhase:     &target,
		ErrorMessage:      reason,
		RollbackTriggered: true,
		RollbackToPhase:   &target,
	})
	observability.Current().IncRollback(trig.Phase, target)
	e.notify.WorkflowRollback(trig.UserID, trig.SyncID, trig.Phase, target, reason)
}

// appendTransition is best effort like upsertProgress: a lost audit entry
// must never change the outcome of a phase that already ran, so write
// failures are logged and swallowed.
func (e *Executor) appendTransition(dbc dbctx.Context, entry *types.PhaseTransition) {
	if _, err := e.logRepo.Append(dbc, entry); err != nil {
		e.log.Error("Failed to append transition entry",
			"phase", entry.Phase,
			"sync_id", entry.SyncID,
			"status", entry.Status,
			"error", err)
	}
}

// upsertProgress is best effort; the projection can always be rebuilt
// from the transition log.
func (e *Executor) upsertProgress(dbc dbctx.Context, trig *Trigger, label, status, lastResult string) {
	total := trig.total()
	_, err := e.progress.Upsert(dbc, &types.SyncProgress{
		UserID:           trig.UserID,
		SyncID:           trig.SyncID,
		Step:             trig.Phase,
		TotalSteps:       total,
		CurrentStepLabel: label,
		Status:           status,
		ProgressPercent:  ProgressPercent(trig.Phase, total),
		LastResult:       lastResult,
	})
	if err != nil {
		e.log.Warn("Failed to upsert sync progress",
			"sync_id", trig.SyncID,
			"phase", trig.Phase,
			"error", err)
	}
}

func (t *Trigger) total() int {
	if t.TotalPhases > 0 {
		return t.TotalPhases
	}
	return TotalPhases
}

func failureReason(result *JobResult, runErr error) string {
	if runErr != nil {
		return runErr.Error()
	}
	if result != nil {
		if result.Error != "" {
			return result.Error
		}
		if result.Message != "" {
			return result.Message
		}
	}
	return "phase failed"
}

func marshalMetadata(meta map[string]any) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
