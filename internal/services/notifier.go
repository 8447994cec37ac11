package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/clawbackhq/clawback-backend/internal/observability"
	"github.com/clawbackhq/clawback-backend/internal/realtime"
)

// WorkflowNotifier pushes user-facing workflow events over the SSE channel.
// Every method is fire-and-forget: delivery is best effort and failures
// never propagate back into phase execution.
type WorkflowNotifier interface {
	PhaseQueued(userID uuid.UUID, syncID string, phase int, label string)
	PhaseCompleted(userID uuid.UUID, syncID string, phase int, label, message string)
	PhaseFailed(userID uuid.UUID, syncID string, phase int, label, reason string)
	WorkflowRollback(userID uuid.UUID, syncID string, failedPhase, targetPhase int, reason string)
	WorkflowCompleted(userID uuid.UUID, syncID string)
}

type workflowNotifier struct {
	emit SSEEmitter
}

func NewWorkflowNotifier(emit SSEEmitter) WorkflowNotifier {
	return &workflowNotifier{emit: emit}
}

func (n *workflowNotifier) PhaseQueued(userID uuid.UUID, syncID string, phase int, label string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	observability.Current().IncNotification(string(realtime.SSEEventPhaseQueued))
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventPhaseQueued,
		Data: map[string]any{
			"sync_id": syncID,
			"phase":   phase,
			"label":   label,
		},
	})
}

func (n *workflowNotifier) PhaseCompleted(userID uuid.UUID, syncID string, phase int, label, message string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	observability.Current().IncNotification(string(realtime.SSEEventPhaseCompleted))
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventPhaseCompleted,
		Data: map[string]any{
			"sync_id": syncID,
			"phase":   phase,
			"label":   label,
			"message": message,
		},
	})
}

func (n *workflowNotifier) PhaseFailed(userID uuid.UUID, syncID string, phase int, label, reason string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	observability.Current().IncNotification(string(realtime.SSEEventPhaseFailed))
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventPhaseFailed,
		Data: map[string]any{
			"sync_id": syncID,
			"phase":   phase,
			"label":   label,
			"reason":  reason,
		},
	})
}

func (n *workflowNotifier) WorkflowRollback(userID uuid.UUID, syncID string, failedPhase, targetPhase int, reason string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	observability.Current().IncNotification(string(realtime.SSEEventWorkflowRollback))
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventWorkflowRollback,
		Data: map[string]any{
			"sync_id":      syncID,
			"failed_phase": failedPhase,
			"target_phase": targetPhase,
			"reason":       reason,
		},
	})
}

func (n *workflowNotifier) WorkflowCompleted(userID uuid.UUID, syncID string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	observability.Current().IncNotification(string(realtime.SSEEventWorkflowCompleted))
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventWorkflowCompleted,
		Data: map[string]any{
			"sync_id": syncID,
		},
	})
}
