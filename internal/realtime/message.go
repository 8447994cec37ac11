package realtime

type SSEEvent string

const (
	SSEEventPhaseQueued       SSEEvent = "WorkflowPhaseQueued"
	SSEEventPhaseStarted      SSEEvent = "WorkflowPhaseStarted"
	SSEEventPhaseCompleted    SSEEvent = "WorkflowPhaseCompleted"
	SSEEventPhaseFailed       SSEEvent = "WorkflowPhaseFailed"
	SSEEventWorkflowRollback  SSEEvent = "WorkflowRollback"
	SSEEventWorkflowCompleted SSEEvent = "WorkflowCompleted"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}
