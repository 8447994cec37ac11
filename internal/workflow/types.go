package workflow

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const TotalPhases = 7

// Trigger is the unit of work: one phase of one sync for one user. It is
// born at a trigger call, consumed once by the Executor, and discarded;
// its effects persist only through the transition log and the progress
// projection.
type Trigger struct {
	UserID      uuid.UUID      `json:"user_id"`
	SyncID      string         `json:"sync_id"`
	Phase       int            `json:"phase"`
	TotalPhases int            `json:"total_phases"`
	PhaseLabel  string         `json:"phase_label"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewTrigger(userID uuid.UUID, syncID string, phase int, metadata map[string]any) *Trigger {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Trigger{
		UserID:      userID,
		SyncID:      syncID,
		Phase:       phase,
		TotalPhases: TotalPhases,
		PhaseLabel:  Label(phase),
		Metadata:    metadata,
	}
}

func (t *Trigger) Validate() error {
	if t == nil {
		return fmt.Errorf("missing trigger")
	}
	if t.UserID == uuid.Nil {
		return fmt.Errorf("missing user_id")
	}
	if strings.TrimSpace(t.SyncID) == "" {
		return fmt.Errorf("missing sync_id")
	}
	if t.Phase < 1 {
		return fmt.Errorf("invalid phase %d", t.Phase)
	}
	return nil
}

// JobResult is the outcome of one phase execution. Success=false with a
// nil error is an expected business failure and is terminal for the
// attempt; infrastructure errors travel separately as Go errors.
type JobResult struct {
	Success bool           `json:"success"`
	Phase   int            `json:"phase"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// UnknownPhaseError marks a handler-table lookup miss. It is deterministic
// and never retried.
type UnknownPhaseError struct {
	Phase int
}

func (e *UnknownPhaseError) Error() string {
	return fmt.Sprintf("Unknown step: %d", e.Phase)
}

func IsUnknownPhase(err error) bool {
	_, ok := err.(*UnknownPhaseError)
	return ok
}
