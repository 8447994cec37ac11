package recovery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	TransitionStatusStarted    = "started"
	TransitionStatusCompleted  = "completed"
	TransitionStatusFailed     = "failed"
	TransitionStatusRolledBack = "rolled_back"
)

// PhaseTransition is one append-only audit record per phase attempt outcome.
// Rows are never updated or deleted; corrections land as new rows.
type PhaseTransition struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index:idx_phase_transition_user_sync" json:"user_id"`
	SyncID            string         `gorm:"column:sync_id;not null;index:idx_phase_transition_user_sync" json:"sync_id"`
	Phase             int            `gorm:"column:phase;not null;index" json:"phase"`
	PhaseLabel        string         `gorm:"column:phase_label;not null" json:"phase_label"`
	Status            string         `gorm:"column:status;not null;index" json:"status"`
	PreviousPhase     *int           `gorm:"column:previous_phase" json:"previous_phase,omitempty"`
	DurationMs        *int64         `gorm:"column:duration_ms" json:"duration_ms,omitempty"`
	ErrorMessage      string         `gorm:"column:error_message" json:"error_message,omitempty"`
	RollbackTriggered bool           `gorm:"column:rollback_triggered;not null;default:false" json:"rollback_triggered"`
	RollbackToPhase   *int           `gorm:"column:rollback_to_phase" json:"rollback_to_phase,omitempty"`
	Metadata          datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (PhaseTransition) TableName() string { return "phase_transition_log" }
