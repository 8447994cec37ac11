package recovery

import (
	"time"

	"github.com/google/uuid"
)

const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncProgress is the mutable projection the UI polls, one row per
// (user, sync). Last write wins; the transition log is the source of truth.
type SyncProgress struct {
	ID               uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_sync_progress_user_sync" json:"user_id"`
	SyncID           string    `gorm:"column:sync_id;not null;uniqueIndex:uq_sync_progress_user_sync" json:"sync_id"`
	Step             int       `gorm:"column:step;not null" json:"step"`
	TotalSteps       int       `gorm:"column:total_steps;not null" json:"total_steps"`
	CurrentStepLabel string    `gorm:"column:current_step_label;not null" json:"current_step_label"`
	Status           string    `gorm:"column:status;not null;index" json:"status"`
	ProgressPercent  int       `gorm:"column:progress_percent;not null;default:0" json:"progress_percent"`
	LastResult       string    `gorm:"column:last_result" json:"last_result,omitempty"`
	UpdatedAt        time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (SyncProgress) TableName() string { return "sync_progress" }
