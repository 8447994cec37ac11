package recovery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ClaimStatusDetected   = "detected"
	ClaimStatusEvidenced  = "evidenced"
	ClaimStatusSubmitted  = "submitted"
	ClaimStatusRejected   = "rejected"
	ClaimStatusReconciled = "reconciled"
)

type Claim struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_claim_user_dedupe;index" json:"user_id"`
	SyncID          string         `gorm:"column:sync_id;not null;index" json:"sync_id"`
	DedupeKey       string         `gorm:"column:dedupe_key;not null;uniqueIndex:uq_claim_user_dedupe" json:"dedupe_key"`
	ClaimType       string         `gorm:"column:claim_type;not null;index" json:"claim_type"`
	Status          string         `gorm:"column:status;not null;index" json:"status"`
	ProviderCaseID  string         `gorm:"column:provider_case_id;index" json:"provider_case_id,omitempty"`
	RejectionReason string         `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	AmountCents     *int64         `gorm:"column:amount_cents" json:"amount_cents,omitempty"`
	Evidence        datatypes.JSON `gorm:"column:evidence;type:jsonb" json:"evidence,omitempty"`
	Detail          datatypes.JSON `gorm:"column:detail;type:jsonb" json:"detail,omitempty"`
	SubmittedAt     *time.Time     `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ReconciledAt    *time.Time     `gorm:"column:reconciled_at" json:"reconciled_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Claim) TableName() string { return "claim" }
