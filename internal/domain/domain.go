package domain

import (
	"github.com/clawbackhq/clawback-backend/internal/domain/recovery"
)

const (
	TransitionStatusStarted    = recovery.TransitionStatusStarted
	TransitionStatusCompleted  = recovery.TransitionStatusCompleted
	TransitionStatusFailed     = recovery.TransitionStatusFailed
	TransitionStatusRolledBack = recovery.TransitionStatusRolledBack

	SyncStatusRunning   = recovery.SyncStatusRunning
	SyncStatusCompleted = recovery.SyncStatusCompleted
	SyncStatusFailed    = recovery.SyncStatusFailed

	SellerAccountStatusPending   = recovery.SellerAccountStatusPending
	SellerAccountStatusConnected = recovery.SellerAccountStatusConnected
	SellerAccountStatusErrored   = recovery.SellerAccountStatusErrored

	ClaimStatusDetected   = recovery.ClaimStatusDetected
	ClaimStatusEvidenced  = recovery.ClaimStatusEvidenced
	ClaimStatusSubmitted  = recovery.ClaimStatusSubmitted
	ClaimStatusRejected   = recovery.ClaimStatusRejected
	ClaimStatusReconciled = recovery.ClaimStatusReconciled
)

type PhaseTransition = recovery.PhaseTransition
type SyncProgress = recovery.SyncProgress
type SellerAccount = recovery.SellerAccount
type Claim = recovery.Claim
