package repos

import (
	"gorm.io/gorm"

	"github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

type SellerAccountRepo = recovery.SellerAccountRepo
type ClaimRepo = recovery.ClaimRepo
type TransitionLogRepo = recovery.TransitionLogRepo
type SyncProgressRepo = recovery.SyncProgressRepo

func NewSellerAccountRepo(db *gorm.DB, baseLog *logger.Logger) SellerAccountRepo {
	return recovery.NewSellerAccountRepo(db, baseLog)
}

func NewClaimRepo(db *gorm.DB, baseLog *logger.Logger) ClaimRepo {
	return recovery.NewClaimRepo(db, baseLog)
}

func NewTransitionLogRepo(db *gorm.DB, baseLog *logger.Logger) TransitionLogRepo {
	return recovery.NewTransitionLogRepo(db, baseLog)
}

func NewSyncProgressRepo(db *gorm.DB, baseLog *logger.Logger) SyncProgressRepo {
	return recovery.NewSyncProgressRepo(db, baseLog)
}
