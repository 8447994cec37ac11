package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/clawbackhq/clawback-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.SellerAccount{},
		&types.Claim{},
		&types.PhaseTransition{},
		&types.SyncProgress{},
	)
}

func EnsureRecoveryIndexes(db *gorm.DB) error {
	// uuid-ossp is already enabled in NewPostgresService, but safe to re-run
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	// Claims are listed newest-first per user and status.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_claim_user_status
		ON claim(user_id, status, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_claim_user_status: %w", err)
	}
	// Transition log is append-only and read newest-first per sync.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_phase_transition_sync_recent
		ON phase_transition_log(user_id, sync_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_phase_transition_sync_recent: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureRecoveryIndexes(s.db); err != nil {
		s.log.Error("Recovery index migration failed", "error", err)
		return err
	}
	return nil
}
