package recovery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

type SyncProgressRepo interface {
	Upsert(dbc dbctx.Context, record *types.SyncProgress) (*types.SyncProgress, error)
	Get(dbc dbctx.Context, userID uuid.UUID, syncID string) (*types.SyncProgress, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.SyncProgress, error)
	// MarkCompletedOnce flips a running row to completed and reports whether
	// this call did the flip. A second call finds no running row and returns
	// false, which gates the completion broadcast.
	MarkCompletedOnce(dbc dbctx.Context, userID uuid.UUID, syncID string, lastResult string) (bool, error)
}

type syncProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSyncProgressRepo(db *gorm.DB, baseLog *logger.Logger) SyncProgressRepo {
	return &syncProgressRepo{
		db:  db,
		log: baseLog.With("repo", "SyncProgressRepo"),
	}
}

func (r *syncProgressRepo) Upsert(dbc dbctx.Context, record *types.SyncProgress) (*types.SyncProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if record == nil {
		return nil, nil
	}
	record.UpdatedAt = time.Now()
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "sync_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"step", "total_steps", "current_step_label",
				"status", "progress_percent", "last_result", "updated_at",
			}),
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *syncProgressRepo) Get(dbc dbctx.Context, userID uuid.UUID, syncID string) (*types.SyncProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || syncID == "" {
		return nil, nil
	}
	var record types.SyncProgress
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND sync_id = ?", userID, syncID).
		Limit(1).
		Find(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == uuid.Nil {
		return nil, nil
	}
	return &record, nil
}

func (r *syncProgressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.SyncProgress, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SyncProgress
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *syncProgressRepo) MarkCompletedOnce(dbc dbctx.Context, userID uuid.UUID, syncID string, lastResult string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || syncID == "" {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.SyncProgress{}).
		Where("user_id = ? AND sync_id = ? AND status <> ?", userID, syncID, types.SyncStatusCompleted).
		Updates(map[string]interface{}{
			"status":           types.SyncStatusCompleted,
			"progress_percent": 100,
			"last_result":      lastResult,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
