package recovery

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

// TransitionLogRepo is append-only: rows are inserted and read, never
// updated or deleted.
type TransitionLogRepo interface {
	Append(dbc dbctx.Context, entry *types.PhaseTransition) (*types.PhaseTransition, error)
	Latest(dbc dbctx.Context, userID uuid.UUID, syncID string) (*types.PhaseTransition, error)
	ListBySync(dbc dbctx.Context, userID uuid.UUID, syncID string, limit int) ([]*types.PhaseTransition, error)
}

type transitionLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransitionLogRepo(db *gorm.DB, baseLog *logger.Logger) TransitionLogRepo {
	return &transitionLogRepo{
		db:  db,
		log: baseLog.With("repo", "TransitionLogRepo"),
	}
}

func (r *transitionLogRepo) Append(dbc dbctx.Context, entry *types.PhaseTransition) (*types.PhaseTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if entry == nil {
		return nil, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *transitionLogRepo) Latest(dbc dbctx.Context, userID uuid.UUID, syncID string) (*types.PhaseTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || syncID == "" {
		return nil, nil
	}
	var entry types.PhaseTransition
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND sync_id = ?", userID, syncID).
		Order("created_at DESC").
		Limit(1).
		Find(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == uuid.Nil {
		return nil, nil
	}
	return &entry, nil
}

func (r *transitionLogRepo) ListBySync(dbc dbctx.Context, userID uuid.UUID, syncID string, limit int) ([]*types.PhaseTransition, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PhaseTransition
	if userID == uuid.Nil || syncID == "" {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND sync_id = ?", userID, syncID).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
