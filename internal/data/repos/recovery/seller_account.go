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

type SellerAccountRepo interface {
	Connect(dbc dbctx.Context, userID uuid.UUID, sellerID string) (*types.SellerAccount, error)
	GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.SellerAccount, error)
	RecordDiscovery(dbc dbctx.Context, userID uuid.UUID, ordersCount, inventoryItems int) error
}

type sellerAccountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSellerAccountRepo(db *gorm.DB, baseLog *logger.Logger) SellerAccountRepo {
	return &sellerAccountRepo{
		db:  db,
		log: baseLog.With("repo", "SellerAccountRepo"),
	}
}

// Connect upserts the (user, seller) pair and marks it connected. Phase 1
// re-runs land here, so the write has to be idempotent.
func (r *sellerAccountRepo) Connect(dbc dbctx.Context, userID uuid.UUID, sellerID string) (*types.SellerAccount, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || sellerID == "" {
		return nil, nil
	}
	account := &types.SellerAccount{
		UserID:   userID,
		SellerID: sellerID,
		Status:   types.SellerAccountStatusConnected,
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "seller_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"status": types.SellerAccountStatusConnected, "updated_at": time.Now()}),
		}).
		Create(account).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *sellerAccountRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.SellerAccount, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var account types.SellerAccount
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(1).
		Find(&account).Error
	if err != nil {
		return nil, err
	}
	if account.ID == uuid.Nil {
		return nil, nil
	}
	return &account, nil
}

func (r *sellerAccountRepo) RecordDiscovery(dbc dbctx.Context, userID uuid.UUID, ordersCount, inventoryItems int) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SellerAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"orders_count":    ordersCount,
			"inventory_items": inventoryItems,
			"last_synced_at":  now,
			"updated_at":      now,
		}).Error
}
