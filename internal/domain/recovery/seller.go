package recovery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SellerAccountStatusPending   = "pending"
	SellerAccountStatusConnected = "connected"
	SellerAccountStatusErrored   = "errored"
)

type SellerAccount struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uq_seller_account_user_seller" json:"user_id"`
	SellerID       string         `gorm:"column:seller_id;not null;uniqueIndex:uq_seller_account_user_seller" json:"seller_id"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	OrdersCount    int            `gorm:"column:orders_count;not null;default:0" json:"orders_count"`
	InventoryItems int            `gorm:"column:inventory_items;not null;default:0" json:"inventory_items"`
	LastSyncedAt   *time.Time     `gorm:"column:last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SellerAccount) TableName() string { return "seller_account" }
