package phases

import (
	"context"
	"fmt"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// DataSync is phase 2: record what the marketplace discovery pass found
// for the connected account.
type DataSync struct {
	sellers reporecovery.SellerAccountRepo
	log     *logger.Logger
}

func NewDataSync(sellers reporecovery.SellerAccountRepo, baseLog *logger.Logger) *DataSync {
	return &DataSync{
		sellers: sellers,
		log:     baseLog.With("phase", "DataSync"),
	}
}

func (h *DataSync) Phase() int { return 2 }

func (h *DataSync) Run(ctx context.Context, trig *workflow.Trigger) (*workflow.JobResult, error) {
	orders, okOrders := metaInt(trig.Metadata, "ordersCount")
	items, okItems := metaInt(trig.Metadata, "inventoryItems")
	if !okOrders || !okItems {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Data sync failed",
			Error:   "missing ordersCount or inventoryItems",
		}, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	account, err := h.sellers.GetByUser(dbc, trig.UserID)
	if err != nil {
		return nil, fmt.Errorf("load seller account: %w", err)
	}
	if account == nil {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Data sync failed",
			Error:   "no connected seller account",
		}, nil
	}
	if err := h.sellers.RecordDiscovery(dbc, trig.UserID, orders, items); err != nil {
		return nil, fmt.Errorf("record discovery: %w", err)
	}

	h.log.Info("Marketplace data synced",
		"user_id", trig.UserID.String(),
		"orders", orders,
		"inventory_items", items)
	return &workflow.JobResult{
		Success: true,
		Phase:   h.Phase(),
		Message: fmt.Sprintf("Synced %d orders and %d inventory items", orders, items),
		Data: map[string]any{
			"orders_count":    orders,
			"inventory_items": items,
		},
	}, nil
}
