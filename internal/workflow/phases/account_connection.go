package phases

import (
	"context"
	"fmt"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// AccountConnection is phase 1: bind the marketplace seller account to
// the user. The underlying write is an upsert, so re-running it is safe.
type AccountConnection struct {
	sellers reporecovery.SellerAccountRepo
	log     *logger.Logger
}

func NewAccountConnection(sellers reporecovery.SellerAccountRepo, baseLog *logger.Logger) *AccountConnection {
	return &AccountConnection{
		sellers: sellers,
		log:     baseLog.With("phase", "AccountConnection"),
	}
}

func (h *AccountConnection) Phase() int { return 1 }

func (h *AccountConnection) Run(ctx context.Context, trig *workflow.Trigger) (*workflow.JobResult, error) {
	sellerID := metaString(trig.Metadata, "sellerId")
	if sellerID == "" {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Account connection failed",
			Error:   "missing sellerId",
		}, nil
	}

	account, err := h.sellers.Connect(dbctx.Context{Ctx: ctx}, trig.UserID, sellerID)
	if err != nil {
		return nil, fmt.Errorf("connect seller account: %w", err)
	}

	h.log.Info("Seller account connected",
		"user_id", trig.UserID.String(),
		"seller_id", sellerID)
	return &workflow.JobResult{
		Success: true,
		Phase:   h.Phase(),
		Message: "Account connected",
		Data: map[string]any{
			"seller_id":  sellerID,
			"account_id": account.ID.String(),
		},
	}, nil
}
