package phases

import (
	"context"
	"fmt"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// PayoutReconciliation is phase 7, the final step: match the provider's
// payout to the submitted claim and close it out.
type PayoutReconciliation struct {
	claims reporecovery.ClaimRepo
	log    *logger.Logger
}

func NewPayoutReconciliation(claims reporecovery.ClaimRepo, baseLog *logger.Logger) *PayoutReconciliation {
	return &PayoutReconciliation{
		claims: claims,
		log:    baseLog.With("phase", "PayoutReconciliation"),
	}
}

func (h *PayoutReconciliation) Phase() int { return 7 }

func (h *PayoutReconciliation) Run(ctx context.Context, trig *workflow.Trigger) (*workflow.JobResult, error) {
	claimID, err := metaUUID(trig.Metadata, "claimId")
	if err != nil {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Payout reconciliation failed",
			Error:   err.Error(),
		}, nil
	}
	caseID := metaString(trig.Metadata, "providerCaseId")
	amountCents, ok := metaInt64(trig.Metadata, "amount")
	if !ok || amountCents < 0 {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Payout reconciliation failed",
			Error:   "missing or invalid amount",
		}, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	claim, err := h.claims.GetByID(dbc, trig.UserID, claimID)
	if err != nil {
		return nil, fmt.Errorf("load claim: %w", err)
	}
	if claim == nil {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Payout reconciliation failed",
			Error:   fmt.Sprintf("claim %s not found", claimID),
		}, nil
	}
	if err := h.claims.MarkReconciled(dbc, trig.UserID, claimID, caseID, amountCents); err != nil {
		return nil, fmt.Errorf("mark claim reconciled: %w", err)
	}

	h.log.Info("Payout reconciled",
		"user_id", trig.UserID.String(),
		"claim_id", claimID.String(),
		"amount_cents", amountCents)
	return &workflow.JobResult{
		Success: true,
		Phase:   h.Phase(),
		Message: fmt.Sprintf("Recovered $%.2f", float64(amountCents)/100),
		Data: map[string]any{
			"claim_id":     claimID.String(),
			"amount_cents": amountCents,
		},
	}, nil
}
