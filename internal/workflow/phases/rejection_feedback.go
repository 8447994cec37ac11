package phases

import (
	"context"
	"fmt"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// RejectionFeedback is phase 6: the marketplace rejected the claim.
// Recording the rejection succeeds as a phase even though the claim
// itself did not; the reason feeds future detection tuning.
type RejectionFeedback struct {
	claims reporecovery.ClaimRepo
	log    *logger.Logger
}

func NewRejectionFeedback(claims reporecovery.ClaimRepo, baseLog *logger.Logger) *RejectionFeedback {
	return &RejectionFeedback{
		claims: claims,
		log:    baseLog.With("phase", "RejectionFeedback"),
	}
}

func (h *RejectionFeedback) Phase() int { return 6 }

func (h *RejectionFeedback) Run(ctx context.Context, trig *workflow.Trigger) (*workflow.JobResult, error) {
	claimID, err := metaUUID(trig.Metadata, "claimId")
	if err != nil {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Rejection feedback failed",
			Error:   err.Error(),
		}, nil
	}
	caseID := metaString(trig.Metadata, "providerCaseId")
	reason := metaString(trig.Metadata, "rejectionReason")
	if reason == "" {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Rejection feedback failed",
			Error:   "missing rejectionReason",
		}, nil
	}

	if err := h.claims.MarkRejected(dbctx.Context{Ctx: ctx}, trig.UserID, claimID, caseID, reason); err != nil {
		return nil, fmt.Errorf("mark claim rejected: %w", err)
	}

	h.log.Info("Claim rejection recorded",
		"user_id", trig.UserID.String(),
		"claim_id", claimID.String(),
		"reason", reason)
	return &workflow.JobResult{
		Success: true,
		Phase:   h.Phase(),
		Message: fmt.Sprintf("Rejection recorded: %s", reason),
		Data: map[string]any{
			"claim_id": claimID.String(),
			"reason":   reason,
		},
	}, nil
}
