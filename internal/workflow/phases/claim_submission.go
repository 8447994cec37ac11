package phases

import (
	"context"
	"fmt"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// ClaimSubmission is phase 5: record that a claim was filed with the
// marketplace and remember the provider's case ID. The actual filing
// happens upstream; this phase makes it durable.
type ClaimSubmission struct {
	claims reporecovery.ClaimRepo
	log    *logger.Logger
}

func NewClaimSubmission(claims reporecovery.ClaimRepo, baseLog *logger.Logger) *ClaimSubmission {
	return &ClaimSubmission{
		claims: claims,
		log:    baseLog.With("phase", "ClaimSubmission"),
	}
}

func (h *ClaimSubmission) Phase() int { return 5 }

func (h *ClaimSubmission) Run(ctx context.Context, trig *workflow.Trigger) (*workflow.JobResult, error) {
	claimID, err := metaUUID(trig.Metadata, "claimId")
	if err != nil {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Claim submission failed",
			Error:   err.Error(),
		}, nil
	}
	caseID := metaString(trig.Metadata, "providerCaseId")
	if caseID == "" {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Claim submission failed",
			Error:   "missing providerCaseId",
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
			Message: "Claim submission failed",
			Error:   fmt.Sprintf("claim %s not found", claimID),
		}, nil
	}
	if err := h.claims.MarkSubmitted(dbc, trig.UserID, claimID, caseID); err != nil {
		return nil, fmt.Errorf("mark claim submitted: %w", err)
	}

	h.log.Info("Claim submitted",
		"user_id", trig.UserID.String(),
		"claim_id", claimID.String(),
		"case_id", caseID)
	return &workflow.JobResult{
		Success: true,
		Phase:   h.Phase(),
		Message: fmt.Sprintf("Claim submitted as case %s", caseID),
		Data: map[string]any{
			"claim_id": claimID.String(),
			"case_id":  caseID,
		},
	}, nil
}
