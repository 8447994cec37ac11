package phases

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/observability"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// ClaimDetection is phase 3: persist the claims the anomaly scorer
// flagged in this sync. Detection finding nothing is a legitimate
// terminal outcome for the workflow, reported as a business failure so
// the queue does not retry it.
type ClaimDetection struct {
	claims reporecovery.ClaimRepo
	log    *logger.Logger
}

func NewClaimDetection(claims reporecovery.ClaimRepo, baseLog *logger.Logger) *ClaimDetection {
	return &ClaimDetection{
		claims: claims,
		log:    baseLog.With("phase", "ClaimDetection"),
	}
}

func (h *ClaimDetection) Phase() int { return 3 }

func (h *ClaimDetection) Run(ctx context.Context, trig *workflow.Trigger) (*workflow.JobResult, error) {
	raw := metaSlice(trig.Metadata, "claims")
	if len(raw) == 0 {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "No claims found",
		}, nil
	}

	rows := make([]*types.Claim, 0, len(raw))
	soft := &SoftFailures{}
	for i, item := range raw {
		claim, err := h.buildClaim(trig, item)
		if err != nil {
			soft.Add(fmt.Sprintf("claim[%d]", i), err)
			continue
		}
		rows = append(rows, claim)
	}
	if len(rows) == 0 {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Claim detection failed",
			Error:   soft.Summary(),
		}, nil
	}

	inserted, err := h.claims.Ingest(dbctx.Context{Ctx: ctx}, rows)
	if err != nil {
		return nil, fmt.Errorf("ingest claims: %w", err)
	}
	for _, claim := range rows {
		observability.Current().AddClaimsIngested(claim.ClaimType, 1)
	}

	h.log.Info("Claims detected",
		"user_id", trig.UserID.String(),
		"sync_id", trig.SyncID,
		"detected", len(rows),
		"inserted", inserted,
		"skipped", soft.Len())
	msg := fmt.Sprintf("Detected %d claims", inserted)
	if soft.Len() > 0 {
		msg = fmt.Sprintf("%s (%d skipped: %s)", msg, soft.Len(), soft.Summary())
	}
	return &workflow.JobResult{
		Success: true,
		Phase:   h.Phase(),
		Message: msg,
		Data: map[string]any{
			"detected": len(rows),
			"inserted": inserted,
		},
	}, nil
}

func (h *ClaimDetection) buildClaim(trig *workflow.Trigger, item any) (*types.Claim, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not an object")
	}
	claimType := metaString(m, "type")
	if claimType == "" {
		return nil, fmt.Errorf("missing type")
	}
	dedupeKey := metaString(m, "dedupeKey")
	if dedupeKey == "" {
		return nil, fmt.Errorf("missing dedupeKey")
	}
	var detail datatypes.JSON
	if rawDetail, err := json.Marshal(m); err == nil {
		detail = datatypes.JSON(rawDetail)
	}
	return &types.Claim{
		UserID:    trig.UserID,
		SyncID:    trig.SyncID,
		DedupeKey: dedupeKey,
		ClaimType: claimType,
		Status:    types.ClaimStatusDetected,
		Detail:    detail,
	}, nil
}
