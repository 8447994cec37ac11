package phases

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// EvidenceMatching is phase 4: attach supporting evidence to detected
// claims. Matching is per claim; a bad match skips that claim rather
// than failing the batch.
type EvidenceMatching struct {
	claims reporecovery.ClaimRepo
	log    *logger.Logger
}

func NewEvidenceMatching(claims reporecovery.ClaimRepo, baseLog *logger.Logger) *EvidenceMatching {
	return &EvidenceMatching{
		claims: claims,
		log:    baseLog.With("phase", "EvidenceMatching"),
	}
}

func (h *EvidenceMatching) Phase() int { return 4 }

func (h *EvidenceMatching) Run(ctx context.Context, trig *workflow.Trigger) (*workflow.JobResult, error) {
	matches := metaSlice(trig.Metadata, "matches")
	if len(matches) == 0 {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "No evidence matches provided",
		}, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	soft := &SoftFailures{}
	attached := 0
	for i, item := range matches {
		key := fmt.Sprintf("match[%d]", i)
		m, ok := item.(map[string]any)
		if !ok {
			soft.Add(key, fmt.Errorf("not an object"))
			continue
		}
		claimID, err := metaUUID(m, "claimId")
		if err != nil {
			soft.Add(key, err)
			continue
		}
		evidence, ok := m["evidence"].(map[string]any)
		if !ok || len(evidence) == 0 {
			soft.Add(key, fmt.Errorf("missing evidence"))
			continue
		}
		raw, err := json.Marshal(evidence)
		if err != nil {
			soft.Add(key, err)
			continue
		}
		if err := h.claims.AttachEvidence(dbc, trig.UserID, claimID, datatypes.JSON(raw)); err != nil {
			return nil, fmt.Errorf("attach evidence to claim %s: %w", claimID, err)
		}
		attached++
	}

	if attached == 0 {
		return &workflow.JobResult{
			Success: false,
			Phase:   h.Phase(),
			Message: "Evidence matching failed",
			Error:   soft.Summary(),
		}, nil
	}

	h.log.Info("Evidence matched",
		"user_id", trig.UserID.String(),
		"sync_id", trig.SyncID,
		"attached", attached,
		"skipped", soft.Len())
	msg := fmt.Sprintf("Matched evidence for %d of %d claims", attached, len(matches))
	if soft.Len() > 0 {
		msg = fmt.Sprintf("%s (%s)", msg, soft.Summary())
	}
	return &workflow.JobResult{
		Success: true,
		Phase:   h.Phase(),
		Message: msg,
		Data: map[string]any{
			"attached": attached,
			"skipped":  soft.Len(),
		},
	}, nil
}
