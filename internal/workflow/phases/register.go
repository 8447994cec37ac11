package phases

import (
	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

// RegisterAll wires every phase handler into the registry.
func RegisterAll(
	reg *workflow.Registry,
	sellers reporecovery.SellerAccountRepo,
	claims reporecovery.ClaimRepo,
	baseLog *logger.Logger,
) error {
	handlers := []workflow.PhaseHandler{
		NewAccountConnection(sellers, baseLog),
		NewDataSync(sellers, baseLog),
		NewClaimDetection(claims, baseLog),
		NewEvidenceMatching(claims, baseLog),
		NewClaimSubmission(claims, baseLog),
		NewRejectionFeedback(claims, baseLog),
		NewPayoutReconciliation(claims, baseLog),
	}
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}
