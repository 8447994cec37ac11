package recovery

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
)

type ClaimRepo interface {
	// Ingest inserts detected claims, skipping rows whose (user, dedupe_key)
	// already exists. Returns how many rows were actually inserted.
	Ingest(dbc dbctx.Context, claims []*types.Claim) (int, error)
	GetByID(dbc dbctx.Context, userID, claimID uuid.UUID) (*types.Claim, error)
	ListBySync(dbc dbctx.Context, userID uuid.UUID, syncID string) ([]*types.Claim, error)
	ListByStatus(dbc dbctx.Context, userID uuid.UUID, syncID string, status string) ([]*types.Claim, error)
	AttachEvidence(dbc dbctx.Context, userID, claimID uuid.UUID, evidence datatypes.JSON) error
	MarkSubmitted(dbc dbctx.Context, userID, claimID uuid.UUID, providerCaseID string) error
	MarkRejected(dbc dbctx.Context, userID, claimID uuid.UUID, providerCaseID, reason string) error
	MarkReconciled(dbc dbctx.Context, userID, claimID uuid.UUID, providerCaseID string, amountCents int64) error
}

type claimRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClaimRepo(db *gorm.DB, baseLog *logger.Logger) ClaimRepo {
	return &claimRepo{
		db:  db,
		log: baseLog.With("repo", "ClaimRepo"),
	}
}

func (r *claimRepo) Ingest(dbc dbctx.Context, claims []*types.Claim) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(claims) == 0 {
		return 0, nil
	}
	inserted := 0
	for _, claim := range claims {
		if claim == nil {
			continue
		}
		if claim.Status == "" {
			claim.Status = types.ClaimStatusDetected
		}
		err := transaction.WithContext(dbc.Ctx).Create(claim).Error
		if err != nil {
			if IsUniqueViolation(err) {
				r.log.Debug("Skipping duplicate claim", "user_id", claim.UserID, "dedupe_key", claim.DedupeKey)
				continue
			}
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

func (r *claimRepo) GetByID(dbc dbctx.Context, userID, claimID uuid.UUID) (*types.Claim, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || claimID == uuid.Nil {
		return nil, nil
	}
	var claim types.Claim
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ? AND user_id = ?", claimID, userID).
		Limit(1).
		Find(&claim).Error
	if err != nil {
		return nil, err
	}
	if claim.ID == uuid.Nil {
		return nil, nil
	}
	return &claim, nil
}

func (r *claimRepo) ListBySync(dbc dbctx.Context, userID uuid.UUID, syncID string) ([]*types.Claim, error) {
	return r.ListByStatus(dbc, userID, syncID, "")
}

func (r *claimRepo) ListByStatus(dbc dbctx.Context, userID uuid.UUID, syncID string, status string) ([]*types.Claim, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Claim
	if userID == uuid.Nil || syncID == "" {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND sync_id = ?", userID, syncID).
		Order("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *claimRepo) AttachEvidence(dbc dbctx.Context, userID, claimID uuid.UUID, evidence datatypes.JSON) error {
	return r.updateClaim(dbc, userID, claimID, map[string]interface{}{
		"evidence": evidence,
		"status":   types.ClaimStatusEvidenced,
	})
}

func (r *claimRepo) MarkSubmitted(dbc dbctx.Context, userID, claimID uuid.UUID, providerCaseID string) error {
	now := time.Now()
	return r.updateClaim(dbc, userID, claimID, map[string]interface{}{
		"status":           types.ClaimStatusSubmitted,
		"provider_case_id": providerCaseID,
		"submitted_at":     now,
	})
}

func (r *claimRepo) MarkRejected(dbc dbctx.Context, userID, claimID uuid.UUID, providerCaseID, reason string) error {
	return r.updateClaim(dbc, userID, claimID, map[string]interface{}{
		"status":           types.ClaimStatusRejected,
		"provider_case_id": providerCaseID,
		"rejection_reason": reason,
	})
}

func (r *claimRepo) MarkReconciled(dbc dbctx.Context, userID, claimID uuid.UUID, providerCaseID string, amountCents int64) error {
	now := time.Now()
	return r.updateClaim(dbc, userID, claimID, map[string]interface{}{
		"status":           types.ClaimStatusReconciled,
		"provider_case_id": providerCaseID,
		"amount_cents":     amountCents,
		"reconciled_at":    now,
	})
}

func (r *claimRepo) updateClaim(dbc dbctx.Context, userID, claimID uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || claimID == uuid.Nil {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Claim{}).
		Where("id = ? AND user_id = ?", claimID, userID).
		Updates(updates).Error
}
