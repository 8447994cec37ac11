package recovery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clawbackhq/clawback-backend/internal/data/repos/testutil"
	types "github.com/clawbackhq/clawback-backend/internal/domain"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
)

func TestTransitionLogRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewTransitionLogRepo(db, testutil.Logger(t))

	userID := uuid.New()
	syncID := "sync-" + uuid.NewString()
	now := time.Now().UTC()

	started := &types.PhaseTransition{
		ID:         uuid.New(),
		UserID:     userID,
		SyncID:     syncID,
		Phase:      1,
		PhaseLabel: "Account Connection",
		Status:     types.TransitionStatusStarted,
		CreatedAt:  now.Add(-2 * time.Minute),
	}
	completed := &types.PhaseTransition{
		ID:         uuid.New(),
		UserID:     userID,
		SyncID:     syncID,
		Phase:      1,
		PhaseLabel: "Account Connection",
		Status:     types.TransitionStatusCompleted,
		DurationMs: ptrInt64(1200),
		CreatedAt:  now.Add(-1 * time.Minute),
	}

	if _, err := repo.Append(dbc, started); err != nil {
		t.Fatalf("Append started: %v", err)
	}
	if _, err := repo.Append(dbc, completed); err != nil {
		t.Fatalf("Append completed: %v", err)
	}

	latest, err := repo.Latest(dbc, userID, syncID)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest == nil || latest.ID != completed.ID {
		t.Fatalf("Latest: expected %v got %v", completed.ID, latest)
	}
	if latest.Status != types.TransitionStatusCompleted || latest.Phase != 1 {
		t.Fatalf("Latest: unexpected row %+v", latest)
	}

	entries, err := repo.ListBySync(dbc, userID, syncID, 0)
	if err != nil {
		t.Fatalf("ListBySync: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("ListBySync: expected 2 rows, got %d", len(entries))
	}
	if entries[0].ID != started.ID || entries[1].ID != completed.ID {
		t.Fatalf("ListBySync: expected created_at ASC order")
	}

	// Other users never see the log.
	other, err := repo.Latest(dbc, uuid.New(), syncID)
	if err != nil {
		t.Fatalf("Latest (other user): %v", err)
	}
	if other != nil {
		t.Fatalf("Latest (other user): expected nil, got %+v", other)
	}
}

func TestSyncProgressRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewSyncProgressRepo(db, testutil.Logger(t))

	userID := uuid.New()
	syncID := "sync-" + uuid.NewString()

	first := &types.SyncProgress{
		ID:               uuid.New(),
		UserID:           userID,
		SyncID:           syncID,
		Step:             1,
		TotalSteps:       7,
		CurrentStepLabel: "Account Connection",
		Status:           types.SyncStatusRunning,
		ProgressPercent:  14,
	}
	if _, err := repo.Upsert(dbc, first); err != nil {
		t.Fatalf("Upsert #1: %v", err)
	}

	second := &types.SyncProgress{
		ID:               uuid.New(),
		UserID:           userID,
		SyncID:           syncID,
		Step:             2,
		TotalSteps:       7,
		CurrentStepLabel: "Data Sync",
		Status:           types.SyncStatusRunning,
		ProgressPercent:  29,
		LastResult:       "Synced 412 orders",
	}
	if _, err := repo.Upsert(dbc, second); err != nil {
		t.Fatalf("Upsert #2: %v", err)
	}

	got, err := repo.Get(dbc, userID, syncID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatalf("Get: expected row")
	}
	if got.Step != 2 || got.ProgressPercent != 29 || got.CurrentStepLabel != "Data Sync" {
		t.Fatalf("Get: upsert did not overwrite, got %+v", got)
	}

	flipped, err := repo.MarkCompletedOnce(dbc, userID, syncID, "All phases complete")
	if err != nil {
		t.Fatalf("MarkCompletedOnce #1: %v", err)
	}
	if !flipped {
		t.Fatalf("MarkCompletedOnce #1: expected true")
	}

	flipped, err = repo.MarkCompletedOnce(dbc, userID, syncID, "All phases complete")
	if err != nil {
		t.Fatalf("MarkCompletedOnce #2: %v", err)
	}
	if flipped {
		t.Fatalf("MarkCompletedOnce #2: expected false on second flip")
	}

	got, err = repo.Get(dbc, userID, syncID)
	if err != nil {
		t.Fatalf("Get after complete: %v", err)
	}
	if got.Status != types.SyncStatusCompleted || got.ProgressPercent != 100 {
		t.Fatalf("Get after complete: got %+v", got)
	}
}

func TestClaimRepoIngestDedupe(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewClaimRepo(db, testutil.Logger(t))

	userID := uuid.New()
	syncID := "sync-" + uuid.NewString()

	claims := []*types.Claim{
		{ID: uuid.New(), UserID: userID, SyncID: syncID, DedupeKey: "lost-ord-1", ClaimType: "lost_inventory"},
		{ID: uuid.New(), UserID: userID, SyncID: syncID, DedupeKey: "dmg-ord-2", ClaimType: "damaged_inventory"},
	}
	inserted, err := repo.Ingest(dbc, claims)
	if err != nil {
		t.Fatalf("Ingest #1: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("Ingest #1: expected 2 inserted, got %d", inserted)
	}

	dupes := []*types.Claim{
		{ID: uuid.New(), UserID: userID, SyncID: syncID, DedupeKey: "lost-ord-1", ClaimType: "lost_inventory"},
		{ID: uuid.New(), UserID: userID, SyncID: syncID, DedupeKey: "fee-ord-3", ClaimType: "fee_overcharge"},
	}
	inserted, err = repo.Ingest(dbc, dupes)
	if err != nil {
		t.Fatalf("Ingest #2: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("Ingest #2: expected 1 inserted, got %d", inserted)
	}

	rows, err := repo.ListBySync(dbc, userID, syncID)
	if err != nil {
		t.Fatalf("ListBySync: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ListBySync: expected 3 rows, got %d", len(rows))
	}

	// Lifecycle walk: evidence -> submitted -> rejected -> reconciled.
	claimID := claims[0].ID
	if err := repo.MarkSubmitted(dbc, userID, claimID, "CASE-100"); err != nil {
		t.Fatalf("MarkSubmitted: %v", err)
	}
	got, err := repo.GetByID(dbc, userID, claimID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Status != types.ClaimStatusSubmitted || got.ProviderCaseID != "CASE-100" {
		t.Fatalf("GetByID after submit: got %+v", got)
	}
	if got.SubmittedAt == nil {
		t.Fatalf("GetByID after submit: expected submitted_at")
	}

	if err := repo.MarkReconciled(dbc, userID, claimID, "CASE-100", 4250); err != nil {
		t.Fatalf("MarkReconciled: %v", err)
	}
	got, err = repo.GetByID(dbc, userID, claimID)
	if err != nil {
		t.Fatalf("GetByID after reconcile: %v", err)
	}
	if got.Status != types.ClaimStatusReconciled || got.AmountCents == nil || *got.AmountCents != 4250 {
		t.Fatalf("GetByID after reconcile: got %+v", got)
	}
}

func ptrInt64(v int64) *int64 { return &v }
