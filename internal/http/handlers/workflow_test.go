package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/clawbackhq/clawback-backend/internal/domain"
	httpMW "github.com/clawbackhq/clawback-backend/internal/http/middleware"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

type fakeTriggerService struct {
	result   *workflow.JobResult
	err      error
	calls    int
	lastSync string
	lastMeta map[string]any
}

func (f *fakeTriggerService) TriggerPhase(ctx context.Context, userID uuid.UUID, syncID string, phase int, metadata map[string]any) (*workflow.JobResult, error) {
	f.calls++
	f.lastSync = syncID
	f.lastMeta = metadata
	return f.result, f.err
}

type fakeTransitionRepo struct {
	rows []*types.PhaseTransition
}

func (f *fakeTransitionRepo) Append(dbc dbctx.Context, entry *types.PhaseTransition) (*types.PhaseTransition, error) {
	f.rows = append(f.rows, entry)
	return entry, nil
}

func (f *fakeTransitionRepo) Latest(dbc dbctx.Context, userID uuid.UUID, syncID string) (*types.PhaseTransition, error) {
	if len(f.rows) == 0 {
		return nil, nil
	}
	return f.rows[len(f.rows)-1], nil
}

func (f *fakeTransitionRepo) ListBySync(dbc dbctx.Context, userID uuid.UUID, syncID string, limit int) ([]*types.PhaseTransition, error) {
	return f.rows, nil
}

type fakeProgressRepo struct {
	row *types.SyncProgress
	err error
}

func (f *fakeProgressRepo) Upsert(dbc dbctx.Context, record *types.SyncProgress) (*types.SyncProgress, error) {
	f.row = record
	return record, nil
}

func (f *fakeProgressRepo) Get(dbc dbctx.Context, userID uuid.UUID, syncID string) (*types.SyncProgress, error) {
	return f.row, f.err
}

func (f *fakeProgressRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.SyncProgress, error) {
	if f.row == nil {
		return nil, f.err
	}
	return []*types.SyncProgress{f.row}, f.err
}

func (f *fakeProgressRepo) MarkCompletedOnce(dbc dbctx.Context, userID uuid.UUID, syncID string, lastResult string) (bool, error) {
	return false, nil
}

type handlerFixture struct {
	handler  *WorkflowHandler
	triggers *fakeTriggerService
	progress *fakeProgressRepo
	userID   uuid.UUID
	router   *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logg, err := logger.New("test")
	require.NoError(t, err)

	fx := &handlerFixture{
		triggers: &fakeTriggerService{},
		progress: &fakeProgressRepo{},
		userID:   uuid.New(),
	}
	fx.handler = NewWorkflowHandler(logg, fx.triggers, &fakeTransitionRepo{}, fx.progress)

	r := gin.New()
	authStub := func(c *gin.Context) {
		c.Set(httpMW.ContextUserIDKey, fx.userID)
		c.Next()
	}
	r.POST("/api/workflow/phase/:phase", authStub, fx.handler.TriggerPhase)
	r.GET("/api/workflow/:syncID/progress", authStub, fx.handler.GetProgress)
	r.GET("/api/workflow/:syncID/transitions", authStub, fx.handler.ListTransitions)
	r.GET("/api/progress", authStub, fx.handler.ListProgress)
	fx.router = r
	return fx
}

func (fx *handlerFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func (fx *handlerFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestTriggerPhaseSuccess(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.triggers.result = &workflow.JobResult{Success: true, Phase: 1, Message: "Account connected"}

	w := fx.post(t, "/api/workflow/phase/1", gin.H{
		"sync_id":  "sync-1",
		"metadata": gin.H{"sellerId": "A1SELLER"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Account connected", out["message"])
	assert.Equal(t, 1, fx.triggers.calls)
	assert.Equal(t, "sync-1", fx.triggers.lastSync)
}

func TestTriggerPhaseRejectsMissingMetadata(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.post(t, "/api/workflow/phase/5", gin.H{
		"sync_id":  "sync-1",
		"metadata": gin.H{"claimId": uuid.New().String()},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "providerCaseId")
	assert.Zero(t, fx.triggers.calls)
}

func TestTriggerPhaseRejectsBadPhaseParam(t *testing.T) {
	fx := newHandlerFixture(t)

	for _, phase := range []string{"0", "-1", "abc"} {
		w := fx.post(t, "/api/workflow/phase/"+phase, gin.H{"sync_id": "sync-1"})
		assert.Equal(t, http.StatusBadRequest, w.Code, "phase %q", phase)
	}
	assert.Zero(t, fx.triggers.calls)
}

func TestTriggerPhaseRejectsMissingSyncID(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.post(t, "/api/workflow/phase/1", gin.H{"metadata": gin.H{"sellerId": "A1"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, fx.triggers.calls)
}

func TestTriggerPhaseUnknownPhaseIsBadRequest(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.triggers.err = &workflow.UnknownPhaseError{Phase: 99}

	w := fx.post(t, "/api/workflow/phase/99", gin.H{"sync_id": "sync-1", "metadata": gin.H{}})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown step: 99")
}

func TestTriggerPhaseInfraErrorIsServerError(t *testing.T) {
	fx := newHandlerFixture(t)
	fx.triggers.err = errors.New("db down")

	w := fx.post(t, "/api/workflow/phase/1", gin.H{
		"sync_id":  "sync-1",
		"metadata": gin.H{"sellerId": "A1"},
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	// Raw infrastructure errors stay out of the response body.
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestGetProgress(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.get(t, "/api/workflow/sync-1/progress")
	assert.Equal(t, http.StatusNotFound, w.Code)

	fx.progress.row = &types.SyncProgress{
		UserID:          fx.userID,
		SyncID:          "sync-1",
		Step:            2,
		TotalSteps:      7,
		Status:          types.SyncStatusRunning,
		ProgressPercent: 29,
		UpdatedAt:       time.Now(),
	}
	w = fx.get(t, "/api/workflow/sync-1/progress")
	require.Equal(t, http.StatusOK, w.Code)
	var out types.SyncProgress
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 2, out.Step)
	assert.Equal(t, 29, out.ProgressPercent)
}

func TestListTransitionsRejectsBadLimit(t *testing.T) {
	fx := newHandlerFixture(t)

	w := fx.get(t, "/api/workflow/sync-1/transitions?limit=-5")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.get(t, "/api/workflow/sync-1/transitions?limit=10")
	assert.Equal(t, http.StatusOK, w.Code)
}
