package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	reporecovery "github.com/clawbackhq/clawback-backend/internal/data/repos/recovery"
	httpMW "github.com/clawbackhq/clawback-backend/internal/http/middleware"
	"github.com/clawbackhq/clawback-backend/internal/http/response"
	"github.com/clawbackhq/clawback-backend/internal/pkg/dbctx"
	"github.com/clawbackhq/clawback-backend/internal/platform/logger"
	"github.com/clawbackhq/clawback-backend/internal/workflow"
)

type WorkflowHandler struct {
	log         *logger.Logger
	triggers    workflow.TriggerService
	transitions reporecovery.TransitionLogRepo
	progress    reporecovery.SyncProgressRepo
}

func NewWorkflowHandler(
	baseLog *logger.Logger,
	triggers workflow.TriggerService,
	transitions reporecovery.TransitionLogRepo,
	progress reporecovery.SyncProgressRepo,
) *WorkflowHandler {
	return &WorkflowHandler{
		log:         baseLog.With("handler", "WorkflowHandler"),
		triggers:    triggers,
		transitions: transitions,
		progress:    progress,
	}
}

type triggerPhaseRequest struct {
	SyncID   string         `json:"sync_id" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

// TriggerPhase validates the phase number and its required metadata
// fields, then hands the trigger to the workflow service. Missing
// metadata is a caller mistake and is rejected before anything is
// queued or logged.
func (h *WorkflowHandler) TriggerPhase(c *gin.Context) {
	userID := httpMW.UserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("not authenticated"))
		return
	}

	phase, err := strconv.Atoi(c.Param("phase"))
	if err != nil || phase < 1 {
		response.RespondError(c, http.StatusBadRequest, "invalid_phase", fmt.Errorf("phase must be a positive integer"))
		return
	}

	var req triggerPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if missing := missingMetadata(phase, req.Metadata); len(missing) > 0 {
		response.RespondError(c, http.StatusBadRequest, "missing_metadata",
			fmt.Errorf("phase %d requires metadata: %s", phase, strings.Join(missing, ", ")))
		return
	}

	result, err := h.triggers.TriggerPhase(c.Request.Context(), userID, req.SyncID, phase, req.Metadata)
	if err != nil {
		if workflow.IsUnknownPhase(err) {
			response.RespondError(c, http.StatusBadRequest, "unknown_phase", err)
			return
		}
		h.log.Error("Workflow trigger failed", "phase", phase, "sync_id", req.SyncID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "trigger_failed", fmt.Errorf("failed to trigger phase %d", phase))
		return
	}

	response.RespondOK(c, gin.H{
		"success": result.Success,
		"phase":   result.Phase,
		"message": result.Message,
		"data":    result.Data,
	})
}

func (h *WorkflowHandler) GetProgress(c *gin.Context) {
	userID := httpMW.UserID(c)
	syncID := strings.TrimSpace(c.Param("syncID"))
	if syncID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_sync_id", fmt.Errorf("missing sync id"))
		return
	}

	row, err := h.progress.Get(dbctx.Context{Ctx: c.Request.Context()}, userID, syncID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "progress_lookup_failed", fmt.Errorf("failed to load progress"))
		return
	}
	if row == nil {
		response.RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("no progress for sync %s", syncID))
		return
	}
	response.RespondOK(c, row)
}

func (h *WorkflowHandler) ListTransitions(c *gin.Context) {
	userID := httpMW.UserID(c)
	syncID := strings.TrimSpace(c.Param("syncID"))
	if syncID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_sync_id", fmt.Errorf("missing sync id"))
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	rows, err := h.transitions.ListBySync(dbctx.Context{Ctx: c.Request.Context()}, userID, syncID, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "transitions_lookup_failed", fmt.Errorf("failed to load transitions"))
		return
	}
	response.RespondOK(c, gin.H{"sync_id": syncID, "transitions": rows})
}

func (h *WorkflowHandler) ListProgress(c *gin.Context) {
	userID := httpMW.UserID(c)
	rows, err := h.progress.ListByUser(dbctx.Context{Ctx: c.Request.Context()}, userID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "progress_lookup_failed", fmt.Errorf("failed to load progress"))
		return
	}
	response.RespondOK(c, gin.H{"syncs": rows})
}

func missingMetadata(phase int, metadata map[string]any) []string {
	var missing []string
	for _, field := range workflow.RequiredMetadata[phase] {
		v, ok := metadata[field]
		if !ok || v == nil {
			missing = append(missing, field)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
