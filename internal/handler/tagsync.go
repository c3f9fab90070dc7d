package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/LakeAndrew/MerakiScripts/internal/handler/dto"
	"github.com/LakeAndrew/MerakiScripts/internal/meraki"
	"github.com/LakeAndrew/MerakiScripts/internal/tagsync"
)

// TagSyncHandler handles tag sync endpoints.
type TagSyncHandler struct {
	logger       *slog.Logger
	syncer       *tagsync.Syncer
	defaultOrgID string
}

// NewTagSyncHandler creates a new TagSyncHandler.
func NewTagSyncHandler(logger *slog.Logger, syncer *tagsync.Syncer, defaultOrgID string) *TagSyncHandler {
	return &TagSyncHandler{
		logger:       logger,
		syncer:       syncer,
		defaultOrgID: defaultOrgID,
	}
}

// Plan handles POST /api/v1/tagsync/plan.
// Computes the changes a sync would make without applying any of them.
func (h *TagSyncHandler) Plan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.resolveOrg(w, r)
	if !ok {
		return
	}

	plan, err := h.syncer.BuildPlan(r.Context(), orgID)
	if err != nil {
		h.writePlanError(w, orgID, err)
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

// Apply handles POST /api/v1/tagsync/apply.
// Builds a fresh plan and pushes every change in it.
func (h *TagSyncHandler) Apply(w http.ResponseWriter, r *http.Request) {
	orgID, ok := h.resolveOrg(w, r)
	if !ok {
		return
	}

	plan, err := h.syncer.BuildPlan(r.Context(), orgID)
	if err != nil {
		h.writePlanError(w, orgID, err)
		return
	}

	result, err := h.syncer.Apply(r.Context(), plan)
	if err != nil {
		h.logger.Error("tag sync apply aborted",
			slog.String("org_id", orgID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Tag sync was interrupted")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"plan":   plan,
		"result": result,
	})
}

// resolveOrg reads the request body and falls back to the configured org.
func (h *TagSyncHandler) resolveOrg(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req dto.TagSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return "", false
	}

	orgID := req.OrgID
	if orgID == "" {
		orgID = h.defaultOrgID
	}
	if orgID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Organization ID is required")
		return "", false
	}

	return orgID, true
}

// writePlanError maps plan failures onto API error responses.
func (h *TagSyncHandler) writePlanError(w http.ResponseWriter, orgID string, err error) {
	if errors.Is(err, meraki.ErrNotFound) || errors.Is(err, meraki.ErrForbidden) {
		writeError(w, http.StatusNotFound, "ORG_NOT_FOUND", "Organization not found or not accessible")
		return
	}

	h.logger.Error("tag sync plan failed",
		slog.String("org_id", orgID),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusBadGateway, "DASHBOARD_ERROR", "Failed to read from the Meraki Dashboard")
}
