package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/LakeAndrew/MerakiScripts/internal/auth"
	"github.com/LakeAndrew/MerakiScripts/internal/export"
	"github.com/LakeAndrew/MerakiScripts/internal/handler/dto"
	"github.com/LakeAndrew/MerakiScripts/internal/model"
	"github.com/LakeAndrew/MerakiScripts/internal/repository"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// AuditHandler handles audit run endpoints.
type AuditHandler struct {
	logger       *slog.Logger
	repository   *repository.Repository
	defaultOrgID string
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(logger *slog.Logger, repo *repository.Repository, defaultOrgID string) *AuditHandler {
	return &AuditHandler{
		logger:       logger,
		repository:   repo,
		defaultOrgID: defaultOrgID,
	}
}

// Create handles POST /api/v1/audits.
// It queues a run for the background worker and returns 202 immediately.
func (h *AuditHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dto.CreateAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	orgID := req.OrgID
	if orgID == "" {
		orgID = h.defaultOrgID
	}

	requestedBy := ""
	if authCtx := auth.AuthFromContext(ctx); authCtx != nil {
		requestedBy = authCtx.KeyID
	}

	now := time.Now()
	run := &model.AuditRun{
		ID:          ulid.Make().String(),
		OrgID:       orgID,
		Status:      model.RunStatusPending,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repository.CreateRun(ctx, run); err != nil {
		h.logger.Error("failed to create audit run", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to queue audit run")
		return
	}

	h.logger.Info("audit run queued",
		slog.String("run_id", run.ID),
		slog.String("org_id", run.OrgID),
		slog.String("requested_by", requestedBy),
	)

	writeJSON(w, http.StatusAccepted, run)
}

// List handles GET /api/v1/audits.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	runs, err := h.repository.ListRuns(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list audit runs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list audit runs")
		return
	}

	if runs == nil {
		runs = []*model.AuditRun{}
	}

	writeJSON(w, http.StatusOK, dto.AuditRunListResponse{
		Data:   runs,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /api/v1/audits/{run_id}.
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Run ID is required")
		return
	}

	run, err := h.repository.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "RUN_NOT_FOUND", "Audit run not found")
			return
		}
		h.logger.Error("failed to get audit run", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get audit run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// GetResults handles GET /api/v1/audits/{run_id}/results.
func (h *AuditHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	result, ok := h.loadResult(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ExportXLSX handles GET /api/v1/audits/{run_id}/export.xlsx.
// Streams the three-sheet workbook for the run's result.
func (h *AuditHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	result, ok := h.loadResult(w, r)
	if !ok {
		return
	}

	runID := chi.URLParam(r, "run_id")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-`+runID+`.xlsx"`)

	if err := export.WriteWorkbook(w, result); err != nil {
		// Headers are already sent, so all we can do is log
		h.logger.Error("failed to stream workbook",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
	}
}

// loadResult fetches the run and its result, writing the error response on
// failure. The run must have completed for a result to exist.
func (h *AuditHandler) loadResult(w http.ResponseWriter, r *http.Request) (*model.AuditResult, bool) {
	runID := chi.URLParam(r, "run_id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Run ID is required")
		return nil, false
	}

	run, err := h.repository.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "RUN_NOT_FOUND", "Audit run not found")
			return nil, false
		}
		h.logger.Error("failed to get audit run", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get audit run")
		return nil, false
	}

	if run.Status != model.RunStatusCompleted {
		writeError(w, http.StatusConflict, "RUN_NOT_COMPLETED",
			"Audit run has not completed (status: "+string(run.Status)+")")
		return nil, false
	}

	result, err := h.repository.GetResult(r.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrResultNotFound) {
			writeError(w, http.StatusNotFound, "RESULT_NOT_FOUND", "Audit result not found")
			return nil, false
		}
		h.logger.Error("failed to get audit result", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get audit result")
		return nil, false
	}

	return result, true
}

// parseIntQuery reads an integer query parameter with a fallback.
func parseIntQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
