package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	"github.com/LakeAndrew/MerakiScripts/internal/auth"
	"github.com/LakeAndrew/MerakiScripts/internal/handler/dto"
	"github.com/LakeAndrew/MerakiScripts/internal/model"
	"github.com/LakeAndrew/MerakiScripts/internal/repository"
)

// ServiceKeyHandler handles service key management endpoints.
type ServiceKeyHandler struct {
	logger     *slog.Logger
	repository *repository.Repository
}

// NewServiceKeyHandler creates a new ServiceKeyHandler.
func NewServiceKeyHandler(logger *slog.Logger, repo *repository.Repository) *ServiceKeyHandler {
	return &ServiceKeyHandler{
		logger:     logger,
		repository: repo,
	}
}

// Create handles POST /api/v1/service-keys.
func (h *ServiceKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ServiceKeyCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	// Default to read scope if none provided
	if len(req.Scopes) == 0 {
		req.Scopes = []string{model.ScopeRead}
	}

	if !model.ValidateScopes(req.Scopes) {
		writeError(w, http.StatusBadRequest, "INVALID_SCOPE",
			"Invalid scopes. Valid scopes: read, write, admin")
		return
	}

	generated, err := auth.GenerateServiceKey(auth.EnvLive)
	if err != nil {
		h.logger.Error("failed to generate service key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate service key")
		return
	}

	key := &model.ServiceKey{
		ID:        ulid.Make().String(),
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    req.Scopes,
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	if err := h.repository.CreateServiceKey(ctx, key); err != nil {
		h.logger.Error("failed to create service key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create service key")
		return
	}

	h.logger.Info("service key created",
		slog.String("key_id", key.ID),
		slog.String("key_prefix", key.KeyPrefix),
	)

	// Return response with plaintext key (shown once only!)
	response := dto.ServiceKeyCreateResponse{
		ID:        key.ID,
		Key:       generated.Plaintext,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
		CreatedAt: key.CreatedAt,
	}

	writeJSON(w, http.StatusCreated, response)
}

// List handles GET /api/v1/service-keys.
func (h *ServiceKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.repository.ListServiceKeys(r.Context())
	if err != nil {
		h.logger.Error("failed to list service keys", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list service keys")
		return
	}

	if keys == nil {
		keys = []*model.ServiceKey{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// Revoke handles DELETE /api/v1/service-keys/{key_id}.
func (h *ServiceKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	keyID := chi.URLParam(r, "key_id")
	if keyID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Key ID is required")
		return
	}

	key, err := h.repository.GetServiceKeyByID(ctx, keyID)
	if err != nil {
		// Return 404 for both not found and already revoked (security)
		writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "Service key not found or already revoked")
		return
	}

	if key.IsRevoked() {
		writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "Service key not found or already revoked")
		return
	}

	if err := h.repository.RevokeServiceKey(ctx, keyID); err != nil {
		if errors.Is(err, repository.ErrServiceKeyNotFound) {
			writeError(w, http.StatusNotFound, "KEY_NOT_FOUND", "Service key not found or already revoked")
			return
		}
		h.logger.Error("failed to revoke service key", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to revoke service key")
		return
	}

	h.logger.Info("service key revoked", slog.String("key_id", keyID))

	w.WriteHeader(http.StatusNoContent)
}
