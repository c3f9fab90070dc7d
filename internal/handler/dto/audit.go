// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

// CreateAuditRequest represents the request body for queueing an audit run.
// OrgID is optional; the server falls back to its configured organization.
type CreateAuditRequest struct {
	OrgID string `json:"org_id,omitempty"`
}

// AuditRunListResponse represents a page of audit runs.
type AuditRunListResponse struct {
	Data   []*model.AuditRun `json:"data"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// TagSyncRequest represents the request body for tag sync operations.
// OrgID is optional; the server falls back to its configured organization.
type TagSyncRequest struct {
	OrgID string `json:"org_id,omitempty"`
}

// ServiceKeyCreateResponse carries a freshly created service key.
// The plaintext key is shown once and never stored.
type ServiceKeyCreateResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name,omitempty"`
	KeyPrefix string    `json:"key_prefix"`
	Scopes    []string  `json:"scopes"`
	CreatedAt time.Time `json:"created_at"`
}
