package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

// Common errors for audit repository operations.
var (
	ErrRunNotFound    = errors.New("audit run not found")
	ErrResultNotFound = errors.New("audit result not found")
)

// CreateRun inserts a new audit run in pending state.
func (r *Repository) CreateRun(ctx context.Context, run *model.AuditRun) error {
	query := `
		INSERT INTO audit_runs (id, org_id, status, requested_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.OrgID,
		run.Status,
		run.RequestedBy,
		run.CreatedAt,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit run: %w", err)
	}

	return nil
}

// GetRun retrieves an audit run by its ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.AuditRun, error) {
	query := `
		SELECT id, org_id, status, requested_by, error, summary, started_at, finished_at, created_at, updated_at
		FROM audit_runs
		WHERE id = $1
	`

	return r.scanRun(r.pool.QueryRow(ctx, query, id))
}

// ListRuns retrieves audit runs ordered newest first.
func (r *Repository) ListRuns(ctx context.Context, limit, offset int) ([]*model.AuditRun, error) {
	query := `
		SELECT id, org_id, status, requested_by, error, summary, started_at, finished_at, created_at, updated_at
		FROM audit_runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit runs: %w", err)
	}
	defer rows.Close()

	return r.collectRuns(rows)
}

// GetPendingRuns retrieves runs awaiting execution, oldest first.
// Used by the worker to claim work.
func (r *Repository) GetPendingRuns(ctx context.Context, limit int) ([]*model.AuditRun, error) {
	query := `
		SELECT id, org_id, status, requested_by, error, summary, started_at, finished_at, created_at, updated_at
		FROM audit_runs
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, model.RunStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending runs: %w", err)
	}
	defer rows.Close()

	return r.collectRuns(rows)
}

// MarkRunRunning transitions a pending run to running.
// Returns ErrRunNotFound when the run is missing or already claimed, so two
// workers cannot execute the same run.
func (r *Repository) MarkRunRunning(ctx context.Context, id string) error {
	query := `
		UPDATE audit_runs
		SET status = $2, started_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4
	`

	now := time.Now()
	result, err := r.pool.Exec(ctx, query, id, model.RunStatusRunning, now, model.RunStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

// CompleteRun transitions a run to completed and records its summary.
func (r *Repository) CompleteRun(ctx context.Context, id string, summary model.RunSummary) error {
	query := `
		UPDATE audit_runs
		SET status = $2, summary = $3, finished_at = $4, updated_at = $4
		WHERE id = $1
	`

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	now := time.Now()
	result, err := r.pool.Exec(ctx, query, id, model.RunStatusCompleted, data, now)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

// FailRun transitions a run to failed and records the error message.
func (r *Repository) FailRun(ctx context.Context, id, message string) error {
	query := `
		UPDATE audit_runs
		SET status = $2, error = $3, finished_at = $4, updated_at = $4
		WHERE id = $1
	`

	now := time.Now()
	result, err := r.pool.Exec(ctx, query, id, model.RunStatusFailed, message, now)
	if err != nil {
		return fmt.Errorf("failed to fail run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRunNotFound
	}

	return nil
}

// CountPendingRuns returns the number of runs awaiting execution.
func (r *Repository) CountPendingRuns(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM audit_runs WHERE status = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, model.RunStatusPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending runs: %w", err)
	}

	return count, nil
}

// SaveResult stores the full result document for a run.
// The record sections are stored as separate jsonb columns so individual
// sections can be queried without unpacking the whole document.
func (r *Repository) SaveResult(ctx context.Context, runID string, result *model.AuditResult) error {
	query := `
		INSERT INTO audit_results (run_id, org_id, collected_at, filtered_clients, access_ports, device_inventory, warnings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id) DO UPDATE
		SET org_id = EXCLUDED.org_id,
		    collected_at = EXCLUDED.collected_at,
		    filtered_clients = EXCLUDED.filtered_clients,
		    access_ports = EXCLUDED.access_ports,
		    device_inventory = EXCLUDED.device_inventory,
		    warnings = EXCLUDED.warnings
	`

	clients, err := json.Marshal(result.FilteredClients)
	if err != nil {
		return fmt.Errorf("marshal filtered clients: %w", err)
	}
	ports, err := json.Marshal(result.AccessPorts)
	if err != nil {
		return fmt.Errorf("marshal access ports: %w", err)
	}
	devices, err := json.Marshal(result.DeviceInventory)
	if err != nil {
		return fmt.Errorf("marshal device inventory: %w", err)
	}
	warnings, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		runID,
		result.OrgID,
		result.Timestamp,
		clients,
		ports,
		devices,
		warnings,
	)

	if err != nil {
		return fmt.Errorf("failed to save audit result: %w", err)
	}

	return nil
}

// GetResult retrieves the full result document for a run.
func (r *Repository) GetResult(ctx context.Context, runID string) (*model.AuditResult, error) {
	query := `
		SELECT org_id, collected_at, filtered_clients, access_ports, device_inventory, warnings
		FROM audit_results
		WHERE run_id = $1
	`

	var result model.AuditResult
	var clients, ports, devices, warnings []byte

	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&result.OrgID,
		&result.Timestamp,
		&clients,
		&ports,
		&devices,
		&warnings,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get audit result: %w", err)
	}

	if err := json.Unmarshal(clients, &result.FilteredClients); err != nil {
		return nil, fmt.Errorf("unmarshal filtered clients: %w", err)
	}
	if err := json.Unmarshal(ports, &result.AccessPorts); err != nil {
		return nil, fmt.Errorf("unmarshal access ports: %w", err)
	}
	if err := json.Unmarshal(devices, &result.DeviceInventory); err != nil {
		return nil, fmt.Errorf("unmarshal device inventory: %w", err)
	}
	if err := json.Unmarshal(warnings, &result.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}

	return &result, nil
}

// scanRun scans a single row into an AuditRun model.
func (r *Repository) scanRun(row pgx.Row) (*model.AuditRun, error) {
	var run model.AuditRun
	var errMsg *string
	var summary []byte

	err := row.Scan(
		&run.ID,
		&run.OrgID,
		&run.Status,
		&run.RequestedBy,
		&errMsg,
		&summary,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to scan audit run: %w", err)
	}

	if errMsg != nil {
		run.Error = *errMsg
	}
	if len(summary) > 0 {
		var s model.RunSummary
		if err := json.Unmarshal(summary, &s); err != nil {
			return nil, fmt.Errorf("unmarshal run summary: %w", err)
		}
		run.Summary = &s
	}

	return &run, nil
}

// collectRuns drains rows into AuditRun models.
func (r *Repository) collectRuns(rows pgx.Rows) ([]*model.AuditRun, error) {
	var runs []*model.AuditRun
	for rows.Next() {
		var run model.AuditRun
		var errMsg *string
		var summary []byte

		err := rows.Scan(
			&run.ID,
			&run.OrgID,
			&run.Status,
			&run.RequestedBy,
			&errMsg,
			&summary,
			&run.StartedAt,
			&run.FinishedAt,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit run: %w", err)
		}

		if errMsg != nil {
			run.Error = *errMsg
		}
		if len(summary) > 0 {
			var s model.RunSummary
			if err := json.Unmarshal(summary, &s); err != nil {
				return nil, fmt.Errorf("unmarshal run summary: %w", err)
			}
			run.Summary = &s
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit runs: %w", err)
	}

	return runs, nil
}
