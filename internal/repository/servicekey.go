package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/LakeAndrew/MerakiScripts/internal/model"
)

// Common errors for service key repository operations.
var (
	ErrServiceKeyNotFound = errors.New("service key not found")
)

// CreateServiceKey inserts a new service key into the database.
func (r *Repository) CreateServiceKey(ctx context.Context, key *model.ServiceKey) error {
	query := `
		INSERT INTO service_keys (id, key_hash, key_prefix, scopes, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		key.ID,
		key.KeyHash,
		key.KeyPrefix,
		pq.Array(key.Scopes),
		key.Name,
		key.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create service key: %w", err)
	}

	return nil
}

// GetServiceKeyByID retrieves a service key by its ID.
func (r *Repository) GetServiceKeyByID(ctx context.Context, id string) (*model.ServiceKey, error) {
	query := `
		SELECT id, key_hash, key_prefix, scopes, name, revoked_at, last_used_at, created_at
		FROM service_keys
		WHERE id = $1
	`

	return r.scanServiceKey(r.pool.QueryRow(ctx, query, id))
}

// GetServiceKeysByPrefix retrieves all active service keys matching a prefix.
// Used during authentication to find candidate keys for verification.
func (r *Repository) GetServiceKeysByPrefix(ctx context.Context, prefix string) ([]*model.ServiceKey, error) {
	query := `
		SELECT id, key_hash, key_prefix, scopes, name, revoked_at, last_used_at, created_at
		FROM service_keys
		WHERE key_prefix = $1 AND revoked_at IS NULL
	`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to get service keys by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*model.ServiceKey
	for rows.Next() {
		key, err := r.scanServiceKeyFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service keys: %w", err)
	}

	return keys, nil
}

// ListServiceKeys retrieves all service keys, newest first.
func (r *Repository) ListServiceKeys(ctx context.Context) ([]*model.ServiceKey, error) {
	query := `
		SELECT id, key_hash, key_prefix, scopes, name, revoked_at, last_used_at, created_at
		FROM service_keys
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list service keys: %w", err)
	}
	defer rows.Close()

	var keys []*model.ServiceKey
	for rows.Next() {
		key, err := r.scanServiceKeyFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan service key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service keys: %w", err)
	}

	return keys, nil
}

// RevokeServiceKey revokes a service key by setting revoked_at.
func (r *Repository) RevokeServiceKey(ctx context.Context, id string) error {
	query := `
		UPDATE service_keys
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke service key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrServiceKeyNotFound
	}

	return nil
}

// UpdateServiceKeyLastUsed updates the last_used_at timestamp.
// Should be called asynchronously after successful authentication.
func (r *Repository) UpdateServiceKeyLastUsed(ctx context.Context, id string) error {
	query := `
		UPDATE service_keys
		SET last_used_at = $2
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update service key last used: %w", err)
	}

	return nil
}

// scanServiceKey scans a single row into a ServiceKey model.
func (r *Repository) scanServiceKey(row pgx.Row) (*model.ServiceKey, error) {
	var key model.ServiceKey
	var scopes []string

	err := row.Scan(
		&key.ID,
		&key.KeyHash,
		&key.KeyPrefix,
		pq.Array(&scopes),
		&key.Name,
		&key.RevokedAt,
		&key.LastUsedAt,
		&key.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceKeyNotFound
		}
		return nil, fmt.Errorf("failed to scan service key: %w", err)
	}

	key.Scopes = scopes
	return &key, nil
}

// scanServiceKeyFromRows scans a row from pgx.Rows into a ServiceKey model.
func (r *Repository) scanServiceKeyFromRows(rows pgx.Rows) (*model.ServiceKey, error) {
	var key model.ServiceKey
	var scopes []string

	err := rows.Scan(
		&key.ID,
		&key.KeyHash,
		&key.KeyPrefix,
		pq.Array(&scopes),
		&key.Name,
		&key.RevokedAt,
		&key.LastUsedAt,
		&key.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	key.Scopes = scopes
	return &key, nil
}
