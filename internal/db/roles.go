package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const roleColumns = `id, company_id, name, status, COALESCE(status_message, ''),
	COALESCE(source_name, ''), COALESCE(source_type, ''), is_active,
	created_at, updated_at, completed_at`

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.CompanyID, &role.Name, &role.Status, &role.StatusMessage,
		&role.SourceName, &role.SourceType, &role.IsActive,
		&role.CreatedAt, &role.UpdatedAt, &role.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateRole inserts a new role in the processing state.
func (db *DB) CreateRole(ctx context.Context, companyID uuid.UUID, name, sourceName, sourceType string) (*Role, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO roles (company_id, name, status, status_message, source_name, source_type)
		 VALUES ($1, $2, 'processing', 'Parsing leveling guide...', $3, $4)
		 RETURNING `+roleColumns,
		companyID, strings.TrimSpace(name), sourceName, sourceType,
	)
	role, err := scanRole(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// GetRoleByID retrieves a role by ID. Returns nil if not found.
func (db *DB) GetRoleByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	role, err := scanRole(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// GetActiveRoleByName finds a company's active role by case-insensitive name.
// Returns nil if not found. Used to detect re-uploads of an existing role.
func (db *DB) GetActiveRoleByName(ctx context.Context, companyID uuid.UUID, name string) (*Role, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE company_id = $1 AND LOWER(name) = LOWER($2) AND is_active
		 ORDER BY created_at DESC LIMIT 1`,
		companyID, strings.TrimSpace(name),
	)
	role, err := scanRole(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return role, nil
}

// ListActiveRoles retrieves a company's active roles, newest first.
func (db *DB) ListActiveRoles(ctx context.Context, companyID uuid.UUID) ([]Role, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE company_id = $1 AND is_active
		 ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

// MarkRoleCompleted transitions a role to completed. The status guard makes
// the update monotonic: a role that already reached a terminal state is
// never reopened or rewritten.
func (db *DB) MarkRoleCompleted(ctx context.Context, roleID uuid.UUID, message string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE roles
		 SET status = 'completed', status_message = $2, completed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`,
		roleID, message,
	)
	if err != nil {
		return fmt.Errorf("failed to complete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("role %s is not in processing state", roleID)
	}
	return nil
}

// MarkRoleFailed transitions a role to failed with a diagnostic message.
// Same monotonic guard as MarkRoleCompleted.
func (db *DB) MarkRoleFailed(ctx context.Context, roleID uuid.UUID, message string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE roles
		 SET status = 'failed', status_message = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`,
		roleID, message,
	)
	if err != nil {
		return fmt.Errorf("failed to mark role failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("role %s is not in processing state", roleID)
	}
	return nil
}

// UpdateRoleProgress updates the human-readable progress message on a role
// still in the processing state. No-op for terminal roles.
func (db *DB) UpdateRoleProgress(ctx context.Context, roleID uuid.UUID, message string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE roles SET status_message = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'processing'`,
		roleID, message,
	)
	if err != nil {
		return fmt.Errorf("failed to update role progress: %w", err)
	}
	return nil
}

// DeactivateRoleSubtree soft-deletes a role and everything beneath it:
// levels, competencies, definitions, and examples. Runs in one transaction
// so a re-upload never observes a half-deactivated grid.
func (db *DB) DeactivateRoleSubtree(ctx context.Context, roleID uuid.UUID) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	statements := []string{
		`UPDATE examples SET is_active = FALSE
		 WHERE definition_id IN (SELECT id FROM definitions WHERE role_id = $1)`,
		`UPDATE definitions SET is_active = FALSE WHERE role_id = $1`,
		`UPDATE competencies SET is_active = FALSE WHERE role_id = $1`,
		`UPDATE levels SET is_active = FALSE WHERE role_id = $1`,
		`UPDATE roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, roleID); err != nil {
			return fmt.Errorf("failed to deactivate role subtree: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit deactivation: %w", err)
	}
	return nil
}
