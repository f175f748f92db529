package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const nudgeColumns = `id, company_id, employee_id, role_name, COALESCE(level_name, ''),
	status, is_active, created_at, updated_at`

func scanNudge(row pgx.Row) (*Nudge, error) {
	var nudge Nudge
	err := row.Scan(&nudge.ID, &nudge.CompanyID, &nudge.EmployeeID, &nudge.RoleName,
		&nudge.LevelName, &nudge.Status, &nudge.IsActive, &nudge.CreatedAt, &nudge.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &nudge, nil
}

// CreateNudge records an employee's request for a missing leveling guide.
func (db *DB) CreateNudge(ctx context.Context, companyID, employeeID uuid.UUID, roleName, levelName string) (*Nudge, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO nudges (company_id, employee_id, role_name, level_name)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING `+nudgeColumns,
		companyID, employeeID, strings.TrimSpace(roleName), strings.TrimSpace(levelName),
	)
	nudge, err := scanNudge(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create nudge: %w", err)
	}
	return nudge, nil
}

// HasPendingNudge reports whether the employee already has a pending nudge
// for this role name.
func (db *DB) HasPendingNudge(ctx context.Context, employeeID uuid.UUID, roleName string) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM nudges
			WHERE employee_id = $1 AND LOWER(role_name) = LOWER($2)
			  AND status = 'pending' AND is_active
		)`,
		employeeID, strings.TrimSpace(roleName),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending nudge: %w", err)
	}
	return exists, nil
}

// GetNudgeByID retrieves a nudge by ID. Returns nil if not found.
func (db *DB) GetNudgeByID(ctx context.Context, id uuid.UUID) (*Nudge, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+nudgeColumns+` FROM nudges WHERE id = $1`, id)
	nudge, err := scanNudge(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get nudge: %w", err)
	}
	return nudge, nil
}

// ListNudgesByCompany retrieves a company's active nudges, newest first.
func (db *DB) ListNudgesByCompany(ctx context.Context, companyID uuid.UUID) ([]Nudge, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+nudgeColumns+` FROM nudges
		 WHERE company_id = $1 AND is_active
		 ORDER BY created_at DESC`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list nudges: %w", err)
	}
	defer rows.Close()

	var nudges []Nudge
	for rows.Next() {
		nudge, err := scanNudge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nudge: %w", err)
		}
		nudges = append(nudges, *nudge)
	}
	return nudges, nil
}

// UpdateNudgeStatus moves a nudge to fulfilled or dismissed.
func (db *DB) UpdateNudgeStatus(ctx context.Context, id uuid.UUID, status string) (*Nudge, error) {
	if status != NudgeStatusFulfilled && status != NudgeStatusDismissed {
		return nil, fmt.Errorf("invalid nudge status %q", status)
	}
	row := db.pool.QueryRow(ctx,
		`UPDATE nudges SET status = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+nudgeColumns,
		id, status,
	)
	nudge, err := scanNudge(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update nudge: %w", err)
	}
	return nudge, nil
}
