package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateCompany inserts a new company record.
func (db *DB) CreateCompany(ctx context.Context, name, domain string) (*Company, error) {
	var company Company
	err := db.pool.QueryRow(ctx,
		`INSERT INTO companies (name, domain)
		 VALUES ($1, $2)
		 RETURNING id, name, COALESCE(domain, ''), is_active, created_at, updated_at`,
		strings.TrimSpace(name), strings.TrimSpace(domain),
	).Scan(&company.ID, &company.Name, &company.Domain, &company.IsActive, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	return &company, nil
}

// GetCompanyByID retrieves a company by ID. Returns nil if not found.
func (db *DB) GetCompanyByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	var company Company
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(domain, ''), is_active, created_at, updated_at
		 FROM companies WHERE id = $1`,
		id,
	).Scan(&company.ID, &company.Name, &company.Domain, &company.IsActive, &company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

// UpdateCompanyDomain sets the company website used for grounding.
func (db *DB) UpdateCompanyDomain(ctx context.Context, companyID uuid.UUID, domain string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE companies SET domain = $1, updated_at = NOW() WHERE id = $2`,
		strings.TrimSpace(domain), companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update company domain: %w", err)
	}
	return nil
}
