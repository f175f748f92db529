package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CellInput is one (level, competency, requirement) triple to persist as
// part of a guide's structure.
type CellInput struct {
	LevelName      string
	CompetencyName string
	Definition     string
}

// SaveGuideStructure persists a parsed guide's axes and definitions for a
// role in one transaction. Order indices follow slice order, starting at 0.
// Returns one CellSlot per stored definition for the generation fan-out.
func (db *DB) SaveGuideStructure(ctx context.Context, roleID uuid.UUID, levels, competencies []string, cells []CellInput) ([]CellSlot, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	levelIDs := make(map[string]uuid.UUID, len(levels))
	for idx, name := range levels {
		var id uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO levels (role_id, name, order_idx) VALUES ($1, $2, $3) RETURNING id`,
			roleID, name, idx,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert level %q: %w", name, err)
		}
		levelIDs[name] = id
	}

	competencyIDs := make(map[string]uuid.UUID, len(competencies))
	for idx, name := range competencies {
		var id uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO competencies (role_id, name, order_idx) VALUES ($1, $2, $3) RETURNING id`,
			roleID, name, idx,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to insert competency %q: %w", name, err)
		}
		competencyIDs[name] = id
	}

	slots := make([]CellSlot, 0, len(cells))
	for _, cell := range cells {
		levelID, ok := levelIDs[cell.LevelName]
		if !ok {
			return nil, fmt.Errorf("cell references unknown level %q", cell.LevelName)
		}
		competencyID, ok := competencyIDs[cell.CompetencyName]
		if !ok {
			return nil, fmt.Errorf("cell references unknown competency %q", cell.CompetencyName)
		}

		var definitionID uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO definitions (role_id, level_id, competency_id, definition)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			roleID, levelID, competencyID, cell.Definition,
		).Scan(&definitionID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert definition for %s/%s: %w", cell.LevelName, cell.CompetencyName, err)
		}

		slots = append(slots, CellSlot{
			DefinitionID:   definitionID,
			LevelName:      cell.LevelName,
			CompetencyName: cell.CompetencyName,
			Definition:     cell.Definition,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit guide structure: %w", err)
	}
	return slots, nil
}

// SaveCellExamples stores generated examples and quality metrics for one
// definition. Examples keep their generation order.
func (db *DB) SaveCellExamples(ctx context.Context, definitionID uuid.UUID, examples []string, metrics any) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for idx, content := range examples {
		_, err := tx.Exec(ctx,
			`INSERT INTO examples (definition_id, content, order_idx) VALUES ($1, $2, $3)`,
			definitionID, content, idx,
		)
		if err != nil {
			return fmt.Errorf("failed to insert example: %w", err)
		}
	}

	if metrics != nil {
		metricsJSON, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal quality metrics: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE definitions SET quality_metrics = $2 WHERE id = $1`,
			definitionID, metricsJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to store quality metrics: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit examples: %w", err)
	}
	return nil
}

// GetRoleGrid assembles the full read model for a role: ordered axes plus
// every active cell with its examples. Returns nil if the role is missing.
func (db *DB) GetRoleGrid(ctx context.Context, roleID uuid.UUID) (*RoleGrid, error) {
	role, err := db.GetRoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, nil
	}

	grid := &RoleGrid{Role: role}

	levelRows, err := db.pool.Query(ctx,
		`SELECT id, role_id, name, order_idx, is_active FROM levels
		 WHERE role_id = $1 AND is_active ORDER BY order_idx`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query levels: %w", err)
	}
	defer levelRows.Close()
	for levelRows.Next() {
		var level Level
		if err := levelRows.Scan(&level.ID, &level.RoleID, &level.Name, &level.OrderIdx, &level.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		grid.Levels = append(grid.Levels, level)
	}

	compRows, err := db.pool.Query(ctx,
		`SELECT id, role_id, name, order_idx, is_active FROM competencies
		 WHERE role_id = $1 AND is_active ORDER BY order_idx`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query competencies: %w", err)
	}
	defer compRows.Close()
	for compRows.Next() {
		var comp Competency
		if err := compRows.Scan(&comp.ID, &comp.RoleID, &comp.Name, &comp.OrderIdx, &comp.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan competency: %w", err)
		}
		grid.Competencies = append(grid.Competencies, comp)
	}

	cellRows, err := db.pool.Query(ctx,
		`SELECT d.id, d.level_id, d.competency_id, d.definition, d.quality_metrics
		 FROM definitions d
		 JOIN levels l ON l.id = d.level_id
		 JOIN competencies c ON c.id = d.competency_id
		 WHERE d.role_id = $1 AND d.is_active
		 ORDER BY l.order_idx, c.order_idx`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query definitions: %w", err)
	}
	defer cellRows.Close()

	definitionIDs := []uuid.UUID{}
	cellByDefinition := map[uuid.UUID]int{}
	for cellRows.Next() {
		var definitionID uuid.UUID
		var cell GridCell
		if err := cellRows.Scan(&definitionID, &cell.LevelID, &cell.CompetencyID, &cell.Definition, &cell.QualityMetrics); err != nil {
			return nil, fmt.Errorf("failed to scan definition: %w", err)
		}
		cell.Examples = []string{}
		cellByDefinition[definitionID] = len(grid.Cells)
		definitionIDs = append(definitionIDs, definitionID)
		grid.Cells = append(grid.Cells, cell)
	}

	if len(definitionIDs) == 0 {
		return grid, nil
	}

	exampleRows, err := db.pool.Query(ctx,
		`SELECT definition_id, content FROM examples
		 WHERE definition_id = ANY($1) AND is_active
		 ORDER BY definition_id, order_idx`,
		definitionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query examples: %w", err)
	}
	defer exampleRows.Close()
	for exampleRows.Next() {
		var definitionID uuid.UUID
		var content string
		if err := exampleRows.Scan(&definitionID, &content); err != nil {
			return nil, fmt.Errorf("failed to scan example: %w", err)
		}
		if idx, ok := cellByDefinition[definitionID]; ok {
			grid.Cells[idx].Examples = append(grid.Cells[idx].Examples, content)
		}
	}

	return grid, nil
}
