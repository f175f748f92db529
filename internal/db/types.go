package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role processing states. Status only moves forward: processing is the only
// non-terminal state, and a terminal row is never reopened.
const (
	RoleStatusProcessing = "processing"
	RoleStatusCompleted  = "completed"
	RoleStatusFailed     = "failed"
)

// User roles within a company.
const (
	UserRoleManager  = "manager"
	UserRoleEmployee = "employee"
)

// Nudge states. Employees file nudges for missing guides; managers resolve
// them.
const (
	NudgeStatusPending   = "pending"
	NudgeStatusFulfilled = "fulfilled"
	NudgeStatusDismissed = "dismissed"
)

// Company represents an organization using the service.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a manager or employee account.
type User struct {
	ID           uuid.UUID `json:"id"`
	CompanyID    uuid.UUID `json:"company_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role represents one uploaded leveling guide and its processing state.
type Role struct {
	ID            uuid.UUID  `json:"id"`
	CompanyID     uuid.UUID  `json:"company_id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	StatusMessage string     `json:"status_message,omitempty"`
	SourceName    string     `json:"source_name,omitempty"`
	SourceType    string     `json:"source_type,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Level is one row of a role's grid, ordered junior to senior.
type Level struct {
	ID       uuid.UUID `json:"id"`
	RoleID   uuid.UUID `json:"role_id"`
	Name     string    `json:"name"`
	OrderIdx int       `json:"order_idx"`
	IsActive bool      `json:"is_active"`
}

// Competency is one column of a role's grid, in source-document order.
type Competency struct {
	ID       uuid.UUID `json:"id"`
	RoleID   uuid.UUID `json:"role_id"`
	Name     string    `json:"name"`
	OrderIdx int       `json:"order_idx"`
	IsActive bool      `json:"is_active"`
}

// Definition is the requirement text at one (level, competency)
// intersection, as written in the source guide.
type Definition struct {
	ID             uuid.UUID       `json:"id"`
	RoleID         uuid.UUID       `json:"role_id"`
	LevelID        uuid.UUID       `json:"level_id"`
	CompetencyID   uuid.UUID       `json:"competency_id"`
	Definition     string          `json:"definition"`
	QualityMetrics json.RawMessage `json:"quality_metrics,omitempty"`
	IsActive       bool            `json:"is_active"`
}

// Example is one generated behavioral example attached to a definition.
type Example struct {
	ID           uuid.UUID `json:"id"`
	DefinitionID uuid.UUID `json:"definition_id"`
	Content      string    `json:"content"`
	OrderIdx     int       `json:"order_idx"`
	IsActive     bool      `json:"is_active"`
}

// Nudge is an employee request for a missing leveling guide.
type Nudge struct {
	ID         uuid.UUID `json:"id"`
	CompanyID  uuid.UUID `json:"company_id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	RoleName   string    `json:"role_name"`
	LevelName  string    `json:"level_name,omitempty"`
	Status     string    `json:"status"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CellSlot identifies one stored definition awaiting example generation.
// The pipeline fans out over these after the grid structure is saved.
type CellSlot struct {
	DefinitionID   uuid.UUID
	LevelName      string
	CompetencyName string
	Definition     string
}

// GridCell is one populated intersection in a completed role's grid.
type GridCell struct {
	LevelID        uuid.UUID       `json:"level_id"`
	CompetencyID   uuid.UUID       `json:"competency_id"`
	Definition     string          `json:"definition"`
	Examples       []string        `json:"examples"`
	QualityMetrics json.RawMessage `json:"quality_metrics,omitempty"`
}

// RoleGrid is the full read model for a role: axes plus populated cells.
type RoleGrid struct {
	Role         *Role        `json:"role"`
	Levels       []Level      `json:"levels"`
	Competencies []Competency `json:"competencies"`
	Cells        []GridCell   `json:"cells"`
}
