package server

import (
	"github.com/google/uuid"

	"github.com/jonathan/levelguide/internal/db"
)

// RegisterRequest is the payload for user registration. Managers create a
// new company; employees join an existing one by ID.
type RegisterRequest struct {
	Email          string    `json:"email" validate:"required,email"`
	Name           string    `json:"name" validate:"required,min=1,max=200"`
	Password       string    `json:"password" validate:"required,min=8,max=128"`
	Role           string    `json:"role" validate:"required,oneof=manager employee"`
	CompanyName    string    `json:"company_name,omitempty" validate:"max=200"`
	CompanyWebsite string    `json:"company_website,omitempty" validate:"max=500"`
	CompanyID      uuid.UUID `json:"company_id,omitempty"`
}

// LoginRequest is the payload for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the authenticated user and a bearer token.
type AuthResponse struct {
	User  *db.User `json:"user"`
	Token string   `json:"token"`
}

// RoleUploadResponse is returned when a guide upload is accepted. Clients
// poll the status endpoint until the role reaches a terminal state.
type RoleUploadResponse struct {
	RoleID  uuid.UUID `json:"role_id"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
}

// RoleConflictResponse is returned when an upload would replace an existing
// active role and the client has not confirmed the replacement.
type RoleConflictResponse struct {
	Error                string    `json:"error"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	ExistingRoleID       uuid.UUID `json:"existing_role_id"`
}

// RoleStatusResponse reports a role's processing state.
type RoleStatusResponse struct {
	RoleID  uuid.UUID `json:"role_id"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
}

// RoleCheckResponse reports whether a company already has an active role
// with a given name.
type RoleCheckResponse struct {
	Exists bool     `json:"exists"`
	Role   *db.Role `json:"role,omitempty"`
}

// CreateNudgeRequest is the payload for an employee requesting a missing
// guide.
type CreateNudgeRequest struct {
	RoleName  string `json:"role_name" validate:"required,min=1,max=200"`
	LevelName string `json:"level_name,omitempty" validate:"max=200"`
}

// UpdateNudgeRequest moves a nudge to a resolved state.
type UpdateNudgeRequest struct {
	Status string `json:"status" validate:"required,oneof=fulfilled dismissed"`
}
