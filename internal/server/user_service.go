package server

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/levelguide/internal/config"
	"github.com/jonathan/levelguide/internal/db"
)

// AuthStore is the persistence surface the user service needs.
type AuthStore interface {
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	CreateUser(ctx context.Context, companyID uuid.UUID, email, name, role, passwordHash string) (*db.User, error)
	CreateCompany(ctx context.Context, name, domain string) (*db.Company, error)
	GetCompanyByID(ctx context.Context, id uuid.UUID) (*db.Company, error)
}

// UserService handles registration and login.
type UserService struct {
	store          AuthStore
	jwtService     *JWTService
	passwordConfig *config.PasswordConfig
}

// NewUserService creates a new user service.
func NewUserService(store AuthStore, jwtService *JWTService, passwordConfig *config.PasswordConfig) *UserService {
	return &UserService{
		store:          store,
		jwtService:     jwtService,
		passwordConfig: passwordConfig,
	}
}

// Register creates a new user account. A manager registration creates the
// company from company_name and company_website; an employee registration
// joins an existing company by ID.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	email := db.NormalizeEmail(req.Email)

	exists, err := s.store.CheckEmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, &ErrEmailAlreadyExists{Email: email}
	}

	var companyID uuid.UUID
	switch req.Role {
	case db.UserRoleManager:
		if req.CompanyName == "" {
			return nil, &ErrValidation{Field: "company_name", Message: "required for manager registration"}
		}
		company, err := s.store.CreateCompany(ctx, req.CompanyName, req.CompanyWebsite)
		if err != nil {
			return nil, fmt.Errorf("failed to create company: %w", err)
		}
		companyID = company.ID
	case db.UserRoleEmployee:
		if req.CompanyID == uuid.Nil {
			return nil, &ErrValidation{Field: "company_id", Message: "required for employee registration"}
		}
		company, err := s.store.GetCompanyByID(ctx, req.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up company: %w", err)
		}
		if company == nil {
			return nil, &ErrCompanyNotFound{CompanyID: req.CompanyID}
		}
		companyID = company.ID
	default:
		return nil, &ErrValidation{Field: "role", Message: "must be manager or employee"}
	}

	hash, err := s.passwordConfig.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, companyID, email, req.Name, req.Role, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	log.Printf("[auth] registered %s user %s", user.Role, user.ID)
	return &AuthResponse{User: user, Token: token}, nil
}

// Login authenticates a user and returns a fresh token.
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	email := db.NormalizeEmail(req.Email)

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, &ErrInvalidCredentials{}
	}

	if !s.passwordConfig.VerifyPassword(req.Password, user.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResponse{User: user, Token: token}, nil
}
