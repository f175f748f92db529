package server

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jonathan/levelguide/internal/config"
	"github.com/jonathan/levelguide/internal/db"
)

func newTestUserService(store AuthStore) *UserService {
	return NewUserService(store,
		newTestJWTService("test-secret"),
		&config.PasswordConfig{BcryptCost: bcrypt.MinCost})
}

func TestRegisterManagerCreatesCompany(t *testing.T) {
	store := newFakeStore()
	svc := newTestUserService(store)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:          "Manager@Example.com",
		Name:           "Pat Manager",
		Password:       "correct-horse",
		Role:           db.UserRoleManager,
		CompanyName:    "Example Co",
		CompanyWebsite: "example.com",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User.Email != "manager@example.com" {
		t.Errorf("email = %q, expected normalized lowercase", resp.User.Email)
	}

	company, _ := store.GetCompanyByID(context.Background(), resp.User.CompanyID)
	if company == nil || company.Name != "Example Co" {
		t.Errorf("company not created: %+v", company)
	}
}

func TestRegisterManagerRequiresCompanyName(t *testing.T) {
	svc := newTestUserService(newFakeStore())

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "m@example.com",
		Name:     "Pat",
		Password: "correct-horse",
		Role:     db.UserRoleManager,
	})
	var verr *ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRegisterEmployeeJoinsCompany(t *testing.T) {
	store := newFakeStore()
	company, _ := store.CreateCompany(context.Background(), "Example Co", "")
	svc := newTestUserService(store)

	resp, err := svc.Register(context.Background(), &RegisterRequest{
		Email:     "e@example.com",
		Name:      "Sam Employee",
		Password:  "correct-horse",
		Role:      db.UserRoleEmployee,
		CompanyID: company.ID,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.CompanyID != company.ID {
		t.Errorf("company = %s, expected %s", resp.User.CompanyID, company.ID)
	}
}

func TestRegisterEmployeeUnknownCompany(t *testing.T) {
	svc := newTestUserService(newFakeStore())

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:     "e@example.com",
		Name:      "Sam",
		Password:  "correct-horse",
		Role:      db.UserRoleEmployee,
		CompanyID: uuid.New(),
	})
	var nferr *ErrCompanyNotFound
	if !errors.As(err, &nferr) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc := newTestUserService(store)

	req := &RegisterRequest{
		Email:       "m@example.com",
		Name:        "Pat",
		Password:    "correct-horse",
		Role:        db.UserRoleManager,
		CompanyName: "Example Co",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), req)
	var dupErr *ErrEmailAlreadyExists
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	store := newFakeStore()
	svc := newTestUserService(store)

	if _, err := svc.Register(context.Background(), &RegisterRequest{
		Email:       "m@example.com",
		Name:        "Pat",
		Password:    "correct-horse",
		Role:        db.UserRoleManager,
		CompanyName: "Example Co",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "M@Example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}

	_, err = svc.Login(context.Background(), &LoginRequest{
		Email:    "m@example.com",
		Password: "wrong",
	})
	var credErr *ErrInvalidCredentials
	if !errors.As(err, &credErr) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, err = svc.Login(context.Background(), &LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-horse",
	})
	if !errors.As(err, &credErr) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
