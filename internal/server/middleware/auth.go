// Package middleware provides HTTP middleware for authentication and
// authorization.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	userIDKey    ContextKey = "userID"
	companyIDKey ContextKey = "companyID"
	userRoleKey  ContextKey = "userRole"
)

// TokenValidator is an interface for validating JWT tokens. This allows the
// middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (ClaimsGetter, error)
}

// ClaimsGetter exposes the identity carried by validated token claims.
type ClaimsGetter interface {
	GetUserID() uuid.UUID
	GetCompanyID() uuid.UUID
	GetRole() string
}

// AuthMiddleware creates middleware that validates JWT tokens and adds the
// caller's identity to the request context.
func AuthMiddleware(jwtService TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Handle case-insensitive "Bearer" prefix
			parts := strings.Fields(authHeader)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.GetUserID())
			ctx = context.WithValue(ctx, companyIDKey, claims.GetCompanyID())
			ctx = context.WithValue(ctx, userRoleKey, claims.GetRole())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(r *http.Request) (uuid.UUID, error) {
	userID, ok := r.Context().Value(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("user ID not found in request context")
	}
	return userID, nil
}

// GetCompanyID extracts the authenticated company ID from the request
// context.
func GetCompanyID(r *http.Request) (uuid.UUID, error) {
	companyID, ok := r.Context().Value(companyIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("company ID not found in request context")
	}
	return companyID, nil
}

// GetUserRole extracts the authenticated user's role from the request
// context.
func GetUserRole(r *http.Request) (string, error) {
	role, ok := r.Context().Value(userRoleKey).(string)
	if !ok {
		return "", fmt.Errorf("user role not found in request context")
	}
	return role, nil
}

// WithIdentity returns a context carrying the given identity. Intended for
// handler tests that bypass the middleware.
func WithIdentity(ctx context.Context, userID, companyID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, companyIDKey, companyID)
	return context.WithValue(ctx, userRoleKey, role)
}
