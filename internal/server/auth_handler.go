package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	userService *UserService
	validate    *validator.Validate
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(userService *UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		validate:    validator.New(),
	}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		status := HTTPStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("[auth] register failed: %v", err)
			errorResponse(w, status, "registration failed")
			return
		}
		errorResponse(w, status, err.Error())
		return
	}

	jsonResponse(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	resp, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		status := HTTPStatus(err)
		if status == http.StatusInternalServerError {
			log.Printf("[auth] login failed: %v", err)
			errorResponse(w, status, "login failed")
			return
		}
		errorResponse(w, status, err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, resp)
}

// validationMessage flattens the first validator error into a readable
// message.
func validationMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		return "invalid field " + fe.Field() + ": failed " + fe.Tag() + " validation"
	}
	return "invalid request"
}
