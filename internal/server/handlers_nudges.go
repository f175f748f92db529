package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/levelguide/internal/db"
	"github.com/jonathan/levelguide/internal/server/middleware"
)

// handleCreateNudge handles POST /api/nudges. Employees ask for a guide
// that does not exist yet; duplicate pending requests for the same role
// are rejected.
func (s *Server) handleCreateNudge(w http.ResponseWriter, r *http.Request) {
	companyID, role, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if role != db.UserRoleEmployee {
		errorResponse(w, http.StatusForbidden, "only employees can request guides")
		return
	}
	userID, err := middleware.GetUserID(r)
	if err != nil {
		errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateNudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	roleName := strings.TrimSpace(req.RoleName)
	if roleName == "" {
		errorResponse(w, http.StatusBadRequest, "role_name is required")
		return
	}

	pending, err := s.store.HasPendingNudge(r.Context(), userID, roleName)
	if err != nil {
		log.Printf("[server] nudge lookup failed: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to check pending requests")
		return
	}
	if pending {
		errorResponse(w, http.StatusBadRequest, "a request for this role is already pending")
		return
	}

	nudge, err := s.store.CreateNudge(r.Context(), companyID, userID, roleName, strings.TrimSpace(req.LevelName))
	if err != nil {
		log.Printf("[server] failed to create nudge: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to create request")
		return
	}

	jsonResponse(w, http.StatusCreated, nudge)
}

// handleListNudges handles GET /api/nudges. Managers review outstanding
// guide requests for their company.
func (s *Server) handleListNudges(w http.ResponseWriter, r *http.Request) {
	companyID, role, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if role != db.UserRoleManager {
		errorResponse(w, http.StatusForbidden, "only managers can list guide requests")
		return
	}

	nudges, err := s.store.ListNudgesByCompany(r.Context(), companyID)
	if err != nil {
		log.Printf("[server] failed to list nudges: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to list requests")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"nudges": nudges})
}

// handleUpdateNudge handles PATCH /api/nudges/{id}. Managers mark a
// request fulfilled or dismissed.
func (s *Server) handleUpdateNudge(w http.ResponseWriter, r *http.Request) {
	companyID, role, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if role != db.UserRoleManager {
		errorResponse(w, http.StatusForbidden, "only managers can resolve guide requests")
		return
	}

	nudgeID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid nudge ID")
		return
	}

	var req UpdateNudgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	nudge, err := s.store.GetNudgeByID(r.Context(), nudgeID)
	if err != nil {
		log.Printf("[server] nudge lookup failed: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to load request")
		return
	}
	if nudge == nil || nudge.CompanyID != companyID {
		errorResponse(w, http.StatusNotFound, "request not found")
		return
	}

	updated, err := s.store.UpdateNudgeStatus(r.Context(), nudgeID, req.Status)
	if err != nil {
		log.Printf("[server] failed to update nudge %s: %v", nudgeID, err)
		errorResponse(w, http.StatusInternalServerError, "failed to update request")
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}
