package server

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/levelguide/internal/db"
	"github.com/jonathan/levelguide/internal/extraction"
	"github.com/jonathan/levelguide/internal/pipeline"
)

// multipartOverhead leaves room for form fields and MIME framing on top of
// the guide file itself.
const multipartOverhead = 1 << 20

// handleUploadRole handles POST /api/roles. Managers upload a leveling
// guide; processing runs in the background and clients poll the status
// endpoint.
func (s *Server) handleUploadRole(w http.ResponseWriter, r *http.Request) {
	companyID, role, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if role != db.UserRoleManager {
		errorResponse(w, http.StatusForbidden, "only managers can upload leveling guides")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, extraction.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(extraction.MaxUploadBytes); err != nil {
		errorResponse(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}

	roleName := strings.TrimSpace(r.FormValue("role_name"))
	if roleName == "" {
		errorResponse(w, http.StatusBadRequest, "role_name is required")
		return
	}
	formWebsite := strings.TrimSpace(r.FormValue("company_website"))
	confirmReplace := r.FormValue("confirm_replace") == "true"

	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	// The website grounds example generation. Accept it from the form or
	// from the company record, but reject before touching any role state
	// when neither is available.
	companyWebsite := formWebsite
	if companyWebsite == "" {
		company, err := s.store.GetCompanyByID(r.Context(), companyID)
		if err != nil {
			log.Printf("[server] company lookup failed: %v", err)
			errorResponse(w, http.StatusInternalServerError, "failed to load company")
			return
		}
		if company != nil {
			companyWebsite = company.Domain
		}
	}
	if companyWebsite == "" {
		errorResponse(w, http.StatusBadRequest, "company_website is required")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) == 0 {
		errorResponse(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	existing, err := s.store.GetActiveRoleByName(r.Context(), companyID, roleName)
	if err != nil {
		log.Printf("[server] role lookup failed: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to check existing roles")
		return
	}
	if existing != nil {
		if !confirmReplace {
			jsonResponse(w, http.StatusConflict, RoleConflictResponse{
				Error:                "an active guide already exists for this role",
				RequiresConfirmation: true,
				ExistingRoleID:       existing.ID,
			})
			return
		}
		if err := s.store.DeactivateRoleSubtree(r.Context(), existing.ID); err != nil {
			log.Printf("[server] failed to deactivate role %s: %v", existing.ID, err)
			errorResponse(w, http.StatusInternalServerError, "failed to replace existing role")
			return
		}
	}

	newRole, err := s.store.CreateRole(r.Context(), companyID, roleName, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		log.Printf("[server] failed to create role: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to create role")
		return
	}

	// Remember an explicitly supplied website for future uploads.
	if formWebsite != "" {
		if err := s.store.UpdateCompanyDomain(r.Context(), companyID, formWebsite); err != nil {
			log.Printf("[server] failed to update company domain: %v", err)
		}
	}

	job := pipeline.Job{
		RoleID:         newRole.ID,
		RoleName:       roleName,
		CompanyWebsite: companyWebsite,
		FileName:       header.Filename,
		DeclaredType:   header.Header.Get("Content-Type"),
		Data:           data,
	}
	go func() {
		if err := s.processor.Process(context.Background(), job); err != nil {
			log.Printf("[server] processing role %s failed: %v", newRole.ID, err)
		}
	}()

	jsonResponse(w, http.StatusAccepted, RoleUploadResponse{
		RoleID:  newRole.ID,
		Status:  newRole.Status,
		Message: newRole.StatusMessage,
	})
}

// handleCheckRole handles GET /api/roles/check?role_name=. Lets the upload
// UI warn about replacement before sending the file.
func (s *Server) handleCheckRole(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("role_name"))
	if name == "" {
		errorResponse(w, http.StatusBadRequest, "role_name query parameter is required")
		return
	}

	existing, err := s.store.GetActiveRoleByName(r.Context(), companyID, name)
	if err != nil {
		log.Printf("[server] role lookup failed: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to check role")
		return
	}

	jsonResponse(w, http.StatusOK, RoleCheckResponse{Exists: existing != nil, Role: existing})
}

// handleRoleStatus handles GET /api/roles/{id}/status.
func (s *Server) handleRoleStatus(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	role, ok := s.lookupRole(w, r, companyID)
	if !ok {
		return
	}

	jsonResponse(w, http.StatusOK, RoleStatusResponse{
		RoleID:  role.ID,
		Status:  role.Status,
		Message: role.StatusMessage,
	})
}

// handleGetRole handles GET /api/roles/{id}. Returns the full grid of
// levels, competencies, definitions and examples.
func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	role, ok := s.lookupRole(w, r, companyID)
	if !ok {
		return
	}

	grid, err := s.store.GetRoleGrid(r.Context(), role.ID)
	if err != nil {
		log.Printf("[server] failed to load grid for role %s: %v", role.ID, err)
		errorResponse(w, http.StatusInternalServerError, "failed to load role")
		return
	}
	if grid == nil {
		errorResponse(w, http.StatusNotFound, "role not found")
		return
	}

	jsonResponse(w, http.StatusOK, grid)
}

// handleListRoles handles GET /api/roles.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	roles, err := s.store.ListActiveRoles(r.Context(), companyID)
	if err != nil {
		log.Printf("[server] failed to list roles: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to list roles")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"roles": roles})
}

// lookupRole resolves the {id} path value to an active role owned by the
// caller's company. Writes the error response itself on failure.
func (s *Server) lookupRole(w http.ResponseWriter, r *http.Request, companyID uuid.UUID) (*db.Role, bool) {
	roleID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid role ID")
		return nil, false
	}

	role, err := s.store.GetRoleByID(r.Context(), roleID)
	if err != nil {
		log.Printf("[server] role lookup failed: %v", err)
		errorResponse(w, http.StatusInternalServerError, "failed to load role")
		return nil, false
	}
	if role == nil || !role.IsActive || role.CompanyID != companyID {
		errorResponse(w, http.StatusNotFound, "role not found")
		return nil, false
	}
	return role, true
}
