package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/jonathan/levelguide/internal/db"
)

func multipartUpload(t *testing.T, fields map[string]string, fileName string, fileContent []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(fileContent); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadRoleAccepted(t *testing.T) {
	s := newTestServer()
	companyID := uuid.New()

	body, contentType := multipartUpload(t, map[string]string{
		"role_name":       "Software Engineer",
		"company_website": "https://example.com",
	}, "guide.csv", []byte("Level,Communication\nL1,Writes clear docs\n"))

	req := httptest.NewRequest(http.MethodPost, "/api/roles", body)
	req.Header.Set("Content-Type", contentType)
	req = asIdentity(req, uuid.New(), companyID, db.UserRoleManager)
	w := httptest.NewRecorder()

	s.handleUploadRole(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp RoleUploadResponse
	decodeJSON(t, w, &resp)
	if resp.Status != db.RoleStatusProcessing {
		t.Errorf("status = %q, expected processing", resp.Status)
	}
	if resp.RoleID == uuid.Nil {
		t.Error("expected a role ID")
	}

	job := s.processor.waitForJob(t)
	if job.RoleID != resp.RoleID {
		t.Errorf("job role = %s, expected %s", job.RoleID, resp.RoleID)
	}
	if job.RoleName != "Software Engineer" || job.CompanyWebsite != "https://example.com" {
		t.Errorf("job metadata not propagated: %+v", job)
	}
	if len(job.Data) == 0 {
		t.Error("job carries no file data")
	}
}

func TestUploadRoleFallsBackToStoredWebsite(t *testing.T) {
	s := newTestServer()
	company, _ := s.store.CreateCompany(context.Background(), "Example Co", "stored.example.com")

	body, contentType := multipartUpload(t, map[string]string{
		"role_name": "Software Engineer",
	}, "guide.csv", []byte("data"))

	req := httptest.NewRequest(http.MethodPost, "/api/roles", body)
	req.Header.Set("Content-Type", contentType)
	req = asIdentity(req, uuid.New(), company.ID, db.UserRoleManager)
	w := httptest.NewRecorder()

	s.handleUploadRole(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	job := s.processor.waitForJob(t)
	if job.CompanyWebsite != "stored.example.com" {
		t.Errorf("job website = %q, expected stored company domain", job.CompanyWebsite)
	}
}

func TestUploadRoleManagerOnly(t *testing.T) {
	s := newTestServer()

	body, contentType := multipartUpload(t, map[string]string{"role_name": "SE"}, "guide.csv", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/roles", body)
	req.Header.Set("Content-Type", contentType)
	req = asIdentity(req, uuid.New(), uuid.New(), db.UserRoleEmployee)
	w := httptest.NewRecorder()

	s.handleUploadRole(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, expected 403", w.Code)
	}
	if len(s.processor.jobs) != 0 {
		t.Error("no job should be launched")
	}
}

func TestUploadRoleMissingName(t *testing.T) {
	s := newTestServer()

	body, contentType := multipartUpload(t, nil, "guide.csv", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/roles", body)
	req.Header.Set("Content-Type", contentType)
	req = asIdentity(req, uuid.New(), uuid.New(), db.UserRoleManager)
	w := httptest.NewRecorder()

	s.handleUploadRole(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestUploadRoleMissingWebsite(t *testing.T) {
	s := newTestServer()
	company, _ := s.store.CreateCompany(context.Background(), "Example Co", "")

	body, contentType := multipartUpload(t, map[string]string{
		"role_name": "Software Engineer",
	}, "guide.csv", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/roles", body)
	req.Header.Set("Content-Type", contentType)
	req = asIdentity(req, uuid.New(), company.ID, db.UserRoleManager)
	w := httptest.NewRecorder()

	s.handleUploadRole(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400 with no website anywhere", w.Code)
	}
	if len(s.processor.jobs) != 0 {
		t.Error("no job should be launched")
	}
	if len(s.store.roles) != 0 {
		t.Error("no role should be created")
	}
}

func TestUploadRoleConflictWithoutConfirmation(t *testing.T) {
	s := newTestServer()
	companyID := uuid.New()
	existing, _ := s.store.CreateRole(context.Background(), companyID, "Software Engineer", "old.pdf", "application/pdf")

	body, contentType := multipartUpload(t, map[string]string{
		"role_name":       "software engineer",
		"company_website": "https://example.com",
	}, "guide.csv", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/roles", body)
	req.Header.Set("Content-Type", contentType)
	req = asIdentity(req, uuid.New(), companyID, db.UserRoleManager)
	w := httptest.NewRecorder()

	s.handleUploadRole(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, expected 409", w.Code)
	}
	var resp RoleConflictResponse
	decodeJSON(t, w, &resp)
	if !resp.RequiresConfirmation {
		t.Error("expected requires_confirmation")
	}
	if resp.ExistingRoleID != existing.ID {
		t.Errorf("existing role = %s, expected %s", resp.ExistingRoleID, existing.ID)
	}
	if len(s.store.deactivated) != 0 {
		t.Error("existing role must not be deactivated without confirmation")
	}
}

func TestUploadRoleReplaceConfirmed(t *testing.T) {
	s := newTestServer()
	companyID := uuid.New()
	existing, _ := s.store.CreateRole(context.Background(), companyID, "Software Engineer", "old.pdf", "application/pdf")

	body, contentType := multipartUpload(t, map[string]string{
		"role_name":       "Software Engineer",
		"company_website": "https://example.com",
		"confirm_replace": "true",
	}, "guide.csv", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/roles", body)
	req.Header.Set("Content-Type", contentType)
	req = asIdentity(req, uuid.New(), companyID, db.UserRoleManager)
	w := httptest.NewRecorder()

	s.handleUploadRole(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(s.store.deactivated) != 1 || s.store.deactivated[0] != existing.ID {
		t.Errorf("deactivated = %v, expected [%s]", s.store.deactivated, existing.ID)
	}
	s.processor.waitForJob(t)
}

func TestCheckRole(t *testing.T) {
	s := newTestServer()
	companyID := uuid.New()
	s.store.CreateRole(context.Background(), companyID, "Product Manager", "g.pdf", "application/pdf")

	req := httptest.NewRequest(http.MethodGet, "/api/roles/check?role_name=product+manager", nil)
	req = asIdentity(req, uuid.New(), companyID, db.UserRoleManager)
	w := httptest.NewRecorder()
	s.handleCheckRole(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp RoleCheckResponse
	decodeJSON(t, w, &resp)
	if !resp.Exists || resp.Role == nil {
		t.Error("expected existing role")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/roles/check?role_name=Designer", nil)
	req = asIdentity(req, uuid.New(), companyID, db.UserRoleManager)
	w = httptest.NewRecorder()
	s.handleCheckRole(w, req)

	decodeJSON(t, w, &resp)
	if resp.Exists {
		t.Error("Designer should not exist")
	}
}

func TestRoleStatus(t *testing.T) {
	s := newTestServer()
	companyID := uuid.New()
	role, _ := s.store.CreateRole(context.Background(), companyID, "SE", "g.pdf", "application/pdf")

	req := httptest.NewRequest(http.MethodGet, "/api/roles/"+role.ID.String()+"/status", nil)
	req.SetPathValue("id", role.ID.String())
	req = asIdentity(req, uuid.New(), companyID, db.UserRoleEmployee)
	w := httptest.NewRecorder()
	s.handleRoleStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp RoleStatusResponse
	decodeJSON(t, w, &resp)
	if resp.Status != db.RoleStatusProcessing {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestRoleStatusOtherCompanyHidden(t *testing.T) {
	s := newTestServer()
	role, _ := s.store.CreateRole(context.Background(), uuid.New(), "SE", "g.pdf", "application/pdf")

	req := httptest.NewRequest(http.MethodGet, "/api/roles/"+role.ID.String()+"/status", nil)
	req.SetPathValue("id", role.ID.String())
	req = asIdentity(req, uuid.New(), uuid.New(), db.UserRoleEmployee)
	w := httptest.NewRecorder()
	s.handleRoleStatus(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404 for foreign role", w.Code)
	}
}

func TestGetRoleGrid(t *testing.T) {
	s := newTestServer()
	companyID := uuid.New()
	role, _ := s.store.CreateRole(context.Background(), companyID, "SE", "g.pdf", "application/pdf")
	s.store.grids[role.ID] = &db.RoleGrid{
		Role:         role,
		Levels:       []db.Level{{ID: uuid.New(), RoleID: role.ID, Name: "L1"}},
		Competencies: []db.Competency{{ID: uuid.New(), RoleID: role.ID, Name: "Communication"}},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/roles/"+role.ID.String(), nil)
	req.SetPathValue("id", role.ID.String())
	req = asIdentity(req, uuid.New(), companyID, db.UserRoleEmployee)
	w := httptest.NewRecorder()
	s.handleGetRole(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var grid db.RoleGrid
	decodeJSON(t, w, &grid)
	if len(grid.Levels) != 1 || grid.Levels[0].Name != "L1" {
		t.Errorf("unexpected grid levels: %+v", grid.Levels)
	}
}

func TestGetRoleInvalidID(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/roles/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")
	req = asIdentity(req, uuid.New(), uuid.New(), db.UserRoleManager)
	w := httptest.NewRecorder()
	s.handleGetRole(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", w.Code)
	}
}

func TestListRoles(t *testing.T) {
	s := newTestServer()
	companyID := uuid.New()
	s.store.CreateRole(context.Background(), companyID, "SE", "a.pdf", "application/pdf")
	s.store.CreateRole(context.Background(), companyID, "PM", "b.pdf", "application/pdf")
	s.store.CreateRole(context.Background(), uuid.New(), "Other", "c.pdf", "application/pdf")

	req := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	req = asIdentity(req, uuid.New(), companyID, db.UserRoleEmployee)
	w := httptest.NewRecorder()
	s.handleListRoles(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Roles []db.Role `json:"roles"`
	}
	decodeJSON(t, w, &resp)
	if len(resp.Roles) != 2 {
		t.Errorf("roles = %d, expected 2", len(resp.Roles))
	}
}
