package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/db"
)

func auditRequest(t *testing.T, path string, recorder AuditRecorder) (*bytes.Buffer, error) {
	t.Helper()
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, "user-7")
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{"bed_manager"})
	ctx = context.WithValue(ctx, db.TenantIDKey, "mercy-general")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-1")

	var mw echo.MiddlewareFunc
	if recorder != nil {
		mw = Audit(logger, recorder)
	} else {
		mw = Audit(logger)
	}
	err := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})(c)
	return &buf, err
}

func TestAudit_RecordsEntry(t *testing.T) {
	var captured AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		captured = e
		return nil
	})

	_, err := auditRequest(t, "/api/v1/admissions/adm-1/discharge", recorder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.UserID != "user-7" {
		t.Errorf("expected user-7, got %q", captured.UserID)
	}
	if captured.TenantID != "mercy-general" {
		t.Errorf("expected mercy-general, got %q", captured.TenantID)
	}
	if captured.Resource != "admissions" {
		t.Errorf("expected resource admissions, got %q", captured.Resource)
	}
	if captured.ResourceID != "adm-1" {
		t.Errorf("expected resource id adm-1, got %q", captured.ResourceID)
	}
	if captured.Action != "create" {
		t.Errorf("expected action create, got %q", captured.Action)
	}
	if captured.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", captured.StatusCode)
	}
	if captured.RequestID != "req-1" {
		t.Errorf("expected req-1, got %q", captured.RequestID)
	}
}

func TestAudit_LogsWithoutRecorder(t *testing.T) {
	buf, err := auditRequest(t, "/api/v1/beds", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"type":"access_audit"`) {
		t.Errorf("expected audit log line, got %s", out)
	}
	if !strings.Contains(out, `"resource":"beds"`) {
		t.Errorf("expected beds resource, got %s", out)
	}
}

func TestAudit_RecorderFailureDoesNotFailRequest(t *testing.T) {
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		return errors.New("sink unavailable")
	})
	buf, err := auditRequest(t, "/api/v1/wards", recorder)
	if err != nil {
		t.Fatalf("request should succeed despite recorder failure: %v", err)
	}
	if !strings.Contains(buf.String(), "failed to record audit entry") {
		t.Errorf("expected recorder failure log, got %s", buf.String())
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	var called bool
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		called = true
		return nil
	})
	_, err := auditRequest(t, "/health", recorder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected no audit entry for non-API path")
	}
}

func TestSplitResourcePath(t *testing.T) {
	cases := []struct {
		path     string
		resource string
		id       string
	}{
		{"/api/v1/wards", "wards", ""},
		{"/api/v1/wards/w-1", "wards", "w-1"},
		{"/api/v1/admissions/a-1/cancel", "admissions", "a-1"},
		{"/api/v1/", "unknown", ""},
	}
	for _, tc := range cases {
		resource, id := splitResourcePath(tc.path)
		if resource != tc.resource || id != tc.id {
			t.Errorf("%s: got (%q, %q), want (%q, %q)", tc.path, resource, id, tc.resource, tc.id)
		}
	}
}
