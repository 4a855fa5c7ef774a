package bed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/db"
)

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(context.WithValue(req.Context(), db.TenantIDKey, "tenant-1"))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandlerCreateBed(t *testing.T) {
	svc, _, wardID := testService()
	h := NewHandler(svc)

	c, rec := newTestContext(t, http.MethodPost, "/api/v1/beds",
		`{"ward_id":"`+wardID.String()+`","bed_number":"B-201"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var b Bed
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if b.BedNumber != "B-201" || b.Status != StatusAvailable {
		t.Errorf("unexpected body: %+v", b)
	}
}

func TestHandlerSetStatus_Occupied409(t *testing.T) {
	svc, repo, wardID := testService()
	h := NewHandler(svc)

	b, _ := svc.Create(context.Background(), "tenant-1", CreateInput{WardID: wardID, BedNumber: "B-201"})
	if err := repo.Reserve(context.Background(), "tenant-1", b.ID); err != nil {
		t.Fatal(err)
	}

	c, _ := newTestContext(t, http.MethodPatch, "/api/v1/beds/"+b.ID.String()+"/status",
		`{"status":"MAINTENANCE"}`)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())
	err := h.SetStatus(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409 HTTPError, got %v", err)
	}
}

func TestHandlerListAvailable(t *testing.T) {
	svc, _, wardID := testService()
	h := NewHandler(svc)

	if _, err := svc.Create(context.Background(), "tenant-1", CreateInput{WardID: wardID, BedNumber: "B-201"}); err != nil {
		t.Fatal(err)
	}

	c, rec := newTestContext(t, http.MethodGet, "/api/v1/beds/available?ward_id="+wardID.String(), "")
	if err := h.ListAvailable(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var beds []*Bed
	if err := json.Unmarshal(rec.Body.Bytes(), &beds); err != nil {
		t.Fatal(err)
	}
	if len(beds) != 1 {
		t.Errorf("expected 1 available bed, got %d", len(beds))
	}
}

func TestHandlerGetBed_UnknownID404(t *testing.T) {
	svc, _, _ := testService()
	h := NewHandler(svc)

	id := uuid.NewString()
	c, _ := newTestContext(t, http.MethodGet, "/api/v1/beds/"+id, "")
	c.SetParamNames("id")
	c.SetParamValues(id)
	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 HTTPError, got %v", err)
	}
}
