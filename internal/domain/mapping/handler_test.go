package mapping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return httpErr.Code
}

// =========== Create Tests ===========

func TestHandler_CreateMapping(t *testing.T) {
	h, e := newTestHandler()
	req := jsonRequest(http.MethodPost, "/api/mapping/create",
		`{"namasteCode":"AYU-001","icd11Code":"TM25.1","doctorId":"dr-1","confidence":92,"notes":"n"}`)
	rec := httptest.NewRecorder()

	if err := h.CreateMapping(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != true {
		t.Errorf("expected success=true, got %v", body["success"])
	}
	if body["message"] != "Manual mapping created successfully" {
		t.Errorf("unexpected message %v", body["message"])
	}
	m := body["mapping"].(map[string]interface{})
	if m["status"] != "PENDING_REVIEW" || m["createdBy"] != "dr-1" || m["confidence"] != 92.0 {
		t.Errorf("unexpected mapping %v", m)
	}
	if _, ok := m["validatedBy"]; !ok || m["validatedBy"] != nil {
		t.Errorf("expected validatedBy=null, got %v", m["validatedBy"])
	}
}

func TestHandler_CreateMapping_MissingCodes(t *testing.T) {
	h, e := newTestHandler()
	req := jsonRequest(http.MethodPost, "/api/mapping/create", `{"namasteCode":"AYU-001"}`)
	err := h.CreateMapping(e.NewContext(req, httptest.NewRecorder()))
	if code := httpStatus(t, err); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_CreateMapping_UnknownTerm(t *testing.T) {
	h, e := newTestHandler()
	req := jsonRequest(http.MethodPost, "/api/mapping/create", `{"namasteCode":"AYU-404","icd11Code":"TM25.1"}`)
	err := h.CreateMapping(e.NewContext(req, httptest.NewRecorder()))
	if code := httpStatus(t, err); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if msg := err.(*echo.HTTPError).Message; msg != "NAMASTE term not found" {
		t.Errorf("unexpected message %v", msg)
	}
}

func TestHandler_CreateMapping_BadJSON(t *testing.T) {
	h, e := newTestHandler()
	req := jsonRequest(http.MethodPost, "/api/mapping/create", `{"namasteCode":`)
	err := h.CreateMapping(e.NewContext(req, httptest.NewRecorder()))
	if code := httpStatus(t, err); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

// =========== List Tests ===========

func seed(t *testing.T, h *Handler, codes ...string) []*Mapping {
	t.Helper()
	var out []*Mapping
	for _, code := range codes {
		m, err := h.svc.Create(context.Background(), CreateInput{NamasteCode: code, ICD11Code: "TM25.1"})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func TestHandler_ListMappings(t *testing.T) {
	h, e := newTestHandler()
	seed(t, h, "AYU-001", "AYU-002")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/mapping/list", nil), rec)
	if err := h.ListMappings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decode(t, rec)
	if body["total"] != 2.0 {
		t.Errorf("expected total=2, got %v", body["total"])
	}
	if n := len(body["mappings"].([]interface{})); n != 2 {
		t.Errorf("expected 2 mappings, got %d", n)
	}
}

func TestHandler_ListMappings_Empty(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/mapping/list", nil), rec)
	if err := h.ListMappings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"mappings":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandler_ListMappings_Paged(t *testing.T) {
	h, e := newTestHandler()
	seed(t, h, "AYU-001", "AYU-002", "AYU-001")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/mapping/list?limit=1&namasteCode=AYU-001", nil), rec)
	if err := h.ListMappings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decode(t, rec)
	if body["total"] != 2.0 {
		t.Errorf("expected total=2, got %v", body["total"])
	}
	if n := len(body["mappings"].([]interface{})); n != 1 {
		t.Errorf("expected 1 mapping, got %d", n)
	}
	if body["limit"] != 1.0 || body["offset"] != 0.0 || body["hasMore"] != true {
		t.Errorf("unexpected page fields: limit=%v offset=%v hasMore=%v", body["limit"], body["offset"], body["hasMore"])
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/mapping/list?limit=1&offset=1&namasteCode=AYU-001", nil), rec)
	if err := h.ListMappings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body := decode(t, rec); body["hasMore"] != false {
		t.Errorf("expected hasMore=false on the last page, got %v", body["hasMore"])
	}
}

func TestHandler_ListMappings_UnpagedHasNoPageFields(t *testing.T) {
	h, e := newTestHandler()
	seed(t, h, "AYU-001")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/mapping/list", nil), rec)
	if err := h.ListMappings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := decode(t, rec)["hasMore"]; ok {
		t.Error("unpaged list should not report hasMore")
	}
}

func TestHandler_AdminListMappings(t *testing.T) {
	h, e := newTestHandler()
	seed(t, h, "AYU-001")

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/admin/manual-mappings", nil), rec)
	if err := h.AdminListMappings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := decode(t, rec)["data"].(map[string]interface{})
	if data["total"] != 1.0 {
		t.Errorf("expected total=1, got %v", data["total"])
	}
}

func TestHandler_ListMappings_BadStatus(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/mapping/list?status=MAYBE", nil), httptest.NewRecorder())
	if code := httpStatus(t, h.ListMappings(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

// =========== Review Tests ===========

func reviewContext(e *echo.Echo, id, body string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/admin/mapping/"+id+"/review", body), rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestHandler_ReviewMapping(t *testing.T) {
	h, e := newTestHandler()
	m := seed(t, h, "AYU-001")[0]

	c, rec := reviewContext(e, m.ID, `{"approved":true,"reviewerNotes":"fits","reviewerId":"rev-1"}`)
	if err := h.ReviewMapping(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decode(t, rec)
	if body["message"] != "Mapping approved successfully" {
		t.Errorf("unexpected message %v", body["message"])
	}
	data := body["data"].(map[string]interface{})
	if data["status"] != "APPROVED" || data["validatedBy"] != "rev-1" || data["reviewerNotes"] != "fits" {
		t.Errorf("unexpected data %v", data)
	}
	if data["validatedAt"] == nil {
		t.Error("expected validatedAt to be set")
	}
}

func TestHandler_ReviewMapping_Reject(t *testing.T) {
	h, e := newTestHandler()
	m := seed(t, h, "AYU-002")[0]

	c, rec := reviewContext(e, m.ID, `{"approved":false}`)
	if err := h.ReviewMapping(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decode(t, rec)
	if body["message"] != "Mapping rejected successfully" {
		t.Errorf("unexpected message %v", body["message"])
	}
	if data := body["data"].(map[string]interface{}); data["validatedBy"] != DefaultReviewer {
		t.Errorf("expected default reviewer, got %v", data["validatedBy"])
	}
}

func TestHandler_ReviewMapping_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c, _ := reviewContext(e, "MAP_nope", `{"approved":true}`)
	err := h.ReviewMapping(c)
	if code := httpStatus(t, err); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if msg := err.(*echo.HTTPError).Message; msg != "Mapping not found" {
		t.Errorf("unexpected message %v", msg)
	}
}

func TestHandler_ReviewMapping_AlreadyReviewed(t *testing.T) {
	h, e := newTestHandler()
	m := seed(t, h, "AYU-001")[0]

	c, _ := reviewContext(e, m.ID, `{"approved":true}`)
	if err := h.ReviewMapping(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ = reviewContext(e, m.ID, `{"approved":false}`)
	if code := httpStatus(t, h.ReviewMapping(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

// =========== Routing Tests ===========

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e := newTestHandler()
	h.RegisterRoutes(e.Group("/api"))

	want := map[string]bool{
		"POST /api/mapping/create":           false,
		"GET /api/mapping/list":              false,
		"GET /api/mapping/:id":               false,
		"GET /api/admin/manual-mappings":     false,
		"POST /api/admin/mapping/:id/review": false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestHandler_ReviewRequiresRole(t *testing.T) {
	h, e := newTestHandler()
	h.RegisterRoutes(e.Group("/api"))
	m := seed(t, h, "AYU-001")[0]

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/admin/mapping/"+m.ID+"/review", `{"approved":true}`))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without a reviewer role, got %d", rec.Code)
	}
}
