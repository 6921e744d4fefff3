package scheduling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/clinic/internal/platform/auth"
)

func newContext(e *echo.Echo, method, target, body string, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func statusOf(err error, rec *httptest.ResponseRecorder) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return rec.Code
}

func TestFilterFromRequest(t *testing.T) {
	e := echo.New()
	nine := int64(9)

	c, _ := newContext(e, http.MethodGet, "/api/appointments?role=patient&linked_id=3", "", nil)
	f, err := FilterFromRequest(c)
	if err != nil || f.Role != "patient" || *f.LinkedID != 3 {
		t.Errorf("query filter: got %+v, %v", f, err)
	}

	c, _ = newContext(e, http.MethodGet, "/api/appointments?role=doctor&linked_id=3",
		"", &auth.Principal{UserID: 1, Role: auth.RolePatient, LinkedID: &nine})
	f, err = FilterFromRequest(c)
	if err != nil || f.Role != auth.RolePatient || *f.LinkedID != 9 {
		t.Errorf("patient principal should override the query, got %+v, %v", f, err)
	}

	c, _ = newContext(e, http.MethodGet, "/api/appointments?linked_id=abc", "", nil)
	if _, err := FilterFromRequest(c); err == nil {
		t.Error("expected an error for a non-numeric linked_id")
	}
}

func TestHandler_CreateAndList(t *testing.T) {
	f := newFixture(t, 900)
	h := NewHandler(f.svc)
	e := echo.New()

	body := `{"patient_id":` + strconv.FormatInt(f.patientID, 10) +
		`,"doctor_id":` + strconv.FormatInt(f.doctorID, 10) +
		`,"appointment_date":"2025-07-01T10:00","reason":"cough"}`
	c, rec := newContext(e, http.MethodPost, "/api/appointments", body, nil)
	if err := h.CreateAppointment(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	var created map[string]int64
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created["id"] == 0 {
		t.Fatalf("expected an id, got %s", rec.Body.String())
	}

	c, rec = newContext(e, http.MethodGet, "/api/appointments?role=patient&linked_id="+strconv.FormatInt(f.patientID, 10), "", nil)
	if err := h.ListAppointments(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	var rows []map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &rows)
	if len(rows) != 1 || rows[0]["doctor_name"] != "Dr. Who" || rows[0]["status"] != "Pending" {
		t.Errorf("unexpected rows %v", rows)
	}
	if rec.Header().Get("X-Total-Count") != "1" {
		t.Errorf("expected X-Total-Count 1, got %q", rec.Header().Get("X-Total-Count"))
	}

	c, rec = newContext(e, http.MethodGet, "/api/appointments?role=patient&linked_id=999", "", nil)
	h.ListAppointments(c)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected an empty array, got %s", rec.Body.String())
	}
}

func TestHandler_Create_BadDate(t *testing.T) {
	f := newFixture(t, 900)
	h := NewHandler(f.svc)

	body := `{"patient_id":1,"doctor_id":1,"appointment_date":"soon"}`
	c, rec := newContext(echo.New(), http.MethodPost, "/api/appointments", body, nil)
	if got := statusOf(h.CreateAppointment(c), rec); got != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", got)
	}
}

func TestHandler_Create_PatientForOtherPatient(t *testing.T) {
	f := newFixture(t, 900)
	h := NewHandler(f.svc)

	own := f.patientID
	body := `{"patient_id":` + strconv.FormatInt(own+1, 10) + `,"doctor_id":1,"appointment_date":"2025-07-01"}`
	c, rec := newContext(echo.New(), http.MethodPost, "/api/appointments", body,
		&auth.Principal{UserID: 1, Role: auth.RolePatient, LinkedID: &own})
	if got := statusOf(h.CreateAppointment(c), rec); got != http.StatusForbidden {
		t.Errorf("expected 403, got %d", got)
	}
}

func TestHandler_Reschedule(t *testing.T) {
	f := newFixture(t, 900)
	h := NewHandler(f.svc)
	id := f.book(t)
	e := echo.New()

	c, rec := newContext(e, http.MethodPatch, "/", `{"appointment_date":"2025-08-01T08:15","reason":"moved"}`, nil)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(id, 10))
	if err := h.RescheduleAppointment(c); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c, rec = newContext(e, http.MethodPatch, "/", `{"appointment_date":"2025-08-01"}`, nil)
	c.SetParamNames("id")
	c.SetParamValues("404")
	if got := statusOf(h.RescheduleAppointment(c), rec); got != http.StatusNotFound {
		t.Errorf("expected 404, got %d", got)
	}
}

func TestHandler_SetStatus(t *testing.T) {
	f := newFixture(t, 900)
	h := NewHandler(f.svc)
	id := f.book(t)
	e := echo.New()

	call := func(status string) (int, string) {
		c, rec := newContext(e, http.MethodPatch, "/", `{"status":"`+status+`"}`, nil)
		c.SetParamNames("id")
		c.SetParamValues(strconv.FormatInt(id, 10))
		return statusOf(h.SetStatus(c), rec), rec.Body.String()
	}

	code, body := call("Confirmed")
	if code != http.StatusOK || strings.Contains(body, "invoice_id") {
		t.Errorf("confirm: got %d %s", code, body)
	}
	code, body = call("Completed")
	if code != http.StatusOK || !strings.Contains(body, `"invoice_id":1`) {
		t.Errorf("complete: got %d %s", code, body)
	}
	if code, _ = call("Pending"); code != http.StatusConflict {
		t.Errorf("reopen: expected 409, got %d", code)
	}
	if code, _ = call("Whatever"); code != http.StatusBadRequest {
		t.Errorf("unknown status: expected 400, got %d", code)
	}
}

func TestRegisterRoutes_StatusRequiresDoctor(t *testing.T) {
	f := newFixture(t, 900)
	id := f.book(t)
	tokens := auth.NewTokenIssuer([]byte("scheduling-test-secret-scheduling"), time.Hour)

	e := echo.New()
	api := e.Group("/api", auth.JWTMiddleware(auth.JWTConfig{Tokens: tokens}))
	NewHandler(f.svc).RegisterRoutes(api)

	own := f.patientID
	tok, _ := tokens.Issue(1, auth.RolePatient, &own)
	req := httptest.NewRequest(http.MethodPatch, "/api/appointments/"+strconv.FormatInt(id, 10)+"/status",
		strings.NewReader(`{"status":"Completed"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for a patient, got %d", rec.Code)
	}
	if f.biller.count() != 0 {
		t.Error("no invoice should be generated")
	}
}
