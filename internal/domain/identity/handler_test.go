package identity

import (
	"context"
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

func newTestHandler(t *testing.T) (*Handler, *echo.Echo) {
	t.Helper()
	svc, _ := newTestService(t)
	tokens := auth.NewTokenIssuer([]byte("handler-test-secret-handler-test"), time.Hour)
	return NewHandler(svc, tokens), echo.New()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Signup(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"username":"pat","password":"pw","role":"patient","name":"Pat","age":30}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/signup", body), rec)

	if err := h.Signup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var res map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &res)
	if res["role"] != "patient" || res["id"] == nil || res["linked_id"] == nil {
		t.Errorf("unexpected body %v", res)
	}
}

func TestHandler_Signup_InvalidRole(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"username":"x","password":"pw","role":"janitor","name":"X"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/signup", body), rec)

	err := h.Signup(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if httpErr.Message != "Invalid role specified" {
		t.Errorf("unexpected message %v", httpErr.Message)
	}
}

func TestHandler_Signup_DuplicateUsername(t *testing.T) {
	h, e := newTestHandler(t)

	body := `{"username":"dup","password":"pw","role":"admin","name":"Dup"}`
	for i, want := range []int{http.StatusOK, http.StatusConflict} {
		rec := httptest.NewRecorder()
		c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/signup", body), rec)
		err := h.Signup(c)
		got := rec.Code
		if httpErr, ok := err.(*echo.HTTPError); ok {
			got = httpErr.Code
		}
		if got != want {
			t.Errorf("attempt %d: expected %d, got %d", i+1, want, got)
		}
	}
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler(t)

	signup := `{"username":"doc","password":"secret","role":"doctor","name":"Dr. Doc","fees":1200}`
	if err := h.Signup(e.NewContext(jsonRequest(http.MethodPost, "/", signup), httptest.NewRecorder())); err != nil {
		t.Fatalf("signup: %v", err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"username":"doc","password":"secret"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var res loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Username != "doc" || res.Role != RoleDoctor || res.LinkedID == nil {
		t.Errorf("unexpected login response %+v", res)
	}

	p, err := h.tokens.Parse(res.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if p.UserID != res.ID || p.Role != auth.RoleDoctor || *p.LinkedID != *res.LinkedID {
		t.Errorf("token principal %+v does not match login %+v", p, res)
	}
}

func TestHandler_Login_WrongPassword(t *testing.T) {
	h, e := newTestHandler(t)

	signup := `{"username":"doc","password":"secret","role":"doctor","name":"Dr. Doc"}`
	h.Signup(e.NewContext(jsonRequest(http.MethodPost, "/", signup), httptest.NewRecorder()))

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/api/auth/login", `{"username":"doc","password":"nope"}`), rec)
	err := h.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	if httpErr.Message != "Invalid credentials" {
		t.Errorf("unexpected message %v", httpErr.Message)
	}
}

func TestHandler_ListDoctors(t *testing.T) {
	h, e := newTestHandler(t)
	if _, err := h.svc.Seed(context.Background(), DemoFixtures()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/doctors?limit=2", nil), rec)
	if err := h.ListDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Header().Get("X-Total-Count") != "3" {
		t.Errorf("expected total 3, got %q", rec.Header().Get("X-Total-Count"))
	}
	var doctors []DoctorProfile
	json.Unmarshal(rec.Body.Bytes(), &doctors)
	if len(doctors) != 2 {
		t.Fatalf("expected 2 doctors on the page, got %d", len(doctors))
	}
	if doctors[1].Name != "Dr. Bob Johnson" || doctors[1].Fees != 800 {
		t.Errorf("unexpected doctor %+v", doctors[1])
	}
}

func TestHandler_ListAdmins_JoinsUsername(t *testing.T) {
	h, e := newTestHandler(t)
	if _, err := h.svc.Seed(context.Background(), DemoFixtures()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/admins", nil), rec)
	if err := h.ListAdmins(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var admins []map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &admins)
	if len(admins) != 1 {
		t.Fatalf("expected 1 admin, got %d", len(admins))
	}
	if admins[0]["username"] != "admin" || admins[0]["role"] != "admin" || admins[0]["name"] != "System Admin" {
		t.Errorf("unexpected admin row %v", admins[0])
	}
}

func TestHandler_UpdateDoctorFee(t *testing.T) {
	h, e := newTestHandler(t)
	res, err := h.svc.Signup(context.Background(), SignupRequest{Username: "d", Password: "pw", Role: "doctor", Name: "D"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPatch, "/", `{"fees":650}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(res.LinkedID, 10))
	if err := h.UpdateDoctorFee(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPatch, "/", `{"fees":650}`), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	if httpErr, ok := h.UpdateDoctorFee(c).(*echo.HTTPError); !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad id")
	}
}

func TestRegisterRoutes_Guards(t *testing.T) {
	h, e := newTestHandler(t)
	api := e.Group("/api", auth.JWTMiddleware(auth.JWTConfig{Tokens: h.tokens, Skipper: auth.AuthSkipper}))
	h.RegisterRoutes(api)

	patientToken, _ := h.tokens.Issue(1, auth.RolePatient, nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"login is public", http.MethodPost, "/api/auth/login", "", http.StatusUnauthorized},
		{"doctors needs a token", http.MethodGet, "/api/doctors", "", http.StatusUnauthorized},
		{"patient lists doctors", http.MethodGet, "/api/doctors", patientToken, http.StatusOK},
		{"patient cannot list admins", http.MethodGet, "/api/admins", patientToken, http.StatusForbidden},
		{"patient cannot list patients", http.MethodGet, "/api/patients", patientToken, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(tt.method, tt.path, `{"username":"none","password":"none"}`)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
