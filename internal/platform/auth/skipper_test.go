package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper_PublicPaths(t *testing.T) {
	publicPaths := []string{
		"/health",
		"/health/db",
		"/api/auth/signup",
		"/api/auth/login",
	}

	for _, path := range publicPaths {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetPath(path)

			if !AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return true for %s", path)
			}
		})
	}
}

func TestAuthSkipper_ProtectedPaths(t *testing.T) {
	protectedPaths := []string{
		"/api/admins",
		"/api/appointments",
		"/api/appointments/:id/status",
		"/api/billing",
		"/api/records/:patientId",
	}

	for _, path := range protectedPaths {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetPath(path)

			if AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return false for %s", path)
			}
			if IsPublicPath(path) {
				t.Errorf("expected IsPublicPath to return false for %s", path)
			}
		})
	}
}

func TestIsCredentialPath(t *testing.T) {
	tests := map[string]bool{
		"/api/auth/login":       true,
		"/api/auth/signup":      true,
		"/api/auth/logout":      false,
		"/health":               false,
		"/api/doctors/:id/fees": false,
	}
	for path, want := range tests {
		if got := IsCredentialPath(path); got != want {
			t.Errorf("IsCredentialPath(%q) = %v, want %v", path, got, want)
		}
	}
}
