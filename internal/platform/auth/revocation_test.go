package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevocations_RevokeUntilExpiry(t *testing.T) {
	r := NewRevocations()
	now := time.Now()
	r.now = func() time.Time { return now }

	r.Revoke("a", now.Add(time.Minute))
	assert.True(t, r.IsRevoked("a"))
	assert.False(t, r.IsRevoked("b"))

	now = now.Add(2 * time.Minute)
	assert.False(t, r.IsRevoked("a"), "expired tokens need no revocation entry")

	r.Revoke("b", now.Add(time.Minute))
	assert.Equal(t, 1, r.Len(), "expired entries are swept on the next revoke")
}

func TestTokenIssuer_IssuesUniqueTokenIDs(t *testing.T) {
	issuer := newTestIssuer()
	a, err := issuer.Issue(1, RoleAdmin, nil)
	require.NoError(t, err)
	b, err := issuer.Issue(1, RoleAdmin, nil)
	require.NoError(t, err)

	pa, err := issuer.Parse(a)
	require.NoError(t, err)
	pb, err := issuer.Parse(b)
	require.NoError(t, err)

	assert.NotEmpty(t, pa.TokenID)
	assert.NotEqual(t, pa.TokenID, pb.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), pa.ExpiresAt, time.Minute)
}

func TestLogout_RejectsTokenAfterwards(t *testing.T) {
	revoked := NewRevocations()
	tok := createTestToken(t, 3, RoleDoctor, nil)

	e := echo.New()
	api := e.Group("/api", JWTMiddleware(JWTConfig{Tokens: newTestIssuer(), Revoked: revoked}))
	api.POST("/auth/logout", LogoutHandler(revoked))
	api.GET("/doctors", okHandler)

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/doctors"))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/auth/logout"))
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/api/doctors"))
	assert.Equal(t, 1, revoked.Len())
}

func TestLogout_WithoutToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := LogoutHandler(NewRevocations())(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
