package auth

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Revocations remembers the ids of tokens that were logged out before they
// expired. Entries are dropped once the token would have expired anyway.
type Revocations struct {
	mu      sync.Mutex
	entries map[string]time.Time // token id -> expiry
	now     func() time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{entries: make(map[string]time.Time), now: time.Now}
}

// Revoke rejects the token id until expiresAt.
func (r *Revocations) Revoke(tokenID string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	r.entries[tokenID] = expiresAt
}

func (r *Revocations) IsRevoked(tokenID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.entries[tokenID]
	return ok && r.now().Before(exp)
}

// Len returns the number of tracked revocations, expired ones included
// until the next sweep.
func (r *Revocations) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Revocations) sweepLocked() {
	now := r.now()
	for id, exp := range r.entries {
		if !now.Before(exp) {
			delete(r.entries, id)
		}
	}
}

// LogoutHandler revokes the bearer token of the current request.
func LogoutHandler(r *Revocations) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, ok := PrincipalFromContext(c.Request().Context())
		if !ok || p.TokenID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no session token to revoke")
		}
		r.Revoke(p.TokenID, p.ExpiresAt)
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}
}
