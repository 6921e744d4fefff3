package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths reachable without credentials: health checks
// and the endpoints that hand out tokens.
var publicPaths = map[string]bool{
	"/health":          true,
	"/health/db":       true,
	"/api/auth/signup": true,
	"/api/auth/login":  true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given path bypasses authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}

// credentialPaths check a password and are limited more strictly.
var credentialPaths = map[string]bool{
	"/api/auth/signup": true,
	"/api/auth/login":  true,
}

// IsCredentialPath reports whether the route path checks or sets a password.
func IsCredentialPath(path string) bool {
	return credentialPaths[path]
}
