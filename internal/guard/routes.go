// Package guard decides, per request path, whether a session may pass.
// It runs in two layers: an edge middleware that redirects before any
// handler executes, and per-route requirements for handlers that need a
// stricter check than the edge can give.
package guard

import (
	"strings"

	"nusantaraedu/gateway/internal/model"
)

// Route tables. Matching is by path prefix; role gates pick the longest
// matching prefix so /admin wins over /dashboard for /admin/users.
var (
	protectedPrefixes = []string{"/dashboard", "/profile", "/settings"}

	publicPaths = map[string]bool{
		"/":         true,
		"/login":    true,
		"/register": true,
		"/about":    true,
		"/contact":  true,
	}

	roleGates = map[string][]model.Role{
		"/dashboard": {
			model.RoleAdmin,
			model.RolePrincipal,
			model.RoleTeacher,
			model.RoleSchoolAdminStaff,
			model.RoleEducationDepartment,
		},
		"/admin":     {model.RoleAdmin},
		"/principal": {model.RolePrincipal},
	}

	skipPrefixes = []string{"/api/", "/static/", "/_assets/"}

	imageSuffixes = []string{".png", ".jpg", ".jpeg", ".svg", ".gif", ".ico", ".webp"}
)

// Excluded reports paths the guard never inspects: API calls, static
// assets, operational endpoints and image requests.
func Excluded(path string) bool {
	if path == "/favicon.ico" || path == "/healthz" || path == "/metrics" {
		return true
	}
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, s := range imageSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// Protected reports whether path requires an authenticated session.
func Protected(path string) bool {
	for _, p := range protectedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	if _, gated := gateFor(path); gated {
		return true
	}
	return false
}

// Public reports whether path is reachable without a session. An
// authenticated user landing on one of these is sent to the dashboard.
func Public(path string) bool {
	return publicPaths[path]
}

// gateFor returns the allowed roles for path using longest-prefix match.
func gateFor(path string) ([]model.Role, bool) {
	var (
		best    string
		allowed []model.Role
		found   bool
	)
	for prefix, roles := range roleGates {
		if path != prefix && !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		if len(prefix) > len(best) {
			best = prefix
			allowed = roles
			found = true
		}
	}
	return allowed, found
}

// RoleAllowed checks path's role gate against role. Paths without a
// gate allow every authenticated role.
func RoleAllowed(path string, role model.Role) bool {
	allowed, found := gateFor(path)
	if !found {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
