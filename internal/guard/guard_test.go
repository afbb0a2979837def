package guard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nusantaraedu/gateway/internal/credential"
	"nusantaraedu/gateway/internal/model"
	"nusantaraedu/gateway/internal/session"
)

func signedToken(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	claims := edgeClaims{
		Username: "kepsek1",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestRouteTables(t *testing.T) {
	cases := []struct {
		path      string
		excluded  bool
		protected bool
		public    bool
	}{
		{"/", false, false, true},
		{"/login", false, false, true},
		{"/about", false, false, true},
		{"/dashboard", false, true, false},
		{"/dashboard/academic", false, true, false},
		{"/profile", false, true, false},
		{"/settings/security", false, true, false},
		{"/admin/users", false, true, false},
		{"/api/auth/login", true, false, false},
		{"/static/app.css", true, false, false},
		{"/logo.png", true, false, false},
		{"/favicon.ico", true, false, false},
		{"/healthz", true, false, false},
		{"/metrics", true, false, false},
		{"/dashboards", false, false, false}, // prefix must not bleed
	}
	for _, tc := range cases {
		if got := Excluded(tc.path); got != tc.excluded {
			t.Errorf("Excluded(%q) = %v, want %v", tc.path, got, tc.excluded)
		}
		if got := Protected(tc.path); got != tc.protected {
			t.Errorf("Protected(%q) = %v, want %v", tc.path, got, tc.protected)
		}
		if got := Public(tc.path); got != tc.public {
			t.Errorf("Public(%q) = %v, want %v", tc.path, got, tc.public)
		}
	}
}

func TestRoleGateLongestPrefixWins(t *testing.T) {
	if RoleAllowed("/admin/users", model.RoleTeacher) {
		t.Fatalf("teacher must not pass the /admin gate")
	}
	if !RoleAllowed("/admin/users", model.RoleAdmin) {
		t.Fatalf("admin must pass the /admin gate")
	}
	if !RoleAllowed("/dashboard/academic", model.RoleTeacher) {
		t.Fatalf("every role passes the /dashboard gate")
	}
	if RoleAllowed("/principal", model.RoleAdmin) {
		t.Fatalf("/principal is gated to principals only")
	}
	if !RoleAllowed("/profile", model.RoleTeacher) {
		t.Fatalf("ungated protected paths allow any authenticated role")
	}
}

func TestHintFromToken(t *testing.T) {
	now := time.Now()
	if h := hintFromToken("", now); h.valid {
		t.Fatalf("empty token must be invalid")
	}
	if h := hintFromToken("not-a-jwt", now); h.valid {
		t.Fatalf("garbage must be invalid")
	}
	if h := hintFromToken(signedToken(t, "principal", now.Add(time.Hour)), now); !h.valid || h.expired {
		t.Fatalf("live token misread: %+v", h)
	}
	if h := hintFromToken(signedToken(t, "principal", now.Add(-time.Hour)), now); !h.valid || !h.expired {
		t.Fatalf("expired token misread: %+v", h)
	}
}

func passThrough() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func requestWithCookies(path, token string, user *model.User) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: credential.KeyToken, Value: url.QueryEscape(token)})
	}
	if user != nil {
		raw, _ := json.Marshal(user)
		r.AddCookie(&http.Cookie{Name: credential.KeyUser, Value: url.QueryEscape(string(raw))})
	}
	return r
}

func TestMiddlewareRedirectsAnonymousFromProtected(t *testing.T) {
	next, called := passThrough()
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, requestWithCookies("/dashboard/academic", "", nil))

	if *called {
		t.Fatalf("handler must not run")
	}
	loc := rec.Header().Get("Location")
	if rec.Code != http.StatusFound || !strings.Contains(loc, "error=authentication_required") {
		t.Fatalf("unexpected redirect: %d %q", rec.Code, loc)
	}
	if !strings.Contains(loc, "returnUrl=%2Fdashboard%2Facademic") {
		t.Fatalf("returnUrl missing: %q", loc)
	}
}

func TestMiddlewareExpiredTokenClearsCookies(t *testing.T) {
	next, called := passThrough()
	token := signedToken(t, "principal", time.Now().Add(-time.Minute))
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, requestWithCookies("/dashboard", token, nil))

	if *called {
		t.Fatalf("handler must not run")
	}
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "reason=token_expired") {
		t.Fatalf("expected token_expired reason, got %q", loc)
	}
	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	if cleared == 0 {
		t.Fatalf("stale credential cookies must be expired")
	}
}

func TestMiddlewareRoleGateRedirectsToUnauthorized(t *testing.T) {
	next, called := passThrough()
	token := signedToken(t, "teacher", time.Now().Add(time.Hour))
	user := &model.User{ID: 2, Username: "guru1", Role: model.RoleTeacher}
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, requestWithCookies("/admin/users", token, user))

	if *called {
		t.Fatalf("handler must not run")
	}
	if loc := rec.Header().Get("Location"); loc != "/unauthorized" {
		t.Fatalf("expected /unauthorized, got %q", loc)
	}
}

func TestMiddlewareSendsAuthenticatedUserToDashboard(t *testing.T) {
	next, called := passThrough()
	token := signedToken(t, "principal", time.Now().Add(time.Hour))
	for _, path := range []string{"/", "/login", "/register"} {
		rec := httptest.NewRecorder()
		Middleware(next).ServeHTTP(rec, requestWithCookies(path, token, nil))
		if loc := rec.Header().Get("Location"); loc != "/dashboard" {
			t.Fatalf("%s: expected /dashboard, got %q", path, loc)
		}
	}
	if *called {
		t.Fatalf("handler must not run for redirected paths")
	}
}

func TestMiddlewareSkipsExcludedPaths(t *testing.T) {
	next, called := passThrough()
	rec := httptest.NewRecorder()
	Middleware(next).ServeHTTP(rec, requestWithCookies("/api/auth/login", "", nil))
	if !*called {
		t.Fatalf("API paths bypass the guard")
	}
}

func TestRequireRolesRendersAccessDenied(t *testing.T) {
	state := session.State{
		IsAuthenticated: true,
		User:            &model.User{ID: 2, Username: "guru1", Role: model.RoleTeacher},
	}
	lookup := func(*http.Request) session.State { return state }
	next, called := passThrough()

	rec := httptest.NewRecorder()
	h := RequireRoles(lookup, []model.Role{model.RolePrincipal}, next)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/principal/reports", nil))

	if *called {
		t.Fatalf("handler must not run")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Akses Ditolak") || !strings.Contains(body, "teacher") {
		t.Fatalf("access denied view incomplete: %s", body)
	}
}

func TestRequireRolesPassesMatchingRole(t *testing.T) {
	state := session.State{
		IsAuthenticated: true,
		User:            &model.User{ID: 1, Username: "kepsek1", Role: model.RolePrincipal},
	}
	lookup := func(*http.Request) session.State { return state }
	next, called := passThrough()

	rec := httptest.NewRecorder()
	RequireRoles(lookup, []model.Role{model.RolePrincipal}, next).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/principal/reports", nil))
	if !*called {
		t.Fatalf("matching role must pass")
	}
}

func TestRequireSessionRedirectsAnonymous(t *testing.T) {
	lookup := func(*http.Request) session.State { return session.State{} }
	next, called := passThrough()

	rec := httptest.NewRecorder()
	RequireSession(lookup, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if *called {
		t.Fatalf("handler must not run")
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "error=authentication_required") {
		t.Fatalf("unexpected redirect: %q", loc)
	}
}
