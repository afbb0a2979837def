package guard

import (
	"html/template"
	"net/http"

	"nusantaraedu/gateway/internal/model"
	"nusantaraedu/gateway/internal/session"
)

// SessionFunc resolves the hydrated session state for a request. The
// server wires this to the session registry.
type SessionFunc func(r *http.Request) session.State

// RequireSession is the component-level guard. Unlike the edge, it
// consults the hydrated session state, so it also catches sessions whose
// cookies look fine but whose credentials were cleared server-side.
func RequireSession(lookup SessionFunc, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := lookup(r)
		if !state.IsAuthenticated {
			redirectToLanding(w, r, r.URL.Path, "error", "authentication_required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles additionally checks the session's role. An authenticated
// user with the wrong role gets the access-denied view rather than a
// redirect, so they understand why the page will not open.
func RequireRoles(lookup SessionFunc, roles []model.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := lookup(r)
		if !state.IsAuthenticated {
			redirectToLanding(w, r, r.URL.Path, "error", "authentication_required")
			return
		}
		if state.User != nil {
			for _, role := range roles {
				if state.User.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
		}
		renderAccessDenied(w, state)
	})
}

var accessDeniedTmpl = template.Must(template.New("access_denied").Parse(`<!doctype html>
<html lang="id">
<head><meta charset="utf-8"><title>Akses Ditolak - NusantaraEdu</title></head>
<body>
  <main>
    <h1>Akses Ditolak</h1>
    <p>Maaf, Anda tidak memiliki izin untuk mengakses halaman ini.</p>
    {{if .Role}}<p>Peran Anda saat ini: <strong>{{.Role}}</strong></p>{{end}}
    <p>
      <a href="javascript:history.back()">Kembali</a> &middot;
      <a href="/dashboard">Ke Dashboard</a>
    </p>
  </main>
</body>
</html>
`))

func renderAccessDenied(w http.ResponseWriter, state session.State) {
	var role model.Role
	if state.User != nil {
		role = state.User.Role
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_ = accessDeniedTmpl.Execute(w, struct{ Role model.Role }{Role: role})
}
