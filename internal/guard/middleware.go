package guard

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"nusantaraedu/gateway/internal/credential"
	"nusantaraedu/gateway/internal/model"
)

// Middleware is the edge guard. It runs before routing, reads only the
// cookie surface and redirects unauthenticated or unauthorized
// navigations without touching the backend.
func Middleware(next http.Handler) http.Handler {
	return middlewareAt(time.Now, next)
}

func middlewareAt(now func() time.Time, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if Excluded(path) {
			next.ServeHTTP(w, r)
			return
		}

		raw := cookieValue(r, credential.KeyToken)
		hint := hintFromToken(raw, now())

		if Protected(path) {
			if !hint.valid {
				redirectToLanding(w, r, path, "error", "authentication_required")
				return
			}
			if hint.expired {
				// Stale cookies would loop the user straight back here.
				credential.ClearCredentialCookies(w)
				redirectToLanding(w, r, path, "reason", "token_expired")
				return
			}
			if user := cookieUser(r); user != nil && !RoleAllowed(path, user.Role) {
				http.Redirect(w, r, "/unauthorized", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if Public(path) && hint.valid && !hint.expired {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func redirectToLanding(w http.ResponseWriter, r *http.Request, returnURL, param, value string) {
	q := url.Values{}
	q.Set("returnUrl", returnURL)
	q.Set(param, value)
	http.Redirect(w, r, "/?"+q.Encode(), http.StatusFound)
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return v
}

// cookieUser decodes the mirrored user cookie. A missing or corrupt
// cookie yields nil; the component-level guard will enforce roles then.
func cookieUser(r *http.Request) *model.User {
	raw := cookieValue(r, credential.KeyUser)
	if raw == "" {
		return nil
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}
