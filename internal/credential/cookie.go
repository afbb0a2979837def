package credential

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// cookieKeys is the subset of the record mirrored to the cookie surface. The
// refresh token and last-login timestamp never leave the persistent area.
var cookieKeys = []string{KeyToken, KeyUser, KeySchool}

// CookieSink writes the edge-readable surface onto the live response. Values
// are URL-encoded because user and school are JSON blobs.
type CookieSink struct {
	w      http.ResponseWriter
	r      *http.Request
	maxAge time.Duration
	secure bool

	// pending lets reads within the same request observe writes made before
	// the response is sent.
	pending map[string]string
}

func NewCookieSink(w http.ResponseWriter, r *http.Request, maxAge time.Duration, secure bool) *CookieSink {
	return &CookieSink{w: w, r: r, maxAge: maxAge, secure: secure, pending: map[string]string{}}
}

func (c *CookieSink) mirrored(key string) bool {
	for _, k := range cookieKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (c *CookieSink) Set(_ context.Context, key, value string) error {
	if !c.mirrored(key) {
		return nil
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
	})
	c.pending[key] = value
	return nil
}

func (c *CookieSink) Get(_ context.Context, key string) (string, error) {
	if value, ok := c.pending[key]; ok {
		return value, nil
	}
	cookie, err := c.r.Cookie(key)
	if err != nil {
		return "", nil
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return "", nil
	}
	return value, nil
}

func (c *CookieSink) Clear(_ context.Context) error {
	for _, key := range cookieKeys {
		http.SetCookie(c.w, &http.Cookie{
			Name:     key,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			SameSite: http.SameSiteLaxMode,
			Secure:   c.secure,
		})
		c.pending[key] = ""
	}
	return nil
}

// ClearCredentialCookies expires the mirrored cookies on a response that is
// not going through a Store (the edge guard's stale-cookie cleanup).
func ClearCredentialCookies(w http.ResponseWriter) {
	for _, key := range cookieKeys {
		http.SetCookie(w, &http.Cookie{
			Name:     key,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
