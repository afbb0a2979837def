// Package server is the HTTP surface of the gateway: the browser-facing
// pages behind the route guard and the /api/auth endpoints the dashboard
// frontend calls.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"nusantaraedu/gateway/internal/authgw"
	"nusantaraedu/gateway/internal/backend"
	"nusantaraedu/gateway/internal/config"
	"nusantaraedu/gateway/internal/credential"
	"nusantaraedu/gateway/internal/guard"
	"nusantaraedu/gateway/internal/model"
	"nusantaraedu/gateway/internal/session"
)

// SessionCookie names the gateway's own session ID cookie. It carries
// an opaque ID only; credentials live in the store keyed by it.
const SessionCookie = "nusantara_edu_sid"

// SinkFactory builds the credential surfaces for one request. The
// default wires a Redis hash as the persistent surface with the
// response's cookies as mirror; tests swap in memory sinks.
type SinkFactory func(w http.ResponseWriter, r *http.Request, sid string) (credential.Sink, []credential.Sink)

type Server struct {
	cfg      config.Config
	client   *backend.Client
	registry *session.Registry
	sinks    SinkFactory
}

func NewServer(cfg config.Config, client *backend.Client, rdb *redis.Client, registry *session.Registry) *Server {
	return &Server{
		cfg:      cfg,
		client:   client,
		registry: registry,
		sinks: func(w http.ResponseWriter, r *http.Request, sid string) (credential.Sink, []credential.Sink) {
			primary := credential.NewRedisSink(rdb, sid, cfg.SessionTTL)
			mirror := credential.NewCookieSink(w, r, cfg.CookieMaxAge, cfg.CookieSecure)
			return primary, []credential.Sink{mirror}
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
			r.Post("/logout", s.handleLogout)
			r.Post("/refresh-token", s.handleRefresh)
			r.Get("/profile", s.handleProfile)
			r.Put("/profile", s.handleUpdateProfile)
			r.Put("/change-password", s.handleChangePassword)
			r.Get("/dashboard-info", s.handleDashboardInfo)
			r.Get("/session", s.handleSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware)

			r.Get("/", s.pageLanding)
			r.Get("/login", s.pageLanding)
			r.Get("/register", s.pageLanding)
			r.Get("/about", s.pageStatic("Tentang NusantaraEdu"))
			r.Get("/contact", s.pageStatic("Hubungi Kami"))
			r.Get("/unauthorized", s.pageUnauthorized)

			r.With(s.requireSession).Get("/dashboard", s.pageDashboard)
			r.With(s.requireSession).Get("/dashboard/*", s.pageDashboard)
			r.With(s.requireSession).Get("/profile", s.pageProfile)
			r.With(s.requireSession).Get("/settings", s.pageStatic("Pengaturan"))
			r.With(s.requireSession).Get("/settings/*", s.pageStatic("Pengaturan"))
			r.With(s.requireSession, s.requireRoles(model.RoleAdmin)).Get("/admin/*", s.pageDashboard)
			r.With(s.requireSession, s.requireRoles(model.RolePrincipal)).Get("/principal/*", s.pageDashboard)
		})
	})

	return r
}

type ctxKey int

const sessionKey ctxKey = 1

type requestSession struct {
	sid     string
	machine *session.Machine
	svc     *authgw.Service
}

// withSession resolves the gateway session for the request: mints the
// session cookie on first contact, builds the per-request credential
// store and hydrates the machine when it is new to this process.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid := s.sessionID(w, r)
		primary, mirrors := s.sinks(w, r, sid)
		store := credential.NewStore(primary, mirrors...)
		svc := authgw.New(s.client, store)

		machine, existed := s.registry.Get(sid)
		if !existed {
			rec, err := store.Load(r.Context())
			if err != nil {
				// Keep the machine out of the registry so the next
				// request retries hydration; this one stays anonymous.
				s.registry.Evict(sid)
			} else {
				machine.Hydrate(rec)
			}
		}

		ctx := context.WithValue(r.Context(), sessionKey, &requestSession{sid: sid, machine: machine, svc: svc})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

func fromContext(r *http.Request) *requestSession {
	rs, _ := r.Context().Value(sessionKey).(*requestSession)
	return rs
}

func (s *Server) lookupState(r *http.Request) session.State {
	if rs := fromContext(r); rs != nil {
		return rs.machine.State()
	}
	return session.State{}
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return guard.RequireSession(s.lookupState, next)
}

func (s *Server) requireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return guard.RequireRoles(s.lookupState, roles, next)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	rs := fromContext(r)
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Permintaan tidak valid.")
		return
	}
	if err := rs.machine.Login(r.Context(), rs.svc, req.Username, req.Password); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(rs.machine.State()))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	rs := fromContext(r)
	var input authgw.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Permintaan tidak valid.")
		return
	}
	if err := rs.machine.Register(r.Context(), rs.svc, input); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(rs.machine.State()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	rs := fromContext(r)
	rs.machine.Logout(r.Context(), rs.svc)
	s.registry.Evict(rs.sid)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout berhasil."})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	rs := fromContext(r)
	if err := rs.machine.Refresh(r.Context(), rs.svc); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(rs.machine.State()))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	rs := fromContext(r)
	user, school, err := rs.svc.Profile(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user, "school": school})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	rs := fromContext(r)
	var input authgw.UpdateProfileInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Permintaan tidak valid.")
		return
	}
	user, err := rs.machine.UpdateProfile(r.Context(), rs.svc, input)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	rs := fromContext(r)
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Permintaan tidak valid.")
		return
	}
	if err := rs.machine.ChangePassword(r.Context(), rs.svc, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password berhasil diubah."})
}

func (s *Server) handleDashboardInfo(w http.ResponseWriter, r *http.Request) {
	rs := fromContext(r)
	info, err := rs.svc.DashboardInfo(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleSession lets the frontend read its current auth state without
// hitting the backend.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionPayload(s.lookupState(r)))
}

func sessionPayload(state session.State) map[string]interface{} {
	payload := map[string]interface{}{
		"isAuthenticated": state.IsAuthenticated,
	}
	if state.User != nil {
		payload["user"] = state.User
	}
	if state.School != nil {
		payload["school"] = state.School
	}
	if state.LastLogin != nil {
		payload["lastLogin"] = state.LastLogin
	}
	if state.Error != "" {
		payload["error"] = state.Error
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// writeBackendError translates the dispatcher's error taxonomy into a
// gateway response. Transport-level failures have no upstream status, so
// they map onto the gateway's own 502/504.
func writeBackendError(w http.ResponseWriter, err error) {
	apiErr := backend.AsError(err)
	if apiErr == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Terjadi kesalahan pada server.")
		return
	}
	status := apiErr.Status
	if status < 400 {
		// Locally constructed errors carry no upstream status.
		switch apiErr.Code {
		case backend.CodeValidation:
			status = http.StatusBadRequest
		case backend.CodeUnauthorized:
			status = http.StatusUnauthorized
		case backend.CodeForbidden:
			status = http.StatusForbidden
		case backend.CodeNotFound:
			status = http.StatusNotFound
		case backend.CodeConflict:
			status = http.StatusConflict
		case backend.CodeRateLimited:
			status = http.StatusTooManyRequests
		case backend.CodeTimeout:
			status = http.StatusGatewayTimeout
		case backend.CodeNetwork, backend.CodeDownload:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}
	payload := map[string]interface{}{
		"error":   strings.ToLower(string(apiErr.Code)),
		"message": apiErr.Message,
	}
	if len(apiErr.Details) > 0 {
		payload["details"] = apiErr.Details
	}
	writeJSON(w, status, payload)
}
