// Package authgw exposes the backend's auth operations as typed calls and
// keeps the credential store synchronized: every successful call writes the
// returned credentials before it resolves, and no failure leaves a partial
// write behind.
package authgw

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nusantaraedu/gateway/internal/backend"
	"nusantaraedu/gateway/internal/credential"
	"nusantaraedu/gateway/internal/model"
)

type Service struct {
	client *backend.Client
	store  *credential.Store
	now    func() time.Time
}

// New binds the dispatcher to the session's credential store. A 401 from any
// call through this client clears the store, which is what forces the next
// guarded navigation back to the landing page.
func New(client *backend.Client, store *credential.Store) *Service {
	bound := client.WithCredentials(store, func(ctx context.Context) {
		_ = store.Clear(ctx)
	})
	return &Service{client: bound, store: store, now: time.Now}
}

// Client returns the store-bound dispatcher for non-auth backend calls made
// on behalf of the same session.
func (s *Service) Client() *backend.Client {
	return s.client
}

// Store returns the credential store this service writes through.
func (s *Service) Store() *credential.Store {
	return s.store
}

type authData struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refreshToken"`
	User         *model.User   `json:"user"`
	School       *model.School `json:"school"`
	ExpiresIn    int           `json:"expiresIn"`
}

type authEnvelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    authData `json:"data"`
}

type statusEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Login authenticates and stores the full credential record, stamping the
// login time.
func (s *Service) Login(ctx context.Context, username, password string) (credential.Record, error) {
	if username == "" || password == "" {
		return credential.Record{}, &backend.Error{
			Code:    backend.CodeValidation,
			Message: "Username dan password wajib diisi.",
		}
	}

	var env authEnvelope
	err := s.client.Do(ctx, backend.RequestConfig{
		Method:   http.MethodPost,
		Endpoint: "/auth/login",
		Body:     map[string]string{"username": username, "password": password},
	}, &env)
	if err != nil {
		return credential.Record{}, refineLoginError(err)
	}

	rec, err := s.storeAuthData(ctx, env.Data)
	if err != nil {
		return credential.Record{}, err
	}
	return rec, nil
}

// RegisterInput holds the principal registration form. NPSN identifies the
// school and must be exactly 8 digits; that rule is enforced here, before
// any network traffic.
type RegisterInput struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	NPSN        string `json:"npsn"`
}

// Register creates a principal account. Registration auto-authenticates, so
// the storage contract matches Login.
func (s *Service) Register(ctx context.Context, input RegisterInput) (credential.Record, error) {
	if err := validateRegisterInput(input); err != nil {
		return credential.Record{}, err
	}

	var env authEnvelope
	err := s.client.Do(ctx, backend.RequestConfig{
		Method:   http.MethodPost,
		Endpoint: "/auth/register",
		Body:     input,
	}, &env)
	if err != nil {
		return credential.Record{}, refineRegisterError(err)
	}

	rec, err := s.storeAuthData(ctx, env.Data)
	if err != nil {
		return credential.Record{}, err
	}
	return rec, nil
}

// Logout notifies the backend best-effort and clears the store regardless of
// the outcome: a failed network call must never leave stale credentials
// behind.
func (s *Service) Logout(ctx context.Context) {
	var env statusEnvelope
	_ = s.client.Post(ctx, "/auth/logout", nil, &env)
	_ = s.store.Clear(ctx)
}

// Refresh exchanges the stored refresh token for a new access token. Any
// failure clears the store the same way Logout does; there is no
// half-refreshed state.
func (s *Service) Refresh(ctx context.Context) error {
	rec, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if rec.RefreshToken == "" {
		_ = s.store.Clear(ctx)
		return &backend.Error{
			Code:    backend.CodeUnauthorized,
			Message: "Sesi Anda telah berakhir. Silakan masuk kembali.",
		}
	}

	var env authEnvelope
	err = s.client.Do(ctx, backend.RequestConfig{
		Method:   http.MethodPost,
		Endpoint: "/auth/refresh-token",
		Body:     map[string]string{"refreshToken": rec.RefreshToken},
	}, &env)
	if err != nil {
		_ = s.store.Clear(ctx)
		return err
	}
	return s.store.SaveTokens(ctx, env.Data.Token, env.Data.RefreshToken)
}

type profileEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		User   *model.User   `json:"user"`
		School *model.School `json:"school"`
	} `json:"data"`
}

// Profile reads the server-side user record and writes it through to the
// store. Token and school entries are untouched.
func (s *Service) Profile(ctx context.Context) (*model.User, *model.School, error) {
	var env profileEnvelope
	if err := s.client.Get(ctx, "/auth/profile", nil, &env); err != nil {
		return nil, nil, err
	}
	if env.Data.User != nil {
		if err := s.store.SaveUser(ctx, env.Data.User); err != nil {
			return nil, nil, err
		}
	}
	return env.Data.User, env.Data.School, nil
}

// UpdateProfileInput carries the editable user fields.
type UpdateProfileInput struct {
	FullName       string `json:"fullName,omitempty"`
	Email          string `json:"email,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func (s *Service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*model.User, error) {
	var env profileEnvelope
	if err := s.client.Put(ctx, "/auth/profile", input, &env); err != nil {
		return nil, err
	}
	if env.Data.User != nil {
		if err := s.store.SaveUser(ctx, env.Data.User); err != nil {
			return nil, err
		}
	}
	return env.Data.User, nil
}

func (s *Service) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if next != confirm {
		return &backend.Error{
			Code:    backend.CodeValidation,
			Message: "Konfirmasi password baru tidak cocok.",
		}
	}
	var env statusEnvelope
	return s.client.Put(ctx, "/auth/change-password", map[string]string{
		"current_password": current,
		"new_password":     next,
		"confirm_password": confirm,
	}, &env)
}

// DashboardInfo is the landing payload for an authenticated principal. Stats
// and activity shapes are owned by the backend and passed through.
type DashboardInfo struct {
	User           *model.User     `json:"user"`
	School         *model.School   `json:"school"`
	Stats          json.RawMessage `json:"stats"`
	Permissions    []string        `json:"permissions"`
	LastActivities json.RawMessage `json:"lastActivities"`
}

func (s *Service) DashboardInfo(ctx context.Context) (*DashboardInfo, error) {
	var env struct {
		Success bool          `json:"success"`
		Message string        `json:"message"`
		Data    DashboardInfo `json:"data"`
	}
	if err := s.client.Get(ctx, "/auth/dashboard-info", nil, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// storeAuthData persists a login/register payload as one record. Nothing is
// written when the payload is structurally incomplete.
func (s *Service) storeAuthData(ctx context.Context, data authData) (credential.Record, error) {
	if data.Token == "" || !data.User.Structural() {
		return credential.Record{}, &backend.Error{
			Code:    backend.CodeServer,
			Message: "Respon server tidak lengkap. Silakan coba lagi.",
		}
	}
	now := s.now().UTC()
	rec := credential.Record{
		Token:        data.Token,
		RefreshToken: data.RefreshToken,
		User:         data.User,
		School:       data.School,
		LastLogin:    &now,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return credential.Record{}, err
	}
	return rec, nil
}
