// Package credential keeps the session's credential record on two surfaces
// at once: a cookie surface the edge route guard can read, and a persistent
// key-value surface that survives across requests. Every mutation goes
// through the Store so no call site can update one surface and forget the
// other.
package credential

import (
	"context"
	"encoding/json"
	"time"

	"nusantaraedu/gateway/internal/model"
)

const (
	KeyToken        = "nusantara_edu_token"
	KeyRefreshToken = "nusantara_edu_refresh_token"
	KeyUser         = "nusantara_edu_user"
	KeySchool       = "nusantara_edu_school"
	KeyLastLogin    = "nusantara_edu_last_login"
)

// Record is the persisted credential set. Token and User are both present or
// both absent; anything else is partial state and gets cleared on load.
type Record struct {
	Token        string
	RefreshToken string
	User         *model.User
	School       *model.School
	LastLogin    *time.Time
}

func (r Record) Authenticated() bool {
	return r.Token != "" && r.User.Structural()
}

// Sink is one storage surface. A sink may ignore keys outside its subset
// (the cookie surface mirrors only token, user and school).
type Sink interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Clear(ctx context.Context) error
}

// Store fans every mutation out to all sinks. Reads come from the primary
// (persistent) sink.
type Store struct {
	primary Sink
	sinks   []Sink
}

func NewStore(primary Sink, mirrors ...Sink) *Store {
	return &Store{primary: primary, sinks: append([]Sink{primary}, mirrors...)}
}

func (s *Store) set(ctx context.Context, key, value string) error {
	for _, sink := range s.sinks {
		if err := sink.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the full record to every surface.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if err := s.set(ctx, KeyToken, rec.Token); err != nil {
		return err
	}
	if rec.RefreshToken != "" {
		if err := s.set(ctx, KeyRefreshToken, rec.RefreshToken); err != nil {
			return err
		}
	}
	userJSON, err := json.Marshal(rec.User)
	if err != nil {
		return err
	}
	if err := s.set(ctx, KeyUser, string(userJSON)); err != nil {
		return err
	}
	if rec.School != nil {
		schoolJSON, err := json.Marshal(rec.School)
		if err != nil {
			return err
		}
		if err := s.set(ctx, KeySchool, string(schoolJSON)); err != nil {
			return err
		}
	}
	if rec.LastLogin != nil {
		if err := s.set(ctx, KeyLastLogin, rec.LastLogin.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

// SaveUser replaces only the stored user (profile updates); token and school
// are untouched.
func (s *Store) SaveUser(ctx context.Context, user *model.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.set(ctx, KeyUser, string(userJSON))
}

// SaveTokens replaces the access and refresh tokens after a refresh
// exchange; the user record is untouched.
func (s *Store) SaveTokens(ctx context.Context, token, refreshToken string) error {
	if err := s.set(ctx, KeyToken, token); err != nil {
		return err
	}
	if refreshToken != "" {
		return s.set(ctx, KeyRefreshToken, refreshToken)
	}
	return nil
}

// Load reads the record from the persistent surface. Partial state (a token
// without a user, or the reverse) is cleared everywhere and reported as an
// anonymous record.
func (s *Store) Load(ctx context.Context) (Record, error) {
	var rec Record
	token, err := s.primary.Get(ctx, KeyToken)
	if err != nil {
		return rec, err
	}
	rec.Token = token

	if raw, err := s.primary.Get(ctx, KeyUser); err == nil && raw != "" {
		var user model.User
		if json.Unmarshal([]byte(raw), &user) == nil {
			rec.User = &user
		}
	}

	if (rec.Token == "") != (rec.User == nil) {
		if err := s.Clear(ctx); err != nil {
			return Record{}, err
		}
		return Record{}, nil
	}
	if rec.Token == "" {
		return Record{}, nil
	}

	if raw, err := s.primary.Get(ctx, KeyRefreshToken); err == nil {
		rec.RefreshToken = raw
	}
	if raw, err := s.primary.Get(ctx, KeySchool); err == nil && raw != "" {
		var school model.School
		if json.Unmarshal([]byte(raw), &school) == nil {
			rec.School = &school
		}
	}
	if raw, err := s.primary.Get(ctx, KeyLastLogin); err == nil && raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			rec.LastLogin = &parsed
		}
	}
	return rec, nil
}

// Clear wipes every surface.
func (s *Store) Clear(ctx context.Context) error {
	var firstErr error
	for _, sink := range s.sinks {
		if err := sink.Clear(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Token implements backend.TokenSource.
func (s *Store) Token(ctx context.Context) string {
	token, err := s.primary.Get(ctx, KeyToken)
	if err != nil {
		return ""
	}
	return token
}
