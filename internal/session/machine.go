package session

import (
	"context"
	"sync"

	"nusantaraedu/gateway/internal/authgw"
	"nusantaraedu/gateway/internal/backend"
	"nusantaraedu/gateway/internal/credential"
	"nusantaraedu/gateway/internal/model"
)

// Machine drives the auth lifecycle of a single session. Actions call
// the auth gateway and then dispatch the resulting event; the credential
// store itself is written by the gateway service, the machine only
// mirrors it in memory. All methods are safe for concurrent use.
type Machine struct {
	mu      sync.RWMutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

func NewMachine() *Machine {
	return &Machine{subs: make(map[int]func(State))}
}

// State returns the current snapshot.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn to run after every state change and returns a
// cancel func. fn is invoked synchronously while no lock is held.
func (m *Machine) Subscribe(fn func(State)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Machine) dispatch(ev event) State {
	m.mu.Lock()
	m.state = reduce(m.state, ev)
	next := m.state
	listeners := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// Hydrate seeds the machine from persisted credentials. A record with a
// token and a structurally valid user is trusted immediately; server
// verification happens later via CheckAuth. Anything partial stays
// anonymous, the store has already cleaned itself up on load.
func (m *Machine) Hydrate(rec credential.Record) {
	if rec.Authenticated() && rec.User.Structural() {
		m.dispatch(event{kind: eventAuthSuccess, record: rec})
		return
	}
	m.dispatch(event{kind: eventLogout})
}

// Login authenticates, advancing through loading into either the
// authenticated or the failed state. The error is both recorded in the
// state and returned so callers can shape their own response.
func (m *Machine) Login(ctx context.Context, svc *authgw.Service, username, password string) error {
	m.dispatch(event{kind: eventAuthStart})
	rec, err := svc.Login(ctx, username, password)
	if err != nil {
		m.dispatch(event{kind: eventAuthFailure, message: errorMessage(err)})
		return err
	}
	m.dispatch(event{kind: eventAuthSuccess, record: rec})
	return nil
}

func (m *Machine) Register(ctx context.Context, svc *authgw.Service, input authgw.RegisterInput) error {
	m.dispatch(event{kind: eventAuthStart})
	rec, err := svc.Register(ctx, input)
	if err != nil {
		m.dispatch(event{kind: eventAuthFailure, message: errorMessage(err)})
		return err
	}
	m.dispatch(event{kind: eventAuthSuccess, record: rec})
	return nil
}

// Logout always lands in the anonymous state, even when the revocation
// call fails.
func (m *Machine) Logout(ctx context.Context, svc *authgw.Service) {
	svc.Logout(ctx)
	m.dispatch(event{kind: eventLogout})
}

// Refresh swaps tokens in place. On failure the session is over and the
// machine drops to anonymous.
func (m *Machine) Refresh(ctx context.Context, svc *authgw.Service) error {
	if err := svc.Refresh(ctx); err != nil {
		m.dispatch(event{kind: eventLogout})
		return err
	}
	rec, err := svc.Store().Load(ctx)
	if err != nil {
		m.dispatch(event{kind: eventLogout})
		return err
	}
	m.dispatch(event{kind: eventAuthSuccess, record: rec})
	return nil
}

// UpdateProfile and ChangePassword record their failures in the state
// without collapsing the session: the user is still logged in, the
// action just did not go through.
func (m *Machine) UpdateProfile(ctx context.Context, svc *authgw.Service, input authgw.UpdateProfileInput) (*model.User, error) {
	user, err := svc.UpdateProfile(ctx, input)
	if err != nil {
		m.dispatch(event{kind: eventActionFailure, message: errorMessage(err)})
		return nil, err
	}
	m.dispatch(event{kind: eventUpdateProfile, user: user})
	return user, nil
}

func (m *Machine) ChangePassword(ctx context.Context, svc *authgw.Service, current, next, confirm string) error {
	if err := svc.ChangePassword(ctx, current, next, confirm); err != nil {
		m.dispatch(event{kind: eventActionFailure, message: errorMessage(err)})
		return err
	}
	m.dispatch(event{kind: eventClearError})
	return nil
}

// CheckAuth verifies the current token against the backend. A failed
// check logs the session out; the 401 hook in the client has already
// cleared the persisted credentials by then.
func (m *Machine) CheckAuth(ctx context.Context, svc *authgw.Service) bool {
	m.mu.RLock()
	authed := m.state.IsAuthenticated
	m.mu.RUnlock()
	if !authed {
		return false
	}
	user, school, err := svc.Profile(ctx)
	if err != nil {
		m.dispatch(event{kind: eventLogout})
		return false
	}
	rec, loadErr := svc.Store().Load(ctx)
	if loadErr != nil || !rec.Authenticated() {
		m.dispatch(event{kind: eventLogout})
		return false
	}
	rec.User = user
	if school != nil {
		rec.School = school
	}
	m.dispatch(event{kind: eventAuthSuccess, record: rec})
	return true
}

func (m *Machine) ClearError() {
	m.dispatch(event{kind: eventClearError})
}

func errorMessage(err error) string {
	if apiErr := backend.AsError(err); apiErr != nil {
		return apiErr.Message
	}
	return err.Error()
}
