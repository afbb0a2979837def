package session

import "sync"

// Registry maps gateway session IDs to their machines. Machines are
// created lazily on first sight of a session ID and evicted on logout;
// a re-created machine re-hydrates from the credential store, so
// eviction loses nothing durable.
type Registry struct {
	mu       sync.Mutex
	machines map[string]*Machine
}

func NewRegistry() *Registry {
	return &Registry{machines: make(map[string]*Machine)}
}

// Get returns the machine for sid, creating it if needed. The second
// return reports whether the machine already existed, callers hydrate
// fresh machines from the store before first use.
func (r *Registry) Get(sid string) (*Machine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.machines[sid]
	if !ok {
		m = NewMachine()
		r.machines[sid] = m
	}
	return m, ok
}

// Evict drops the machine for sid.
func (r *Registry) Evict(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.machines, sid)
}

// Len reports the number of live machines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}
