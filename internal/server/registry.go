package server

import (
	"sync"
)

// Registry maps an account id to the set of live connections owned by that
// account. A user with several tabs or devices holds several entries under
// the same id. The registry is process-local and rebuilt from nothing on
// restart; clients simply reconnect.
type Registry struct {
	mu    sync.RWMutex
	conns map[int]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[int]map[*Client]struct{}),
	}
}

// Register records c under its user's id. Registering the same client twice
// is a no-op, so a reconnect path can never produce a duplicate entry.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[c.user.Id] == nil {
		r.conns[c.user.Id] = make(map[*Client]struct{})
	}
	r.conns[c.user.Id][c] = struct{}{}
}

// Unregister removes c from whichever id owns it. Removing the last
// connection for an id drops the id entirely. Unregistering an unknown
// client is a no-op.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userConns, ok := r.conns[c.user.Id]
	if !ok {
		return
	}

	delete(userConns, c)
	if len(userConns) == 0 {
		delete(r.conns, c.user.Id)
	}
}

// ClientsFor returns the current live connections for userId, empty if the
// user is not connected.
func (r *Registry) ClientsFor(userId int) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.conns[userId]))
	for c := range r.conns[userId] {
		clients = append(clients, c)
	}

	return clients
}

func (r *Registry) IsOnline(userId int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[userId]) > 0
}

// NumOnline is the number of distinct users with at least one connection.
func (r *Registry) NumOnline() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}
