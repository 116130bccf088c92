package websocket

import "sync"

// Registry maps a user id to the set of live connections currently open for
// that user. It is the only piece of state shared across connection
// goroutines; all mutation goes through Add and Remove, and readers only ever
// see snapshots.
//
// Invariant: a user id key exists iff its connection set is non-empty.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uint]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uint]map[*Client]struct{}),
	}
}

// Add idempotently inserts the connection into the user's set, creating the
// set if absent. It cannot fail.
func (r *Registry) Add(userID uint, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.sessions[userID] = set
	}
	set[client] = struct{}{}
}

// Remove deletes the connection from the user's set and drops the user entry
// when the set empties. Removing an absent connection or an unknown user is a
// no-op so disconnection races are safe.
func (r *Registry) Remove(userID uint, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[userID]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(r.sessions, userID)
	}
}

// ConnectionsFor returns a snapshot of the user's live connections. Callers
// never see the underlying set, so a concurrent Add or Remove cannot break
// their iteration; a connection may be stale by the time it is used, and the
// send path treats that as a delivery failure.
func (r *Registry) ConnectionsFor(userID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.sessions[userID]
	if !ok {
		return nil
	}

	conns := make([]*Client, 0, len(set))
	for client := range set {
		conns = append(conns, client)
	}
	return conns
}

// Online reports whether the user has at least one live connection.
func (r *Registry) Online(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[userID]
	return ok
}

// ActiveClients snapshots every live connection across all users. Used for
// graceful shutdown.
func (r *Registry) ActiveClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var clients []*Client
	for _, set := range r.sessions {
		for client := range set {
			clients = append(clients, client)
		}
	}
	return clients
}
