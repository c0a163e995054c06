// Package sync delivers file-state changes to a user's connected
// devices: a registry of live realtime connections, a websocket gateway
// that feeds it, and broker consumers that translate domain events into
// pushes.
package sync

import (
	"context"
	"sync"
)

// Conn is one live device connection able to receive pushes.
type Conn interface {
	Send(ctx context.Context, v any) error
}

// Envelope is the wire format of a push.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Registry exclusively owns the user-to-connections mapping. Register,
// Unregister and Broadcast are its only mutation entry points; all state
// is guarded by the mutex. The registry is per-process and in-memory: it
// does not survive restart and does not coordinate across instances.
type Registry struct {
	mu    sync.Mutex
	users map[string]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]map[string]Conn)}
}

// Register adds a connection to the owning user's device set.
func (r *Registry) Register(userID, connID string, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]Conn)
		r.users[userID] = set
	}
	set[connID] = c
}

// Unregister removes a connection; an emptied user entry is removed
// entirely so no dangling empty groups persist.
func (r *Registry) Unregister(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.users[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
	}
}

// Broadcast sends an identical copy of the event to every connection
// currently in the user's set and returns the number of deliveries
// attempted. A user with no live connections silently drops the event:
// there is no store-and-forward.
func (r *Registry) Broadcast(ctx context.Context, userID, event string, payload any) int {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.users[userID]))
	for _, c := range r.users[userID] {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	env := Envelope{Event: event, Data: payload}
	for _, c := range conns {
		// Send failures are the connection's problem; the read loop
		// will observe the broken conn and unregister it.
		_ = c.Send(ctx, env)
	}
	return len(conns)
}

// Devices returns the number of live connections for a user.
func (r *Registry) Devices(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users[userID])
}

// Total returns the number of live connections across all users.
func (r *Registry) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, set := range r.users {
		total += len(set)
	}
	return total
}
