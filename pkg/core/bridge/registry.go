package bridge

import (
	"errors"
	"sync"
)

// ErrNotFound is returned when no live bridge exists for a call id.
var ErrNotFound = errors.New("bridge: call not found")

// ErrAlreadyStarted is returned by Start on a bridge whose loops are
// already running.
var ErrAlreadyStarted = errors.New("bridge: already started")

// ErrStopped is returned by Start on a bridge that was already torn
// down.
var ErrStopped = errors.New("bridge: stopped")

// Registry maps call ids to their live bridge instances. Live
// connection handles hang off the bridge, never off the durable
// session record.
type Registry struct {
	mu      sync.RWMutex
	bridges map[string]*Bridge
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bridges: make(map[string]*Bridge)}
}

// Put registers a bridge under its call id.
func (r *Registry) Put(callID string, b *Bridge) {
	r.mu.Lock()
	r.bridges[callID] = b
	r.mu.Unlock()
}

// Get returns the live bridge for a call id.
func (r *Registry) Get(callID string) (*Bridge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bridges[callID]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

// Remove drops a bridge from the registry.
func (r *Registry) Remove(callID string) {
	r.mu.Lock()
	delete(r.bridges, callID)
	r.mu.Unlock()
}

// Len returns the number of live bridges.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bridges)
}
