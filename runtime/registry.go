package runtime

import (
	"sync"

	"mixmatch/contract"
	"mixmatch/domain"
)

type Set map[domain.ConnID]struct{}

type Registry struct {
	mu          sync.RWMutex
	Sessions    map[domain.ConnID]contract.EventSink // map connection -> Sink
	RoomMembers map[domain.RoomCode]Set              // map room to connections
}

func NewRegistry() *Registry {
	return &Registry{
		Sessions:    make(map[domain.ConnID]contract.EventSink),
		RoomMembers: make(map[domain.RoomCode]Set),
	}
}

// Register binds a live connection to the sink its events are written to.
func (r *Registry) Register(connID domain.ConnID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sessions[connID] = sink
}

// Unregister forgets the connection and removes it from every room it was in.
func (r *Registry) Unregister(connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.Sessions, connID)
	for code, members := range r.RoomMembers {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.RoomMembers, code)
		}
	}
}

// Join adds a connection to a room's broadcast set.
// If the room does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Join(code domain.RoomCode, connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.RoomMembers[code]; !ok {
		r.RoomMembers[code] = make(Set)
	}
	r.RoomMembers[code][connID] = struct{}{}
}

// Leave removes a connection from a room and ensures no empty sets are left
// in the room map.
func (r *Registry) Leave(code domain.RoomCode, connID domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.RoomMembers[code]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.RoomMembers, code)
		}
	}
}

// RemoveRoom drops a room's broadcast set and returns its former members.
func (r *Registry) RemoveRoom(code domain.RoomCode) []domain.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.RoomMembers[code]
	delete(r.RoomMembers, code)
	out := make([]domain.ConnID, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

func (r *Registry) SinkFor(connID domain.ConnID) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.Sessions[connID]
	return sink, ok
}

// GetSinksForRoom retrieves all active communication channels for a specific room.
// It performs a two-step lookup:
// 1. Identifies connection IDs associated with the room via RoomMembers.
// 2. Resolves those IDs into actual EventSinks using the Sessions map.
//
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) GetSinksForRoom(code domain.RoomCode) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.RoomMembers[code]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for connID := range members {
		if sink, exists := r.Sessions[connID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}
