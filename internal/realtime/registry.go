package realtime

import "sync"

// Registry tracks which connections are members of which rooms. It is the
// only shared mutable state of the realtime subsystem; every mutation happens
// under a single lock so no caller can observe a half-applied membership
// change. The registry has no process-wide singleton: it is constructed once
// at start-up and injected into the hub.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // room key -> connection ids
	conns map[string]map[string]struct{} // connection id -> room keys
}

// NewRegistry constructs an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the room. Joining a room the connection is
// already a member of is a no-op success.
func (r *Registry) Join(connID, room string) {
	room = normalizeRoom(room)
	if connID == "" || room == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]struct{})
	}
	r.rooms[room][connID] = struct{}{}

	if r.conns[connID] == nil {
		r.conns[connID] = make(map[string]struct{})
	}
	r.conns[connID][room] = struct{}{}
}

// Leave removes the connection from the room. Leaving a room the connection
// never joined is a no-op success so disconnect races cannot fail.
func (r *Registry) Leave(connID, room string) {
	room = normalizeRoom(room)
	if connID == "" || room == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connID, room)
}

// LeaveAll removes the connection from every room it is a member of in one
// logical step and returns the rooms that were left. Invoked exactly once per
// connection lifecycle, at disconnect.
func (r *Registry) LeaveAll(connID string) []string {
	if connID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.conns[connID]
	if len(joined) == 0 {
		delete(r.conns, connID)
		return nil
	}

	left := make([]string, 0, len(joined))
	for room := range joined {
		left = append(left, room)
		r.removeLocked(connID, room)
	}
	return left
}

// MembersOf returns a snapshot of the connection ids currently in the room.
// Callers may iterate the result while joins and leaves proceed concurrently.
func (r *Registry) MembersOf(room string) []string {
	room = normalizeRoom(room)
	if room == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	if len(members) == 0 {
		return nil
	}

	snapshot := make([]string, 0, len(members))
	for connID := range members {
		snapshot = append(snapshot, connID)
	}
	return snapshot
}

// Rooms returns a snapshot of the rooms the connection is currently in.
func (r *Registry) Rooms(connID string) []string {
	if connID == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.conns[connID]
	if len(joined) == 0 {
		return nil
	}

	snapshot := make([]string, 0, len(joined))
	for room := range joined {
		snapshot = append(snapshot, room)
	}
	return snapshot
}

func (r *Registry) removeLocked(connID, room string) {
	if members := r.rooms[room]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}

	if joined := r.conns[connID]; joined != nil {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.conns, connID)
		}
	}
}
