package chat

import (
	"sync"
)

// Registry owns every index of live connections on this node:
//
//	conns     — all registered clients
//	byUser    — user id -> its clients (multi-device)
//	byRoom    — room id -> clients currently in the room
//	userRooms — user id -> room ids with at least one of their clients
//	roomUsers — room id -> user ids with at least one client in it
//
// The membership indices are derived: a (user, room) pair exists iff
// pairCount for it is positive. All mutation funnels through Connect
// and Disconnect so that a reader never observes a half-updated state;
// nothing blocking happens under the lock.
type Registry struct {
	mu        sync.RWMutex
	conns     map[*Client]struct{}
	byUser    map[string]map[*Client]struct{}
	byRoom    map[string]map[*Client]struct{}
	userRooms map[string]map[string]struct{}
	roomUsers map[string]map[string]struct{}
	pairCount map[memberKey]int
}

type memberKey struct {
	user string
	room string
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[*Client]struct{}),
		byUser:    make(map[string]map[*Client]struct{}),
		byRoom:    make(map[string]map[*Client]struct{}),
		userRooms: make(map[string]map[string]struct{}),
		roomUsers: make(map[string]map[string]struct{}),
		pairCount: make(map[memberKey]int),
	}
}

// Connect registers c under every index its identity and room call
// for. Registering an already-registered client is a programming
// error upstream; it is ignored here rather than corrupting counts.
func (r *Registry) Connect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; ok {
		return
	}
	r.conns[c] = struct{}{}

	if c.UserID != "" {
		m := r.byUser[c.UserID]
		if m == nil {
			m = make(map[*Client]struct{})
			r.byUser[c.UserID] = m
		}
		m[c] = struct{}{}
	}

	if c.RoomID != "" {
		m := r.byRoom[c.RoomID]
		if m == nil {
			m = make(map[*Client]struct{})
			r.byRoom[c.RoomID] = m
		}
		m[c] = struct{}{}

		if c.UserID != "" {
			key := memberKey{user: c.UserID, room: c.RoomID}
			r.pairCount[key]++
			if r.pairCount[key] == 1 {
				addPair(r.userRooms, c.UserID, c.RoomID)
				addPair(r.roomUsers, c.RoomID, c.UserID)
			}
		}
	}
}

// Disconnect removes c from every index, pruning entries that become
// empty. It is idempotent: the router reaches this from several exit
// paths and a second call must be a no-op.
func (r *Registry) Disconnect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; !ok {
		return
	}
	delete(r.conns, c)

	if c.UserID != "" {
		if m := r.byUser[c.UserID]; m != nil {
			delete(m, c)
			if len(m) == 0 {
				delete(r.byUser, c.UserID)
			}
		}
	}

	if c.RoomID != "" {
		if m := r.byRoom[c.RoomID]; m != nil {
			delete(m, c)
			if len(m) == 0 {
				delete(r.byRoom, c.RoomID)
			}
		}

		if c.UserID != "" {
			key := memberKey{user: c.UserID, room: c.RoomID}
			if r.pairCount[key] > 0 {
				r.pairCount[key]--
				if r.pairCount[key] == 0 {
					delete(r.pairCount, key)
					removePair(r.userRooms, c.UserID, c.RoomID)
					removePair(r.roomUsers, c.RoomID, c.UserID)
				}
			}
		}
	}
}

// LookupUser returns a snapshot of the user's live clients; empty
// means offline. The slice is the caller's to keep.
func (r *Registry) LookupUser(user string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byUser[user])
}

// LookupRoom returns a snapshot of the clients in a room.
func (r *Registry) LookupRoom(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.byRoom[room])
}

// All returns a snapshot of every registered client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.conns))
	for c := range r.conns {
		out = append(out, c)
	}
	return out
}

// RoomsOf lists the rooms the user currently occupies.
func (r *Registry) RoomsOf(user string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.userRooms[user])
}

// UsersOf lists the users currently present in a room.
func (r *Registry) UsersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.roomUsers[room])
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func snapshot(m map[*Client]struct{}) []*Client {
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}

func keys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func addPair(idx map[string]map[string]struct{}, k, v string) {
	m := idx[k]
	if m == nil {
		m = make(map[string]struct{})
		idx[k] = m
	}
	m[v] = struct{}{}
}

func removePair(idx map[string]map[string]struct{}, k, v string) {
	if m := idx[k]; m != nil {
		delete(m, v)
		if len(m) == 0 {
			delete(idx, k)
		}
	}
}
