package realtime

import (
	"sync"

	"github.com/mcoot/roomhub/internal/model"
)

// Conn is a live client connection handle
type Conn interface {
	// ID uniquely identifies the connection for logging and equality checks
	ID() string
	// Send queues a serialized frame for delivery
	Send(data []byte) error
	// Ping sends a keepalive probe
	Ping() error
	// IsOpen reports whether the connection can still accept frames
	IsOpen() bool
}

// Scope groups connections by the room they are attributed to
type Scope string

// NoRoom is the scope of connections that are not in any room
const NoRoom Scope = "\x00no-room"

// RoomScope returns the scope for a room
func RoomScope(roomID model.RoomID) Scope {
	if roomID == "" {
		return NoRoom
	}
	return Scope(roomID)
}

// RoomID returns the room the scope refers to, or empty for NoRoom
func (s Scope) RoomID() model.RoomID {
	if s == NoRoom {
		return ""
	}
	return model.RoomID(s)
}

// Entry is a single registry binding
type Entry struct {
	Scope    Scope
	PlayerID model.PlayerID
	Conn     Conn
}

// Registry tracks which connection each player is reachable on and in which scope.
// A player has at most one entry across all scopes.
type Registry struct {
	mu     sync.RWMutex
	scopes map[Scope]map[model.PlayerID]Conn
	index  map[model.PlayerID]Scope
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		scopes: make(map[Scope]map[model.PlayerID]Conn),
		index:  make(map[model.PlayerID]Scope),
	}
}

// Add binds the player to conn under scope, removing any binding the player had elsewhere
func (r *Registry) Add(scope Scope, playerID model.PlayerID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.index[playerID]; ok && prev != scope {
		r.deleteLocked(prev, playerID)
	}
	bucket, ok := r.scopes[scope]
	if !ok {
		bucket = make(map[model.PlayerID]Conn)
		r.scopes[scope] = bucket
	}
	bucket[playerID] = conn
	r.index[playerID] = scope
}

// Remove deletes the player's binding under scope and returns the connection it held
func (r *Registry) Remove(scope Scope, playerID model.PlayerID) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(scope, playerID)
}

// RemoveIf deletes the binding only while it still points at conn.
// A stale socket closing late must not evict the player's newer connection.
func (r *Registry) RemoveIf(scope Scope, playerID model.PlayerID, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.scopes[scope][playerID]
	if !ok || current != conn {
		return false
	}
	r.deleteLocked(scope, playerID)
	return true
}

// Move rebinds the player's connection from one scope to another, but only while
// the binding still lives under from. It returns the moved connection.
func (r *Registry) Move(from, to Scope, playerID model.PlayerID) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.scopes[from][playerID]
	if !ok {
		return nil, false
	}
	if from == to {
		return conn, true
	}
	r.deleteLocked(from, playerID)
	bucket, ok := r.scopes[to]
	if !ok {
		bucket = make(map[model.PlayerID]Conn)
		r.scopes[to] = bucket
	}
	bucket[playerID] = conn
	r.index[playerID] = to
	return conn, true
}

func (r *Registry) deleteLocked(scope Scope, playerID model.PlayerID) (Conn, bool) {
	bucket, ok := r.scopes[scope]
	if !ok {
		return nil, false
	}
	conn, ok := bucket[playerID]
	if !ok {
		return nil, false
	}
	delete(bucket, playerID)
	if len(bucket) == 0 {
		delete(r.scopes, scope)
	}
	if r.index[playerID] == scope {
		delete(r.index, playerID)
	}
	return conn, true
}

// List returns a snapshot of the scope's bindings
func (r *Registry) List(scope Scope) map[model.PlayerID]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.scopes[scope]
	snapshot := make(map[model.PlayerID]Conn, len(bucket))
	for id, conn := range bucket {
		snapshot[id] = conn
	}
	return snapshot
}

// Get returns the player's connection under scope
func (r *Registry) Get(scope Scope, playerID model.PlayerID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.scopes[scope][playerID]
	return conn, ok
}

// Lookup finds the player's binding in whichever scope it lives
func (r *Registry) Lookup(playerID model.PlayerID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	scope, ok := r.index[playerID]
	if !ok {
		return Entry{}, false
	}
	return Entry{Scope: scope, PlayerID: playerID, Conn: r.scopes[scope][playerID]}, true
}

// EntriesFor returns every binding held by conn
func (r *Registry) EntriesFor(conn Conn) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []Entry
	for scope, bucket := range r.scopes {
		for id, c := range bucket {
			if c == conn {
				entries = append(entries, Entry{Scope: scope, PlayerID: id, Conn: c})
			}
		}
	}
	return entries
}

// Len returns the number of bindings
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}

// ScopeCount returns the number of non-empty scopes
func (r *Registry) ScopeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes)
}
