package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registry is the in-process map of user -> live websocket connection. It is
// ephemeral by design: rebuilt empty on every process start, best-effort only,
// and never consulted for durable state decisions. One active socket per user;
// a reconnect replaces the previous session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Connection // session id -> connection
	users    map[string]string      // user hex id -> session id
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Connection),
		users:    make(map[string]string),
	}
}

// Attach registers a connection for its user. If a previous session exists it
// is removed and closed after the swap.
func (r *Registry) Attach(conn *Connection) {
	var previous *Connection

	r.mu.Lock()
	if existingID, ok := r.users[conn.UserID.Hex()]; ok {
		if existing := r.sessions[existingID]; existing != nil {
			previous = existing
			r.detachLocked(existingID)
		}
	}
	r.sessions[conn.ID] = conn
	r.users[conn.UserID.Hex()] = conn.ID
	r.mu.Unlock()

	conn.Start()

	if previous != nil {
		previous.Close(4001, "session replaced")
	}
}

// Detach removes a connection if it is still tracked.
func (r *Registry) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.ID)
	r.mu.Unlock()
}

func (r *Registry) detachLocked(sessionID string) {
	conn, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	if current, ok := r.users[conn.UserID.Hex()]; ok && current == sessionID {
		delete(r.users, conn.UserID.Hex())
	}
}

// IsOnline reports whether the user currently has a live connection.
// Presence is advisory only.
func (r *Registry) IsOnline(userID primitive.ObjectID) bool {
	r.mu.RLock()
	_, ok := r.users[userID.Hex()]
	r.mu.RUnlock()
	return ok
}

// Push delivers an event frame to the user's current connection. Returns
// false when the user is offline or the write failed; callers must not treat
// that as an error.
func (r *Registry) Push(userID primitive.ObjectID, event interface{}) bool {
	r.mu.RLock()
	sessionID, ok := r.users[userID.Hex()]
	if !ok {
		r.mu.RUnlock()
		return false
	}
	conn := r.sessions[sessionID]
	r.mu.RUnlock()
	if conn == nil {
		return false
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("WARN: failed to marshal realtime event for user %s: %v", userID.Hex(), err)
		return false
	}
	return conn.Send(payload) == nil
}

// Close terminates all tracked connections and clears the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		sessions = append(sessions, conn)
	}
	r.sessions = make(map[string]*Connection)
	r.users = make(map[string]string)
	r.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "server shutdown")
	}
}
