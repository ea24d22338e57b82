package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsyszr/rtdb/pkg/auth"
	log "github.com/sirupsen/logrus"
)

// Sender is the transport-side send capability of a connection. Send must
// not block; it reports false when the message had to be dropped.
type Sender interface {
	Send(data []byte) bool
}

// Connection is one live client session. It is owned by the registry from
// registration until detach and is only mutated to attach or detach the
// authenticated identity.
type Connection struct {
	id        string
	sender    Sender
	createdAt time.Time

	mu       sync.RWMutex
	identity *auth.Identity
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) CreatedAt() time.Time {
	return c.createdAt
}

// Identity returns the attached identity or nil for an unauthenticated
// connection.
func (c *Connection) Identity() *auth.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

func (c *Connection) IsAuthenticated() bool {
	return c.Identity() != nil
}

func (c *Connection) setIdentity(identity *auth.Identity) {
	c.mu.Lock()
	c.identity = identity
	c.mu.Unlock()
}

// Registry is the thread-safe set of live connections. The structural lock
// is never held across a send, a slow client cannot stall registration or
// removal of others.
type Registry struct {
	sync.RWMutex
	connections map[string]*Connection
}

func New() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
	}
}

// Register adds a new unauthenticated connection and returns it. It never
// fails.
func (r *Registry) Register(sender Sender) *Connection {
	conn := &Connection{
		id:        uuid.New().String(),
		sender:    sender,
		createdAt: time.Now().Round(time.Second).UTC(),
	}

	r.Lock()
	r.connections[conn.id] = conn
	r.Unlock()

	log.Infof("registry added connection %s", conn.id)
	return conn
}

// AttachIdentity tags a connection with an authenticated identity. It is
// idempotent and overwrites any prior identity (re-login).
func (r *Registry) AttachIdentity(id string, identity *auth.Identity) {
	r.RLock()
	conn, ok := r.connections[id]
	r.RUnlock()
	if !ok {
		return
	}

	conn.setIdentity(identity)
}

// DetachIdentity removes the identity tag from a connection (logout). The
// connection itself stays registered.
func (r *Registry) DetachIdentity(id string) {
	r.RLock()
	conn, ok := r.connections[id]
	r.RUnlock()
	if !ok {
		return
	}

	conn.setIdentity(nil)
}

// Detach removes the connection entirely. Calling it again for the same id
// is a no-op.
func (r *Registry) Detach(id string) {
	r.Lock()
	_, ok := r.connections[id]
	delete(r.connections, id)
	r.Unlock()

	if ok {
		log.Infof("registry removed connection %s", id)
	}
}

// Get looks up a connection by id.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.RLock()
	defer r.RUnlock()
	conn, ok := r.connections[id]
	return conn, ok
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()
	return len(r.connections)
}

// Snapshot returns a point-in-time copy of the registered connections.
func (r *Registry) Snapshot() []*Connection {
	r.RLock()
	defer r.RUnlock()

	conns := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	return conns
}

// Send delivers a message to one connection, best effort. A connection that
// disconnected concurrently is silently skipped, that race is defined
// behavior and not an error.
func (r *Registry) Send(id string, data []byte) bool {
	r.RLock()
	conn, ok := r.connections[id]
	r.RUnlock()
	if !ok {
		return false
	}

	return conn.sender.Send(data)
}

// Broadcast delivers factory(conn) to every connection of a point-in-time
// snapshot that satisfies the predicate. Connections added or removed during
// the broadcast are neither duplicated nor an error; sends happen outside
// the structural lock. It returns the number of delivered messages.
func (r *Registry) Broadcast(predicate func(*Connection) bool, factory func(*Connection) ([]byte, error)) int {
	delivered := 0
	for _, conn := range r.Snapshot() {
		if predicate != nil && !predicate(conn) {
			continue
		}

		data, err := factory(conn)
		if err != nil {
			log.Errorf("registry failed to build broadcast message for %s: %v", conn.ID(), err)
			continue
		}

		if conn.sender.Send(data) {
			delivered++
		}
	}
	return delivered
}
