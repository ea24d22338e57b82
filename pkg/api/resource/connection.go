package resource

import (
	"sort"
	"time"

	"github.com/nsyszr/rtdb/pkg/realtime/registry"
)

type ConnectionResource struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	UserID        string    `json:"userId,omitempty"`
	Username      string    `json:"username,omitempty"`
	ConnectedAt   time.Time `json:"connectedAt"`
}

type ConnectionListResource struct {
	Members []*ConnectionResource `json:"members"`
}

func NewConnection(conn *registry.Connection) (out *ConnectionResource) {
	out = &ConnectionResource{
		ID:          conn.ID(),
		ConnectedAt: conn.CreatedAt(),
	}

	if identity := conn.Identity(); identity != nil {
		out.Authenticated = true
		out.UserID = identity.UserID
		out.Username = identity.Username
	}

	return // out
}

func NewConnectionList(conns []*registry.Connection) (out *ConnectionListResource) {
	out = &ConnectionListResource{
		Members: make([]*ConnectionResource, 0),
	}

	for _, conn := range conns {
		out.Members = append(out.Members, NewConnection(conn))
	}

	// Default sort by connect time, oldest first
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ConnectedAt.Before(out.Members[j].ConnectedAt)
	})

	return // out
}
