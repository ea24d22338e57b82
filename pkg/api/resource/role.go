package resource

import (
	"sort"
	"time"

	"github.com/nsyszr/rtdb/pkg/model"
)

type RoleResource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RoleListResource struct {
	Members []*RoleResource `json:"members"`
}

func NewRole(m *model.Role) (out *RoleResource) {
	out = &RoleResource{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	return // out
}

func NewRoleList(m map[string]model.Role) (out *RoleListResource) {
	out = &RoleListResource{
		Members: make([]*RoleResource, 0),
	}

	for _, elem := range m {
		elem := elem
		out.Members = append(out.Members, NewRole(&elem))
	}

	// Default sort by name
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].Name < out.Members[j].Name
	})

	return // out
}
