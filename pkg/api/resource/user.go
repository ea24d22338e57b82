package resource

import (
	"sort"
	"time"

	"github.com/nsyszr/rtdb/pkg/model"
)

type UserResource struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserListResource struct {
	Members []*UserResource `json:"members"`
}

func NewUser(m *model.User) (out *UserResource) {
	roles := m.RoleIDs
	if roles == nil {
		roles = []string{}
	}

	out = &UserResource{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Roles:     roles,
		CreatedAt: m.CreatedAt,
	}

	return // out
}

func NewUserList(m map[string]model.User) (out *UserListResource) {
	out = &UserListResource{
		Members: make([]*UserResource, 0),
	}

	for _, elem := range m {
		elem := elem
		out.Members = append(out.Members, NewUser(&elem))
	}

	// Default sort by username
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].Username < out.Members[j].Username
	})

	return // out
}
