package handlers

import (
	"strings"

	"github.com/nsyszr/rtdb/pkg/api/resource"
	"github.com/nsyszr/rtdb/pkg/realtime/dispatch"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	"github.com/nsyszr/rtdb/pkg/storage"
	log "github.com/sirupsen/logrus"
)

func (h *CommandHandlers) handleQueryUsers(ctx *dispatch.Context, cmd *proto.Command) (interface{}, error) {
	users, err := h.store.Users().FetchAll()
	if err != nil {
		log.Errorf("handler failed to fetch users: %v", err)
		return nil, proto.NewStorageError("could not fetch users")
	}

	return resource.NewUserList(users), nil
}

func (h *CommandHandlers) handleUpdateUser(ctx *dispatch.Context, cmd *proto.Command) (interface{}, error) {
	var payload proto.UpdateUserCommand
	if err := ctx.Bind(cmd, &payload); err != nil {
		return nil, err
	}

	user, err := h.store.Users().FindByID(payload.ID)
	if err == storage.ErrNotFound {
		return nil, proto.NewNotFoundError("User not found")
	}
	if err != nil {
		log.Errorf("handler failed to find user: %v", err)
		return nil, proto.NewStorageError("could not fetch user")
	}

	if payload.FirstName != nil {
		user.FirstName = *payload.FirstName
	}
	if payload.LastName != nil {
		user.LastName = *payload.LastName
	}
	if payload.Email != nil {
		user.Email = *payload.Email
	}

	if err := h.store.Users().Update(user); err != nil {
		log.Errorf("handler failed to update user: %v", err)
		return nil, proto.NewStorageError(err.Error())
	}

	h.notifyUserChanged(user.ID)

	return resource.NewUser(user), nil
}

// notifyUserChanged pushes the current user list to the affected user's own
// connections and to connections holding an administrative role. User lists
// are identity-scoped, unlike role lists they are not broadcast globally.
func (h *CommandHandlers) notifyUserChanged(userID string) {
	users, err := h.store.Users().FetchAll()
	if err != nil {
		log.Errorf("handler failed to fetch users for notification: %v", err)
		return
	}

	adminRoleIDs := h.adminRoleIDs()
	userList := resource.NewUserList(users)
	h.notifier.Notify("users",
		func(conn *registry.Connection) bool {
			identity := conn.Identity()
			if identity == nil {
				return false
			}
			return identity.UserID == userID || identity.HasAnyRole(adminRoleIDs)
		},
		func(*registry.Connection) interface{} { return userList })
}

func (h *CommandHandlers) adminRoleIDs() map[string]struct{} {
	ids := make(map[string]struct{})

	roles, err := h.store.Roles().FetchAll()
	if err != nil {
		log.Errorf("handler failed to fetch roles: %v", err)
		return ids
	}

	for id, role := range roles {
		if strings.EqualFold(role.Name, "admin") {
			ids[id] = struct{}{}
		}
	}
	return ids
}
