package handlers

import (
	"github.com/nsyszr/rtdb/pkg/api/resource"
	"github.com/nsyszr/rtdb/pkg/realtime/dispatch"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	"github.com/nsyszr/rtdb/pkg/storage"
	log "github.com/sirupsen/logrus"
)

func (h *CommandHandlers) handleQueryRoles(ctx *dispatch.Context, cmd *proto.Command) (interface{}, error) {
	roles, err := h.store.Roles().FetchAll()
	if err != nil {
		log.Errorf("handler failed to fetch roles: %v", err)
		return nil, proto.NewStorageError("could not fetch roles")
	}

	return resource.NewRoleList(roles), nil
}

func (h *CommandHandlers) handleUpdateRole(ctx *dispatch.Context, cmd *proto.Command) (interface{}, error) {
	var payload proto.UpdateRoleCommand
	if err := ctx.Bind(cmd, &payload); err != nil {
		return nil, err
	}

	role, err := h.store.Roles().FindByID(payload.ID)
	if err == storage.ErrNotFound {
		return nil, proto.NewNotFoundError("Role not found")
	}
	if err != nil {
		log.Errorf("handler failed to find role: %v", err)
		return nil, proto.NewStorageError("could not fetch role")
	}

	role.Name = payload.Name
	if err := h.store.Roles().Update(role); err != nil {
		log.Errorf("handler failed to update role: %v", err)
		return nil, proto.NewStorageError(err.Error())
	}

	h.notifyRoleChanged(role.ID)

	return resource.NewRole(role), nil
}

// notifyRoleChanged pushes the current role list to everyone (role lists are
// global) and, when at least one user holds the changed role, the current
// user list to exactly the connections whose identity holds it.
func (h *CommandHandlers) notifyRoleChanged(roleID string) {
	roles, err := h.store.Roles().FetchAll()
	if err != nil {
		log.Errorf("handler failed to fetch roles for notification: %v", err)
		return
	}
	h.notifier.NotifyAll("roles", resource.NewRoleList(roles))

	users, err := h.store.Users().FetchAll()
	if err != nil {
		log.Errorf("handler failed to fetch users for notification: %v", err)
		return
	}

	roleInUse := false
	for _, user := range users {
		if user.HasRole(roleID) {
			roleInUse = true
			break
		}
	}
	if !roleInUse {
		return
	}

	userList := resource.NewUserList(users)
	h.notifier.Notify("users",
		func(conn *registry.Connection) bool {
			identity := conn.Identity()
			return identity != nil && identity.HasRole(roleID)
		},
		func(*registry.Connection) interface{} { return userList })
}
