package handlers

import (
	"github.com/nsyszr/rtdb/pkg/realtime/dispatch"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	log "github.com/sirupsen/logrus"
)

func (h *CommandHandlers) handleLogin(ctx *dispatch.Context, cmd *proto.Command) (interface{}, error) {
	var payload proto.LoginCommand
	if err := ctx.Bind(cmd, &payload); err != nil {
		return nil, err
	}

	result, err := h.sessions.Login(payload.Username, payload.Password)
	if err != nil {
		return nil, err
	}

	// Tag the connection so pushes can be targeted by identity from now on.
	ctx.Registry.AttachIdentity(ctx.Conn.ID(), result.Identity)
	log.Infof("connection %s authenticated as '%s'", ctx.Conn.ID(), result.Identity.Username)

	return result, nil
}

func (h *CommandHandlers) handleRefresh(ctx *dispatch.Context, cmd *proto.Command) (interface{}, error) {
	var payload proto.RefreshCommand
	if err := ctx.Bind(cmd, &payload); err != nil {
		return nil, err
	}

	result, err := h.sessions.Refresh(payload.RefreshToken)
	if err != nil {
		return nil, err
	}

	ctx.Registry.AttachIdentity(ctx.Conn.ID(), result.Identity)

	return result, nil
}

func (h *CommandHandlers) handleLogout(ctx *dispatch.Context, cmd *proto.Command) (interface{}, error) {
	var payload proto.LogoutCommand
	if err := ctx.Bind(cmd, &payload); err != nil {
		return nil, err
	}

	if err := h.sessions.Logout(payload.RefreshToken); err != nil {
		return nil, err
	}

	ctx.Registry.DetachIdentity(ctx.Conn.ID())
	log.Infof("connection %s logged out", ctx.Conn.ID())

	return nil, nil
}
