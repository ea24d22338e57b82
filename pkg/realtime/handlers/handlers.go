package handlers

import (
	"github.com/nsyszr/rtdb/pkg/auth"
	"github.com/nsyszr/rtdb/pkg/realtime/dispatch"
	"github.com/nsyszr/rtdb/pkg/realtime/notify"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	"github.com/nsyszr/rtdb/pkg/storage"
)

// CommandHandlers bundles the business command handlers and their
// dependencies.
type CommandHandlers struct {
	store    storage.Interface
	sessions *auth.SessionManager
	notifier *notify.Notifier
}

func New(store storage.Interface, sessions *auth.SessionManager, notifier *notify.Notifier) *CommandHandlers {
	return &CommandHandlers{
		store:    store,
		sessions: sessions,
		notifier: notifier,
	}
}

// RegisterAll builds the dispatch table. The auth command family is open to
// unauthenticated connections, everything else requires a valid access
// token.
func (h *CommandHandlers) RegisterAll(d *dispatch.Dispatcher) {
	d.Register(proto.CommandTypeLogin, dispatch.HandlerFunc(h.handleLogin))
	d.Register(proto.CommandTypeRefresh, dispatch.HandlerFunc(h.handleRefresh))
	d.Register(proto.CommandTypeLogout, dispatch.HandlerFunc(h.handleLogout))

	d.RegisterAuthenticated(proto.CommandTypeQueryRoles, dispatch.HandlerFunc(h.handleQueryRoles))
	d.RegisterAuthenticated(proto.CommandTypeUpdateRole, dispatch.HandlerFunc(h.handleUpdateRole))
	d.RegisterAuthenticated(proto.CommandTypeQueryUsers, dispatch.HandlerFunc(h.handleQueryUsers))
	d.RegisterAuthenticated(proto.CommandTypeUpdateUser, dispatch.HandlerFunc(h.handleUpdateUser))
}
