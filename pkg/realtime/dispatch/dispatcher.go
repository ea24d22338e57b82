package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/nsyszr/rtdb/pkg/auth"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	"github.com/nsyszr/rtdb/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// Context carries everything a command handler needs: the originating
// connection, the registry for pushes and a storage handle scoped to the
// request.
type Context struct {
	Registry *registry.Registry
	Conn     *registry.Connection
	Store    storage.Interface

	validate *validator.Validate
}

// Identity returns the identity attached to the originating connection, nil
// for unauthenticated connections.
func (ctx *Context) Identity() *auth.Identity {
	return ctx.Conn.Identity()
}

// Bind decodes the command payload into a typed struct and runs the
// validation tags. Failures are reported as a field-level validation error.
func (ctx *Context) Bind(cmd *proto.Command, v interface{}) error {
	if err := cmd.Decode(v); err != nil {
		return err
	}

	if err := ctx.validate.Struct(v); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return proto.NewValidationError("validation failed")
		}

		details := make([]proto.ErrorDetail, 0, len(ve))
		for _, fe := range ve {
			details = append(details, proto.ErrorDetail{
				Code:    proto.ErrCodeValidation,
				Field:   fe.Field(),
				Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			})
		}
		return proto.NewFieldValidationError(details...)
	}

	return nil
}

// Handler executes one typed command and returns the response payload. Any
// returned error is converted into an error response, it never terminates
// the connection.
type Handler interface {
	Handle(ctx *Context, cmd *proto.Command) (interface{}, error)
}

// HandlerFunc is a tooling for handling incoming commands. It is similar to
// the go http handler implementation and allows middleware handlers like
// ensureAuthenticated.
type HandlerFunc func(ctx *Context, cmd *proto.Command) (interface{}, error)

func (f HandlerFunc) Handle(ctx *Context, cmd *proto.Command) (interface{}, error) {
	return f(ctx, cmd)
}

// Dispatcher resolves inbound command frames against a dispatch table built
// at startup. Dispatch is called from the connection's single reader
// goroutine, so commands on one connection are serialized in arrival order
// while different connections run fully concurrent.
type Dispatcher struct {
	registry *registry.Registry
	store    storage.Interface
	issuer   *auth.Issuer
	validate *validator.Validate
	handlers map[proto.CommandType]Handler
}

func New(reg *registry.Registry, store storage.Interface, issuer *auth.Issuer) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		store:    store,
		issuer:   issuer,
		validate: validator.New(),
		handlers: make(map[proto.CommandType]Handler),
	}
}

// Register adds a handler for a command type to the dispatch table.
func (d *Dispatcher) Register(t proto.CommandType, h Handler) {
	d.handlers[t] = h
}

// RegisterAuthenticated adds a handler that requires a valid access token on
// every command.
func (d *Dispatcher) RegisterAuthenticated(t proto.CommandType, h Handler) {
	d.handlers[t] = d.ensureAuthenticated(h)
}

// ensureAuthenticated validates the access token carried by the command and
// refreshes the identity tag of the connection before calling the next
// handler.
func (d *Dispatcher) ensureAuthenticated(next Handler) Handler {
	return HandlerFunc(func(ctx *Context, cmd *proto.Command) (interface{}, error) {
		if cmd.AuthToken == "" {
			return nil, proto.NewAuthenticationError("Authentication required")
		}

		identity, err := d.issuer.Validate(cmd.AuthToken)
		if err != nil {
			return nil, err
		}

		d.registry.AttachIdentity(ctx.Conn.ID(), identity)
		return next.Handle(ctx, cmd)
	})
}

// Dispatch decodes one inbound frame, routes it to its handler and replies
// to the originating connection. Every well-formed command yields exactly
// one response; failures of any kind are reported inline and the connection
// stays open.
func (d *Dispatcher) Dispatch(conn *registry.Connection, data []byte) {
	cmd, err := proto.UnmarshalCommand(data)
	if err != nil {
		d.reply(conn, proto.NewErrorResponse(salvageReferenceID(data), err))
		return
	}

	handler, ok := d.handlers[cmd.Type]
	if !ok {
		log.Warnf("dispatcher received unknown command type '%s' from %s", cmd.Type, conn.ID())
		d.reply(conn, proto.NewErrorResponse(cmd.ReferenceID,
			proto.NewProtocolError(fmt.Sprintf("unknown command type '%s'", cmd.Type))))
		return
	}

	ctx := &Context{
		Registry: d.registry,
		Conn:     conn,
		Store:    d.store,
		validate: d.validate,
	}

	payload, err := d.safeHandle(handler, ctx, cmd)
	if err != nil {
		d.reply(conn, proto.NewErrorResponse(cmd.ReferenceID, err))
		return
	}

	d.reply(conn, proto.NewResultResponse(cmd.ReferenceID, payload))
}

// safeHandle runs the handler and converts a panic into an error response
// instead of letting it terminate the connection loop.
func (d *Dispatcher) safeHandle(h Handler, ctx *Context, cmd *proto.Command) (payload interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("dispatcher recovered from panic in '%s' handler: %v", cmd.Type, r)
			err = proto.NewStorageError("internal error")
		}
	}()

	return h.Handle(ctx, cmd)
}

func (d *Dispatcher) reply(conn *registry.Connection, res proto.Response) {
	out, err := res.Marshal()
	// This error should happen never! If it happens log an urgent error,
	// there is nothing sensible to send instead.
	if err != nil {
		log.Errorf("dispatcher could not marshal response: %v", err)
		return
	}

	if !d.registry.Send(conn.ID(), out) {
		log.Warnf("dispatcher dropped response for connection %s", conn.ID())
	}
}

// salvageReferenceID extracts the reference id from a frame whose envelope
// failed to decode as a command, so even a protocol error response keeps the
// correlation when possible.
func salvageReferenceID(data []byte) string {
	var envelope struct {
		ReferenceID string `json:"referenceId"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	return envelope.ReferenceID
}
