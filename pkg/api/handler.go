package api

import (
	"net/http"

	"github.com/labstack/echo"
	"github.com/nats-io/nats.go"
	"github.com/nsyszr/rtdb/pkg/api/resource"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	"github.com/nsyszr/rtdb/pkg/storage"
	log "github.com/sirupsen/logrus"
)

// Handler contains all properties to serve the API
type Handler struct {
	nc       *nats.Conn
	store    storage.Interface
	registry *registry.Registry
}

// NewHandler create a new API handler
func NewHandler(nc *nats.Conn, store storage.Interface, reg *registry.Registry) *Handler {
	return &Handler{
		nc:       nc,
		store:    store,
		registry: reg,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")
	api := e.Group("/api/v1")
	api.GET("/roles", h.handleFetchRoles)
	api.GET("/users", h.handleFetchUsers)
	api.GET("/connections", h.handleFetchConnections)

	api.Any("/realtime-events", h.realtimeEventsHandler())
}

func (h *Handler) handleFetchRoles(c echo.Context) error {
	m, err := h.store.Roles().FetchAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewRoleList(m))
}

func (h *Handler) handleFetchUsers(c echo.Context) error {
	m, err := h.store.Users().FetchAll()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, resource.NewUserList(m))
}

func (h *Handler) handleFetchConnections(c echo.Context) error {
	return c.JSON(http.StatusOK, resource.NewConnectionList(h.registry.Snapshot()))
}
