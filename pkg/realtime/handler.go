package realtime

import (
	"github.com/gobwas/ws"
	"github.com/labstack/echo"
	"github.com/nsyszr/rtdb/pkg/realtime/dispatch"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	"github.com/nsyszr/rtdb/pkg/realtime/websocket"
	log "github.com/sirupsen/logrus"
)

// Handler contains all properties to serve the realtime endpoint
type Handler struct {
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
}

// NewHandler creates a new realtime endpoint handler
func NewHandler(reg *registry.Registry, d *dispatch.Dispatcher) *Handler {
	return &Handler{
		registry:   reg,
		dispatcher: d,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register realtime routes")
	api := e.Group("/realtime")
	api.Any("/v1", h.connectionHandler())
}

func (h *Handler) connectionHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			return err
		}
		defer conn.Close()

		terminateCh := make(chan struct{})
		driver := websocket.NewDriver(conn, terminateCh)
		driver.Start()
		defer driver.Close()

		ch := NewChannel(h.registry, h.dispatcher, driver)
		defer ch.Close()
		go ch.Serve()

		<-terminateCh

		log.Debug("handler exit realtime connection handler func")
		return nil
	}
}
