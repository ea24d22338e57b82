package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/echo"
	"github.com/nats-io/nats.go"
	"github.com/nsyszr/rtdb/pkg/api/resource"
	log "github.com/sirupsen/logrus"
)

// realtimeEventsHandler bridges the NATS change-event subjects to a
// websocket so external consumers can follow mutations without joining the
// command protocol.
func (h *Handler) realtimeEventsHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.nc == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "event bus is not configured",
			})
		}

		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			log.Error("api: failed to upgrade to websocket: ", err)
			return nil
		}
		defer conn.Close()

		doneCh := make(chan struct{})
		var doneOnce sync.Once

		sub, err := h.nc.Subscribe("rtdb.v1.events.*", func(msg *nats.Msg) {
			topic := strings.TrimPrefix(msg.Subject, "rtdb.v1.events.")

			var data interface{}
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return
			}

			event := resource.NewRealtimeEvent(topic, data)
			out, _ := json.Marshal(event)
			if err := wsutil.WriteServerMessage(conn, ws.OpText, out); err != nil {
				log.Error("api: failed to send realtime event: ", err)
				doneOnce.Do(func() { close(doneCh) })
			}
		})
		if err != nil {
			log.Error("api: failed to subscribe for realtime events: ", err)
			return nil
		}
		defer sub.Unsubscribe()

		<-doneCh

		return nil
	}
}
