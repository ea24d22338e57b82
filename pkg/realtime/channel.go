package realtime

import (
	"github.com/nsyszr/rtdb/pkg/realtime/dispatch"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	"github.com/nsyszr/rtdb/pkg/realtime/websocket"
	log "github.com/sirupsen/logrus"
)

// Channel binds one websocket driver to one registry entry and feeds the
// inbound frames through the dispatcher. The single Serve loop is what
// serializes command handling per connection.
type Channel struct {
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	driver     *websocket.Driver
	conn       *registry.Connection
}

// NewChannel registers the connection (unauthenticated at this point) and
// returns the channel serving it.
func NewChannel(reg *registry.Registry, d *dispatch.Dispatcher, driver *websocket.Driver) *Channel {
	ch := &Channel{
		registry:   reg,
		dispatcher: d,
		driver:     driver,
	}
	ch.conn = reg.Register(ch)

	return ch
}

// Send implements registry.Sender by queueing data on the driver's outbox.
func (ch *Channel) Send(data []byte) bool {
	return ch.driver.Push(data)
}

// Serve reads inbound frames until the driver stops. Commands of this
// connection are dispatched in arrival order, one at a time.
func (ch *Channel) Serve() {
	log.Debugf("channel %s serve loop started", ch.conn.ID())
	for {
		select {
		case msg := <-ch.driver.Inbox:
			ch.dispatcher.Dispatch(ch.conn, msg.Data)
		case <-ch.driver.Done():
			log.Debugf("channel %s serve loop stopped", ch.conn.ID())
			return
		}
	}
}

// Close removes the connection from the registry. It is safe to call more
// than once.
func (ch *Channel) Close() {
	ch.registry.Detach(ch.conn.ID())
}
