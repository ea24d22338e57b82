package websocket

import (
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	log "github.com/sirupsen/logrus"
)

type Flag int

const (
	FlagContinue Flag = iota
	FlagCloseGracefully
	FlagTerminate
)

type OutboxMessage struct {
	Flag Flag
	Data []byte
}

type InboxMessage struct {
	Data []byte
}

// Driver owns the raw websocket connection. One goroutine reads text frames
// into Inbox, a second one writes Outbox messages back to the client.
// Everything above the driver talks channels only.
type Driver struct {
	conn   net.Conn
	Inbox  chan *InboxMessage
	Outbox chan *OutboxMessage

	terminateCh    chan<- struct{}
	terminatedOnce sync.Once

	stopCh   chan struct{}
	stopOnce sync.Once

	wg sync.WaitGroup
}

func NewDriver(conn net.Conn, terminateCh chan<- struct{}) *Driver {
	return &Driver{
		conn:        conn,
		Inbox:       make(chan *InboxMessage, 100),
		Outbox:      make(chan *OutboxMessage, 100),
		terminateCh: terminateCh,
		stopCh:      make(chan struct{}),
	}
}

func (driver *Driver) Start() {
	driver.wg.Add(1)
	go driver.inboxHandler()
	driver.wg.Add(1)
	go driver.outboxHandler()
}

func (driver *Driver) Close() {
	driver.wg.Wait()
	log.Debug("websocket driver closed")
}

func (driver *Driver) Stop() {
	log.Debug("websocket driver stop called")
	driver.safeCloseTerminateChannel()
}

// Done is closed when the driver stops, regardless of which side closed the
// connection.
func (driver *Driver) Done() <-chan struct{} {
	return driver.stopCh
}

// Push queues data for delivery to the client. It reports false when the
// outbox buffer is full and the message was dropped.
func (driver *Driver) Push(data []byte) bool {
	select {
	case driver.Outbox <- NewOutboxMessage(FlagContinue, data):
		return true
	default:
		return false
	}
}

func (driver *Driver) closeHandler() {
	log.Debug("websocket driver closeHandler called")
	defer driver.wg.Done()
	driver.safeCloseTerminateChannel()
	driver.safeCloseStopChannel()
}

func (driver *Driver) safeCloseTerminateChannel() {
	driver.terminatedOnce.Do(func() {
		close(driver.terminateCh)
	})
}

func (driver *Driver) safeCloseStopChannel() {
	driver.stopOnce.Do(func() {
		close(driver.stopCh)
	})
}

func (driver *Driver) inboxHandler() {
	defer driver.closeHandler()

	state := ws.StateServerSide
	ch := wsutil.ControlFrameHandler(driver.conn, state)

	r := &wsutil.Reader{
		Source:         driver.conn,
		State:          state,
		CheckUTF8:      true,
		OnIntermediate: ch,
	}

	for {
		h, err := r.NextFrame()
		if err != nil {
			log.Errorf("websocket read message error: %v", err)
			return
		}

		// Handle operation control frames before continuation.
		if h.OpCode.IsControl() {
			// On OpClose the socket was closed by the client and the
			// handler can exit.
			if h.OpCode == ws.OpClose {
				log.Info("websocket connection closed gracefully")
				return
			}

			if err = ch(h, r); err != nil {
				log.Errorf("websocket handles control frame error: %v", err)
				return
			}
			continue
		}

		req, err := io.ReadAll(r)
		if err != nil {
			log.Errorf("websocket read error: %v", err)
			return
		}

		select {
		case driver.Inbox <- NewInboxMessage(req):
		case <-driver.stopCh:
			return
		}
	}
}

func (driver *Driver) outboxHandler() {
	defer driver.closeHandler()

	state := ws.StateServerSide
	w := wsutil.NewWriter(driver.conn, state, 0)

	for {
		select {
		case res := <-driver.Outbox:
			log.Debugf("websocket writes outbox message with flag %d", res.Flag)
			if err := webSocketWriteText(driver.conn, w, state, res.Data); err != nil {
				log.Errorf("websocket terminates because of write error: %s", err.Error())
				return
			}

			switch res.Flag {
			case FlagCloseGracefully:
				log.Info("websocket handled outbox message but closes gracefully")
				webSocketCloseGraceful(driver.conn, w, state)
				return
			case FlagTerminate:
				log.Info("websocket handled outbox message but terminates")
				return
			}
		case <-driver.stopCh:
			return
		}
	}
}

func webSocketWriteText(conn net.Conn, w *wsutil.Writer, state ws.State, data []byte) error {
	var err error

	w.Reset(conn, state, ws.OpText)
	if _, err = w.Write(data); err == nil {
		err = w.Flush()
	}
	if err != nil {
		return err
	}

	return nil
}

func webSocketCloseGraceful(conn net.Conn, w *wsutil.Writer, state ws.State) error {
	log.Info("websocket graceful close initiated")

	w.Reset(conn, state, ws.OpClose)

	var err error
	if _, err = w.Write([]byte("")); err == nil {
		err = w.Flush()
	}
	if err != nil {
		return err
	}

	return nil
}

func NewOutboxMessage(flag Flag, data []byte) *OutboxMessage {
	m := &OutboxMessage{
		Flag: flag,
	}
	if data != nil {
		m.Data = make([]byte, len(data))
		copy(m.Data, data)
	}
	return m
}

func NewInboxMessage(data []byte) *InboxMessage {
	m := &InboxMessage{}
	if data != nil {
		m.Data = make([]byte, len(data))
		copy(m.Data, data)
	}
	return m
}
