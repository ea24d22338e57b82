package notify

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nsyszr/rtdb/pkg/realtime/proto"
	"github.com/nsyszr/rtdb/pkg/realtime/registry"
	log "github.com/sirupsen/logrus"
)

const eventSubjectPrefix = "rtdb.v1.events."

// Notifier pushes entity updates to interested connections after a handler
// committed a mutation. The interest predicate is supplied per notification
// because it encodes business rules the notifier knows nothing about. When a
// NATS connection is configured, a change event is additionally published on
// the integration bus.
type Notifier struct {
	registry *registry.Registry
	nc       *nats.Conn
}

// New creates a notifier. nc may be nil, the bus publication is optional.
func New(reg *registry.Registry, nc *nats.Conn) *Notifier {
	return &Notifier{
		registry: reg,
		nc:       nc,
	}
}

// Notify pushes a notification of the current state of entity type to every
// connection satisfying the predicate. The payload is built per connection
// so identity-scoped views stay possible. Delivery is best effort and
// independent of the mutator's own response, the mutator may receive its
// change twice.
func (n *Notifier) Notify(entity string, predicate func(*registry.Connection) bool, payloadFactory func(*registry.Connection) interface{}) int {
	delivered := n.registry.Broadcast(predicate, func(conn *registry.Connection) ([]byte, error) {
		msg := proto.Notification{
			Type:    entity,
			Payload: payloadFactory(conn),
		}
		return msg.Marshal()
	})

	log.Infof("notifier pushed '%s' update to %d connection(s)", entity, delivered)
	n.publishEvent(entity)

	return delivered
}

// NotifyAll pushes the same payload of entity type to every connection.
func (n *Notifier) NotifyAll(entity string, payload interface{}) int {
	return n.Notify(entity,
		func(*registry.Connection) bool { return true },
		func(*registry.Connection) interface{} { return payload })
}

type changeEvent struct {
	Entity     string    `json:"entity"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (n *Notifier) publishEvent(entity string) {
	if n.nc == nil {
		return
	}

	event := changeEvent{
		Entity:     entity,
		OccurredAt: time.Now().Round(time.Second).UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("notifier failed to marshal change event: %v", err)
		return
	}

	if err := n.nc.Publish(eventSubjectPrefix+entity, data); err != nil {
		log.Errorf("notifier could not publish change event: %v", err)
	}
}
