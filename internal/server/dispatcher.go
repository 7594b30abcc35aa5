package server

import (
	"log"

	"github.com/npeters/go-taskroom/internal/stats"
)

// Dispatcher delivers targeted events to whatever connections a user
// currently holds. Delivery is best-effort and at-most-once per open
// connection: an offline target is a silent no-op, a full send buffer is a
// drop. It never blocks the caller, so a write path that fires an event
// cannot be failed or slowed by it.
type Dispatcher struct {
	registry *Registry
	log      *log.Logger
	stats    stats.StatsProvider
}

func NewDispatcher(registry *Registry, logger *log.Logger, sp stats.StatsProvider) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		log:      logger,
		stats:    sp,
	}
}

// DeliverToUser sends (event, data) to every live connection registered for
// userId. Zero connections means zero sends and no error.
func (d *Dispatcher) DeliverToUser(userId int, event string, data any) {
	clients := d.registry.ClientsFor(userId)
	if len(clients) == 0 {
		// target offline: expected, not a failure
		return
	}

	msg := &ServerEvent{
		Event:     event,
		Data:      data,
		Timestamp: Now(),
	}

	for _, c := range clients {
		if c.queueEvent(msg) {
			d.stats.Incr("NumEventsDelivered")
		} else {
			d.log.Printf("dropped %q event for user %d: send buffer full", event, userId)
		}
	}
}
