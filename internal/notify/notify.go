// Package notify fans internal events out to best-effort delivery
// channels. Delivery is one attempt per channel per event; failures are
// logged and never reach the caller, and Notify never blocks the
// state transition that produced the event.
package notify

import (
	"sync"
	"time"

	applog "voltmart/internal/log"
)

const (
	EventOrderCreated    = "OrderCreated"
	EventOrderCancelled  = "OrderCancelled"
	EventTicketCreated   = "TicketCreated"
	EventTicketAssigned  = "TicketAssigned"
	EventTicketCancelled = "TicketCancelled"
	EventTicketCompleted = "TicketCompleted"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type Target struct {
	Channel string
	Address string
}

type Event struct {
	Type       string
	Payload    map[string]any
	Targets    []Target
	OccurredAt time.Time
	// Forward marks the event for the external automation webhook.
	// Events carrying customer secrets (completion codes) stay internal.
	Forward bool
}

// Channel delivers one event to one address.
type Channel interface {
	Name() string
	Send(addr string, ev Event) error
}

// Forwarder pushes a whole event to an external automation endpoint.
type Forwarder interface {
	Forward(ev Event) error
}

type Notifier struct {
	channels  map[string]Channel
	forwarder Forwarder
	wg        sync.WaitGroup
}

// New registers the given channels; nil entries are skipped so disabled
// channels cost nothing to wire.
func New(forwarder Forwarder, channels ...Channel) *Notifier {
	n := &Notifier{channels: make(map[string]Channel), forwarder: forwarder}
	for _, ch := range channels {
		if ch != nil {
			n.channels[ch.Name()] = ch
		}
	}
	return n
}

// Notify dispatches each target on its own goroutine. Callers invoke it
// strictly after their own commit; a channel outage can therefore never
// roll back or delay a state transition.
func (n *Notifier) Notify(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	for _, tgt := range ev.Targets {
		ch, ok := n.channels[tgt.Channel]
		if !ok || tgt.Address == "" {
			continue
		}
		n.wg.Add(1)
		go func(ch Channel, addr string) {
			defer n.wg.Done()
			if err := ch.Send(addr, ev); err != nil {
				applog.Error(nil, "notify.deliver.fail", err, map[string]any{
					"channel": ch.Name(), "event": ev.Type,
				})
				return
			}
			applog.Info(nil, "notify.deliver", map[string]any{
				"channel": ch.Name(), "event": ev.Type,
			})
		}(ch, tgt.Address)
	}
	if ev.Forward && n.forwarder != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.forwarder.Forward(ev); err != nil {
				applog.Error(nil, "notify.webhook.fail", err, map[string]any{"event": ev.Type})
			}
		}()
	}
}

// Wait blocks until in-flight deliveries finish (shutdown and tests).
func (n *Notifier) Wait() { n.wg.Wait() }
