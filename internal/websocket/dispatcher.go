package websocket

import (
	"context"
	"encoding/json"

	"log/slog"
)

// Journal records dispatched events for offline consumers (push, analytics).
// Implementations must not block fan-out; failures are theirs to log.
type Journal interface {
	Record(chatID uint, eventType string, payload []byte)
}

// Dispatcher fans one chat event out to every live connection of the
// resolved recipients. A dead connection for one recipient never aborts
// delivery to the others: failed sends are logged, the connection is evicted
// from the registry, and nothing is reported to the caller.
//
// Whether the sender's own connections receive the echo is the call site's
// choice: the Dispatcher delivers to every recipient it is given.
type Dispatcher struct {
	registry *Registry
	journal  Journal // optional
}

func NewDispatcher(registry *Registry, journal Journal) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		journal:  journal,
	}
}

// Broadcast serializes the event once per recipient (the is_self flag varies
// by recipient) and attempts a non-blocking send on each of that recipient's
// connections.
func (d *Dispatcher) Broadcast(ctx context.Context, event Event, recipients []uint) {
	senderID, hasSender := event.Sender()

	for _, userID := range recipients {
		conns := d.registry.ConnectionsFor(userID)
		if len(conns) == 0 {
			continue
		}

		isSelf := hasSender && userID == senderID
		data, err := json.Marshal(frameFor(event, isSelf))
		if err != nil {
			slog.Error("Failed to marshal event frame", "type", event.Type(), "chatID", event.Chat(), "error", err)
			continue
		}

		for _, client := range conns {
			if err := client.Send(data); err != nil {
				slog.Warn("Evicting dead connection",
					"clientID", client.ID(), "userID", userID, "chatID", event.Chat(), "error", err)
				d.registry.Remove(userID, client)
			}
		}
	}

	if d.journal != nil {
		data, err := json.Marshal(frameFor(event, false))
		if err == nil {
			d.journal.Record(event.Chat(), event.Type().String(), data)
		}
	}
}
