// Package notifier is the process-wide event bus: subsystems publish
// bitmask event flags, subscribed listeners react synchronously.
package notifier

import (
	"strings"

	"go.uber.org/zap"
)

// Events is a bitmask of state-change flags signalled on the bus.
type Events uint32

const (
	// EventNetifState is signalled on every interface Up/Down transition.
	EventNetifState Events = 1 << iota
	// EventIP6AddressesChanged is signalled when the unicast address set
	// of the interface changes.
	EventIP6AddressesChanged
	// EventIP6MulticastChanged is signalled when the multicast
	// subscription set changes.
	EventIP6MulticastChanged
	// EventRoleChanged is signalled when the device role changes.
	EventRoleChanged
)

func (e Events) String() string {
	if e == 0 {
		return "none"
	}

	names := []string{}
	for _, f := range []struct {
		bit  Events
		name string
	}{
		{EventNetifState, "netif-state"},
		{EventIP6AddressesChanged, "ip6-addresses"},
		{EventIP6MulticastChanged, "ip6-multicast"},
		{EventRoleChanged, "role"},
	} {
		if e&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}

// Contains reports whether all flags in other are set.
func (e Events) Contains(other Events) bool { return e&other == other }

// Callback is a subscribed listener.
type Callback func(Events)

// Notifier fans signalled events out to its subscribers in subscription
// order, synchronously on the caller.
type Notifier struct {
	subscribers []Callback
	log         *zap.SugaredLogger
}

// New creates an event bus.
func New(log *zap.SugaredLogger) *Notifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Notifier{log: log.With(zap.String("module", "notifier"))}
}

// Subscribe registers a listener. Listeners cannot be removed; a subsystem
// that stops simply ignores further events.
func (n *Notifier) Subscribe(cb Callback) {
	n.subscribers = append(n.subscribers, cb)
}

// Signal publishes the given event flags to every listener.
func (n *Notifier) Signal(events Events) {
	if events == 0 {
		return
	}

	n.log.Debugw("signalling events", zap.Stringer("events", events))
	for _, cb := range n.subscribers {
		cb(events)
	}
}
