package netif

import (
	"net/netip"

	"github.com/lowpan-platform/meshcp/mac"
	"github.com/lowpan-platform/meshcp/notifier"
)

// Radio is the link-layer driver surface the lifecycle touches.
type Radio interface {
	SetEnabled(enabled bool)
}

// Forwarder is the packet forwarding engine.
type Forwarder interface {
	Start() error
	Stop() error
}

// ChannelMonitor observes link quality and channel occupancy. Optional.
type ChannelMonitor interface {
	Start() error
	Stop() error
}

// RoutingStateMachine is the slice of the routing protocol the lifecycle
// drives.
type RoutingStateMachine interface {
	Enable() error
	Disable() error
	// Rloc16 returns this device's own routing locator.
	Rloc16() mac.ShortAddr
	// IsMeshLocalAddress reports whether the address is covered by the
	// mesh-local prefix.
	IsMeshLocalAddress(addr netip.Addr) bool
}

// Transport is a management transport started and stopped with the
// interface.
type Transport interface {
	Start() error
	Stop() error
}

// AuxiliaryClient is an optional client service (DNS, SNTP) tied to the
// interface lifecycle.
type AuxiliaryClient interface {
	Start() error
	Stop() error
}

// RouteProvider is the network-data route computation the interface
// delegates lookups to.
type RouteProvider interface {
	RouteLookup(src, dst netip.Addr) (uint8, mac.ShortAddr, error)
}

// EventSink receives the interface-state-changed signal.
type EventSink interface {
	Signal(events notifier.Events)
}
