// Package netif implements the network-interface control plane: the
// Up/Down lifecycle that orders a dozen dependent subsystems, the external
// address bookkeeping, the management-message security filter and the
// route-lookup delegation.
package netif

import (
	"fmt"
	"net/netip"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/lowpan-platform/meshcp/netdata"
	"github.com/lowpan-platform/meshcp/notifier"
)

// Deps are the collaborators the interface controller drives, injected at
// construction. Monitor, SecureTransport and Aux may be nil or empty when
// the corresponding subsystem is not configured.
type Deps struct {
	Radio           Radio
	Monitor         ChannelMonitor
	Forwarder       Forwarder
	Mle             RoutingStateMachine
	Transport       Transport
	SecureTransport Transport
	Aux             []AuxiliaryClient
	NetworkData     RouteProvider
	Events          EventSink
}

// Netif is the interface controller. All transitions run to completion on
// the calling goroutine; there is no cancellation concept.
type Netif struct {
	deps Deps
	log  *zap.SugaredLogger

	isUp              bool
	externalUnicast   []netip.Addr
	externalMulticast []netip.Addr
	internalMulticast []netip.Addr
}

// New creates an interface controller in the Down state.
func New(deps Deps, log *zap.SugaredLogger) *Netif {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Netif{
		deps: deps,
		log:  log.With(zap.String("module", "netif")),
	}
}

// IsUp reports the interface state.
func (n *Netif) IsUp() bool { return n.isUp }

// Up brings the interface up, enabling every dependent subsystem in order.
// Calling Up on an interface that is already up is a no-op.
//
// The interface is marked up before the routing state machine and the
// transports are enabled, so that reentrant status queries made during
// their startup already observe the new state.
func (n *Netif) Up() error {
	if n.isUp {
		return nil
	}

	// The radio may have been disabled while the interface was down.
	n.deps.Radio.SetEnabled(true)

	if n.deps.Monitor != nil {
		if err := n.deps.Monitor.Start(); err != nil {
			return fmt.Errorf("failed to start channel monitor: %w", err)
		}
	}
	if err := n.deps.Forwarder.Start(); err != nil {
		return fmt.Errorf("failed to start forwarder: %w", err)
	}

	n.isUp = true

	n.subscribeAllNodesMulticast()
	if err := n.deps.Mle.Enable(); err != nil {
		return fmt.Errorf("failed to enable routing state machine: %w", err)
	}
	if err := n.deps.Transport.Start(); err != nil {
		return fmt.Errorf("failed to start management transport: %w", err)
	}
	for _, aux := range n.deps.Aux {
		if err := aux.Start(); err != nil {
			return fmt.Errorf("failed to start auxiliary client: %w", err)
		}
	}

	n.log.Infow("interface up")
	n.deps.Events.Signal(notifier.EventNetifState)
	return nil
}

// Down takes the interface down, stopping subsystems in the inverse order
// of Up. Address and multicast cleanup happens before the interface state
// flips, while listeners still observe the interface as up. Calling Down on
// an interface that is already down is a no-op.
//
// Teardown keeps going on subsystem failures; errors are aggregated.
func (n *Netif) Down() error {
	if !n.isUp {
		return nil
	}

	var errs error
	for _, aux := range n.deps.Aux {
		errs = multierr.Append(errs, aux.Stop())
	}
	if n.deps.SecureTransport != nil {
		errs = multierr.Append(errs, n.deps.SecureTransport.Stop())
	}
	errs = multierr.Append(errs, n.deps.Transport.Stop())
	errs = multierr.Append(errs, n.deps.Mle.Disable())

	n.RemoveAllExternalUnicastAddresses()
	n.UnsubscribeAllExternalMulticastAddresses()
	n.unsubscribeAllRoutersMulticast()
	n.unsubscribeAllNodesMulticast()

	n.isUp = false
	errs = multierr.Append(errs, n.deps.Forwarder.Stop())
	if n.deps.Monitor != nil {
		errs = multierr.Append(errs, n.deps.Monitor.Stop())
	}

	n.log.Infow("interface down")
	n.deps.Events.Signal(notifier.EventNetifState)
	return errs
}

// RouteLookup delegates to the network-data route computation and reports
// the matched prefix length. A route whose next hop resolves to this device
// itself is reported as no route: the device must never treat itself as a
// forwarding next hop on behalf of a peer.
func (n *Netif) RouteLookup(src, dst netip.Addr) (uint8, error) {
	prefixLen, rloc, err := n.deps.NetworkData.RouteLookup(src, dst)
	if err != nil {
		return 0, err
	}
	if rloc == n.deps.Mle.Rloc16() {
		return 0, netdata.ErrNoRoute
	}
	return prefixLen, nil
}
