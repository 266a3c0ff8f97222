package netif

import (
	"net/netip"
	"slices"

	"go.uber.org/zap"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/notifier"
)

// AddExternalUnicastAddress records a unicast address added by a host
// application. Re-adding a known address is a no-op.
func (n *Netif) AddExternalUnicastAddress(addr netip.Addr) {
	if slices.Contains(n.externalUnicast, addr) {
		return
	}
	n.externalUnicast = append(n.externalUnicast, addr)
	n.log.Debugw("added external unicast address", zap.Stringer("addr", addr))
	n.deps.Events.Signal(notifier.EventIP6AddressesChanged)
}

// RemoveExternalUnicastAddress drops a previously added unicast address.
func (n *Netif) RemoveExternalUnicastAddress(addr netip.Addr) {
	before := len(n.externalUnicast)
	n.externalUnicast = slices.DeleteFunc(n.externalUnicast, func(a netip.Addr) bool {
		return a == addr
	})
	if len(n.externalUnicast) != before {
		n.deps.Events.Signal(notifier.EventIP6AddressesChanged)
	}
}

// RemoveAllExternalUnicastAddresses drops every externally added unicast
// address.
func (n *Netif) RemoveAllExternalUnicastAddresses() {
	if len(n.externalUnicast) == 0 {
		return
	}
	n.externalUnicast = n.externalUnicast[:0]
	n.deps.Events.Signal(notifier.EventIP6AddressesChanged)
}

// ExternalUnicastAddresses returns the externally added unicast addresses.
func (n *Netif) ExternalUnicastAddresses() []netip.Addr {
	return slices.Clone(n.externalUnicast)
}

// SubscribeExternalMulticast subscribes a multicast group on behalf of a
// host application.
func (n *Netif) SubscribeExternalMulticast(addr netip.Addr) {
	if slices.Contains(n.externalMulticast, addr) {
		return
	}
	n.externalMulticast = append(n.externalMulticast, addr)
	n.deps.Events.Signal(notifier.EventIP6MulticastChanged)
}

// UnsubscribeAllExternalMulticastAddresses drops every externally
// subscribed multicast group.
func (n *Netif) UnsubscribeAllExternalMulticastAddresses() {
	if len(n.externalMulticast) == 0 {
		return
	}
	n.externalMulticast = n.externalMulticast[:0]
	n.deps.Events.Signal(notifier.EventIP6MulticastChanged)
}

// IsMulticastSubscribed reports whether the group is subscribed, internally
// or externally.
func (n *Netif) IsMulticastSubscribed(addr netip.Addr) bool {
	return slices.Contains(n.internalMulticast, addr) ||
		slices.Contains(n.externalMulticast, addr)
}

// SubscribeAllRoutersMulticast joins the all-routers groups when the device
// takes the router role.
func (n *Netif) SubscribeAllRoutersMulticast() {
	n.subscribeInternal(ip6.LinkLocalAllRouters, ip6.RealmLocalAllRouters)
}

func (n *Netif) subscribeAllNodesMulticast() {
	n.subscribeInternal(ip6.LinkLocalAllNodes, ip6.RealmLocalAllNodes)
}

func (n *Netif) unsubscribeAllRoutersMulticast() {
	n.unsubscribeInternal(ip6.LinkLocalAllRouters, ip6.RealmLocalAllRouters)
}

func (n *Netif) unsubscribeAllNodesMulticast() {
	n.unsubscribeInternal(ip6.LinkLocalAllNodes, ip6.RealmLocalAllNodes)
}

func (n *Netif) subscribeInternal(addrs ...netip.Addr) {
	changed := false
	for _, addr := range addrs {
		if !slices.Contains(n.internalMulticast, addr) {
			n.internalMulticast = append(n.internalMulticast, addr)
			changed = true
		}
	}
	if changed {
		n.deps.Events.Signal(notifier.EventIP6MulticastChanged)
	}
}

func (n *Netif) unsubscribeInternal(addrs ...netip.Addr) {
	before := len(n.internalMulticast)
	n.internalMulticast = slices.DeleteFunc(n.internalMulticast, func(a netip.Addr) bool {
		return slices.Contains(addrs, a)
	})
	if len(n.internalMulticast) != before {
		n.deps.Events.Signal(notifier.EventIP6MulticastChanged)
	}
}
