package topology

import (
	"errors"
	"net/netip"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/mac"
)

// ErrNotFound is returned by enumeration when no further peer matches. It
// is a normal outcome, never logged or escalated.
var ErrNotFound = errors.New("neighbor not found")

// RoutingState is the slice of the routing state machine the neighbor table
// consumes: the two parent slots, the current device role, and the
// routing-locator address test.
type RoutingState interface {
	// Parent returns the current parent record.
	Parent() *Neighbor
	// ParentCandidate returns the parent-candidate record used during
	// attach.
	ParentCandidate() *Neighbor
	// IsRouterOrLeader reports whether the device currently acts as a
	// router or leader.
	IsRouterOrLeader() bool
	// IsChild reports whether the device is currently attached as a
	// child.
	IsChild() bool
	// IsRoutingLocator reports whether the address is a mesh-local
	// routing-locator address.
	IsRoutingLocator(addr netip.Addr) bool
}

// NeighborTable resolves any supported address form to the matching peer.
// It owns no peer state: the parent slots belong to the routing state
// machine, children and routers to their tables. Every lookup is a pure
// synchronous read.
type NeighborTable struct {
	routing  RoutingState
	children *ChildTable
	routers  *RouterTable

	// routerEligible is false on minimal (end-device only) builds, where
	// the table degrades to the parent slots.
	routerEligible bool
}

// NewNeighborTable creates a resolution façade over the given stores. A
// device that can never hold the router or leader role passes nil tables
// and routerEligible false.
func NewNeighborTable(routing RoutingState, children *ChildTable, routers *RouterTable, routerEligible bool) *NeighborTable {
	return &NeighborTable{
		routing:        routing,
		children:       children,
		routers:        routers,
		routerEligible: routerEligible,
	}
}

// FindParent checks the two parent slots against the matcher. Parent
// addressing is a namespace of its own: the child and router tables are
// never consulted here, even on a router or leader.
func (t *NeighborTable) FindParent(m AddressMatcher) *Neighbor {
	if parent := t.routing.Parent(); parent.Matches(m) {
		return parent
	}
	if candidate := t.routing.ParentCandidate(); candidate.Matches(m) {
		return candidate
	}
	return nil
}

// FindParentByAddr is FindParent with the default valid-or-restoring state
// requirement.
func (t *NeighborTable) FindParentByAddr(addr mac.Addr) *Neighbor {
	return t.FindParent(MatchAddr(addr, StateFilterValidOrRestoring))
}

// FindNeighbor returns the peer satisfying the matcher. On a router or
// leader the child and router tables are searched first; the parent slots
// are the fallback, covering role-transition windows.
func (t *NeighborTable) FindNeighbor(m AddressMatcher) *Neighbor {
	if t.routerEligible && t.routing.IsRouterOrLeader() {
		if neighbor := t.findChildOrRouter(m); neighbor != nil {
			return neighbor
		}
	}
	return t.FindParent(m)
}

// FindNeighborByShort resolves a short address. The broadcast and invalid
// sentinel addresses never resolve to a peer.
func (t *NeighborTable) FindNeighborByShort(short mac.ShortAddr) *Neighbor {
	if short == mac.ShortAddrBroadcast || short == mac.ShortAddrInvalid {
		return nil
	}
	return t.FindNeighbor(MatchShort(short, StateFilterValidOrRestoring))
}

// FindNeighborByExt resolves an extended address.
func (t *NeighborTable) FindNeighborByExt(ext mac.ExtAddr) *Neighbor {
	return t.FindNeighbor(MatchExt(ext, StateFilterValidOrRestoring))
}

// FindNeighborByAddr resolves a generic link-layer address.
func (t *NeighborTable) FindNeighborByAddr(addr mac.Addr) *Neighbor {
	return t.FindNeighbor(MatchAddr(addr, StateFilterValidOrRestoring))
}

// FindNeighborByIP6 resolves a full IPv6 address on a router-eligible
// device. A link-local address is resolved through the extended address in
// its interface identifier; a routing-locator address through the embedded
// short address. Only when neither form is derivable are the children
// scanned for a registered address: an address that decodes to a locator
// but matches no child or router is not retried through the full scan.
func (t *NeighborTable) FindNeighborByIP6(addr netip.Addr) *Neighbor {
	if !t.routerEligible {
		return nil
	}

	var macAddr mac.Addr

	if ip6.IsLinkLocal(addr) {
		macAddr = ip6.IIDOf(addr).ToMacAddr()
	}
	if t.routing.IsRoutingLocator(addr) {
		macAddr = mac.NewShortAddr(ip6.IIDOf(addr).Locator())
	}

	if !macAddr.IsNone() {
		return t.findChildOrRouter(MatchAddr(macAddr, StateFilterValidOrRestoring))
	}

	for child := range t.children.Iterate(StateFilterValidOrRestoring) {
		if child.HasIP6Address(addr) {
			return child
		}
	}
	return nil
}

// FindRxOnlyNeighborRouter returns the router-table entry matching the
// address while this device is attached as a child. Used to validate peers
// that are routers toward this node outside the parent link. Returns nil
// when the device is not currently a child.
func (t *NeighborTable) FindRxOnlyNeighborRouter(addr mac.Addr) *Neighbor {
	if !t.routerEligible || !t.routing.IsChild() {
		return nil
	}
	return t.routers.NeighborRouter(addr)
}

func (t *NeighborTable) findChildOrRouter(m AddressMatcher) *Neighbor {
	if child := t.children.FindChild(m); child != nil {
		return child
	}
	return t.routers.FindRouter(m)
}
