// Package topology holds the peer records of the mesh (parent slots, child
// table, router table) and the neighbor-table façade that resolves any
// supported address form to the matching peer.
package topology

import (
	"net/netip"
	"slices"
	"time"

	"github.com/lowpan-platform/meshcp/mac"
)

// State is the lifecycle state of a peer, driven by the routing state
// machine.
type State uint8

const (
	// StateInvalid marks an unused or torn-down entry.
	StateInvalid State = iota
	// StateRestoring marks an entry restored from non-volatile storage,
	// awaiting re-establishment of the link.
	StateRestoring
	// StateParentResponse marks a parent candidate that has answered a
	// parent request.
	StateParentResponse
	// StateChildIDRequest marks a peer whose child-id exchange is pending.
	StateChildIDRequest
	// StateLinkRequest marks a router whose link establishment is pending.
	StateLinkRequest
	// StateValid marks a fully established peer.
	StateValid
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "INVALID"
	case StateRestoring:
		return "RESTORING"
	case StateParentResponse:
		return "PARENT_RESPONSE"
	case StateChildIDRequest:
		return "CHILD_ID_REQUEST"
	case StateLinkRequest:
		return "LINK_REQUEST"
	case StateValid:
		return "VALID"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether the peer is fully established.
func (s State) IsValid() bool { return s == StateValid }

// IsValidOrRestoring reports whether the peer is established or being
// restored after a reset.
func (s State) IsValidOrRestoring() bool {
	return s == StateValid || s == StateRestoring
}

// StateFilter is the coarse state predicate used by lookups.
type StateFilter uint8

const (
	// StateFilterValid accepts only fully established peers.
	StateFilterValid StateFilter = iota
	// StateFilterValidOrRestoring additionally accepts peers being
	// restored.
	StateFilterValidOrRestoring
	// StateFilterAnyExceptInvalid accepts any in-use entry.
	StateFilterAnyExceptInvalid
)

// Matches reports whether a state satisfies the filter.
func (f StateFilter) Matches(s State) bool {
	switch f {
	case StateFilterValid:
		return s.IsValid()
	case StateFilterValidOrRestoring:
		return s.IsValidOrRestoring()
	case StateFilterAnyExceptInvalid:
		return s != StateInvalid
	default:
		return false
	}
}

// Role discriminates the peer variants.
type Role uint8

const (
	RoleParent Role = iota
	RoleParentCandidate
	RoleChild
	RoleRouter
)

func (r Role) String() string {
	switch r {
	case RoleParent:
		return "parent"
	case RoleParentCandidate:
		return "parent-candidate"
	case RoleChild:
		return "child"
	case RoleRouter:
		return "router"
	default:
		return "unknown"
	}
}

// Neighbor is a single peer record. The Role field discriminates the
// variant; registered IPv6 addresses are meaningful only for children.
//
// Records are owned by the routing state machine and the child/router
// tables; the neighbor-table façade only reads them.
type Neighbor struct {
	// Role is the variant discriminant.
	Role Role
	// State is the lifecycle state.
	State State
	// ExtAddr is the 64-bit link-layer address.
	ExtAddr mac.ExtAddr
	// Rloc16 is the assigned short address, ShortAddrInvalid until the
	// peer is attached.
	Rloc16 mac.ShortAddr

	// Link statistics carried into diagnostic snapshots.
	LinkQualityIn    uint8
	AverageRssi      int8
	LastRssi         int8
	LinkFrameCounter uint32
	MleFrameCounter  uint32
	LastHeard        time.Time

	// Mode bits.
	RxOnWhenIdle     bool
	FullThreadDevice bool

	ip6Addrs []netip.Addr
}

// Matches reports whether the neighbor satisfies the matcher's state filter
// and address criterion.
func (n *Neighbor) Matches(m AddressMatcher) bool {
	if !m.filter.Matches(n.State) {
		return false
	}

	switch m.addr.Kind() {
	case mac.AddrKindShort:
		return n.Rloc16 == m.addr.Short()
	case mac.AddrKindExt:
		return n.ExtAddr == m.addr.Ext()
	default:
		return false
	}
}

// HasIP6Address reports whether the address was registered on this peer.
func (n *Neighbor) HasIP6Address(addr netip.Addr) bool {
	return slices.Contains(n.ip6Addrs, addr)
}

// RegisterIP6Address records an address registered by a child. Registering
// an already known address is a no-op.
func (n *Neighbor) RegisterIP6Address(addr netip.Addr) {
	if !n.HasIP6Address(addr) {
		n.ip6Addrs = append(n.ip6Addrs, addr)
	}
}

// ClearIP6Addresses drops all registered addresses, typically on reattach.
func (n *Neighbor) ClearIP6Addresses() {
	n.ip6Addrs = n.ip6Addrs[:0]
}
