package topology

import "github.com/lowpan-platform/meshcp/mac"

// MaxRouterID is the highest assignable router identifier.
const MaxRouterID = 62

// RouterTable is the bounded store of router records, keyed by router id.
// Id allocation is driven by the routing state machine.
type RouterTable struct {
	routers   [MaxRouterID + 1]Neighbor
	allocated [MaxRouterID + 1]bool
}

// NewRouterTable creates an empty router table.
func NewRouterTable() *RouterTable {
	t := &RouterTable{}
	for i := range t.routers {
		t.routers[i].Role = RoleRouter
		t.routers[i].Rloc16 = mac.ShortAddrInvalid
	}
	return t
}

// Router returns the record for the given router id, or nil when the id is
// out of range or unallocated.
func (t *RouterTable) Router(id uint8) *Neighbor {
	if int(id) > MaxRouterID || !t.allocated[id] {
		return nil
	}
	return &t.routers[id]
}

// FindRouter returns the first router satisfying the matcher, or nil.
func (t *RouterTable) FindRouter(m AddressMatcher) *Neighbor {
	for id := range t.routers {
		if t.allocated[id] && t.routers[id].Matches(m) {
			return &t.routers[id]
		}
	}
	return nil
}

// NeighborRouter returns the established router matching the link-layer
// address, or nil. Used to validate routers that are link neighbors of an
// end device.
func (t *RouterTable) NeighborRouter(addr mac.Addr) *Neighbor {
	return t.FindRouter(MatchAddr(addr, StateFilterValid))
}

// Allocate claims the given router id and returns its record, resetting it
// to a blank router. Returns nil when the id is out of range or already
// taken.
func (t *RouterTable) Allocate(id uint8) *Neighbor {
	if int(id) > MaxRouterID || t.allocated[id] {
		return nil
	}
	t.allocated[id] = true
	t.routers[id] = Neighbor{Role: RoleRouter, Rloc16: mac.ShortAddr(uint16(id) << 10)}
	return &t.routers[id]
}

// Release frees the given router id.
func (t *RouterTable) Release(id uint8) {
	if int(id) <= MaxRouterID {
		t.allocated[id] = false
		t.routers[id].State = StateInvalid
	}
}
