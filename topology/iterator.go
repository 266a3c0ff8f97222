package topology

import (
	"time"

	"github.com/lowpan-platform/meshcp/mac"
)

// Iterator is the caller-held enumeration cursor. Non-negative values index
// into the child table; negative values encode -(routerId+1) into the
// router table. The packed form is the boundary type so external callers
// can persist it between calls; pass back exactly what the previous call
// left behind.
type Iterator int16

// IteratorInit is the initial cursor value.
const IteratorInit Iterator = 0

// NeighborInfo is an immutable diagnostic snapshot of a peer, copied out at
// enumeration time. It never aliases the live record: the record may be
// reassigned to a different identity right after the call.
type NeighborInfo struct {
	ExtAddr          mac.ExtAddr
	Rloc16           mac.ShortAddr
	IsChild          bool
	LinkQualityIn    uint8
	AverageRssi      int8
	LastRssi         int8
	LinkFrameCounter uint32
	MleFrameCounter  uint32
	Age              time.Duration
	RxOnWhenIdle     bool
	FullThreadDevice bool
}

func (info *NeighborInfo) setFrom(n *Neighbor) {
	*info = NeighborInfo{
		ExtAddr:          n.ExtAddr,
		Rloc16:           n.Rloc16,
		LinkQualityIn:    n.LinkQualityIn,
		AverageRssi:      n.AverageRssi,
		LastRssi:         n.LastRssi,
		LinkFrameCounter: n.LinkFrameCounter,
		MleFrameCounter:  n.MleFrameCounter,
		RxOnWhenIdle:     n.RxOnWhenIdle,
		FullThreadDevice: n.FullThreadDevice,
	}
	if !n.LastHeard.IsZero() {
		info.Age = time.Since(n.LastHeard)
	}
}

// NextNeighborInfo advances the cursor and fills info with the next
// established child (in slot order), then the next established router (in
// id order). Once both phases are exhausted the cursor settles at a value
// that keeps reporting ErrNotFound without reinitialization.
//
// On a device that cannot hold the router role the traversal degrades to a
// single-shot check of the parent slot, guarded by the initial cursor
// value.
func (t *NeighborTable) NextNeighborInfo(it *Iterator, info *NeighborInfo) error {
	if !t.routerEligible {
		return t.nextParentInfo(it, info)
	}

	cursor := *it

	// Child phase: a non-negative cursor is the next slot to inspect.
	if cursor >= 0 {
		for index := int(cursor); ; index++ {
			child := t.children.ChildAtIndex(index)
			if child == nil {
				break
			}
			if child.State.IsValid() {
				info.setFrom(child)
				info.IsChild = true
				*it = Iterator(index + 1)
				return nil
			}
		}

		cursor = 0
	}

	// Router phase: the negated cursor is the next router id to inspect.
	index := int(-cursor)
	for ; index <= MaxRouterID; index++ {
		router := t.routers.Router(uint8(index))
		if router != nil && router.State.IsValid() {
			info.setFrom(router)
			info.IsChild = false
			*it = Iterator(-(index + 1))
			return nil
		}
	}

	*it = Iterator(-index)
	return ErrNotFound
}

func (t *NeighborTable) nextParentInfo(it *Iterator, info *NeighborInfo) error {
	if *it != IteratorInit {
		return ErrNotFound
	}

	*it++

	parent := t.routing.Parent()
	if !parent.State.IsValid() {
		return ErrNotFound
	}

	info.setFrom(parent)
	info.IsChild = false
	return nil
}
