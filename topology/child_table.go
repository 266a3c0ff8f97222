package topology

import (
	"iter"

	"github.com/lowpan-platform/meshcp/mac"
)

// DefaultChildTableSize is the child capacity used when none is configured.
const DefaultChildTableSize = 10

// ChildTable is the bounded store of child records, indexed by slot.
// Allocation and eviction are driven by the routing state machine; lookups
// never mutate entries.
type ChildTable struct {
	children []Neighbor
}

// NewChildTable creates a child table with the given slot capacity.
func NewChildTable(capacity int) *ChildTable {
	if capacity <= 0 {
		capacity = DefaultChildTableSize
	}

	t := &ChildTable{children: make([]Neighbor, capacity)}
	for i := range t.children {
		t.children[i].Role = RoleChild
		t.children[i].Rloc16 = mac.ShortAddrInvalid
	}
	return t
}

// Capacity returns the number of slots.
func (t *ChildTable) Capacity() int { return len(t.children) }

// ChildAtIndex returns the child record at the given slot, or nil when the
// index is past the table capacity. Slots holding no child are returned as
// records in StateInvalid.
func (t *ChildTable) ChildAtIndex(index int) *Neighbor {
	if index < 0 || index >= len(t.children) {
		return nil
	}
	return &t.children[index]
}

// FindChild returns the first child satisfying the matcher, or nil.
func (t *ChildTable) FindChild(m AddressMatcher) *Neighbor {
	for i := range t.children {
		if t.children[i].Matches(m) {
			return &t.children[i]
		}
	}
	return nil
}

// Iterate yields the children whose state satisfies the filter, in slot
// order.
func (t *ChildTable) Iterate(filter StateFilter) iter.Seq[*Neighbor] {
	return func(yield func(*Neighbor) bool) {
		for i := range t.children {
			if !filter.Matches(t.children[i].State) {
				continue
			}
			if !yield(&t.children[i]) {
				return
			}
		}
	}
}

// Allocate returns the first free slot, or nil when the table is full. The
// returned record is reset to a blank child.
func (t *ChildTable) Allocate() *Neighbor {
	for i := range t.children {
		if t.children[i].State == StateInvalid {
			t.children[i] = Neighbor{Role: RoleChild, Rloc16: mac.ShortAddrInvalid}
			return &t.children[i]
		}
	}
	return nil
}
