package bbr

import (
	"net/netip"
	"sync"
)

// MemoryRegistrar is a bounded in-memory registrar: multicast listeners and
// domain unicast addresses are tracked per address with capacity limits.
// The request payload beyond the fixed address fields is not interpreted.
type MemoryRegistrar struct {
	mu        sync.Mutex
	listeners map[netip.Addr]struct{}
	unicast   map[netip.Addr]netip.Addr
	capacity  int
}

// NewMemoryRegistrar creates a registrar that accepts up to capacity
// registrations of each kind.
func NewMemoryRegistrar(capacity int) *MemoryRegistrar {
	return &MemoryRegistrar{
		listeners: make(map[netip.Addr]struct{}),
		unicast:   make(map[netip.Addr]netip.Addr),
		capacity:  capacity,
	}
}

// RegisterMulticastListeners records the multicast groups carried in the
// payload as a sequence of 16-byte addresses.
func (r *MemoryRegistrar) RegisterMulticastListeners(payload []byte, src netip.Addr) MlrStatus {
	if len(payload) == 0 || len(payload)%16 != 0 {
		return MlrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for off := 0; off < len(payload); off += 16 {
		group, _ := netip.AddrFromSlice(payload[off : off+16])
		if !group.IsMulticast() {
			return MlrInvalid
		}
		if _, known := r.listeners[group]; !known && len(r.listeners) >= r.capacity {
			return MlrNoResources
		}
		r.listeners[group] = struct{}{}
	}
	return MlrSuccess
}

// RegisterDomainUnicast records the target address for the registering
// device. A target already registered by a different device is a duplicate.
func (r *MemoryRegistrar) RegisterDomainUnicast(target netip.Addr, payload []byte, src netip.Addr) DuaStatus {
	if !target.Is6() || target.IsMulticast() {
		return DuaInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, known := r.unicast[target]; known && owner != src {
		return DuaDuplicate
	}
	if _, known := r.unicast[target]; !known && len(r.unicast) >= r.capacity {
		return DuaNoResources
	}
	r.unicast[target] = src
	return DuaSuccess
}

// HasListener reports whether the multicast group is registered.
func (r *MemoryRegistrar) HasListener(group netip.Addr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.listeners[group]
	return ok
}
