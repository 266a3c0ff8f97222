package netif

import (
	"net/netip"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/tmf"
)

// MeshAddressing is the address-classification slice of the routing state
// the filter consults.
type MeshAddressing interface {
	IsMeshLocalAddress(addr netip.Addr) bool
}

// TmfFilter is the security predicate gating every inbound management
// message. It inspects only the address envelope, never message content,
// and is registered on the transport at construction.
type TmfFilter struct {
	mesh MeshAddressing
}

// NewTmfFilter creates the filter over the given address classifier.
func NewTmfFilter(mesh MeshAddressing) *TmfFilter {
	return &TmfFilter{mesh: mesh}
}

// Filter admits a message iff one of the following holds:
//
//  1. the destination is a mesh-local unicast address, a link-local
//     multicast address or a realm-local multicast address, and the source
//     is a mesh-local unicast address;
//  2. the destination is a link-local unicast or link-local multicast
//     address and the source is a link-local unicast address.
//
// Everything else is denied with ErrNotTmf, which the transport treats as
// "silently ignore".
func (f *TmfFilter) Filter(_ *tmf.Message, info *ip6.MessageInfo) error {
	dst := info.SockAddr
	src := info.PeerAddr

	meshScoped := f.mesh.IsMeshLocalAddress(dst) ||
		ip6.IsLinkLocalMulticast(dst) ||
		ip6.IsRealmLocalMulticast(dst)
	if meshScoped && f.mesh.IsMeshLocalAddress(src) {
		return nil
	}

	linkScoped := ip6.IsLinkLocal(dst) || ip6.IsLinkLocalMulticast(dst)
	if linkScoped && ip6.IsLinkLocal(src) {
		return nil
	}

	return tmf.ErrNotTmf
}
