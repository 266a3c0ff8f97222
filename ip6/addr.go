// Package ip6 provides IPv6 address classification for the mesh control
// plane: link-local and multicast scoping, the mesh-local prefix check, and
// the routing-locator interface-identifier codec.
package ip6

import (
	"encoding/binary"
	"net/netip"

	"github.com/lowpan-platform/meshcp/mac"
)

// Well-known multicast groups used by the interface lifecycle.
var (
	// LinkLocalAllNodes is ff02::1.
	LinkLocalAllNodes = netip.MustParseAddr("ff02::1")
	// RealmLocalAllNodes is ff03::1.
	RealmLocalAllNodes = netip.MustParseAddr("ff03::1")
	// LinkLocalAllRouters is ff02::2.
	LinkLocalAllRouters = netip.MustParseAddr("ff02::2")
	// RealmLocalAllRouters is ff03::2.
	RealmLocalAllRouters = netip.MustParseAddr("ff03::2")
)

const (
	multicastScopeLinkLocal  = 0x02
	multicastScopeRealmLocal = 0x03
)

// IsLinkLocal reports whether the address is a link-local unicast address
// (fe80::/10).
func IsLinkLocal(addr netip.Addr) bool {
	return addr.Is6() && addr.IsLinkLocalUnicast()
}

// IsLinkLocalMulticast reports whether the address is a multicast address
// with link-local scope.
func IsLinkLocalMulticast(addr netip.Addr) bool {
	return multicastScope(addr) == multicastScopeLinkLocal
}

// IsRealmLocalMulticast reports whether the address is a multicast address
// with realm-local scope. In a mesh the realm is the mesh itself.
func IsRealmLocalMulticast(addr netip.Addr) bool {
	return multicastScope(addr) == multicastScopeRealmLocal
}

func multicastScope(addr netip.Addr) uint8 {
	if !addr.Is6() || !addr.IsMulticast() {
		return 0
	}
	return addr.As16()[1] & 0x0f
}

// IID is the 64-bit interface identifier of an IPv6 address.
type IID [8]byte

// IIDOf extracts the interface identifier of a 128-bit address.
func IIDOf(addr netip.Addr) IID {
	var iid IID
	raw := addr.As16()
	copy(iid[:], raw[8:])
	return iid
}

// locatorIidPrefix is the fixed 0000:00ff:fe00 pattern that marks an
// interface identifier as carrying a routing locator.
var locatorIidPrefix = [6]byte{0x00, 0x00, 0x00, 0xff, 0xfe, 0x00}

// IsLocator reports whether the interface identifier encodes a routing
// locator.
func (iid IID) IsLocator() bool {
	return [6]byte(iid[:6]) == locatorIidPrefix
}

// Locator returns the 16-bit locator carried in the interface identifier.
// Meaningful only when IsLocator reports true.
func (iid IID) Locator() mac.ShortAddr {
	return mac.ShortAddr(binary.BigEndian.Uint16(iid[6:]))
}

// ToMacAddr derives the extended address the interface identifier was
// formed from, by flipping the universal/local bit back.
func (iid IID) ToMacAddr() mac.Addr {
	var ext mac.ExtAddr
	copy(ext[:], iid[:])
	ext[0] ^= 0x02
	return mac.NewExtAddr(ext)
}

// RlocAddr builds the routing-locator IPv6 address of a peer from the
// mesh-local prefix and the peer's short address.
func RlocAddr(meshLocalPrefix netip.Prefix, rloc16 mac.ShortAddr) netip.Addr {
	raw := meshLocalPrefix.Addr().As16()
	copy(raw[8:14], locatorIidPrefix[:])
	binary.BigEndian.PutUint16(raw[14:], uint16(rloc16))
	return netip.AddrFrom16(raw)
}
