// Package mac provides the 802.15.4 link-layer address types used across
// the mesh control plane: the 16-bit role-assigned short address, the
// 64-bit globally unique extended address and a generic address that holds
// either form.
package mac

import (
	"encoding/hex"
	"fmt"
)

// ShortAddr is a 16-bit mesh short address, assigned once a device is
// attached to the mesh.
type ShortAddr uint16

const (
	// ShortAddrInvalid marks a short address that has not been assigned.
	ShortAddrInvalid ShortAddr = 0xfffe
	// ShortAddrBroadcast is the link-layer broadcast short address.
	ShortAddrBroadcast ShortAddr = 0xffff
)

func (a ShortAddr) String() string {
	return fmt.Sprintf("0x%04x", uint16(a))
}

// ExtAddr is a 64-bit IEEE extended address.
type ExtAddr [8]byte

func (a ExtAddr) String() string {
	return hex.EncodeToString(a[:])
}

// AddrKind discriminates the forms a generic Addr may hold.
type AddrKind uint8

const (
	AddrKindNone AddrKind = iota
	AddrKindShort
	AddrKindExt
)

// Addr is a generic link-layer address: either a short address, an extended
// address, or nothing at all.
type Addr struct {
	kind  AddrKind
	short ShortAddr
	ext   ExtAddr
}

// NewShortAddr returns a generic address holding a short address.
func NewShortAddr(short ShortAddr) Addr {
	return Addr{kind: AddrKindShort, short: short}
}

// NewExtAddr returns a generic address holding an extended address.
func NewExtAddr(ext ExtAddr) Addr {
	return Addr{kind: AddrKindExt, ext: ext}
}

// Kind reports which address form the address holds.
func (a Addr) Kind() AddrKind { return a.kind }

// IsNone reports whether the address holds no form at all.
func (a Addr) IsNone() bool { return a.kind == AddrKindNone }

// Short returns the held short address. Valid only when Kind is
// AddrKindShort.
func (a Addr) Short() ShortAddr { return a.short }

// Ext returns the held extended address. Valid only when Kind is
// AddrKindExt.
func (a Addr) Ext() ExtAddr { return a.ext }

func (a Addr) String() string {
	switch a.kind {
	case AddrKindShort:
		return a.short.String()
	case AddrKindExt:
		return a.ext.String()
	default:
		return "none"
	}
}
