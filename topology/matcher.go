package topology

import "github.com/lowpan-platform/meshcp/mac"

// AddressMatcher is the criteria value passed to every lookup: one address
// form plus the required lifecycle state. Constructing and applying a
// matcher never mutates peer records.
type AddressMatcher struct {
	addr   mac.Addr
	filter StateFilter
}

// MatchShort builds a matcher for a short address.
func MatchShort(short mac.ShortAddr, filter StateFilter) AddressMatcher {
	return AddressMatcher{addr: mac.NewShortAddr(short), filter: filter}
}

// MatchExt builds a matcher for an extended address.
func MatchExt(ext mac.ExtAddr, filter StateFilter) AddressMatcher {
	return AddressMatcher{addr: mac.NewExtAddr(ext), filter: filter}
}

// MatchAddr builds a matcher for a generic link-layer address.
func MatchAddr(addr mac.Addr, filter StateFilter) AddressMatcher {
	return AddressMatcher{addr: addr, filter: filter}
}

// Filter returns the matcher's required-state predicate.
func (m AddressMatcher) Filter() StateFilter { return m.filter }

// Addr returns the matcher's address criterion.
func (m AddressMatcher) Addr() mac.Addr { return m.addr }
