package ip6

import "net/netip"

// MessageInfo is the address envelope of a received or outgoing message:
// the peer (source) address and the local socket (destination) address,
// with their ports.
type MessageInfo struct {
	// PeerAddr is the address of the remote endpoint.
	PeerAddr netip.Addr
	// PeerPort is the port of the remote endpoint.
	PeerPort uint16
	// SockAddr is the local address the message was addressed to. For
	// multicast traffic this is the group address.
	SockAddr netip.Addr
	// SockPort is the local port.
	SockPort uint16
}
