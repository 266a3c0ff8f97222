package resolver

import (
	"context"
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/mac"
	"github.com/lowpan-platform/meshcp/tmf"
)

type fakeTransport struct {
	resources map[string]*tmf.Resource
	sent      []*tmf.Message
	sentTo    []netip.AddrPort
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{resources: make(map[string]*tmf.Resource)}
}

func (f *fakeTransport) AddResource(r *tmf.Resource) { f.resources[r.Path] = r }

func (f *fakeTransport) SendConfirmable(ctx context.Context, msg *tmf.Message, dest netip.AddrPort) error {
	f.sent = append(f.sent, msg)
	f.sentTo = append(f.sentTo, dest)
	return nil
}

func notification(eid netip.Addr, rloc mac.ShortAddr) []byte {
	payload := eid.As16()
	return binary.BigEndian.AppendUint16(payload[:], uint16(rloc))
}

func newTestResolver(t *testing.T, cacheSize int) (*Resolver, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport()
	r, err := New(transport, cacheSize, nil)
	require.NoError(t, err)
	return r, transport
}

func TestResolveUnknownEID(t *testing.T) {
	r, _ := newTestResolver(t, 0)

	rloc, err := r.Resolve(netip.MustParseAddr("fd00:db8::1"))
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, mac.ShortAddrInvalid, rloc)
}

func TestSnoopAndRemove(t *testing.T) {
	r, _ := newTestResolver(t, 0)
	eid := netip.MustParseAddr("fd00:db8::1")

	r.Snoop(eid, 0x2c01)
	rloc, err := r.Resolve(eid)
	require.NoError(t, err)
	require.Equal(t, mac.ShortAddr(0x2c01), rloc)

	r.Remove(eid)
	_, err = r.Resolve(eid)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationFillsCache(t *testing.T) {
	r, transport := newTestResolver(t, 0)
	notify := transport.resources[PathAddressNotify]
	require.NotNil(t, notify)

	eid := netip.MustParseAddr("fd00:db8::abcd")
	notify.Handler(
		&tmf.Message{Code: tmf.CodePost, Payload: notification(eid, 0x1800)},
		&ip6.MessageInfo{PeerAddr: netip.MustParseAddr("fe80::1")},
	)

	rloc, err := r.Resolve(eid)
	require.NoError(t, err)
	require.Equal(t, mac.ShortAddr(0x1800), rloc)
}

func TestShortNotificationIgnored(t *testing.T) {
	r, transport := newTestResolver(t, 0)

	transport.resources[PathAddressNotify].Handler(
		&tmf.Message{Code: tmf.CodePost, Payload: []byte{0xfd, 0x00}},
		&ip6.MessageInfo{PeerAddr: netip.MustParseAddr("fe80::1")},
	)

	_, err := r.Resolve(netip.MustParseAddr("fd00::"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestQueryTargetsAllRouters(t *testing.T) {
	r, transport := newTestResolver(t, 0)
	eid := netip.MustParseAddr("fd00:db8::1")

	require.NoError(t, r.Query(context.Background(), eid))
	require.Len(t, transport.sent, 1)

	msg := transport.sent[0]
	require.Equal(t, PathAddressQuery, msg.Path)
	require.Equal(t, tmf.CodePost, msg.Code)
	wantEid := eid.As16()
	require.Equal(t, wantEid[:], msg.Payload)

	require.Equal(t,
		netip.AddrPortFrom(ip6.RealmLocalAllRouters, tmf.UdpPort),
		transport.sentTo[0],
	)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	r, _ := newTestResolver(t, 2)

	first := netip.MustParseAddr("fd00:db8::1")
	second := netip.MustParseAddr("fd00:db8::2")
	third := netip.MustParseAddr("fd00:db8::3")

	r.Snoop(first, 0x0001)
	r.Snoop(second, 0x0002)

	// Touch the oldest entry so the other one is ripe for eviction.
	_, err := r.Resolve(first)
	require.NoError(t, err)

	r.Snoop(third, 0x0003)

	_, err = r.Resolve(second)
	require.ErrorIs(t, err, ErrNotFound)
	rloc, err := r.Resolve(first)
	require.NoError(t, err)
	require.Equal(t, mac.ShortAddr(0x0001), rloc)
}
