package bbr

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/notifier"
	"github.com/lowpan-platform/meshcp/tmf"
)

// fakeTransport records installed resources and replies so the handlers can
// be driven directly.
type fakeTransport struct {
	resources map[string]*tmf.Resource
	replies   []reply
}

type reply struct {
	code    tmf.Code
	payload []byte
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{resources: make(map[string]*tmf.Resource)}
}

func (f *fakeTransport) AddResource(r *tmf.Resource) { f.resources[r.Path] = r }

func (f *fakeTransport) RemoveResource(path string) { delete(f.resources, path) }

func (f *fakeTransport) Reply(req *tmf.Message, info *ip6.MessageInfo, code tmf.Code, payload []byte) error {
	f.replies = append(f.replies, reply{code: code, payload: payload})
	return nil
}

func (f *fakeTransport) deliver(t *testing.T, path string, payload []byte) {
	t.Helper()
	r := f.resources[path]
	require.NotNil(t, r)
	r.Handler(
		&tmf.Message{Type: tmf.TypeConfirmable, Code: tmf.CodePost, MessageID: 7, Payload: payload},
		&ip6.MessageInfo{PeerAddr: netip.MustParseAddr("fe80::1"), PeerPort: tmf.UdpPort},
	)
}

func (f *fakeTransport) lastReply(t *testing.T) reply {
	t.Helper()
	require.NotEmpty(t, f.replies)
	return f.replies[len(f.replies)-1]
}

func addrBytes(s string) []byte {
	return netip.MustParseAddr(s).AsSlice()
}

func TestManagerInstallsResources(t *testing.T) {
	transport := newFakeTransport()
	New(transport, NewMemoryRegistrar(4), nil, nil)

	require.Contains(t, transport.resources, PathMlr)
	require.Contains(t, transport.resources, PathDua)
}

func TestMulticastListenerRegistration(t *testing.T) {
	transport := newFakeTransport()
	registrar := NewMemoryRegistrar(2)
	New(transport, registrar, nil, nil)

	t.Run("accepts valid groups", func(t *testing.T) {
		payload := append(addrBytes("ff04::1"), addrBytes("ff04::2")...)
		transport.deliver(t, PathMlr, payload)

		got := transport.lastReply(t)
		require.Equal(t, tmf.CodeChanged, got.code)
		require.Equal(t, []byte{byte(MlrSuccess)}, got.payload)
		require.True(t, registrar.HasListener(netip.MustParseAddr("ff04::1")))
		require.True(t, registrar.HasListener(netip.MustParseAddr("ff04::2")))
	})

	t.Run("rejects a ragged payload", func(t *testing.T) {
		transport.deliver(t, PathMlr, []byte{0xff, 0x04})
		require.Equal(t, []byte{byte(MlrInvalid)}, transport.lastReply(t).payload)
	})

	t.Run("rejects a unicast group", func(t *testing.T) {
		transport.deliver(t, PathMlr, addrBytes("fd00::1"))
		require.Equal(t, []byte{byte(MlrInvalid)}, transport.lastReply(t).payload)
	})

	t.Run("reports exhausted capacity", func(t *testing.T) {
		transport.deliver(t, PathMlr, addrBytes("ff04::3"))
		require.Equal(t, []byte{byte(MlrNoResources)}, transport.lastReply(t).payload)
		require.False(t, registrar.HasListener(netip.MustParseAddr("ff04::3")))
	})
}

func TestDomainUnicastRegistration(t *testing.T) {
	transport := newFakeTransport()
	New(transport, NewMemoryRegistrar(4), nil, nil)

	target := "fd00:db8:0:1::1234"
	transport.deliver(t, PathDua, addrBytes(target))

	got := transport.lastReply(t)
	require.Equal(t, tmf.CodeChanged, got.code)
	// The response carries the registered target followed by the status.
	require.Equal(t, append(addrBytes(target), byte(DuaSuccess)), got.payload)
}

func TestDomainUnicastDuplicate(t *testing.T) {
	transport := newFakeTransport()
	registrar := NewMemoryRegistrar(4)
	New(transport, registrar, nil, nil)

	target := netip.MustParseAddr("fd00:db8:0:1::1234")
	require.Equal(t, DuaSuccess,
		registrar.RegisterDomainUnicast(target, nil, netip.MustParseAddr("fe80::2")))

	// The same target from a different device is a duplicate, while a
	// refresh from the original owner succeeds.
	transport.deliver(t, PathDua, target.AsSlice())
	require.Equal(t, byte(DuaDuplicate), transport.lastReply(t).payload[16])

	require.Equal(t, DuaSuccess,
		registrar.RegisterDomainUnicast(target, nil, netip.MustParseAddr("fe80::2")))
}

func TestDomainUnicastShortPayloadDropped(t *testing.T) {
	transport := newFakeTransport()
	New(transport, NewMemoryRegistrar(4), nil, nil)

	transport.deliver(t, PathDua, []byte{0xfd, 0x00})
	require.Empty(t, transport.replies)
}

func TestDuaResponseOverride(t *testing.T) {
	t.Run("matches any target when unscoped", func(t *testing.T) {
		transport := newFakeTransport()
		m := New(transport, NewMemoryRegistrar(4), nil, nil)

		m.ConfigNextDuaRegistrationResponse(nil, DuaNotPrimary)

		transport.deliver(t, PathDua, addrBytes("fd00:db8:0:1::1"))
		require.Equal(t, byte(DuaNotPrimary), transport.lastReply(t).payload[16])

		// One-shot: the next registration is computed normally.
		transport.deliver(t, PathDua, addrBytes("fd00:db8:0:1::1"))
		require.Equal(t, byte(DuaSuccess), transport.lastReply(t).payload[16])
	})

	t.Run("scoped to a target IID", func(t *testing.T) {
		transport := newFakeTransport()
		m := New(transport, NewMemoryRegistrar(4), nil, nil)

		iid := ip6.IIDOf(netip.MustParseAddr("fd00:db8:0:1::1"))
		m.ConfigNextDuaRegistrationResponse(&iid, DuaReRegister)

		// A registration for a different IID leaves the override armed.
		transport.deliver(t, PathDua, addrBytes("fd00:db8:0:1::2"))
		require.Equal(t, byte(DuaSuccess), transport.lastReply(t).payload[16])

		transport.deliver(t, PathDua, addrBytes("fd00:db8:0:1::1"))
		require.Equal(t, byte(DuaReRegister), transport.lastReply(t).payload[16])
	})

	t.Run("cleared on interface transition", func(t *testing.T) {
		transport := newFakeTransport()
		bus := notifier.New(nil)
		m := New(transport, NewMemoryRegistrar(4), bus, nil)

		m.ConfigNextDuaRegistrationResponse(nil, DuaGeneralFailure)
		bus.Signal(notifier.EventNetifState)

		transport.deliver(t, PathDua, addrBytes("fd00:db8:0:1::1"))
		require.Equal(t, byte(DuaSuccess), transport.lastReply(t).payload[16])
	})
}
