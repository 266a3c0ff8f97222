package netif

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lowpan-platform/meshcp/mac"
	"github.com/lowpan-platform/meshcp/netdata"
	"github.com/lowpan-platform/meshcp/notifier"
)

// recorder collects the subsystem calls in arrival order so the tests can
// assert lifecycle ordering exactly.
type recorder struct {
	calls []string
}

func (r *recorder) record(call string) {
	r.calls = append(r.calls, call)
}

type fakeRadio struct{ rec *recorder }

func (f *fakeRadio) SetEnabled(enabled bool) {
	if enabled {
		f.rec.record("radio-on")
	} else {
		f.rec.record("radio-off")
	}
}

type fakeSubsystem struct {
	rec  *recorder
	name string
}

func (f *fakeSubsystem) Start() error {
	f.rec.record(f.name + "-start")
	return nil
}

func (f *fakeSubsystem) Stop() error {
	f.rec.record(f.name + "-stop")
	return nil
}

type fakeMle struct {
	rec    *recorder
	rloc16 mac.ShortAddr
}

func (f *fakeMle) Enable() error {
	f.rec.record("mle-enable")
	return nil
}

func (f *fakeMle) Disable() error {
	f.rec.record("mle-disable")
	return nil
}

func (f *fakeMle) Rloc16() mac.ShortAddr { return f.rloc16 }

func (f *fakeMle) IsMeshLocalAddress(netip.Addr) bool { return false }

type fakeRoutes struct {
	prefixLen uint8
	rloc16    mac.ShortAddr
	err       error
}

func (f *fakeRoutes) RouteLookup(src, dst netip.Addr) (uint8, mac.ShortAddr, error) {
	return f.prefixLen, f.rloc16, f.err
}

type fakeEvents struct {
	signalled []notifier.Events
}

func (f *fakeEvents) Signal(events notifier.Events) {
	f.signalled = append(f.signalled, events)
}

func newTestNetif(rec *recorder, routes RouteProvider) (*Netif, *fakeEvents) {
	events := &fakeEvents{}
	deps := Deps{
		Radio:           &fakeRadio{rec: rec},
		Monitor:         &fakeSubsystem{rec: rec, name: "monitor"},
		Forwarder:       &fakeSubsystem{rec: rec, name: "forwarder"},
		Mle:             &fakeMle{rec: rec, rloc16: 0x2c00},
		Transport:       &fakeSubsystem{rec: rec, name: "tmf"},
		SecureTransport: &fakeSubsystem{rec: rec, name: "secure"},
		Aux:             []AuxiliaryClient{&fakeSubsystem{rec: rec, name: "dns"}},
		NetworkData:     routes,
		Events:          events,
	}
	return New(deps, nil), events
}

func TestUpDownOrdering(t *testing.T) {
	rec := &recorder{}
	nif, events := newTestNetif(rec, &fakeRoutes{})

	require.False(t, nif.IsUp())
	require.NoError(t, nif.Up())
	require.True(t, nif.IsUp())

	// The secure agent is started on demand, never by Up.
	require.Equal(t, []string{
		"radio-on",
		"monitor-start",
		"forwarder-start",
		"mle-enable",
		"tmf-start",
		"dns-start",
	}, rec.calls)
	// The all-nodes subscription fires before the state notification.
	require.Equal(t, []notifier.Events{
		notifier.EventIP6MulticastChanged,
		notifier.EventNetifState,
	}, events.signalled)

	rec.calls = nil
	require.NoError(t, nif.Down())
	require.False(t, nif.IsUp())
	require.Equal(t, notifier.EventNetifState, events.signalled[len(events.signalled)-1])

	require.Equal(t, []string{
		"dns-stop",
		"secure-stop",
		"tmf-stop",
		"mle-disable",
		"forwarder-stop",
		"monitor-stop",
	}, rec.calls)
}

func TestUpDownIdempotent(t *testing.T) {
	rec := &recorder{}
	nif, events := newTestNetif(rec, &fakeRoutes{})

	// Down before any Up is a no-op.
	require.NoError(t, nif.Down())
	require.Empty(t, rec.calls)
	require.Empty(t, events.signalled)

	require.NoError(t, nif.Up())
	callsAfterUp := len(rec.calls)
	signalsAfterUp := len(events.signalled)
	require.NoError(t, nif.Up())
	require.Len(t, rec.calls, callsAfterUp)
	require.Len(t, events.signalled, signalsAfterUp)

	require.NoError(t, nif.Down())
	callsAfterDown := len(rec.calls)
	signalsAfterDown := len(events.signalled)
	require.NoError(t, nif.Down())
	require.Len(t, rec.calls, callsAfterDown)
	require.Len(t, events.signalled, signalsAfterDown)
}

func TestDownCleansExternalAddresses(t *testing.T) {
	rec := &recorder{}
	nif, _ := newTestNetif(rec, &fakeRoutes{})

	require.NoError(t, nif.Up())

	addr := netip.MustParseAddr("2001:db8::1")
	nif.AddExternalUnicastAddress(addr)
	nif.SubscribeExternalMulticast(netip.MustParseAddr("ff05::99"))
	require.Len(t, nif.ExternalUnicastAddresses(), 1)
	require.True(t, nif.IsMulticastSubscribed(netip.MustParseAddr("ff05::99")))

	require.NoError(t, nif.Down())
	require.Empty(t, nif.ExternalUnicastAddresses())
	require.False(t, nif.IsMulticastSubscribed(netip.MustParseAddr("ff05::99")))
}

func TestRouteLookup(t *testing.T) {
	src := netip.MustParseAddr("fd00:db8::1")
	dst := netip.MustParseAddr("2001:db8::1")

	t.Run("forwards the computed match", func(t *testing.T) {
		rec := &recorder{}
		nif, _ := newTestNetif(rec, &fakeRoutes{prefixLen: 48, rloc16: 0x0800})

		prefixLen, err := nif.RouteLookup(src, dst)
		require.NoError(t, err)
		require.Equal(t, uint8(48), prefixLen)
	})

	t.Run("self next hop is no route", func(t *testing.T) {
		rec := &recorder{}
		// The device's own locator is 0x2c00; a structurally valid
		// route through it must be reported as no route.
		nif, _ := newTestNetif(rec, &fakeRoutes{prefixLen: 48, rloc16: 0x2c00})

		_, err := nif.RouteLookup(src, dst)
		require.ErrorIs(t, err, netdata.ErrNoRoute)
	})

	t.Run("propagates no route", func(t *testing.T) {
		rec := &recorder{}
		nif, _ := newTestNetif(rec, &fakeRoutes{err: netdata.ErrNoRoute})

		_, err := nif.RouteLookup(src, dst)
		require.ErrorIs(t, err, netdata.ErrNoRoute)
	})
}
