package mle

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lowpan-platform/meshcp/mac"
	"github.com/lowpan-platform/meshcp/topology"
)

func newTestMle(t *testing.T) *Mle {
	t.Helper()
	return New(netip.MustParsePrefix("fd00:db8::/64"), nil)
}

func TestEnableDisable(t *testing.T) {
	m := newTestMle(t)
	require.Equal(t, RoleDisabled, m.Role())

	require.NoError(t, m.Enable())
	require.Equal(t, RoleDetached, m.Role())

	// A second enable does not reset a role the protocol already moved.
	m.SetRole(RoleChild)
	require.NoError(t, m.Enable())
	require.Equal(t, RoleChild, m.Role())

	require.NoError(t, m.Disable())
	require.Equal(t, RoleDisabled, m.Role())
	require.NoError(t, m.Disable())
}

func TestRolePredicates(t *testing.T) {
	m := newTestMle(t)

	for _, tc := range []struct {
		role           DeviceRole
		routerOrLeader bool
		child          bool
	}{
		{role: RoleDisabled},
		{role: RoleDetached},
		{role: RoleChild, child: true},
		{role: RoleRouter, routerOrLeader: true},
		{role: RoleLeader, routerOrLeader: true},
	} {
		t.Run(tc.role.String(), func(t *testing.T) {
			m.SetRole(tc.role)
			require.Equal(t, tc.routerOrLeader, m.IsRouterOrLeader())
			require.Equal(t, tc.child, m.IsChild())
		})
	}
}

func TestParentSlots(t *testing.T) {
	m := newTestMle(t)

	parent := m.Parent()
	require.Equal(t, topology.RoleParent, parent.Role)
	require.Equal(t, topology.StateInvalid, parent.State)
	require.Equal(t, mac.ShortAddrInvalid, parent.Rloc16)

	candidate := m.ParentCandidate()
	require.Equal(t, topology.RoleParentCandidate, candidate.Role)

	// The slots are stable across calls, the protocol mutates them in
	// place.
	parent.State = topology.StateValid
	require.Same(t, parent, m.Parent())
	require.Equal(t, topology.StateValid, m.Parent().State)
}

func TestIsMeshLocalAddress(t *testing.T) {
	m := newTestMle(t)

	require.True(t, m.IsMeshLocalAddress(netip.MustParseAddr("fd00:db8::1")))
	require.True(t, m.IsMeshLocalAddress(netip.MustParseAddr("fd00:db8::ff:fe00:2c00")))
	require.False(t, m.IsMeshLocalAddress(netip.MustParseAddr("fd00:db9::1")))
	require.False(t, m.IsMeshLocalAddress(netip.MustParseAddr("fe80::1")))
}

func TestIsRoutingLocator(t *testing.T) {
	m := newTestMle(t)

	for _, tc := range []struct {
		name string
		addr string
		want bool
	}{
		{name: "routing locator", addr: "fd00:db8::ff:fe00:2c01", want: true},
		{name: "router locator", addr: "fd00:db8::ff:fe00:1400", want: true},
		{name: "anycast locator", addr: "fd00:db8::ff:fe00:fc00"},
		{name: "outside mesh-local prefix", addr: "fd00:db9::ff:fe00:2c01"},
		{name: "plain mesh-local EID", addr: "fd00:db8::1234:5678:9abc:def0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, m.IsRoutingLocator(netip.MustParseAddr(tc.addr)))
		})
	}
}

func TestRloc16(t *testing.T) {
	m := newTestMle(t)
	require.Equal(t, mac.ShortAddrInvalid, m.Rloc16())

	m.SetRloc16(0x2c00)
	require.Equal(t, mac.ShortAddr(0x2c00), m.Rloc16())
}
