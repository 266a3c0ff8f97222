// Package mle carries the slice of the routing state machine the control
// plane consumes: the device role, the two parent slots, the mesh-local
// prefix and the device's own routing locator. The protocol machinery that
// drives these fields lives outside this repository.
package mle

import (
	"net/netip"

	"go.uber.org/zap"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/mac"
	"github.com/lowpan-platform/meshcp/topology"
)

// DeviceRole is the current role of this device in the mesh.
type DeviceRole uint8

const (
	RoleDisabled DeviceRole = iota
	RoleDetached
	RoleChild
	RoleRouter
	RoleLeader
)

func (r DeviceRole) String() string {
	switch r {
	case RoleDisabled:
		return "disabled"
	case RoleDetached:
		return "detached"
	case RoleChild:
		return "child"
	case RoleRouter:
		return "router"
	case RoleLeader:
		return "leader"
	default:
		return "unknown"
	}
}

// alocMask marks short addresses reserved for anycast locators; a routing
// locator is always below it.
const alocMask mac.ShortAddr = 0xfc00

// Mle holds the routing-state fields read by the neighbor table and the
// interface controller.
type Mle struct {
	role            DeviceRole
	parent          topology.Neighbor
	parentCandidate topology.Neighbor
	meshLocalPrefix netip.Prefix
	rloc16          mac.ShortAddr
	enabled         bool
	log             *zap.SugaredLogger
}

// New creates a routing-state handle with both parent slots blank and the
// device detached.
func New(meshLocalPrefix netip.Prefix, log *zap.SugaredLogger) *Mle {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	m := &Mle{
		role:            RoleDisabled,
		meshLocalPrefix: meshLocalPrefix,
		rloc16:          mac.ShortAddrInvalid,
		log:             log.With(zap.String("module", "mle")),
	}
	m.parent.Role = topology.RoleParent
	m.parent.Rloc16 = mac.ShortAddrInvalid
	m.parentCandidate.Role = topology.RoleParentCandidate
	m.parentCandidate.Rloc16 = mac.ShortAddrInvalid
	return m
}

// Enable starts the routing state machine.
func (m *Mle) Enable() error {
	if !m.enabled {
		m.enabled = true
		m.role = RoleDetached
		m.log.Debugw("routing state machine enabled")
	}
	return nil
}

// Disable stops the routing state machine.
func (m *Mle) Disable() error {
	if m.enabled {
		m.enabled = false
		m.role = RoleDisabled
		m.log.Debugw("routing state machine disabled")
	}
	return nil
}

// Role returns the current device role.
func (m *Mle) Role() DeviceRole { return m.role }

// SetRole records a role transition decided by the routing protocol.
func (m *Mle) SetRole(role DeviceRole) {
	if m.role != role {
		m.log.Infow("role changed",
			zap.Stringer("from", m.role),
			zap.Stringer("to", role),
		)
		m.role = role
	}
}

// Rloc16 returns this device's own routing locator.
func (m *Mle) Rloc16() mac.ShortAddr { return m.rloc16 }

// SetRloc16 records the locator assigned on attach.
func (m *Mle) SetRloc16(rloc16 mac.ShortAddr) { m.rloc16 = rloc16 }

// MeshLocalPrefix returns the mesh-local /64.
func (m *Mle) MeshLocalPrefix() netip.Prefix { return m.meshLocalPrefix }

// Parent returns the parent slot. The record is reused across attach
// cycles.
func (m *Mle) Parent() *topology.Neighbor { return &m.parent }

// ParentCandidate returns the parent-candidate slot.
func (m *Mle) ParentCandidate() *topology.Neighbor { return &m.parentCandidate }

// IsRouterOrLeader reports whether the device currently acts as a router or
// leader.
func (m *Mle) IsRouterOrLeader() bool {
	return m.role == RoleRouter || m.role == RoleLeader
}

// IsChild reports whether the device is attached as a child.
func (m *Mle) IsChild() bool { return m.role == RoleChild }

// IsMeshLocalAddress reports whether the address is covered by the
// mesh-local prefix.
func (m *Mle) IsMeshLocalAddress(addr netip.Addr) bool {
	return m.meshLocalPrefix.Contains(addr)
}

// IsRoutingLocator reports whether the address is a mesh-local address
// whose interface identifier embeds a routing locator.
func (m *Mle) IsRoutingLocator(addr netip.Addr) bool {
	if !m.IsMeshLocalAddress(addr) {
		return false
	}
	iid := ip6.IIDOf(addr)
	return iid.IsLocator() && iid.Locator() < alocMask
}
