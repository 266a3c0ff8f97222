// Package bbr implements the backbone-router registration surface: the
// multicast-listener and domain-unicast registration resources installed on
// the management transport. Status computation and TLV interpretation
// happen in the injected registrar.
package bbr

import (
	"net/netip"

	"go.uber.org/zap"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/notifier"
	"github.com/lowpan-platform/meshcp/tmf"
)

const (
	// PathMlr is the multicast-listener registration resource.
	PathMlr = "n/mr"
	// PathDua is the domain-unicast-address registration resource.
	PathDua = "n/dr"
)

// MlrStatus is the status code of a multicast-listener registration
// response.
type MlrStatus uint8

const (
	MlrSuccess        MlrStatus = 0
	MlrInvalid        MlrStatus = 2
	MlrNoPersistent   MlrStatus = 3
	MlrNoResources    MlrStatus = 4
	MlrNotPrimary     MlrStatus = 5
	MlrGeneralFailure MlrStatus = 6
)

// DuaStatus is the status code of a domain-unicast registration response.
type DuaStatus uint8

const (
	DuaSuccess        DuaStatus = 0
	DuaReRegister     DuaStatus = 1
	DuaInvalid        DuaStatus = 2
	DuaDuplicate      DuaStatus = 3
	DuaNoResources    DuaStatus = 4
	DuaNotPrimary     DuaStatus = 5
	DuaGeneralFailure DuaStatus = 6
)

// Registrar computes registration outcomes from the request payloads.
type Registrar interface {
	RegisterMulticastListeners(payload []byte, src netip.Addr) MlrStatus
	RegisterDomainUnicast(target netip.Addr, payload []byte, src netip.Addr) DuaStatus
}

// Transport is the slice of the management transport the manager uses.
type Transport interface {
	AddResource(r *tmf.Resource)
	RemoveResource(path string)
	Reply(req *tmf.Message, info *ip6.MessageInfo, code tmf.Code, payload []byte) error
}

type duaOverride struct {
	targetIID *ip6.IID
	status    DuaStatus
}

// Manager owns the two registration resources and produces status-coded
// responses addressed back to the requester.
type Manager struct {
	transport Transport
	registrar Registrar
	log       *zap.SugaredLogger

	duaOverride *duaOverride
}

// New creates a manager, installs its resources and subscribes it to the
// event bus.
func New(transport Transport, registrar Registrar, bus *notifier.Notifier, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	m := &Manager{
		transport: transport,
		registrar: registrar,
		log:       log.With(zap.String("module", "bbr")),
	}

	transport.AddResource(&tmf.Resource{Path: PathMlr, Handler: m.handleMlr})
	transport.AddResource(&tmf.Resource{Path: PathDua, Handler: m.handleDua})
	if bus != nil {
		bus.Subscribe(m.handleEvents)
	}
	return m
}

// ConfigNextDuaRegistrationResponse forces the status of the next DUA
// registration response. With a nil IID any registration matches; otherwise
// only the one whose target carries the given mesh-local IID. Used by
// certification harnesses.
func (m *Manager) ConfigNextDuaRegistrationResponse(targetIID *ip6.IID, status DuaStatus) {
	m.duaOverride = &duaOverride{targetIID: targetIID, status: status}
}

func (m *Manager) handleMlr(msg *tmf.Message, info *ip6.MessageInfo) {
	status := m.registrar.RegisterMulticastListeners(msg.Payload, info.PeerAddr)

	m.log.Debugw("multicast listener registration",
		zap.Stringer("peer", info.PeerAddr),
		zap.Uint8("status", uint8(status)),
	)

	if err := m.transport.Reply(msg, info, tmf.CodeChanged, []byte{byte(status)}); err != nil {
		m.log.Warnw("failed to send MLR response", zap.Error(err))
	}
}

func (m *Manager) handleDua(msg *tmf.Message, info *ip6.MessageInfo) {
	if len(msg.Payload) < 16 {
		m.log.Debugw("dropping short DUA registration", zap.Stringer("peer", info.PeerAddr))
		return
	}

	target, _ := netip.AddrFromSlice(msg.Payload[:16])

	var status DuaStatus
	if override := m.takeDuaOverride(target); override != nil {
		status = override.status
	} else {
		status = m.registrar.RegisterDomainUnicast(target, msg.Payload[16:], info.PeerAddr)
	}

	m.log.Debugw("domain unicast registration",
		zap.Stringer("peer", info.PeerAddr),
		zap.Stringer("target", target),
		zap.Uint8("status", uint8(status)),
	)

	payload := append(target.AsSlice(), byte(status))
	if err := m.transport.Reply(msg, info, tmf.CodeChanged, payload); err != nil {
		m.log.Warnw("failed to send DUA response", zap.Error(err))
	}
}

// takeDuaOverride consumes the configured one-shot override when it applies
// to the given registration target.
func (m *Manager) takeDuaOverride(target netip.Addr) *duaOverride {
	override := m.duaOverride
	if override == nil {
		return nil
	}
	if override.targetIID != nil && *override.targetIID != ip6.IIDOf(target) {
		return nil
	}
	m.duaOverride = nil
	return override
}

func (m *Manager) handleEvents(events notifier.Events) {
	// A configured response override does not survive an interface
	// transition.
	if events.Contains(notifier.EventNetifState) && m.duaOverride != nil {
		m.duaOverride = nil
		m.log.Debugw("cleared DUA response override on interface transition")
	}
}
