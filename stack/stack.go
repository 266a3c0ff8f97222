// Package stack assembles the mesh control plane: topology stores, routing
// state, the management transport with its security filter, the backbone
// registration surface, and the interface controller that ties their
// lifecycles together.
package stack

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/netip"

	"go.uber.org/zap"

	"github.com/lowpan-platform/meshcp/bbr"
	"github.com/lowpan-platform/meshcp/dnsclient"
	"github.com/lowpan-platform/meshcp/mac"
	"github.com/lowpan-platform/meshcp/mle"
	"github.com/lowpan-platform/meshcp/netdata"
	"github.com/lowpan-platform/meshcp/netdiag"
	"github.com/lowpan-platform/meshcp/netif"
	"github.com/lowpan-platform/meshcp/notifier"
	"github.com/lowpan-platform/meshcp/resolver"
	"github.com/lowpan-platform/meshcp/sntp"
	"github.com/lowpan-platform/meshcp/tmf"
	"github.com/lowpan-platform/meshcp/topology"
)

type options struct {
	Log      *zap.SugaredLogger
	LogLevel *zap.AtomicLevel
}

func newOptions() *options {
	return &options{
		Log: zap.NewNop().Sugar(),
	}
}

// Option configures the stack.
type Option func(*options)

// WithLog sets the logger for the stack and every module under it.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.Log = log
	}
}

// WithAtomicLogLevel sets the runtime-adjustable logging level.
func WithAtomicLogLevel(level *zap.AtomicLevel) Option {
	return func(o *options) {
		o.LogLevel = level
	}
}

// Stack is the assembled control plane.
type Stack struct {
	cfg      *Config
	log      *zap.SugaredLogger
	logLevel *zap.AtomicLevel

	bus       *notifier.Notifier
	mle       *mle.Mle
	neighbors *topology.NeighborTable
	leader    *netdata.Leader
	transport *tmf.Transport
	secure    *tmf.Transport
	resolver  *resolver.Resolver
	registrar *bbr.MemoryRegistrar
	bbr       *bbr.Manager
	diag      *netdiag.Server
	netif     *netif.Netif
}

// New creates a stack from the given config. Nothing is started until Run.
func New(cfg *Config, opts ...Option) (*Stack, error) {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	log := o.Log
	log.Infof("initializing mesh control plane ...")
	log.Debugw("parsed config", zap.Any("config", cfg))

	meshLocalPrefix, err := netip.ParsePrefix(cfg.MeshLocalPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mesh-local prefix: %w", err)
	}

	var extAddr mac.ExtAddr
	if _, err := hex.Decode(extAddr[:], []byte(cfg.ExtAddr)); err != nil {
		return nil, fmt.Errorf("failed to parse extended address: %w", err)
	}

	bus := notifier.New(log)
	routing := mle.New(meshLocalPrefix, log)

	var children *topology.ChildTable
	var routers *topology.RouterTable
	if cfg.RouterEligible {
		children = topology.NewChildTable(cfg.ChildTableSize)
		routers = topology.NewRouterTable()
	}
	neighbors := topology.NewNeighborTable(routing, children, routers, cfg.RouterEligible)

	leader := netdata.NewLeader(log)

	transport := tmf.NewTransport(cfg.Tmf, netif.NewTmfFilter(routing), tmf.WithLog(log))

	// The secure agent is started on demand by commissioning flows, not by
	// the interface lifecycle; Down still guarantees it is stopped.
	var secure *tmf.Transport
	if cfg.TmfSecure != nil {
		secure = tmf.NewTransport(cfg.TmfSecure, netif.NewTmfFilter(routing), tmf.WithLog(log))
	}

	addrResolver, err := resolver.New(transport, cfg.ResolverCacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize address resolver: %w", err)
	}

	registrar := bbr.NewMemoryRegistrar(cfg.RegistrarCapacity)
	bbrManager := bbr.New(transport, registrar, bus, log)

	diag := netdiag.New(transport, neighbors, log)

	var aux []netif.AuxiliaryClient
	if cfg.DNS != nil {
		aux = append(aux, dnsclient.New(cfg.DNS, log))
	}
	if cfg.SNTP != nil {
		aux = append(aux, sntp.New(cfg.SNTP, log))
	}

	deps := netif.Deps{
		Radio:       &radio{log: log},
		Forwarder:   &meshForwarder{log: log},
		Mle:         routing,
		Transport:   transport,
		Aux:         aux,
		NetworkData: leader,
		Events:      bus,
	}
	if secure != nil {
		deps.SecureTransport = secure
	}
	if cfg.ChannelMonitor {
		deps.Monitor = &channelMonitor{log: log}
	}

	return &Stack{
		cfg:       cfg,
		log:       log,
		logLevel:  o.LogLevel,
		bus:       bus,
		mle:       routing,
		neighbors: neighbors,
		leader:    leader,
		transport: transport,
		secure:    secure,
		resolver:  addrResolver,
		registrar: registrar,
		bbr:       bbrManager,
		diag:      diag,
		netif:     netif.New(deps, log),
	}, nil
}

// Run brings the interface up and keeps the stack running until the context
// is canceled, then takes the interface down.
func (s *Stack) Run(ctx context.Context) error {
	if err := s.netif.Up(); err != nil {
		return fmt.Errorf("failed to bring interface up: %w", err)
	}

	<-ctx.Done()

	if err := s.netif.Down(); err != nil {
		s.log.Warnw("interface teardown reported errors", zap.Error(err))
	}
	return ctx.Err()
}

// Netif returns the interface controller.
func (s *Stack) Netif() *netif.Netif { return s.netif }

// NeighborTable returns the resolution façade.
func (s *Stack) NeighborTable() *topology.NeighborTable { return s.neighbors }

// Mle returns the routing-state handle.
func (s *Stack) Mle() *mle.Mle { return s.mle }

// NetworkData returns the network-data route view.
func (s *Stack) NetworkData() *netdata.Leader { return s.leader }

// Resolver returns the address resolver.
func (s *Stack) Resolver() *resolver.Resolver { return s.resolver }

// Notifier returns the event bus.
func (s *Stack) Notifier() *notifier.Notifier { return s.bus }

// BackboneManager returns the backbone registration manager.
func (s *Stack) BackboneManager() *bbr.Manager { return s.bbr }

// SecureTransport returns the secure agent's transport, nil when disabled.
// Commissioning flows start it on demand; the interface lifecycle only
// guarantees it is stopped on Down.
func (s *Stack) SecureTransport() *tmf.Transport { return s.secure }

// LogLevel returns the runtime-adjustable logging level, nil when the stack
// was assembled without one. Host applications raise or lower it without
// restarting the daemon.
func (s *Stack) LogLevel() *zap.AtomicLevel { return s.logLevel }
