package tmf

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/net/ipv6"

	"github.com/lowpan-platform/meshcp/ip6"
)

// ErrNotTmf is the filter's denial outcome. The transport drops the message
// without further processing; it is never reported to the sender.
var ErrNotTmf = errors.New("message outside the management boundary")

// ErrResponseTimeout is returned when a confirmable message stays
// unacknowledged after all retransmissions.
var ErrResponseTimeout = errors.New("response timeout")

var errNotStarted = errors.New("transport not started")

// Filter is the pre-dispatch interceptor consulted for every inbound
// message. A nil return admits the message; ErrNotTmf drops it silently.
type Filter interface {
	Filter(msg *Message, info *ip6.MessageInfo) error
}

// Handler processes an admitted message addressed to its resource.
type Handler func(msg *Message, info *ip6.MessageInfo)

// Resource is a named handler installed on the transport.
type Resource struct {
	Path    string
	Handler Handler
}

// Option configures the transport.
type Option func(*options)

type options struct {
	Log   *zap.SugaredLogger
	Clock clock.Clock
}

func newOptions() *options {
	return &options{
		Log:   zap.NewNop().Sugar(),
		Clock: clock.New(),
	}
}

// WithLog configures the transport with a logger.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.Log = log
	}
}

// WithClock configures the transport with a clock, letting tests drive
// retransmission timing.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.Clock = clk
	}
}

// Transport is the management-message transport: a UDP socket on the
// well-known port, a resource table, and the security filter registered at
// construction.
type Transport struct {
	cfg    *Config
	filter Filter
	clk    clock.Clock
	log    *zap.SugaredLogger

	mu        sync.Mutex
	conn      *net.UDPConn
	resources map[string]*Resource
	pending   map[uint16]chan struct{}
	nextMsgID uint16
	wg        sync.WaitGroup
}

// NewTransport creates a stopped transport. The filter gates every inbound
// message once the transport is started; a nil filter admits everything.
func NewTransport(cfg *Config, filter Filter, opts ...Option) *Transport {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &Transport{
		cfg:       cfg,
		filter:    filter,
		clk:       o.Clock,
		log:       o.Log.With(zap.String("module", "tmf")),
		resources: make(map[string]*Resource),
		pending:   make(map[uint16]chan struct{}),
		nextMsgID: uint16(rand.Uint32()),
	}
}

// AddResource installs a named resource. A resource already installed under
// the same path is replaced.
func (t *Transport) AddResource(r *Resource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resources[r.Path] = r
}

// RemoveResource uninstalls the resource under the given path.
func (t *Transport) RemoveResource(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.resources, path)
}

// Start binds the socket and begins dispatching. Starting a running
// transport is a no-op.
func (t *Transport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	conn, err := net.ListenUDP("udp6", &net.UDPAddr{Port: int(t.cfg.Port)})
	if err != nil {
		return fmt.Errorf("failed to bind management port: %w", err)
	}

	t.conn = conn
	t.wg.Add(1)
	go t.readLoop(conn)

	t.log.Infow("management transport started", zap.Stringer("addr", conn.LocalAddr()))
	return nil
}

// Stop closes the socket and waits for dispatch to drain. Stopping a
// stopped transport is a no-op.
func (t *Transport) Stop() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close()
	t.wg.Wait()
	t.log.Infow("management transport stopped")
	return err
}

// LocalPort returns the bound port, zero when stopped.
func (t *Transport) LocalPort() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return 0
	}
	return uint16(t.conn.LocalAddr().(*net.UDPAddr).Port)
}

func (t *Transport) readLoop(conn *net.UDPConn) {
	defer t.wg.Done()

	// The filter classifies the destination address of every datagram,
	// which a wildcard-bound socket only reports through the packet-info
	// control message.
	pc := ipv6.NewPacketConn(conn)
	if err := pc.SetControlMessage(ipv6.FlagDst, true); err != nil {
		t.log.Warnw("failed to enable destination reporting", zap.Error(err))
	}

	local := conn.LocalAddr().(*net.UDPAddr)
	localAddr, _ := netip.AddrFromSlice(local.IP)

	buf := make([]byte, maxMessageLen)
	for {
		n, cm, src, err := pc.ReadFrom(buf)
		if err != nil {
			return
		}

		msg := &Message{}
		if err := msg.Unmarshal(buf[:n]); err != nil {
			t.log.Debugw("dropping undecodable datagram", zap.Error(err))
			continue
		}

		peer, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}
		peerAddr, _ := netip.AddrFromSlice(peer.IP)

		dstAddr := localAddr
		if cm != nil && cm.Dst != nil {
			if addr, ok := netip.AddrFromSlice(cm.Dst); ok {
				dstAddr = addr
			}
		}

		info := &ip6.MessageInfo{
			PeerAddr: peerAddr.Unmap(),
			PeerPort: uint16(peer.Port),
			SockAddr: dstAddr.Unmap(),
			SockPort: uint16(local.Port),
		}

		t.dispatch(msg, info)
	}
}

// dispatch routes one inbound message: acknowledgments complete their
// pending exchange, everything else passes the filter and then the resource
// table. Handlers run sequentially on the dispatch goroutine.
func (t *Transport) dispatch(msg *Message, info *ip6.MessageInfo) {
	if msg.Type == TypeAck || msg.Type == TypeReset {
		t.completeExchange(msg.MessageID)
		return
	}

	if t.filter != nil {
		if err := t.filter.Filter(msg, info); err != nil {
			// Denied messages are silently ignored, not protocol errors.
			t.log.Debugw("message denied by filter",
				zap.String("path", msg.Path),
				zap.Stringer("peer", info.PeerAddr),
			)
			return
		}
	}

	t.mu.Lock()
	resource := t.resources[msg.Path]
	t.mu.Unlock()

	if resource == nil {
		t.log.Debugw("no resource for path", zap.String("path", msg.Path))
		return
	}

	resource.Handler(msg, info)
}

func (t *Transport) completeExchange(messageID uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ch, ok := t.pending[messageID]; ok {
		close(ch)
		delete(t.pending, messageID)
	}
}

// Reply sends a status response for a received request, mirroring its
// message id and token back to the requester.
func (t *Transport) Reply(req *Message, info *ip6.MessageInfo, code Code, payload []byte) error {
	resp := &Message{
		Type:      TypeAck,
		Code:      code,
		MessageID: req.MessageID,
		Token:     req.Token,
		Payload:   payload,
	}
	return t.send(resp, netip.AddrPortFrom(info.PeerAddr, info.PeerPort))
}

// SendNonConfirmable sends a fire-and-forget message.
func (t *Transport) SendNonConfirmable(msg *Message, dest netip.AddrPort) error {
	msg.Type = TypeNonConfirmable
	msg.MessageID = t.allocMessageID()
	return t.send(msg, dest)
}

// SendConfirmable sends a message and retransmits it with exponential
// backoff until it is acknowledged, the retransmission budget is spent, or
// the context is canceled.
func (t *Transport) SendConfirmable(ctx context.Context, msg *Message, dest netip.AddrPort) error {
	msg.Type = TypeConfirmable
	msg.MessageID = t.allocMessageID()

	acked := make(chan struct{})
	t.mu.Lock()
	t.pending[msg.MessageID] = acked
	t.mu.Unlock()
	defer t.completeExchange(msg.MessageID)

	interval := backoff.ExponentialBackOff{
		InitialInterval:     t.cfg.AckTimeout,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         time.Minute,
	}
	interval.Reset()

	for attempt := 0; attempt <= t.cfg.MaxRetransmit; attempt++ {
		if err := t.send(msg, dest); err != nil {
			return err
		}

		timer := t.clk.Timer(interval.NextBackOff())
		select {
		case <-acked:
			timer.Stop()
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return ErrResponseTimeout
}

func (t *Transport) send(msg *Message, dest netip.AddrPort) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return errNotStarted
	}

	buf, err := msg.Marshal()
	if err != nil {
		return err
	}
	if _, err := conn.WriteToUDPAddrPort(buf, dest); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (t *Transport) allocMessageID() uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextMsgID++
	return t.nextMsgID
}
