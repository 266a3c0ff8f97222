// Package resolver maintains the EID-to-RLOC address-resolution cache: it
// snoops address notifications received on the management transport and
// issues address queries for misses.
package resolver

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/lowpan-platform/meshcp/ip6"
	"github.com/lowpan-platform/meshcp/mac"
	"github.com/lowpan-platform/meshcp/tmf"
)

const (
	// PathAddressQuery is the address-query resource.
	PathAddressQuery = "a/aq"
	// PathAddressNotify is the address-notification resource.
	PathAddressNotify = "a/an"
)

// DefaultCacheSize bounds the resolution cache when none is configured.
const DefaultCacheSize = 16

// notificationLen is a 16-byte EID followed by a 2-byte locator.
const notificationLen = 18

// ErrNotFound is returned for an EID with no cached locator. The caller may
// issue a Query and retry once a notification arrives.
var ErrNotFound = errors.New("address not resolved")

// Transport is the slice of the management transport the resolver uses.
type Transport interface {
	AddResource(r *tmf.Resource)
	SendConfirmable(ctx context.Context, msg *tmf.Message, dest netip.AddrPort) error
}

// Resolver is the EID-to-RLOC cache with LRU eviction.
type Resolver struct {
	mu        sync.Mutex
	cache     *lru.Cache[netip.Addr, mac.ShortAddr]
	transport Transport
	log       *zap.SugaredLogger
}

// New creates a resolver and installs its notification resource on the
// transport.
func New(transport Transport, cacheSize int, log *zap.SugaredLogger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	cache, err := lru.New[netip.Addr, mac.ShortAddr](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution cache: %w", err)
	}

	r := &Resolver{
		cache:     cache,
		transport: transport,
		log:       log.With(zap.String("module", "resolver")),
	}
	transport.AddResource(&tmf.Resource{Path: PathAddressNotify, Handler: r.handleNotification})
	return r, nil
}

// Resolve returns the cached locator for the EID.
func (r *Resolver) Resolve(eid netip.Addr) (mac.ShortAddr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rloc, ok := r.cache.Get(eid); ok {
		return rloc, nil
	}
	return mac.ShortAddrInvalid, ErrNotFound
}

// Snoop records a mapping observed on forwarded traffic.
func (r *Resolver) Snoop(eid netip.Addr, rloc mac.ShortAddr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(eid, rloc)
}

// Remove invalidates a cached mapping.
func (r *Resolver) Remove(eid netip.Addr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(eid)
}

// Query issues a confirmable address query for the EID to the realm-local
// all-routers group. The answer arrives asynchronously as an address
// notification.
func (r *Resolver) Query(ctx context.Context, eid netip.Addr) error {
	payload := eid.As16()
	msg := &tmf.Message{
		Code:    tmf.CodePost,
		Path:    PathAddressQuery,
		Payload: payload[:],
	}
	dest := netip.AddrPortFrom(ip6.RealmLocalAllRouters, tmf.UdpPort)
	return r.transport.SendConfirmable(ctx, msg, dest)
}

func (r *Resolver) handleNotification(msg *tmf.Message, info *ip6.MessageInfo) {
	if len(msg.Payload) < notificationLen {
		r.log.Debugw("dropping short address notification",
			zap.Int("len", len(msg.Payload)),
			zap.Stringer("peer", info.PeerAddr),
		)
		return
	}

	eid, _ := netip.AddrFromSlice(msg.Payload[:16])
	rloc := mac.ShortAddr(binary.BigEndian.Uint16(msg.Payload[16:notificationLen]))

	r.mu.Lock()
	r.cache.Add(eid, rloc)
	r.mu.Unlock()

	r.log.Debugw("cached address notification",
		zap.Stringer("eid", eid),
		zap.Stringer("rloc16", rloc),
	)
}
