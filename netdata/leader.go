// Package netdata holds the network-data view consumed by route lookups: a
// set of prefixes announced by border routers, each with the locator of the
// announcing device.
package netdata

import (
	"errors"
	"net/netip"
	"sync"

	"go.uber.org/zap"

	"github.com/lowpan-platform/meshcp/mac"
)

// ErrNoRoute is returned when no announced prefix covers the destination,
// or the resolved next hop is the querying device itself.
var ErrNoRoute = errors.New("no route")

// ExternalRoute is a prefix announced into the network data.
type ExternalRoute struct {
	// Prefix is the covered destination range.
	Prefix netip.Prefix
	// Rloc16 is the locator of the border router announcing the prefix.
	Rloc16 mac.ShortAddr
	// Preference orders otherwise equal routes, higher wins.
	Preference int8
}

// Leader is the route view derived from the leader network data. Route
// computation itself happens in the leader role logic; this type only
// stores and answers lookups.
//
// A mutex guards the route set because transports mutate it from their own
// goroutines while lookups come from the dispatch context.
type Leader struct {
	mu     sync.RWMutex
	routes []ExternalRoute
	log    *zap.SugaredLogger
}

// NewLeader creates an empty network-data view.
func NewLeader(log *zap.SugaredLogger) *Leader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Leader{log: log.With(zap.String("module", "netdata"))}
}

// AddRoute installs or refreshes an external route.
func (l *Leader) AddRoute(route ExternalRoute) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.routes {
		if l.routes[i].Prefix == route.Prefix && l.routes[i].Rloc16 == route.Rloc16 {
			l.routes[i] = route
			return
		}
	}
	l.routes = append(l.routes, route)

	l.log.Infow("added external route",
		zap.Stringer("prefix", route.Prefix),
		zap.Stringer("rloc16", route.Rloc16),
	)
}

// RemoveRoutes drops every route announced by the given device.
func (l *Leader) RemoveRoutes(rloc16 mac.ShortAddr) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.routes[:0]
	for _, r := range l.routes {
		if r.Rloc16 != rloc16 {
			kept = append(kept, r)
		}
	}
	l.routes = kept
}

// RouteLookup returns the matched prefix length and the locator of the next
// hop for the destination. Longest prefix wins; preference breaks ties. The
// source address takes no part in the match, it is carried for interface
// parity with the forwarding path.
func (l *Leader) RouteLookup(src, dst netip.Addr) (uint8, mac.ShortAddr, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	best := -1
	for i, r := range l.routes {
		if !r.Prefix.Contains(dst) {
			continue
		}
		if best < 0 || betterRoute(r, l.routes[best]) {
			best = i
		}
	}

	if best < 0 {
		return 0, mac.ShortAddrInvalid, ErrNoRoute
	}
	return uint8(l.routes[best].Prefix.Bits()), l.routes[best].Rloc16, nil
}

func betterRoute(a, b ExternalRoute) bool {
	if a.Prefix.Bits() != b.Prefix.Bits() {
		return a.Prefix.Bits() > b.Prefix.Bits()
	}
	return a.Preference > b.Preference
}
