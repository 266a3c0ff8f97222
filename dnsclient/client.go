// Package dnsclient is the auxiliary DNS client started and stopped with
// the interface.
package dnsclient

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

var errNotStarted = errors.New("dns client not started")

// Config configures the DNS client.
type Config struct {
	// Server is the resolver address, host:port.
	Server string `yaml:"server"`
	// Timeout bounds a single query exchange.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:  "[fd00::1]:53",
		Timeout: 5 * time.Second,
	}
}

// Client resolves names over the mesh border resolver.
type Client struct {
	cfg     *Config
	dns     *dns.Client
	started bool
	log     *zap.SugaredLogger
}

// New creates a stopped client.
func New(cfg *Config, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		cfg: cfg,
		dns: &dns.Client{Net: "udp", Timeout: cfg.Timeout},
		log: log.With(zap.String("module", "dns")),
	}
}

// Start enables queries. Starting a started client is a no-op.
func (c *Client) Start() error {
	if !c.started {
		c.started = true
		c.log.Debugw("dns client started", zap.String("server", c.cfg.Server))
	}
	return nil
}

// Stop disables queries. Stopping a stopped client is a no-op.
func (c *Client) Stop() error {
	if c.started {
		c.started = false
		c.log.Debugw("dns client stopped")
	}
	return nil
}

// QueryAAAA resolves the IPv6 addresses of a name.
func (c *Client) QueryAAAA(ctx context.Context, name string) ([]netip.Addr, error) {
	if !c.started {
		return nil, errNotStarted
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeAAAA)

	resp, _, err := c.dns.ExchangeContext(ctx, msg, c.cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", name, err)
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		if aaaa, ok := rr.(*dns.AAAA); ok {
			if addr, ok := netip.AddrFromSlice(aaaa.AAAA); ok {
				addrs = append(addrs, addr.Unmap())
			}
		}
	}
	return addrs, nil
}
