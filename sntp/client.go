// Package sntp is the auxiliary SNTP client started and stopped with the
// interface. It speaks the minimal unicast client exchange of RFC 4330.
package sntp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

var errNotStarted = errors.New("sntp client not started")

// ntpEpochOffset is the seconds between the NTP epoch (1900) and the Unix
// epoch (1970).
const ntpEpochOffset = 2208988800

const packetLen = 48

// Config configures the SNTP client.
type Config struct {
	// Server is the time server address, host:port.
	Server string `yaml:"server"`
	// Timeout bounds a single exchange.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:  "[fd00::1]:123",
		Timeout: 5 * time.Second,
	}
}

// Client queries wall-clock time from the configured server.
type Client struct {
	cfg     *Config
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
		log: log.With(zap.String("module", "sntp")),
	}
}

// Start enables queries. Starting a started client is a no-op.
func (c *Client) Start() error {
	if !c.started {
		c.started = true
		c.log.Debugw("sntp client started", zap.String("server", c.cfg.Server))
	}
	return nil
}

// Stop disables queries. Stopping a stopped client is a no-op.
func (c *Client) Stop() error {
	if c.started {
		c.started = false
		c.log.Debugw("sntp client stopped")
	}
	return nil
}

// Query performs one SNTP exchange and returns the server's transmit time.
func (c *Client) Query(ctx context.Context) (time.Time, error) {
	if !c.started {
		return time.Time{}, errNotStarted
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", c.cfg.Server)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to dial time server: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.cfg.Timeout))
	}

	req := make([]byte, packetLen)
	req[0] = 0x23 // LI 0, version 4, mode client

	if _, err := conn.Write(req); err != nil {
		return time.Time{}, fmt.Errorf("failed to send request: %w", err)
	}

	resp := make([]byte, packetLen)
	if _, err := conn.Read(resp); err != nil {
		return time.Time{}, fmt.Errorf("failed to read response: %w", err)
	}

	// Transmit timestamp: seconds and fraction at offset 40.
	secs := binary.BigEndian.Uint32(resp[40:44])
	frac := binary.BigEndian.Uint32(resp[44:48])

	nanos := int64(secs-ntpEpochOffset)*int64(time.Second) +
		int64(uint64(frac)*uint64(time.Second)>>32)
	return time.Unix(0, nanos), nil
}
