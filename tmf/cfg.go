package tmf

import "time"

// UdpPort is the well-known management port.
const UdpPort = 61631

// UdpPortSecure is the well-known secure management port.
const UdpPortSecure = 5684

// Config configures the management transport.
type Config struct {
	// Port is the UDP port the transport binds. Zero lets the kernel
	// pick, which the tests rely on.
	Port uint16 `yaml:"port"`
	// AckTimeout is the initial wait for an acknowledgment of a
	// confirmable message.
	AckTimeout time.Duration `yaml:"ack_timeout"`
	// MaxRetransmit is how many times a confirmable message is resent
	// before giving up.
	MaxRetransmit int `yaml:"max_retransmit"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:          UdpPort,
		AckTimeout:    2 * time.Second,
		MaxRetransmit: 4,
	}
}

// DefaultSecureConfig returns the production defaults for the secure
// agent's transport.
func DefaultSecureConfig() *Config {
	cfg := DefaultConfig()
	cfg.Port = UdpPortSecure
	return cfg
}
