package stack

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/lowpan-platform/meshcp/dnsclient"
	"github.com/lowpan-platform/meshcp/internal/logging"
	"github.com/lowpan-platform/meshcp/sntp"
	"github.com/lowpan-platform/meshcp/tmf"
	"github.com/lowpan-platform/meshcp/topology"
)

// Config is the top-level stack configuration.
type Config struct {
	// Logging configuration.
	Logging logging.Config `yaml:"logging"`
	// MeshLocalPrefix is the mesh-local /64 of this network.
	MeshLocalPrefix string `yaml:"mesh_local_prefix"`
	// ExtAddr is this device's extended address, 16 hex digits.
	ExtAddr string `yaml:"ext_addr"`
	// RouterEligible enables the router/leader capable code paths.
	RouterEligible bool `yaml:"router_eligible"`
	// ChildTableSize is the child table slot capacity.
	ChildTableSize int `yaml:"child_table_size"`
	// ResolverCacheSize bounds the address-resolution cache.
	ResolverCacheSize int `yaml:"resolver_cache_size"`
	// RegistrarCapacity bounds backbone registrations of each kind.
	RegistrarCapacity int `yaml:"registrar_capacity"`
	// ChannelMonitor enables the channel monitor on interface up.
	ChannelMonitor bool `yaml:"channel_monitor"`
	// Tmf configures the management transport.
	Tmf *tmf.Config `yaml:"tmf"`
	// TmfSecure configures the secure agent's transport; omit to disable.
	TmfSecure *tmf.Config `yaml:"tmf_secure"`
	// DNS configures the auxiliary DNS client; omit to disable.
	DNS *dnsclient.Config `yaml:"dns"`
	// SNTP configures the auxiliary SNTP client; omit to disable.
	SNTP *sntp.Config `yaml:"sntp"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Logging: logging.Config{
			Level: zapcore.InfoLevel,
		},
		MeshLocalPrefix:   "fd00:db8::/64",
		ExtAddr:           "1122334455667788",
		RouterEligible:    true,
		ChildTableSize:    topology.DefaultChildTableSize,
		ResolverCacheSize: 16,
		RegistrarCapacity: 64,
		ChannelMonitor:    false,
		Tmf:               tmf.DefaultConfig(),
		TmfSecure:         tmf.DefaultSecureConfig(),
	}
}

// LoadConfig loads the configuration from the given path.
func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to deserialize config: %w", err)
	}

	return cfg, nil
}
