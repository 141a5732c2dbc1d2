// Package config loads the daemon's engine configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/lacpd/pkg/lacp/engine"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// DefaultConfigPath is the default location read by `lacpd run`.
const DefaultConfigPath = "/etc/lacpd/lacpd.yaml"

// DefaultLogLevel is used when the file omits LogLevel.
const DefaultLogLevel = "info"

// EngineConfig is the on-disk shape of the daemon's configuration, covering
// both the protocol engine (spec.md §9's "global mutable configuration") and
// the adapter (X1-X5) endpoints the engine itself has no opinion about.
type EngineConfig struct {
	// ActorSystemMAC is this system's LACP actor identity. Changing it
	// requires restarting every port's Receive FSM (event E6), since the
	// actor SystemId is embedded in every emitted PDU.
	ActorSystemMAC string `yaml:"actor_system_mac"`

	// ActorSystemPriority defaults to wire.DefaultActorSystemPriority when zero.
	ActorSystemPriority uint16 `yaml:"actor_system_priority,omitempty"`

	// AllowCrossKeyPreemption mirrors engine.Config's field of the same name.
	AllowCrossKeyPreemption bool `yaml:"allow_cross_key_preemption"`

	LogLevel string `yaml:"log_level,omitempty"`

	// RedisAddr is X1's CONFIG_DB endpoint.
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   int    `yaml:"redis_db,omitempty"`

	// NetlinkNamespace is loaded from the file but not read by the daemon;
	// X2/X3 always operate in the daemon's own network namespace.
	NetlinkNamespace string `yaml:"netlink_namespace,omitempty"`

	// PDUInterfaces is the AF_PACKET allowlist X4 opens a raw socket on, one
	// per configured physical port.
	PDUInterfaces []string `yaml:"pdu_interfaces,omitempty"`

	// MetricsListenAddr is X5's Prometheus `/metrics` listen address.
	MetricsListenAddr string `yaml:"metrics_listen_addr,omitempty"`

	AuditLogPath string `yaml:"audit_log_path,omitempty"`
}

// DefaultEngineConfig returns the documented defaults applied before a
// config file is loaded.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ActorSystemPriority:     wire.DefaultActorSystemPriority,
		AllowCrossKeyPreemption: true,
		LogLevel:                DefaultLogLevel,
		RedisDB:                 0,
		MetricsListenAddr:       ":9100",
		AuditLogPath:            "/var/log/lacpd/audit.jsonl",
	}
}

// Load reads and parses path, filling in documented defaults for anything the
// file omits. A missing file is not an error: it returns the defaults.
func Load(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.ActorSystemPriority == 0 {
		cfg.ActorSystemPriority = wire.DefaultActorSystemPriority
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return cfg, nil
}

// ToEngineConfig projects the file's engine-relevant fields into
// engine.Config, the subset the protocol engine actually consumes.
func (c EngineConfig) ToEngineConfig() (engine.Config, error) {
	mac, err := wire.ParseMAC(c.ActorSystemMAC)
	if err != nil {
		return engine.Config{}, fmt.Errorf("config: actor_system_mac: %w", err)
	}
	return engine.Config{
		ActorSystemID: wire.SystemId{
			Priority: c.ActorSystemPriority,
			MAC:      mac,
		},
		AllowCrossKeyPreemption: c.AllowCrossKeyPreemption,
	}, nil
}
