package config

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/discovery"
	"github.com/muurk/netdisco/internal/mdns"
	"github.com/muurk/netdisco/internal/ssdp"
)

// CurrentVersion is the config schema version this build reads and writes
const CurrentVersion = 1

// Config represents the entire user configuration file.
type Config struct {
	Version   int             `yaml:"version"`
	LogLevel  string          `yaml:"log_level,omitempty"` // debug, info, warn, error; empty disables logging
	Discovery DiscoveryConfig `yaml:"discovery"`
	Server    ServerConfig    `yaml:"server"`
}

// DiscoveryConfig controls which types are loaded and how the scanners run.
type DiscoveryConfig struct {
	Limit []string   `yaml:"limit,omitempty"` // Discoverable types to load; empty loads all
	SSDP  SSDPConfig `yaml:"ssdp"`
	MDNS  MDNSConfig `yaml:"mdns"`
}

// SSDPConfig configures the foreground scanner.
type SSDPConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`         // Observation window per scan
	SearchTarget   string `yaml:"search_target,omitempty"` // ST header (default "ssdp:all")
	MulticastTTL   int    `yaml:"multicast_ttl,omitempty"` // IP TTL for the M-SEARCH
}

// MDNSConfig configures the background scanner.
type MDNSConfig struct {
	ExtraServices []string `yaml:"extra_services,omitempty"` // Browsed in addition to what the loaded types need
	IPv6          bool     `yaml:"ipv6"`
}

// ServerConfig configures "netdisco serve".
type ServerConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	RescanIntervalSeconds int    `yaml:"rescan_interval_seconds"`
}

// DefaultConfig creates a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Discovery: DiscoveryConfig{
			SSDP: SSDPConfig{
				TimeoutSeconds: int(ssdp.DefaultWindow / time.Second),
				SearchTarget:   ssdp.SearchAll,
				MulticastTTL:   ssdp.DefaultMulticastTTL,
			},
		},
		Server: ServerConfig{
			Host:                  "127.0.0.1",
			Port:                  8780,
			RescanIntervalSeconds: 30,
		},
	}
}

// applyDefaults fills zero values left by a partial file
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Discovery.SSDP.TimeoutSeconds == 0 {
		c.Discovery.SSDP.TimeoutSeconds = d.Discovery.SSDP.TimeoutSeconds
	}
	if c.Discovery.SSDP.SearchTarget == "" {
		c.Discovery.SSDP.SearchTarget = d.Discovery.SSDP.SearchTarget
	}
	if c.Discovery.SSDP.MulticastTTL == 0 {
		c.Discovery.SSDP.MulticastTTL = d.Discovery.SSDP.MulticastTTL
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.RescanIntervalSeconds == 0 {
		c.Server.RescanIntervalSeconds = d.Server.RescanIntervalSeconds
	}
}

// Validate checks the configuration for values the scanners cannot use.
// Discoverable names are checked for form only; whether a type exists is
// decided when discovery loads.
func (c *Config) Validate() error {
	var problems []string

	if c.Version != CurrentVersion {
		problems = append(problems, fmt.Sprintf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion))
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			problems = append(problems, fmt.Sprintf("invalid log_level %q", c.LogLevel))
		}
	}
	for _, name := range c.Discovery.Limit {
		if !discoverable.ValidName(name) {
			problems = append(problems, fmt.Sprintf("invalid discoverable name %q in discovery.limit", name))
		}
	}
	if c.Discovery.SSDP.TimeoutSeconds < 1 || c.Discovery.SSDP.TimeoutSeconds > 120 {
		problems = append(problems, "discovery.ssdp.timeout_seconds must be between 1 and 120")
	}
	if c.Discovery.SSDP.MulticastTTL < 1 || c.Discovery.SSDP.MulticastTTL > 255 {
		problems = append(problems, "discovery.ssdp.multicast_ttl must be between 1 and 255")
	}
	for _, svc := range c.Discovery.MDNS.ExtraServices {
		if !strings.HasPrefix(svc, "_") || !strings.Contains(svc, "._") {
			problems = append(problems, fmt.Sprintf("invalid mDNS service type %q (want _name._tcp)", svc))
		}
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	if c.Server.RescanIntervalSeconds < 1 {
		problems = append(problems, "server.rescan_interval_seconds must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Limit returns the discovery limit, or nil to load every type.
func (c *Config) Limit() []string {
	if len(c.Discovery.Limit) == 0 {
		return nil
	}
	return append([]string(nil), c.Discovery.Limit...)
}

// ScanWindow returns the SSDP observation window.
func (c *Config) ScanWindow() time.Duration {
	return time.Duration(c.Discovery.SSDP.TimeoutSeconds) * time.Second
}

// RescanInterval returns how often the server triggers a scan.
func (c *Config) RescanInterval() time.Duration {
	return time.Duration(c.Server.RescanIntervalSeconds) * time.Second
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ToDiscoveryOptions converts the configuration into coordinator options.
// The caller supplies the logger.
func (c *Config) ToDiscoveryOptions() discovery.Options {
	return discovery.Options{
		Limit: c.Limit(),
		MDNS: mdns.Config{
			Services: append([]string(nil), c.Discovery.MDNS.ExtraServices...),
			IPv6:     c.Discovery.MDNS.IPv6,
		},
		SSDP: ssdp.Config{
			SearchTarget: c.Discovery.SSDP.SearchTarget,
			Window:       c.ScanWindow(),
			MulticastTTL: c.Discovery.SSDP.MulticastTTL,
		},
	}
}
