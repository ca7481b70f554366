// Package config provides user configuration management for netdisco.
//
// This package manages a YAML configuration file holding the log level,
// which discoverable types to load, scanner tuning and the inspection
// server settings. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/netdisco/config.yaml or $HOME/.config/netdisco/config.yaml
//   - macOS: $HOME/.config/netdisco/config.yaml
//   - Windows: %LOCALAPPDATA%\netdisco\config.yaml
//
// # Example File
//
//	version: 1
//	log_level: info
//	discovery:
//	  limit: [chromecast, sonos]
//	  ssdp:
//	    timeout_seconds: 4
//	    search_target: ssdp:all
//	    multicast_ttl: 2
//	  mdns:
//	    extra_services: [_printer._tcp]
//	    ipv6: false
//	server:
//	  host: 127.0.0.1
//	  port: 8780
//	  rescan_interval_seconds: 30
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	opts := cfg.ToDiscoveryOptions()
//	opts.Logger = logger
//	d, err := discovery.New(opts)
//
// Command-line flags override values read from the file.
package config
