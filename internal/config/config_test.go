package config

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "netdisco") {
		t.Errorf("GetConfigDir() = %v, should contain 'netdisco'", configDir)
	}
	if runtime.GOOS == "linux" && configDir != filepath.Join("/tmp/xdg", "netdisco") {
		t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME/netdisco", configDir)
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.ScanWindow() != 4*time.Second {
		t.Errorf("ScanWindow() = %v, want 4s", cfg.ScanWindow())
	}
	if cfg.Limit() != nil {
		t.Errorf("Limit() = %v, want nil", cfg.Limit())
	}
	if cfg.Addr() != "127.0.0.1:8780" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
log_level: debug
discovery:
  limit: [chromecast, sonos]
  mdns:
    extra_services: [_printer._tcp]
    ipv6: true
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.Server.Port != 9000 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.Discovery.SSDP.TimeoutSeconds != 4 || cfg.Discovery.SSDP.SearchTarget != "ssdp:all" {
		t.Errorf("SSDP defaults not applied: %+v", cfg.Discovery.SSDP)
	}

	opts := cfg.ToDiscoveryOptions()
	if !reflect.DeepEqual(opts.Limit, []string{"chromecast", "sonos"}) {
		t.Errorf("Limit = %v", opts.Limit)
	}
	if !reflect.DeepEqual(opts.MDNS.Services, []string{"_printer._tcp"}) || !opts.MDNS.IPv6 {
		t.Errorf("MDNS = %+v", opts.MDNS)
	}
	if opts.SSDP.Window != 4*time.Second || opts.SSDP.MulticastTTL != 2 {
		t.Errorf("SSDP = %+v", opts.SSDP)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad yaml", "discovery: [", "failed to parse"},
		{"future version", "version: 2\n", "unsupported config version"},
		{"bad log level", "log_level: loud\n", "invalid log_level"},
		{"bad limit name", "discovery:\n  limit: [Philips-Hue]\n", "invalid discoverable name"},
		{"bad service", "discovery:\n  mdns:\n    extra_services: [printer]\n", "invalid mDNS service type"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"bad window", "discovery:\n  ssdp:\n    timeout_seconds: -1\n", "timeout_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.LogLevel = "info"
	cfg.Discovery.Limit = []string{"roku"}
	cfg.Server.RescanIntervalSeconds = 60

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# netdisco configuration file") {
		t.Error("saved file is missing the header comment")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if info.Mode().Perm() != 0600 {
			t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("Load() = %+v, want %+v", loaded, cfg)
	}
}
