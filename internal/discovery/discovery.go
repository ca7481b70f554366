package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/logging"
	"github.com/muurk/netdisco/internal/mdns"
	"github.com/muurk/netdisco/internal/ssdp"
)

// State is the coordinator lifecycle state
type State int

const (
	// StateIdle is the initial state; queries fail with ErrInvalidState
	StateIdle State = iota
	// StateScanning means the background scanner is running
	StateScanning
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// BackgroundScanner runs continuously between Start and Stop.
// *mdns.Scanner implements it.
type BackgroundScanner interface {
	Start() error
	Stop() error
	Entries() []mdns.Entry
}

// ForegroundScanner runs one round trip per Scan call.
// *ssdp.Scanner implements it.
type ForegroundScanner interface {
	Scan(ctx context.Context) error
	Entries() []ssdp.Entry
}

// Options configures a NetworkDiscovery
type Options struct {
	// Limit restricts which discoverable types are loaded. Nil loads all.
	Limit []string

	// Catalog to load from; defaults to discoverable.Default
	Catalog *discoverable.Catalog

	// Background overrides the mDNS scanner (tests)
	Background BackgroundScanner

	// Foreground overrides the SSDP scanner (tests)
	Foreground ForegroundScanner

	// MDNS configures the default background scanner. Services required by
	// the loaded types are added to MDNS.Services.
	MDNS mdns.Config

	// SSDP configures the default foreground scanner
	SSDP ssdp.Config

	Logger *zap.Logger
}

// NetworkDiscovery coordinates a background mDNS scanner, a foreground
// SSDP scanner and the registry of discoverable types.
type NetworkDiscovery struct {
	background BackgroundScanner
	foreground ForegroundScanner
	registry   *discoverable.Registry
	logger     *zap.Logger

	// mu guards state. Queries take the read lock.
	mu    sync.RWMutex
	state State

	// scanMu serializes foreground scans so concurrent Scan calls do not
	// interleave round trips
	scanMu sync.Mutex
}

// New creates a coordinator and loads its discoverable types. If any type
// fails to load, New returns an ErrPluginLoad error and no coordinator.
func New(opts Options) (*NetworkDiscovery, error) {
	logger := logging.OrNop(opts.Logger)

	catalog := opts.Catalog
	if catalog == nil {
		catalog = discoverable.Default
	}

	background := opts.Background
	if background == nil {
		cfg := opts.MDNS
		cfg.Services = mergeServices(cfg.Services, catalog.MDNSServices(opts.Limit))
		background = mdns.NewScanner(cfg, logger.Named("mdns"))
	}

	foreground := opts.Foreground
	if foreground == nil {
		foreground = ssdp.NewScanner(opts.SSDP, logger.Named("ssdp"))
	}

	src := discoverable.Sources{MDNS: background, SSDP: foreground}
	registry, err := catalog.Load(opts.Limit, src, logger.Named("discoverable"))
	if err != nil {
		var loadErr *discoverable.LoadError
		if errors.As(err, &loadErr) {
			return nil, newPluginLoad(loadErr.Name, err)
		}
		return nil, newPluginLoad("", err)
	}

	return &NetworkDiscovery{
		background: background,
		foreground: foreground,
		registry:   registry,
		logger:     logger,
		state:      StateIdle,
	}, nil
}

func mergeServices(configured, required []string) []string {
	seen := make(map[string]bool, len(configured)+len(required))
	out := make([]string, 0, len(configured)+len(required))
	for _, list := range [][]string{required, configured} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// State returns the current lifecycle state
func (d *NetworkDiscovery) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// IsScanning reports whether the coordinator is in StateScanning
func (d *NetworkDiscovery) IsScanning() bool {
	return d.State() == StateScanning
}

// Scan starts the background scanner if idle, then runs one foreground
// scan. The foreground scan runs on every call.
func (d *NetworkDiscovery) Scan() error {
	return d.ScanContext(context.Background())
}

// ScanContext is Scan with a context for the foreground round trip.
// A foreground failure returns an ErrScanTransport error and leaves the
// background scanner running.
func (d *NetworkDiscovery) ScanContext(ctx context.Context) error {
	if err := d.startBackground(); err != nil {
		return err
	}

	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	started := time.Now()
	if err := d.foreground.Scan(ctx); err != nil {
		classified := ClassifyTransportError(err)
		d.logger.Warn("Foreground scan failed",
			zap.Error(err),
			zap.Bool("retryable", classified.Retryable),
		)
		return classified
	}

	d.logger.Debug("Scan complete",
		zap.Duration("took", time.Since(started)),
		zap.Int("mdns_entries", len(d.background.Entries())),
		zap.Int("ssdp_entries", len(d.foreground.Entries())),
	)
	return nil
}

func (d *NetworkDiscovery) startBackground() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateScanning {
		return nil
	}

	if err := d.background.Start(); err != nil {
		d.logger.Error("Background scanner failed to start", zap.Error(err))
		// Start may have partially acquired resources
		_ = d.background.Stop()
		return newBackgroundStart(err)
	}

	d.state = StateScanning
	d.logger.Info("Network discovery started", zap.Strings("types", d.registry.Names()))
	return nil
}

// Stop stops the background scanner and returns to StateIdle.
// Stopping an idle coordinator is a no-op.
func (d *NetworkDiscovery) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateIdle {
		return nil
	}

	err := d.background.Stop()
	d.state = StateIdle
	d.logger.Info("Network discovery stopped")
	if err != nil {
		return fmt.Errorf("stop background scanner: %w", err)
	}
	return nil
}

// Close implements io.Closer; it is Stop
func (d *NetworkDiscovery) Close() error {
	return d.Stop()
}

// Types returns every loaded discoverable type name, sorted
func (d *NetworkDiscovery) Types() []string {
	return d.registry.Names()
}

// Discover returns, in name order, the types that currently have a match
func (d *NetworkDiscovery) Discover() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state != StateScanning {
		return nil, newInvalidState("discover")
	}
	return d.registry.Discovered(), nil
}

// Info returns the summaries reported by the named type's checker
func (d *NetworkDiscovery) Info(name string) ([]discoverable.Info, error) {
	checker, err := d.checker("info", name)
	if err != nil {
		return nil, err
	}
	return checker.Info(), nil
}

// Entries returns the raw records matched by the named type's checker
func (d *NetworkDiscovery) Entries(name string) ([]discoverable.Entry, error) {
	checker, err := d.checker("entries", name)
	if err != nil {
		return nil, err
	}
	return checker.Entries(), nil
}

// checker resolves name before checking state, so an unknown name is
// reported as ErrUnknownType whether or not discovery is running.
func (d *NetworkDiscovery) checker(op, name string) (discoverable.Checker, error) {
	checker, ok := d.registry.Get(name)
	if !ok {
		return nil, newUnknownType(name)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.state != StateScanning {
		return nil, newInvalidState(op)
	}
	return checker, nil
}

// RawDump is every record currently held by both scanners
type RawDump struct {
	State string       `yaml:"state" json:"state"`
	MDNS  []mdns.Entry `yaml:"mdns" json:"mdns"`
	SSDP  []ssdp.Entry `yaml:"ssdp" json:"ssdp"`
}

// RawEntries snapshots both stores. It is valid in any state.
func (d *NetworkDiscovery) RawEntries() RawDump {
	return RawDump{
		State: d.State().String(),
		MDNS:  d.background.Entries(),
		SSDP:  d.foreground.Entries(),
	}
}

// DumpRaw writes RawEntries to w as YAML for operator diagnostics
func (d *NetworkDiscovery) DumpRaw(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d.RawEntries()); err != nil {
		return fmt.Errorf("failed to encode raw entries: %w", err)
	}
	return enc.Close()
}

// Run creates a coordinator, scans, and calls fn. The coordinator is
// stopped on every return path, including a panic in fn.
func Run(ctx context.Context, opts Options, fn func(ctx context.Context, d *NetworkDiscovery) error) (err error) {
	d, err := New(opts)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := d.Stop(); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	if err := d.ScanContext(ctx); err != nil {
		return err
	}
	return fn(ctx, d)
}
