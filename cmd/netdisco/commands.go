package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/netdisco/internal/config"
	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/discovery"
	"github.com/muurk/netdisco/internal/logging"
	"github.com/muurk/netdisco/internal/server"
	"github.com/muurk/netdisco/internal/ui"
)

// Global flags
var (
	configPath string
	logLevel   string
	limit      []string

	// settings is the loaded config with flag overrides applied
	settings *config.Config
)

// Command flags
var (
	scanWindow    time.Duration
	scanWait      time.Duration
	outputFormat  string
	dumpFormat    string
	watchInterval time.Duration
	serveHost     string
	servePort     int
	serveInterval time.Duration
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(typesCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadSettings reads the config file, applies global flag overrides, and
// initializes logging
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("limit") {
		cfg.Discovery.Limit = limit
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return err
	}
	logging.Debug("Settings loaded",
		zap.String("config", configPath),
		zap.Strings("limit", cfg.Limit()),
	)
	settings = cfg
	return nil
}

func discoveryOptions() discovery.Options {
	opts := settings.ToDiscoveryOptions()
	opts.Logger = logging.Named("discovery")
	return opts
}

func limitLabel(names []string) string {
	if len(names) == 0 {
		return "all"
	}
	return strings.Join(names, ", ")
}

// scanCmd runs one discovery pass and prints the result
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the network and list discovered devices",
	Long: `Start mDNS browsing, run one SSDP search, and print every discovered
device type with a summary of each device.

mDNS answers arrive while the SSDP window is open. Use --wait to keep
listening longer on busy or slow networks.`,
	Example: `  # Scan with the configured window (4s by default)
  netdisco scan

  # Longer SSDP window and extra mDNS listening time
  netdisco scan --window 8s --wait 5s

  # Only look for Chromecasts and Sonos speakers
  netdisco scan --limit chromecast,sonos

  # JSON output for scripting
  netdisco scan --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanWindow, "window", 0, "SSDP observation window (default from config)")
	scanCmd.Flags().DurationVar(&scanWait, "wait", 0, "Extra time to collect mDNS answers after the SSDP search")
	scanCmd.Flags().StringVar(&outputFormat, "format", string(ui.FormatDetailed), "Output format (detailed, compact, json, yaml)")
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := ui.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	if scanWindow < 0 || scanWait < 0 {
		return fmt.Errorf("--window and --wait must not be negative")
	}

	opts := discoveryOptions()
	if scanWindow > 0 {
		opts.SSDP.Window = scanWindow
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	styled := format == ui.FormatDetailed || format == ui.FormatCompact
	if format == ui.FormatDetailed {
		p.PrintHeader("Network Discovery", "netdisco scan",
			ui.Param{Key: "Window", Value: opts.SSDP.Window.String()},
			ui.Param{Key: "Wait", Value: scanWait.String()},
			ui.Param{Key: "Types", Value: limitLabel(opts.Limit)},
		)
		p.Newline()
	}

	var report ui.Report
	err = discovery.Run(cmd.Context(), opts, func(ctx context.Context, d *discovery.NetworkDiscovery) error {
		if err := sleepContext(ctx, scanWait); err != nil {
			return err
		}
		var err error
		report, err = ui.Collect(d)
		return err
	})
	if err != nil {
		if styled {
			p.PrintError("Scan failed", err)
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	return p.PrintReport(report, format)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dumpCmd prints the raw mDNS and SSDP records
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Scan once and print every raw mDNS and SSDP record",
	Long: `Scan once and print the raw records held by both scanners, whether or
not any discoverable type matched them. Useful when writing a new
discoverable or diagnosing why a device is not recognized.`,
	Example: `  netdisco dump
  netdisco dump --format json > records.json`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFormat, "format", string(ui.FormatYAML), "Output format (yaml, json)")
}

func runDump(cmd *cobra.Command, args []string) error {
	format, err := ui.ParseFormat(dumpFormat)
	if err != nil {
		return err
	}
	if format != ui.FormatYAML && format != ui.FormatJSON {
		return fmt.Errorf("dump supports yaml and json, not %s", format)
	}

	out := cmd.OutOrStdout()
	return discovery.Run(cmd.Context(), discoveryOptions(), func(ctx context.Context, d *discovery.NetworkDiscovery) error {
		if format == ui.FormatJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(d.RawEntries())
		}
		return d.DumpRaw(out)
	})
}

// typesCmd lists the discoverable types compiled into this binary
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the discoverable device types",
	Long: `List every discoverable type this build knows about, with the mDNS
service types it browses. Types excluded by --limit or discovery.limit
are marked. No scan is performed.`,
	RunE: runTypes,
}

func runTypes(cmd *cobra.Command, args []string) error {
	selected := map[string]bool{}
	regs, unknown := discoverable.Default.Select(settings.Limit())
	for _, reg := range regs {
		selected[reg.Name] = true
	}

	names := discoverable.Default.Names()
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	for _, name := range names {
		reg, _ := discoverable.Default.Lookup(name)

		source := "ssdp"
		if len(reg.MDNSServices) > 0 {
			source = "mdns " + strings.Join(reg.MDNSServices, ", ")
		}

		line := ui.TypeTitleStyle.Render(fmt.Sprintf("%-*s", width+2, name)) + ui.StatusIdleStyle.Render(source)
		if !selected[name] {
			line += ui.WarningTitleStyle.Render("  (excluded by limit)")
		}
		p.Println(line)
	}

	for _, name := range unknown {
		p.Println(ui.ErrorMessageStyle.Render(fmt.Sprintf("%s %s: not a known type", ui.FailureMarker, name)))
	}
	return nil
}

// watchCmd shows live results, rescanning on an interval
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously rescan and show discovered devices",
	Long: `Keep discovery running and rescan on an interval, showing the latest
results in an interactive view. Press r to rescan now and q to quit.`,
	Example: `  netdisco watch
  netdisco watch --interval 10s --limit sonos`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Time between scans (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval := settings.RescanInterval()
	if watchInterval > 0 {
		interval = watchInterval
	}

	opts := discoveryOptions()
	d, err := discovery.New(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Stop(); err != nil {
			logging.Warn("Failed to stop discovery", zap.Error(err))
		}
	}()

	scan := func(ctx context.Context) (ui.Report, error) {
		if err := d.ScanContext(ctx); err != nil {
			return ui.Report{}, err
		}
		return ui.Collect(d)
	}

	ctx := cmd.Context()
	model := ui.NewWatchModel(ctx, scan, interval, opts.SSDP.Window)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen()).Run(); err != nil {
		if ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("watch view error: %w", err)
	}
	return nil
}

// serveCmd runs the HTTP/WebSocket inspection service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve discovery results over HTTP and WebSocket",
	Long: `Keep discovery running, rescan on an interval, and expose the results:

  GET  /api/types                  all loaded types
  GET  /api/discover               discovered type names
  GET  /api/types/{name}/info      device summaries for a type
  GET  /api/types/{name}/entries   raw records for a type
  GET  /api/raw                    every raw record
  POST /api/scan                   request an immediate rescan
  GET  /ws                         snapshot after every rescan

The server binds to 127.0.0.1 by default.`,
	Example: `  netdisco serve
  netdisco serve --host 0.0.0.0 --port 9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config)")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 0, "Time between scans (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	srvConfig := server.Config{
		Host:           settings.Server.Host,
		Port:           settings.Server.Port,
		RescanInterval: settings.RescanInterval(),
	}
	if serveHost != "" {
		srvConfig.Host = serveHost
	}
	if servePort != 0 {
		srvConfig.Port = servePort
	}
	if serveInterval > 0 {
		srvConfig.RescanInterval = serveInterval
	}

	d, err := discovery.New(discoveryOptions())
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Discovery Server", "netdisco serve",
		ui.Param{Key: "API", Value: "http://" + srvConfig.Addr() + "/api"},
		ui.Param{Key: "WebSocket", Value: "ws://" + srvConfig.Addr() + "/ws"},
		ui.Param{Key: "Rescan", Value: srvConfig.RescanInterval.String()},
	)

	srv := server.New(srvConfig, d, logging.Named("server"))
	return srv.Run(cmd.Context())
}
