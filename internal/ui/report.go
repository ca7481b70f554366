package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/muurk/netdisco/internal/discoverable"
)

// Format selects how a Report is written
type Format string

const (
	FormatDetailed Format = "detailed"
	FormatCompact  Format = "compact"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Formats lists every accepted format name
var Formats = []Format{FormatDetailed, FormatCompact, FormatJSON, FormatYAML}

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (valid: detailed, compact, json, yaml)", s)
}

// Report is the result of one discovery pass
type Report struct {
	Time  time.Time    `json:"time" yaml:"time"`
	Types []TypeReport `json:"types" yaml:"types"`
}

// TypeReport lists the devices found for one discoverable type
type TypeReport struct {
	Name    string              `json:"name" yaml:"name"`
	Devices []discoverable.Info `json:"devices" yaml:"devices"`
}

// DeviceCount returns the number of devices across all types
func (r Report) DeviceCount() int {
	n := 0
	for _, t := range r.Types {
		n += len(t.Devices)
	}
	return n
}

// Source is the read side of a running coordinator
type Source interface {
	Discover() ([]string, error)
	Info(name string) ([]discoverable.Info, error)
}

// Collect builds a Report from the currently discovered types
func Collect(src Source) (Report, error) {
	report := Report{Time: time.Now(), Types: []TypeReport{}}

	names, err := src.Discover()
	if err != nil {
		return report, err
	}
	for _, name := range names {
		info, err := src.Info(name)
		if err != nil {
			return report, fmt.Errorf("failed to get info for %s: %w", name, err)
		}
		report.Types = append(report.Types, TypeReport{Name: name, Devices: info})
	}
	return report, nil
}

// WriteReport writes r to w in the given format. Styled formats render at
// the given width.
func WriteReport(w io.Writer, r Report, format Format, width int) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	case FormatCompact:
		_, err := fmt.Fprintln(w, RenderCompact(r))
		return err
	default:
		_, err := fmt.Fprintln(w, RenderDiscovery(r, width))
		return err
	}
}

// RenderDiscovery renders one section per discovered type with every
// device and its properties
func RenderDiscovery(r Report, width int) string {
	if len(r.Types) == 0 {
		return NewWarningResult("No devices found", noDevicesHints).SetWidth(width).Render()
	}

	var sections []string
	for _, t := range r.Types {
		lines := []string{TypeTitleStyle.Render(fmt.Sprintf("%s (%d)", t.Name, len(t.Devices)))}
		for _, dev := range t.Devices {
			lines = append(lines, "  "+BulletMarker+" "+DeviceNameStyle.Render(dev.Name)+"  "+DeviceAddrStyle.Render(HostPort(dev)))
			for _, key := range sortedKeys(dev.Properties) {
				lines = append(lines, "      "+PropertyKeyStyle.Render(key+":")+" "+PropertyValueStyle.Render(dev.Properties[key]))
			}
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	summary := NewSuccessResult(fmt.Sprintf("%d types discovered", len(r.Types)),
		Param{Key: "Devices", Value: strconv.Itoa(r.DeviceCount())},
		Param{Key: "Scanned at", Value: r.Time.Format(time.TimeOnly)},
	).SetWidth(width).Render()

	return strings.Join(sections, "\n\n") + "\n\n" + summary
}

// RenderCompact renders one aligned line per device
func RenderCompact(r Report) string {
	if len(r.Types) == 0 {
		return StatusIdleStyle.Render("No devices found")
	}

	typeWidth, nameWidth := 0, 0
	for _, t := range r.Types {
		typeWidth = max(typeWidth, lipgloss.Width(t.Name))
		for _, dev := range t.Devices {
			nameWidth = max(nameWidth, lipgloss.Width(dev.Name))
		}
	}

	typeCol := TypeTitleStyle.Width(typeWidth + 2)
	nameCol := DeviceNameStyle.Width(nameWidth + 2)

	var lines []string
	for _, t := range r.Types {
		for _, dev := range t.Devices {
			lines = append(lines, typeCol.Render(t.Name)+nameCol.Render(dev.Name)+DeviceAddrStyle.Render(HostPort(dev)))
		}
	}
	return strings.Join(lines, "\n")
}

// HostPort formats a device address, omitting a zero port
func HostPort(dev discoverable.Info) string {
	if dev.Port == 0 {
		return dev.Host
	}
	return net.JoinHostPort(dev.Host, strconv.Itoa(dev.Port))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var noDevicesHints = []string{
	"Devices can take a few seconds to announce; try --wait 5s",
	"Check that this host is on the same network segment as the devices",
	"Firewalls must allow UDP 5353 (mDNS) and 1900 (SSDP)",
}
