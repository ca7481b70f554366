package discoverable

import (
	"strings"

	"github.com/muurk/netdisco/internal/mdns"
	"github.com/muurk/netdisco/internal/ssdp"
)

// MDNSChecker is a Checker over background mDNS records of one service type.
// Most mDNS discoverables are a single MDNSChecker with an optional Match
// and Describe.
type MDNSChecker struct {
	Source  MDNSSource
	Service string

	// Match further narrows records of Service (optional)
	Match func(mdns.Entry) bool

	// Describe builds the summary for a record (optional)
	Describe func(mdns.Entry) Info
}

// NewMDNSChecker creates a checker for every instance of service
func NewMDNSChecker(src Sources, service string) *MDNSChecker {
	return &MDNSChecker{Source: src.MDNS, Service: service}
}

func (c *MDNSChecker) matching() []mdns.Entry {
	if c.Source == nil {
		return nil
	}
	var out []mdns.Entry
	for _, e := range c.Source.Entries() {
		if !SameService(e.Service, c.Service) {
			continue
		}
		if c.Match != nil && !c.Match(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// IsDiscovered implements Checker
func (c *MDNSChecker) IsDiscovered() bool {
	return len(c.matching()) > 0
}

// Info implements Checker
func (c *MDNSChecker) Info() []Info {
	describe := c.Describe
	if describe == nil {
		describe = MDNSInfo
	}

	var out []Info
	for _, e := range c.matching() {
		out = append(out, describe(e))
	}
	return uniqueInfo(out)
}

// Entries implements Checker
func (c *MDNSChecker) Entries() []Entry {
	matched := c.matching()
	out := make([]Entry, 0, len(matched))
	for _, e := range matched {
		out = append(out, e)
	}
	return out
}

// MDNSInfo is the default summary for an mDNS record
func MDNSInfo(e mdns.Entry) Info {
	return Info{
		Name:       e.Instance,
		Host:       e.Address(),
		Port:       e.Port,
		Properties: copyProps(e.Properties),
	}
}

// SameService compares service types ignoring case and a trailing dot
func SameService(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

// SSDPChecker is a Checker over foreground SSDP records selected by Match
type SSDPChecker struct {
	Source SSDPSource
	Match  func(ssdp.Entry) bool

	// Describe builds the summary for a record (optional)
	Describe func(ssdp.Entry) Info
}

// NewSSDPChecker creates a checker for SSDP records accepted by match
func NewSSDPChecker(src Sources, match func(ssdp.Entry) bool) *SSDPChecker {
	return &SSDPChecker{Source: src.SSDP, Match: match}
}

func (c *SSDPChecker) matching() []ssdp.Entry {
	if c.Source == nil || c.Match == nil {
		return nil
	}
	var out []ssdp.Entry
	for _, e := range c.Source.Entries() {
		if c.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// IsDiscovered implements Checker
func (c *SSDPChecker) IsDiscovered() bool {
	return len(c.matching()) > 0
}

// Info implements Checker. Several responses from one device collapse
// into a single summary.
func (c *SSDPChecker) Info() []Info {
	describe := c.Describe
	if describe == nil {
		describe = SSDPInfo
	}

	var out []Info
	for _, e := range c.matching() {
		out = append(out, describe(e))
	}
	return uniqueInfo(out)
}

// Entries implements Checker
func (c *SSDPChecker) Entries() []Entry {
	matched := c.matching()
	out := make([]Entry, 0, len(matched))
	for _, e := range matched {
		out = append(out, e)
	}
	return out
}

// SSDPInfo is the default summary for an SSDP record
func SSDPInfo(e ssdp.Entry) Info {
	info := Info{
		Name:       e.ST,
		Host:       e.Address(),
		Port:       e.Port(),
		Properties: map[string]string{"location": e.Location},
	}
	if d := e.Description; d != nil {
		if d.FriendlyName != "" {
			info.Name = d.FriendlyName
		}
		setIf(info.Properties, "manufacturer", d.Manufacturer)
		setIf(info.Properties, "model_name", d.ModelName)
		setIf(info.Properties, "model_number", d.ModelNumber)
		setIf(info.Properties, "serial", d.SerialNumber)
	}
	return info
}

// MatchST accepts records whose ST equals st (case-insensitive)
func MatchST(st string) func(ssdp.Entry) bool {
	return func(e ssdp.Entry) bool {
		return strings.EqualFold(e.ST, st)
	}
}

// MatchManufacturer accepts records whose description manufacturer
// contains substr (case-insensitive)
func MatchManufacturer(substr string) func(ssdp.Entry) bool {
	substr = strings.ToLower(substr)
	return func(e ssdp.Entry) bool {
		return e.Description != nil && strings.Contains(strings.ToLower(e.Description.Manufacturer), substr)
	}
}

// MatchModelName accepts records whose description model name
// contains substr (case-insensitive)
func MatchModelName(substr string) func(ssdp.Entry) bool {
	substr = strings.ToLower(substr)
	return func(e ssdp.Entry) bool {
		return e.Description != nil && strings.Contains(strings.ToLower(e.Description.ModelName), substr)
	}
}

// MatchDeviceType accepts records whose ST or description device type
// equals deviceType
func MatchDeviceType(deviceType string) func(ssdp.Entry) bool {
	return func(e ssdp.Entry) bool {
		if strings.EqualFold(e.ST, deviceType) {
			return true
		}
		return e.Description != nil && strings.EqualFold(e.Description.DeviceType, deviceType)
	}
}

// All accepts records accepted by every matcher
func All(matchers ...func(ssdp.Entry) bool) func(ssdp.Entry) bool {
	return func(e ssdp.Entry) bool {
		for _, m := range matchers {
			if !m(e) {
				return false
			}
		}
		return true
	}
}

// uniqueInfo drops summaries that repeat an earlier (name, host, port)
func uniqueInfo(in []Info) []Info {
	type key struct {
		name, host string
		port       int
	}
	seen := make(map[key]bool, len(in))
	out := make([]Info, 0, len(in))
	for _, info := range in {
		k := key{info.Name, info.Host, info.Port}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, info)
	}
	return out
}

func copyProps(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func setIf(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
