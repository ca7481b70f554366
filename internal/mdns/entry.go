package mdns

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// Protocol is the source name reported by mDNS entries
const Protocol = "mdns"

// Entry is one resolved mDNS service instance
type Entry struct {
	// Instance is the instance label (e.g., "Living Room TV")
	Instance string `yaml:"instance" json:"instance"`

	// Service is the service type (e.g., "_googlecast._tcp")
	Service string `yaml:"service" json:"service"`

	// Domain is the mDNS domain (typically "local.")
	Domain string `yaml:"domain" json:"domain"`

	// HostName is the advertised host (e.g., "Chromecast-1234.local.")
	HostName string `yaml:"hostname" json:"hostname"`

	IPv4 []net.IP `yaml:"ipv4,omitempty" json:"ipv4,omitempty"`
	IPv6 []net.IP `yaml:"ipv6,omitempty" json:"ipv6,omitempty"`

	Port int `yaml:"port" json:"port"`

	// Text holds the raw TXT strings in announcement order
	Text []string `yaml:"text,omitempty" json:"text,omitempty"`

	// Properties holds TXT records split into key/value pairs
	Properties map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`

	TTL      uint32    `yaml:"ttl" json:"ttl"`
	LastSeen time.Time `yaml:"last_seen" json:"last_seen"`
}

// Source identifies the protocol the entry came from
func (e Entry) Source() string {
	return Protocol
}

// ID returns the full service instance name, the identity used for updates
func (e Entry) ID() string {
	return fmt.Sprintf("%s.%s.%s", trimDot(e.Instance), trimDot(e.Service), e.Domain)
}

// Address returns the preferred IP (IPv4 first), or empty string
func (e Entry) Address() string {
	if len(e.IPv4) > 0 {
		return e.IPv4[0].String()
	}
	if len(e.IPv6) > 0 {
		return e.IPv6[0].String()
	}
	return ""
}

// Property retrieves a TXT value by key, or returns empty string if not found
func (e Entry) Property(key string) string {
	if e.Properties == nil {
		return ""
	}
	return e.Properties[key]
}

// String returns a human-readable representation of the entry
func (e Entry) String() string {
	return fmt.Sprintf("%s (%s) at %s:%d", e.Instance, e.Service, e.Address(), e.Port)
}

func trimDot(s string) string {
	return strings.TrimSuffix(s, ".")
}

// ParseProperties splits TXT strings in "key=value" form.
// A key without "=" maps to the empty string.
func ParseProperties(text []string) map[string]string {
	props := make(map[string]string, len(text))
	for _, txt := range text {
		if txt == "" {
			continue
		}
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			props[parts[0]] = parts[1]
		} else {
			props[parts[0]] = ""
		}
	}
	return props
}

// fromServiceEntry converts a zeroconf service entry to an Entry.
// Returns an error describing why the record is unusable.
func fromServiceEntry(se *zeroconf.ServiceEntry, now time.Time) (Entry, error) {
	if se == nil {
		return Entry{}, fmt.Errorf("nil service entry")
	}
	if se.Instance == "" {
		return Entry{}, fmt.Errorf("missing instance name")
	}
	if len(se.AddrIPv4) == 0 && len(se.AddrIPv6) == 0 && se.TTL != 0 {
		return Entry{}, fmt.Errorf("no address for %s", se.ServiceInstanceName())
	}

	domain := se.Domain
	if domain == "" {
		domain = DefaultDomain
	}

	return Entry{
		Instance:   se.Instance,
		Service:    se.Service,
		Domain:     domain,
		HostName:   se.HostName,
		IPv4:       append([]net.IP(nil), se.AddrIPv4...),
		IPv6:       append([]net.IP(nil), se.AddrIPv6...),
		Port:       se.Port,
		Text:       append([]string(nil), se.Text...),
		Properties: ParseProperties(se.Text),
		TTL:        se.TTL,
		LastSeen:   now,
	}, nil
}
