package ssdp

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Protocol is the source name reported by SSDP entries
const Protocol = "ssdp"

// Errors returned by ParseResponse
var (
	ErrEmptyResponse = errors.New("empty SSDP response")
	ErrNotResponse   = errors.New("not an SSDP search response")
	ErrNoIdentity    = errors.New("SSDP response has neither USN nor LOCATION")
)

// Description is the subset of a UPnP device description document
// that discoverables match on.
type Description struct {
	URLBase         string `xml:"URLBase" yaml:"url_base,omitempty" json:"url_base,omitempty"`
	DeviceType      string `xml:"device>deviceType" yaml:"device_type" json:"device_type"`
	FriendlyName    string `xml:"device>friendlyName" yaml:"friendly_name" json:"friendly_name"`
	Manufacturer    string `xml:"device>manufacturer" yaml:"manufacturer" json:"manufacturer"`
	ManufacturerURL string `xml:"device>manufacturerURL" yaml:"manufacturer_url,omitempty" json:"manufacturer_url,omitempty"`
	ModelName       string `xml:"device>modelName" yaml:"model_name" json:"model_name"`
	ModelNumber     string `xml:"device>modelNumber" yaml:"model_number,omitempty" json:"model_number,omitempty"`
	SerialNumber    string `xml:"device>serialNumber" yaml:"serial_number,omitempty" json:"serial_number,omitempty"`
	PresentationURL string `xml:"device>presentationURL" yaml:"presentation_url,omitempty" json:"presentation_url,omitempty"`
	UDN             string `xml:"device>UDN" yaml:"udn,omitempty" json:"udn,omitempty"`
}

// Entry is one SSDP search response
type Entry struct {
	Location string `yaml:"location" json:"location"`
	Server   string `yaml:"server,omitempty" json:"server,omitempty"`
	USN      string `yaml:"usn" json:"usn"`
	ST       string `yaml:"st" json:"st"`

	// Headers holds every response header with upper-cased names
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// From is the responder's IP address
	From string `yaml:"from,omitempty" json:"from,omitempty"`

	// Description is nil when the LOCATION could not be fetched
	Description *Description `yaml:"description,omitempty" json:"description,omitempty"`

	SeenAt time.Time `yaml:"seen_at" json:"seen_at"`
}

// Source identifies the protocol the entry came from
func (e Entry) Source() string {
	return Protocol
}

// ID returns the USN, falling back to LOCATION
func (e Entry) ID() string {
	if e.USN != "" {
		return e.USN
	}
	return e.Location
}

// Address returns the host of LOCATION, falling back to the responder address
func (e Entry) Address() string {
	if e.Location != "" {
		if u, err := url.Parse(e.Location); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return e.From
}

// Port returns the port of LOCATION, or 0
func (e Entry) Port() int {
	u, err := url.Parse(e.Location)
	if err != nil || u.Port() == "" {
		return 0
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return 0
	}
	return port
}

// Header retrieves a header value by name (case-insensitive)
func (e Entry) Header(name string) string {
	if e.Headers == nil {
		return ""
	}
	return e.Headers[strings.ToUpper(name)]
}

// String returns a human-readable representation of the entry
func (e Entry) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.ST, e.USN, e.Location)
}

// ParseResponse parses one datagram received in reply to an M-SEARCH
func ParseResponse(data []byte) (*Entry, error) {
	response := string(data)
	if strings.TrimSpace(response) == "" {
		return nil, ErrEmptyResponse
	}

	lines := strings.Split(strings.ReplaceAll(response, "\r\n", "\n"), "\n")
	status := strings.ToUpper(strings.TrimSpace(lines[0]))
	if !strings.HasPrefix(status, "HTTP/1.1 200") && !strings.HasPrefix(status, "HTTP/1.0 200") {
		return nil, fmt.Errorf("%w: %q", ErrNotResponse, lines[0])
	}

	entry := &Entry{Headers: make(map[string]string)}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		entry.Headers[key] = value

		switch key {
		case "LOCATION":
			entry.Location = value
		case "SERVER":
			entry.Server = value
		case "USN":
			entry.USN = value
		case "ST":
			entry.ST = value
		}
	}

	if entry.Location == "" && entry.USN == "" {
		return nil, ErrNoIdentity
	}
	return entry, nil
}

// BuildSearchRequest renders an M-SEARCH request for the given target
func BuildSearchRequest(host, searchTarget string, mx int) []byte {
	return []byte(fmt.Sprintf("M-SEARCH * HTTP/1.1\r\n"+
		"HOST: %s\r\n"+
		"MAN: \"ssdp:discover\"\r\n"+
		"MX: %d\r\n"+
		"ST: %s\r\n\r\n", host, mx, searchTarget))
}

func hostOf(addr net.Addr) string {
	if udp, ok := addr.(*net.UDPAddr); ok {
		return udp.IP.String()
	}
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
