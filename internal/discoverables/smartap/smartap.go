// Package smartap discovers Smartap shower controllers. The devices
// advertise a plain "_http._tcp" service from a hostname of the form
// eValve<serial>.local, which is what tells them apart from every other
// web server on the network.
package smartap

import (
	"fmt"
	"regexp"
	"time"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/mdns"
)

const (
	// Name is the discoverable type name
	Name = "smartap"

	// ServiceType is the mDNS service type Smartap devices advertise
	ServiceType = "_http._tcp"

	// DefaultPort is the HTTP port used when the record carries none
	DefaultPort = 80
)

// serialPattern matches Smartap device hostnames (e.g., "eValve315260240.local")
var serialPattern = regexp.MustCompile(`^eValve(\d+)\.local\.?$`)

func init() {
	discoverable.Register(discoverable.Registration{
		Name:         Name,
		MDNSServices: []string{ServiceType},
		Description:  "Smartap eValve shower controllers",
		Factory:      New,
	})
}

// New creates the smartap checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	c := discoverable.NewMDNSChecker(src, ServiceType)
	c.Match = func(e mdns.Entry) bool {
		_, ok := FromEntry(e)
		return ok
	}
	c.Describe = func(e mdns.Entry) discoverable.Info {
		d, _ := FromEntry(e)
		return d.Info()
	}
	return c, nil
}

// Device represents a discovered Smartap device on the network
type Device struct {
	// Serial is the device serial number (e.g., "315260240")
	Serial string

	// Hostname is the mDNS hostname (e.g., "eValve315260240.local")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// Metadata contains the mDNS TXT record data
	// Common fields: "path=/", "srcvers=1D90645"
	Metadata map[string]string

	// DiscoveredAt is when the record was last seen
	DiscoveredAt time.Time
}

// FromEntry converts an mDNS record into a Device.
// It reports false if the record is not a Smartap device.
func FromEntry(e mdns.Entry) (*Device, bool) {
	matches := serialPattern.FindStringSubmatch(e.HostName)
	if len(matches) < 2 {
		return nil, false
	}

	ip := e.Address()
	if ip == "" {
		return nil, false
	}

	port := e.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Device{
		Serial:       matches[1],
		Hostname:     e.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     e.Properties,
		DiscoveredAt: e.LastSeen,
	}, true
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("Smartap Device %s (%s) at %s:%d", d.Serial, d.Hostname, d.IP, d.Port)
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", d.IP, d.Port)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// Info summarizes the device
func (d *Device) Info() discoverable.Info {
	props := map[string]string{
		"serial":   d.Serial,
		"hostname": d.Hostname,
		"url":      d.BaseURL(),
	}
	if v := d.GetMetadata("srcvers"); v != "" {
		props["firmware"] = v
	}
	return discoverable.Info{
		Name:       "Smartap " + d.Serial,
		Host:       d.IP,
		Port:       d.Port,
		Properties: props,
	}
}
