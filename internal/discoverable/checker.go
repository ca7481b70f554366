package discoverable

import (
	"github.com/muurk/netdisco/internal/mdns"
	"github.com/muurk/netdisco/internal/ssdp"
)

// Entry is a raw discovery record. Both mdns.Entry and ssdp.Entry satisfy it.
type Entry interface {
	// Source is the protocol that produced the record ("mdns", "ssdp")
	Source() string
	// ID is the protocol-level identity used to replace updated records
	ID() string
	// Address is the best host address for the record, or empty
	Address() string
}

// Info is the summary of one discovered device or service
type Info struct {
	Name       string            `yaml:"name" json:"name"`
	Host       string            `yaml:"host" json:"host"`
	Port       int               `yaml:"port,omitempty" json:"port,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Checker interprets raw scan records for one discoverable type
type Checker interface {
	// IsDiscovered reports whether any current record belongs to this type
	IsDiscovered() bool
	// Info summarizes every matching device or service
	Info() []Info
	// Entries returns the matching raw records
	Entries() []Entry
}

// MDNSSource is read-only access to the background scanner's store
type MDNSSource interface {
	Entries() []mdns.Entry
}

// SSDPSource is read-only access to the foreground scanner's store
type SSDPSource interface {
	Entries() []ssdp.Entry
}

// Sources is what a checker receives at construction. It exposes the scan
// data and nothing else about the coordinator.
type Sources struct {
	MDNS MDNSSource
	SSDP SSDPSource
}

// MDNSEntries returns the background store, or nil when no source is wired
func (s Sources) MDNSEntries() []mdns.Entry {
	if s.MDNS == nil {
		return nil
	}
	return s.MDNS.Entries()
}

// SSDPEntries returns the foreground store, or nil when no source is wired
func (s Sources) SSDPEntries() []ssdp.Entry {
	if s.SSDP == nil {
		return nil
	}
	return s.SSDP.Entries()
}
