package mdns

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func serviceEntry(instance, service, host string, port int, v4, v6 []net.IP, text ...string) *zeroconf.ServiceEntry {
	se := zeroconf.NewServiceEntry(instance, service, "local.")
	se.HostName = host
	se.Port = port
	se.AddrIPv4 = v4
	se.AddrIPv6 = v6
	se.Text = text
	se.TTL = 120
	return se
}

func TestFromServiceEntry(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantErr  bool
		wantAddr string
		wantPort int
	}{
		{
			name:     "IPv4 device",
			entry:    serviceEntry("Living Room", "_googlecast._tcp", "cc-1.local.", 8009, []net.IP{net.ParseIP("192.168.1.20")}, nil, "fn=Living Room"),
			wantAddr: "192.168.1.20",
			wantPort: 8009,
		},
		{
			name:     "IPv6 only device",
			entry:    serviceEntry("Bridge", "_hap._tcp", "bridge.local.", 51827, nil, []net.IP{net.ParseIP("fe80::1")}),
			wantAddr: "fe80::1",
			wantPort: 51827,
		},
		{
			name:     "both families prefer IPv4",
			entry:    serviceEntry("Speaker", "_airplay._tcp", "speaker.local.", 7000, []net.IP{net.ParseIP("10.0.0.5")}, []net.IP{net.ParseIP("fe80::2")}),
			wantAddr: "10.0.0.5",
			wantPort: 7000,
		},
		{
			name:    "no address",
			entry:   serviceEntry("Ghost", "_hap._tcp", "ghost.local.", 80, nil, nil),
			wantErr: true,
		},
		{
			name:    "missing instance",
			entry:   serviceEntry("", "_hap._tcp", "x.local.", 80, []net.IP{net.ParseIP("10.0.0.1")}, nil),
			wantErr: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fromServiceEntry(tt.entry, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("fromServiceEntry() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("fromServiceEntry() error = %v", err)
			}
			if got.Address() != tt.wantAddr {
				t.Errorf("Address() = %v, want %v", got.Address(), tt.wantAddr)
			}
			if got.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", got.Port, tt.wantPort)
			}
			if !got.LastSeen.Equal(now) {
				t.Errorf("LastSeen = %v, want %v", got.LastSeen, now)
			}
			if got.Source() != Protocol {
				t.Errorf("Source() = %v, want %v", got.Source(), Protocol)
			}
		})
	}
}

func TestFromServiceEntry_GoodbyeWithoutAddress(t *testing.T) {
	se := serviceEntry("Living Room", "_googlecast._tcp", "cc-1.local.", 8009, nil, nil)
	se.TTL = 0

	got, err := fromServiceEntry(se, time.Now())
	if err != nil {
		t.Fatalf("goodbye record should be accepted, got error %v", err)
	}
	if got.TTL != 0 {
		t.Errorf("TTL = %d, want 0", got.TTL)
	}
}

func TestEntry_ID(t *testing.T) {
	e := Entry{Instance: "Living Room", Service: "_googlecast._tcp", Domain: "local."}

	want := "Living Room._googlecast._tcp.local."
	if got := e.ID(); got != want {
		t.Errorf("ID() = %q, want %q", got, want)
	}
}

func TestParseProperties(t *testing.T) {
	props := ParseProperties([]string{"path=/", "srcvers=1D90645", "flag", "version=1.0", "", "url=http://x/?a=b"})

	expected := map[string]string{
		"path":    "/",
		"srcvers": "1D90645",
		"flag":    "",
		"version": "1.0",
		"url":     "http://x/?a=b",
	}

	if len(props) != len(expected) {
		t.Errorf("got %d properties, want %d", len(props), len(expected))
	}
	for key, want := range expected {
		if got, ok := props[key]; !ok {
			t.Errorf("missing key %q", key)
		} else if got != want {
			t.Errorf("props[%q] = %q, want %q", key, got, want)
		}
	}
}

func TestEntry_Property_NilMap(t *testing.T) {
	var e Entry
	if got := e.Property("anything"); got != "" {
		t.Errorf("Property() with nil map = %v, want empty string", got)
	}
}
