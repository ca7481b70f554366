package mdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

// fakeBrowser replays canned announcements per service, idles until the
// browse context is cancelled, then closes the channel as zeroconf does.
type fakeBrowser struct {
	mu        sync.Mutex
	calls     atomic.Int32
	announce  map[string][]*zeroconf.ServiceEntry
	err       error
	cancelled atomic.Int32
}

func (f *fakeBrowser) browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	f.calls.Add(1)
	if f.err != nil {
		close(entries)
		return f.err
	}

	f.mu.Lock()
	replay := f.announce[service]
	f.mu.Unlock()

	go func() {
		for _, se := range replay {
			select {
			case entries <- se:
			case <-ctx.Done():
			}
		}
		<-ctx.Done()
		f.cancelled.Add(1)
		close(entries)
	}()
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestScanner_StartCollectsEntries(t *testing.T) {
	fb := &fakeBrowser{announce: map[string][]*zeroconf.ServiceEntry{
		"_googlecast._tcp": {
			serviceEntry("Kitchen", "_googlecast._tcp", "cc-2.local.", 8009, []net.IP{net.ParseIP("192.168.1.21")}, nil),
			serviceEntry("Den", "_googlecast._tcp", "cc-1.local.", 8009, []net.IP{net.ParseIP("192.168.1.20")}, nil),
		},
		"_hap._tcp": {
			serviceEntry("Bridge", "_hap._tcp", "bridge.local.", 51827, []net.IP{net.ParseIP("192.168.1.30")}, nil, "md=Hue"),
		},
	}}

	s := NewScannerWithBrowser(Config{Services: []string{"_googlecast._tcp", "_hap._tcp"}}, fb.browse, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return s.Len() == 3 })

	entries := s.Entries()
	if entries[0].Instance != "Bridge" || entries[1].Instance != "Den" || entries[2].Instance != "Kitchen" {
		t.Errorf("entries not sorted by ID: %v", entries)
	}
	if entries[0].Property("md") != "Hue" {
		t.Errorf("Property(md) = %q, want Hue", entries[0].Property("md"))
	}
}

func TestScanner_StartIsIdempotent(t *testing.T) {
	fb := &fakeBrowser{}
	s := NewScannerWithBrowser(Config{Services: []string{"_hap._tcp"}}, fb.browse, nil)

	for i := 0; i < 3; i++ {
		if err := s.Start(); err != nil {
			t.Fatalf("Start() #%d error = %v", i+1, err)
		}
	}
	defer s.Stop()

	if got := fb.calls.Load(); got != 1 {
		t.Errorf("browse called %d times, want 1", got)
	}
	if !s.Running() {
		t.Error("Running() = false after Start")
	}
}

func TestScanner_StopCancelsAndIsIdempotent(t *testing.T) {
	fb := &fakeBrowser{}
	s := NewScannerWithBrowser(Config{Services: []string{"_hap._tcp", "_airplay._tcp"}}, fb.browse, nil)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() before Start error = %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}

	// Stop returns only after every browse loop has closed its channel
	if got := fb.cancelled.Load(); got != 2 {
		t.Errorf("%d browse loops ended before Stop returned, want 2", got)
	}

	if s.Running() {
		t.Error("Running() = true after Stop")
	}

	// Restart is allowed after Stop
	if err := s.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	defer s.Stop()
	if got := fb.calls.Load(); got != 4 {
		t.Errorf("browse called %d times across two runs, want 4", got)
	}
}

func TestScanner_StartFailure(t *testing.T) {
	fb := &fakeBrowser{err: errors.New("no multicast interface")}
	s := NewScannerWithBrowser(Config{Services: []string{"_hap._tcp"}}, fb.browse, nil)

	if err := s.Start(); err == nil {
		t.Fatal("Start() error = nil, want error")
	}
	if s.Running() {
		t.Error("scanner should not be running after a failed Start")
	}
}

func TestScanner_HandleUpdatesAndGoodbye(t *testing.T) {
	s := NewScannerWithBrowser(Config{}, (&fakeBrowser{}).browse, nil)
	now := time.Now()

	first := serviceEntry("Den", "_googlecast._tcp", "cc-1.local.", 8009, []net.IP{net.ParseIP("192.168.1.20")}, nil)
	s.handle(first, now)

	// Same instance re-announcing from a new address replaces the record
	moved := serviceEntry("Den", "_googlecast._tcp", "cc-1.local.", 8009, []net.IP{net.ParseIP("192.168.1.99")}, nil)
	s.handle(moved, now.Add(time.Second))

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Address() != "192.168.1.99" {
		t.Errorf("Address() = %v, want updated address", entries[0].Address())
	}

	// Malformed records are dropped without touching the store
	s.handle(serviceEntry("Broken", "_googlecast._tcp", "b.local.", 8009, nil, nil), now)
	s.handle(nil, now)
	if s.Len() != 1 {
		t.Errorf("Len() = %d after malformed records, want 1", s.Len())
	}

	bye := serviceEntry("Den", "_googlecast._tcp", "cc-1.local.", 8009, nil, nil)
	bye.TTL = 0
	s.handle(bye, now)
	if s.Len() != 0 {
		t.Errorf("Len() = %d after goodbye, want 0", s.Len())
	}
}

func TestScanner_EntriesIsSnapshot(t *testing.T) {
	s := NewScannerWithBrowser(Config{}, (&fakeBrowser{}).browse, nil)
	s.handle(serviceEntry("Den", "_hap._tcp", "d.local.", 80, []net.IP{net.ParseIP("10.0.0.1")}, nil), time.Now())

	snap := s.Entries()
	snap[0].Instance = "mutated"

	if s.Entries()[0].Instance != "Den" {
		t.Error("mutating a snapshot changed the store")
	}
}

// burstBrowser behaves like zeroconf's receive loop: it handles a packet
// outside its select, delivers every resulting entry with a blocking send,
// and only notices cancellation once it is back in the select.
type burstBrowser struct {
	burst    int
	delay    time.Duration
	released atomic.Bool
}

func (b *burstBrowser) browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	go func() {
		time.Sleep(b.delay)
		for i := 0; i < b.burst; i++ {
			instance := fmt.Sprintf("Speaker %02d", i)
			entries <- serviceEntry(instance, service, "speaker.local.", 1400, []net.IP{net.ParseIP("10.0.0.9")}, nil)
		}
		<-ctx.Done()
		b.released.Store(true)
		close(entries)
	}()
	return nil
}

func TestScanner_StopDrainsBurstAfterCancel(t *testing.T) {
	bb := &burstBrowser{burst: entryBuffer + 8, delay: 50 * time.Millisecond}
	s := NewScannerWithBrowser(Config{Services: []string{"_sonos._tcp"}}, bb.browse, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}

	if !bb.released.Load() {
		t.Error("browse loop still blocked after Stop returned")
	}
}

func TestScanner_FailedStartClosesEveryChannel(t *testing.T) {
	fb := &fakeBrowser{err: errors.New("bind: address in use")}
	s := NewScannerWithBrowser(Config{Services: []string{"_hap._tcp", "_airplay._tcp"}}, fb.browse, nil)

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Start() error = nil, want error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() hung waiting for consumers after a browse failure")
	}
}

func TestIPTraffic(t *testing.T) {
	if got := ipTraffic(false); got != zeroconf.IPv4 {
		t.Errorf("ipTraffic(false) = %v, want IPv4", got)
	}
	if got := ipTraffic(true); got != zeroconf.IPv4AndIPv6 {
		t.Errorf("ipTraffic(true) = %v, want IPv4AndIPv6", got)
	}
	if zeroconfBrowser(true) == nil || zeroconfBrowser(false) == nil {
		t.Error("zeroconfBrowser returned nil")
	}
}

func TestNewScanner_Defaults(t *testing.T) {
	s := NewScanner(Config{Services: []string{"_hap._tcp"}}, nil)

	if s.config.Domain != DefaultDomain {
		t.Errorf("Domain = %q, want %q", s.config.Domain, DefaultDomain)
	}
	if s.browse == nil {
		t.Error("browse func not set")
	}
	if got := s.Services(); len(got) != 1 || got[0] != "_hap._tcp" {
		t.Errorf("Services() = %v", got)
	}
}
