package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/discovery"
	"github.com/muurk/netdisco/internal/mdns"
	"github.com/muurk/netdisco/internal/ssdp"
)

type fakeBackground struct {
	mu      sync.Mutex
	running bool
	stops   int
	entries []mdns.Entry
}

func (b *fakeBackground) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = true
	return nil
}

func (b *fakeBackground) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	b.stops++
	return nil
}

func (b *fakeBackground) Entries() []mdns.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]mdns.Entry(nil), b.entries...)
}

func (b *fakeBackground) isRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

type fakeForeground struct {
	mu    sync.Mutex
	scans int
	err   error
}

func (f *fakeForeground) Scan(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return f.err
}

func (f *fakeForeground) Entries() []ssdp.Entry { return nil }

func (f *fakeForeground) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

func testCatalog() *discoverable.Catalog {
	c := discoverable.NewCatalog()
	c.Register(discoverable.Registration{
		Name:         "chromecast",
		MDNSServices: []string{"_googlecast._tcp"},
		Factory: func(src discoverable.Sources) (discoverable.Checker, error) {
			return discoverable.NewMDNSChecker(src, "_googlecast._tcp"), nil
		},
	})
	c.Register(discoverable.Registration{
		Name: "roku",
		Factory: func(src discoverable.Sources) (discoverable.Checker, error) {
			return discoverable.NewSSDPChecker(src, discoverable.MatchST("roku:ecp")), nil
		},
	})
	return c
}

func newTestServer(t *testing.T) (*Server, *discovery.NetworkDiscovery, *fakeBackground, *fakeForeground) {
	t.Helper()
	bg := &fakeBackground{entries: []mdns.Entry{{
		Instance: "Den",
		Service:  "_googlecast._tcp",
		Domain:   "local.",
		IPv4:     []net.IP{net.ParseIP("10.0.0.5")},
		Port:     8009,
	}}}
	fg := &fakeForeground{}

	d, err := discovery.New(discovery.Options{Catalog: testCatalog(), Background: bg, Foreground: fg})
	if err != nil {
		t.Fatalf("discovery.New() error = %v", err)
	}
	return New(Config{Host: "127.0.0.1", RescanInterval: time.Hour}, d, nil), d, bg, fg
}

func getJSON(t *testing.T, h http.Handler, path string, wantStatus int, out any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	if rec.Code != wantStatus {
		t.Fatalf("GET %s status = %d, want %d (body %s)", path, rec.Code, wantStatus, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("GET %s Content-Type = %q", path, ct)
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("GET %s: invalid JSON: %v", path, err)
		}
	}
}

func TestHandler_IdleReturnsConflict(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	h := s.Handler()

	var errResp ErrorResponse
	getJSON(t, h, "/api/discover", http.StatusConflict, &errResp)
	if !strings.Contains(errResp.Error, "Invalid State") || errResp.Details == "" {
		t.Errorf("error response = %+v", errResp)
	}

	getJSON(t, h, "/api/types/chromecast/info", http.StatusConflict, nil)
	getJSON(t, h, "/api/types/nonexistent/info", http.StatusNotFound, nil)

	// types are listed while idle, none discovered
	var types []TypeSummary
	getJSON(t, h, "/api/types", http.StatusOK, &types)
	want := []TypeSummary{{Name: "chromecast"}, {Name: "roku"}}
	if !reflect.DeepEqual(types, want) {
		t.Errorf("types = %+v, want %+v", types, want)
	}
}

func TestHandler_Scanning(t *testing.T) {
	s, d, _, _ := newTestServer(t)
	if err := d.Scan(); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	defer d.Stop()
	h := s.Handler()

	var found []string
	getJSON(t, h, "/api/discover", http.StatusOK, &found)
	if !reflect.DeepEqual(found, []string{"chromecast"}) {
		t.Errorf("discover = %v", found)
	}

	var info []discoverable.Info
	getJSON(t, h, "/api/types/chromecast/info", http.StatusOK, &info)
	if len(info) != 1 || info[0].Name != "Den" || info[0].Host != "10.0.0.5" {
		t.Errorf("info = %+v", info)
	}

	var entries []struct {
		Source string         `json:"source"`
		ID     string         `json:"id"`
		Record map[string]any `json:"record"`
	}
	getJSON(t, h, "/api/types/chromecast/entries", http.StatusOK, &entries)
	if len(entries) != 1 || entries[0].Source != "mdns" || entries[0].ID != "Den._googlecast._tcp.local." {
		t.Errorf("entries = %+v", entries)
	}

	var empty []discoverable.Info
	getJSON(t, h, "/api/types/roku/info", http.StatusOK, &empty)
	if empty == nil || len(empty) != 0 {
		t.Errorf("roku info = %v, want empty array", empty)
	}

	getJSON(t, h, "/api/types/nonexistent/entries", http.StatusNotFound, nil)

	var raw discovery.RawDump
	getJSON(t, h, "/api/raw", http.StatusOK, &raw)
	if raw.State != "scanning" || len(raw.MDNS) != 1 {
		t.Errorf("raw = %+v", raw)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	s, _, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/types", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/types status = %d, want 405", rec.Code)
	}
}

func TestServe_ScansStreamsAndStops(t *testing.T) {
	s, _, bg, fg := newTestServer(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	waitFor(t, func() bool { return fg.count() >= 1 })

	url := "ws://" + listener.Addr().String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		cancel()
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	var snap Snapshot
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if snap.State != "scanning" || !reflect.DeepEqual(snap.Discovered, []string{"chromecast"}) {
		t.Errorf("initial snapshot = %+v", snap)
	}

	// a rescan request pushes a fresh snapshot
	resp, err := http.Post("http://"+listener.Addr().String()+"/api/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/scan error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("POST /api/scan status = %d", resp.StatusCode)
	}
	waitFor(t, func() bool { return fg.count() >= 2 })
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("ReadJSON() after rescan error = %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	if bg.isRunning() {
		t.Error("discovery still running after shutdown")
	}
	if s.hub.count() != 0 {
		t.Errorf("%d WebSocket clients left after shutdown", s.hub.count())
	}

	// drain queued snapshots until the connection is closed
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Error("connection still open after shutdown")
			}
			break
		}
	}
}

func TestRun_ListenFailureStopsDiscovery(t *testing.T) {
	s, d, _, _ := newTestServer(t)
	if err := d.Scan(); err != nil {
		t.Fatal(err)
	}

	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()

	s.config.Port = occupied.Addr().(*net.TCPAddr).Port
	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Run() on an occupied port succeeded")
	}
	if d.IsScanning() {
		t.Error("discovery still scanning after Run failed")
	}
}

func TestScanOnce_BroadcastsOnlyWhenRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantSent int
	}{
		{"success", nil, 1},
		{"timeout keeps earlier results", &net.OpError{Op: "read", Net: "udp", Err: os.ErrDeadlineExceeded}, 1},
		{"cancelled round trip", fmt.Errorf("SSDP scan interrupted: %w", context.Canceled), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d, _, fg := newTestServer(t)
			defer d.Stop()
			fg.err = tt.err

			c := &client{send: make(chan []byte, sendBuffer), addr: "test"}
			s.hub.mu.Lock()
			s.hub.clients[c] = struct{}{}
			s.hub.mu.Unlock()

			s.scanOnce(context.Background())

			if got := len(c.send); got != tt.wantSent {
				t.Errorf("snapshots sent = %d, want %d", got, tt.wantSent)
			}
			if fg.count() != 1 {
				t.Errorf("foreground scans = %d, want 1", fg.count())
			}
		})
	}
}

func TestRequestRescan_Coalesces(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	for i := 0; i < 5; i++ {
		s.RequestRescan()
	}
	if len(s.rescan) != 1 {
		t.Errorf("pending rescans = %d, want 1", len(s.rescan))
	}
}

func TestConfig_Addr(t *testing.T) {
	if got := (Config{Host: "::1", Port: 8780}).Addr(); got != "[::1]:8780" {
		t.Errorf("Addr() = %q", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}
