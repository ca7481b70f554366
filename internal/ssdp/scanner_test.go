package ssdp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const hueDescription = `<?xml version="1.0"?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
  <URLBase>http://127.0.0.1:80/</URLBase>
  <device>
    <deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
    <friendlyName>Philips hue (127.0.0.1)</friendlyName>
    <manufacturer>Royal Philips Electronics</manufacturer>
    <modelName>Philips hue bridge 2015</modelName>
    <modelNumber>BSB002</modelNumber>
    <serialNumber>001788fffe000000</serialNumber>
    <UDN>uuid:2f402f80-da50-11e1-9b23-001788000000</UDN>
  </device>
</root>`

// responder answers every datagram it receives with the given responses
type responder struct {
	conn     *net.UDPConn
	requests atomic.Int32
	lastReq  atomic.Value
}

func newResponder(t *testing.T, responses ...string) *responder {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	r := &responder{conn: conn}
	t.Cleanup(func() { _ = conn.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			r.requests.Add(1)
			r.lastReq.Store(string(buf[:n]))
			for _, resp := range responses {
				_, _ = conn.WriteToUDP([]byte(resp), from)
			}
		}
	}()
	return r
}

func (r *responder) addr() string {
	return r.conn.LocalAddr().String()
}

func searchResponse(location, st, usn string) string {
	return "HTTP/1.1 200 OK\r\n" +
		"CACHE-CONTROL: max-age=100\r\n" +
		"LOCATION: " + location + "\r\n" +
		"SERVER: Linux/3.14 UPnP/1.0 IpBridge/1.26.0\r\n" +
		"ST: " + st + "\r\n" +
		"USN: " + usn + "\r\n\r\n"
}

func testConfig(target string) Config {
	return Config{
		Target: target,
		Window: 300 * time.Millisecond,
	}
}

func TestScanner_ScanCollectsAndDescribes(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if !strings.HasPrefix(r.UserAgent(), "netdisco/") {
			t.Errorf("User-Agent = %q, want netdisco/ prefix", r.UserAgent())
		}
		fmt.Fprint(w, hueDescription)
	}))
	defer srv.Close()

	location := srv.URL + "/description.xml"
	r := newResponder(t,
		searchResponse(location, "upnp:rootdevice", "uuid:2f402f80::upnp:rootdevice"),
		searchResponse(location, "urn:schemas-upnp-org:device:basic:1", "uuid:2f402f80"),
		"garbage that is not an http response",
	)

	s := NewScanner(testConfig(r.addr()), nil)
	if err := s.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(entries), entries)
	}
	if entries[0].USN != "uuid:2f402f80" || entries[1].USN != "uuid:2f402f80::upnp:rootdevice" {
		t.Errorf("entries not sorted by USN: %v", entries)
	}

	for _, e := range entries {
		if e.Description == nil {
			t.Fatalf("entry %s has no description", e.USN)
		}
		if e.Description.Manufacturer != "Royal Philips Electronics" {
			t.Errorf("Manufacturer = %q", e.Description.Manufacturer)
		}
		if e.From != "127.0.0.1" {
			t.Errorf("From = %q, want 127.0.0.1", e.From)
		}
	}

	// Two entries share one LOCATION, so it is fetched once
	if got := fetches.Load(); got != 1 {
		t.Errorf("description fetched %d times, want 1", got)
	}

	req, _ := r.lastReq.Load().(string)
	if !strings.HasPrefix(req, "M-SEARCH * HTTP/1.1\r\n") || !strings.Contains(req, "ST: ssdp:all\r\n") {
		t.Errorf("unexpected M-SEARCH request: %q", req)
	}
}

func TestScanner_ScanReplacesPreviousResults(t *testing.T) {
	r := newResponder(t, searchResponse("http://127.0.0.1:1/x.xml", "roku:ecp", "uuid:roku:ecp:1"))

	cfg := testConfig(r.addr())
	cfg.SkipDescriptions = true
	s := NewScanner(cfg, nil)

	for i := 0; i < 3; i++ {
		if err := s.Scan(context.Background()); err != nil {
			t.Fatalf("Scan() #%d error = %v", i+1, err)
		}
		if s.Len() != 1 {
			t.Fatalf("Len() after scan #%d = %d, want 1", i+1, s.Len())
		}
	}
	if got := r.requests.Load(); got != 3 {
		t.Errorf("responder saw %d requests, want 3", got)
	}
}

func TestScanner_DescriptionFailureKeepsEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	r := newResponder(t, searchResponse(srv.URL+"/desc.xml", "urn:schemas-upnp-org:device:MediaRenderer:1", "uuid:renderer"))

	s := NewScanner(testConfig(r.addr()), nil)
	if err := s.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Description != nil {
		t.Error("expected nil description after failed fetch")
	}
}

func TestScanner_NoResponsesIsNotAnError(t *testing.T) {
	r := newResponder(t)

	s := NewScanner(testConfig(r.addr()), nil)
	if err := s.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestScanner_ResolveFailureKeepsEntries(t *testing.T) {
	r := newResponder(t, searchResponse("http://127.0.0.1:1/x.xml", "roku:ecp", "uuid:roku"))

	cfg := testConfig(r.addr())
	cfg.SkipDescriptions = true
	s := NewScanner(cfg, nil)
	if err := s.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	s.config.Target = "not-a-valid-address"
	if err := s.Scan(context.Background()); err == nil {
		t.Fatal("Scan() with bad target error = nil, want error")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after failed scan, want prior 1", s.Len())
	}
}

func TestScanner_CancelledContext(t *testing.T) {
	r := newResponder(t)

	cfg := testConfig(r.addr())
	cfg.Window = 5 * time.Second
	s := NewScanner(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := s.Scan(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Scan() error = %v, want deadline exceeded", err)
	}
	if time.Since(started) > 2*time.Second {
		t.Error("Scan() did not honor context deadline")
	}
}

func TestDefaultConfig(t *testing.T) {
	s := NewScanner(Config{}, nil)

	if s.config.Target != MulticastAddr {
		t.Errorf("Target = %q, want %q", s.config.Target, MulticastAddr)
	}
	if s.config.SearchTarget != SearchAll {
		t.Errorf("SearchTarget = %q, want %q", s.config.SearchTarget, SearchAll)
	}
	if s.Window() != DefaultWindow {
		t.Errorf("Window() = %v, want %v", s.Window(), DefaultWindow)
	}
	if s.config.HTTPClient == nil || s.config.HTTPClient.Timeout != DescriptionTimeout {
		t.Error("HTTPClient not defaulted")
	}
}
