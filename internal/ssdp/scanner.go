package ssdp

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/netdisco/internal/logging"
	"github.com/muurk/netdisco/internal/version"
)

const (
	// MulticastAddr is the IPv4 SSDP multicast group
	MulticastAddr = "239.255.255.250:1900"

	// SearchAll asks every device and service to respond
	SearchAll = "ssdp:all"

	// DefaultWindow is how long a scan collects responses
	DefaultWindow = 4 * time.Second

	// DefaultMX is the maximum response delay devices are asked to use
	DefaultMX = 2

	// DefaultMulticastTTL keeps M-SEARCH on the local segment plus one hop
	DefaultMulticastTTL = 2

	// DescriptionTimeout bounds each UPnP description fetch
	DescriptionTimeout = 2 * time.Second

	// maxDescriptionFetches caps concurrent description requests per scan
	maxDescriptionFetches = 8

	// maxDescriptionBytes caps the size of a description document
	maxDescriptionBytes = 1 << 20

	readBufferSize = 8192
)

// Config controls a foreground SSDP scan
type Config struct {
	// Target is the multicast group (or unicast address in tests)
	Target string

	// SearchTarget is the ST header (default "ssdp:all")
	SearchTarget string

	// Window is the observation window per scan
	Window time.Duration

	MX           int
	MulticastTTL int

	// SkipDescriptions disables fetching LOCATION documents
	SkipDescriptions bool

	// HTTPClient is used for description fetches (default: 2s timeout)
	HTTPClient *http.Client
}

// DefaultConfig returns the configuration used by the CLI
func DefaultConfig() Config {
	return Config{
		Target:       MulticastAddr,
		SearchTarget: SearchAll,
		Window:       DefaultWindow,
		MX:           DefaultMX,
		MulticastTTL: DefaultMulticastTTL,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Target == "" {
		c.Target = d.Target
	}
	if c.SearchTarget == "" {
		c.SearchTarget = d.SearchTarget
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.MX <= 0 {
		c.MX = d.MX
	}
	if c.MulticastTTL <= 0 {
		c.MulticastTTL = d.MulticastTTL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DescriptionTimeout}
	}
	return c
}

// Scanner performs on-demand SSDP searches. Each Scan is a full
// round trip that replaces the previous result set.
type Scanner struct {
	config Config
	logger *zap.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewScanner creates a foreground scanner
func NewScanner(config Config, logger *zap.Logger) *Scanner {
	return &Scanner{
		config:  config.withDefaults(),
		logger:  logging.OrNop(logger),
		entries: make(map[string]Entry),
	}
}

// Window returns the configured observation window
func (s *Scanner) Window() time.Duration {
	return s.config.Window
}

// Scan sends one M-SEARCH and collects responses until the observation
// window closes. On failure the previous entries are left untouched.
func (s *Scanner) Scan(ctx context.Context) error {
	started := time.Now()

	raddr, err := net.ResolveUDPAddr("udp4", s.config.Target)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", s.config.Target, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return fmt.Errorf("failed to open SSDP socket: %w", err)
	}
	defer conn.Close()

	if raddr.IP.IsMulticast() {
		pc := ipv4.NewPacketConn(conn)
		if err := pc.SetMulticastTTL(s.config.MulticastTTL); err != nil {
			s.logger.Warn("Failed to set multicast TTL", zap.Error(err))
		}
		if err := pc.SetMulticastLoopback(true); err != nil {
			s.logger.Debug("Failed to enable multicast loopback", zap.Error(err))
		}
	}

	request := BuildSearchRequest(s.config.Target, s.config.SearchTarget, s.config.MX)
	if _, err := conn.WriteTo(request, raddr); err != nil {
		return fmt.Errorf("failed to send M-SEARCH to %s: %w", s.config.Target, err)
	}

	if err := conn.SetReadDeadline(started.Add(s.config.Window)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}

	// Unblock the read loop as soon as ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	found, err := s.collect(conn)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("SSDP scan interrupted: %w", err)
	}

	if !s.config.SkipDescriptions {
		s.describe(ctx, found)
	}

	s.mu.Lock()
	s.entries = found
	s.mu.Unlock()

	logging.LogScanCycle(s.logger, Protocol, len(found), time.Since(started))
	return nil
}

// collect reads responses until the read deadline expires
func (s *Scanner) collect(conn net.PacketConn) (map[string]Entry, error) {
	found := make(map[string]Entry)
	buf := make([]byte, readBufferSize)

	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return found, nil
			}
			return nil, fmt.Errorf("failed to read SSDP response: %w", err)
		}

		entry, err := ParseResponse(buf[:n])
		if err != nil {
			logging.LogDroppedRecord(s.logger, Protocol, hostOf(from), err.Error())
			logging.LogRawPacket(s.logger, "Malformed SSDP response", buf[:n])
			continue
		}

		entry.From = hostOf(from)
		entry.SeenAt = time.Now()
		found[entry.ID()] = *entry
	}
}

// describe fetches each distinct LOCATION once and attaches the result to
// every entry that points at it. Fetch failures leave Description nil.
func (s *Scanner) describe(ctx context.Context, found map[string]Entry) {
	seen := make(map[string]bool)
	var locations []string
	for _, e := range found {
		if e.Location != "" && !seen[e.Location] {
			seen[e.Location] = true
			locations = append(locations, e.Location)
		}
	}
	if len(locations) == 0 {
		return
	}

	var mu sync.Mutex
	described := make(map[string]*Description, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxDescriptionFetches)

	for _, location := range locations {
		g.Go(func() error {
			desc, err := s.fetchDescription(gctx, location)
			if err != nil {
				s.logger.Warn("Failed to fetch device description",
					zap.String("location", location),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			described[location] = desc
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for id, e := range found {
		if desc := described[e.Location]; desc != nil {
			d := *desc
			e.Description = &d
			found[id] = e
		}
	}
}

func (s *Scanner) fetchDescription(ctx context.Context, location string) (*Description, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid location: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var desc Description
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxDescriptionBytes)).Decode(&desc); err != nil {
		return nil, fmt.Errorf("failed to parse description: %w", err)
	}
	return &desc, nil
}

// Entries returns a snapshot of the last successful scan, ordered by ID
func (s *Scanner) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Len returns the number of entries from the last successful scan
func (s *Scanner) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
