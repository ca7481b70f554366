package mdns

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/netdisco/internal/logging"
)

const (
	// DefaultDomain is the mDNS domain browsed when none is configured
	DefaultDomain = "local."

	// entryBuffer is the per-service channel depth between zeroconf and the store
	entryBuffer = 32
)

// BrowseFunc starts browsing one service type and delivers resolved entries
// on the channel until ctx is cancelled. It must return once browsing has
// started, and close entries once browsing has ended, including when it
// returns an error. zeroconf.Resolver.Browse has exactly this shape.
type BrowseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Config controls which services the background scanner browses
type Config struct {
	// Services are the service types to browse (e.g., "_googlecast._tcp")
	Services []string

	// Domain defaults to "local."
	Domain string

	// IPv6 enables IPv6 traffic in addition to IPv4
	IPv6 bool
}

// Scanner continuously browses mDNS service types in the background and
// keeps the latest record for every service instance.
type Scanner struct {
	config Config
	browse BrowseFunc
	logger *zap.Logger

	// store guards entries; written only by the browse consumers
	store   sync.RWMutex
	entries map[string]Entry

	// run guards the lifecycle fields below
	run    sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewScanner creates a background scanner backed by zeroconf
func NewScanner(config Config, logger *zap.Logger) *Scanner {
	if config.Domain == "" {
		config.Domain = DefaultDomain
	}
	return &Scanner{
		config:  config,
		browse:  zeroconfBrowser(config.IPv6),
		logger:  logging.OrNop(logger),
		entries: make(map[string]Entry),
	}
}

// NewScannerWithBrowser creates a scanner that uses a custom browse function.
// Tests use it to feed synthetic announcements.
func NewScannerWithBrowser(config Config, browse BrowseFunc, logger *zap.Logger) *Scanner {
	s := NewScanner(config, logger)
	s.browse = browse
	return s
}

// ipTraffic selects the resolver's IP families
func ipTraffic(ipv6 bool) zeroconf.IPType {
	if ipv6 {
		return zeroconf.IPv4AndIPv6
	}
	return zeroconf.IPv4
}

func zeroconfBrowser(ipv6 bool) BrowseFunc {
	traffic := ipTraffic(ipv6)

	return func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
		resolver, err := zeroconf.NewResolver(zeroconf.SelectIPTraffic(traffic))
		if err != nil {
			// no browse loop exists to close it
			close(entries)
			return fmt.Errorf("failed to create mDNS resolver: %w", err)
		}
		// a failed Browse still closes entries once ctx is cancelled
		if err := resolver.Browse(ctx, service, domain, entries); err != nil {
			return fmt.Errorf("failed to browse for %s: %w", service, err)
		}
		return nil
	}
}

// Services returns the configured service types
func (s *Scanner) Services() []string {
	return append([]string(nil), s.config.Services...)
}

// Running reports whether the background browse is active
func (s *Scanner) Running() bool {
	s.run.Lock()
	defer s.run.Unlock()
	return s.cancel != nil
}

// Start begins browsing every configured service type. Calling Start while
// already running has no effect. Records from a previous run are discarded.
func (s *Scanner) Start() error {
	s.run.Lock()
	defer s.run.Unlock()

	if s.cancel != nil {
		return nil
	}

	s.store.Lock()
	s.entries = make(map[string]Entry)
	s.store.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	consumers := new(errgroup.Group)

	var starters errgroup.Group
	for _, service := range s.config.Services {
		ch := make(chan *zeroconf.ServiceEntry, entryBuffer)

		starters.Go(func() error {
			return s.browse(ctx, service, s.config.Domain, ch)
		})
		consumers.Go(func() error {
			s.consume(ch)
			return nil
		})
	}

	if err := starters.Wait(); err != nil {
		cancel()
		_ = consumers.Wait()
		return err
	}

	s.cancel = cancel
	s.group = consumers

	s.logger.Info("mDNS background scan started",
		zap.Strings("services", s.config.Services),
		zap.String("domain", s.config.Domain),
	)
	return nil
}

// Stop cancels the background browse and waits until every browse loop
// has closed its channel and released its sockets.
// Stopping a scanner that is not running is a no-op.
func (s *Scanner) Stop() error {
	s.run.Lock()
	defer s.run.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	err := s.group.Wait()
	s.cancel = nil
	s.group = nil

	s.logger.Info("mDNS background scan stopped", zap.Int("entries", s.Len()))
	return err
}

// consume drains ch until the browse loop closes it. Returning early on
// cancellation would leave zeroconf blocked on a send with its sockets open.
func (s *Scanner) consume(ch <-chan *zeroconf.ServiceEntry) {
	for se := range ch {
		s.handle(se, time.Now())
	}
}

// handle merges one announcement into the store. Malformed records are
// dropped here so one bad responder cannot stop the browse.
func (s *Scanner) handle(se *zeroconf.ServiceEntry, now time.Time) {
	entry, err := fromServiceEntry(se, now)
	if err != nil {
		source := ""
		if se != nil {
			source = se.HostName
		}
		logging.LogDroppedRecord(s.logger, Protocol, source, err.Error())
		return
	}

	id := entry.ID()

	s.store.Lock()
	defer s.store.Unlock()

	if entry.TTL == 0 {
		delete(s.entries, id)
		s.logger.Debug("mDNS goodbye", zap.String("instance", id))
		return
	}

	if _, seen := s.entries[id]; !seen {
		s.logger.Debug("mDNS instance discovered",
			zap.String("instance", id),
			zap.String("address", entry.Address()),
			zap.Int("port", entry.Port),
		)
	}
	s.entries[id] = entry
}

// Entries returns a snapshot of every known instance, ordered by ID
func (s *Scanner) Entries() []Entry {
	s.store.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.store.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Len returns the number of known instances
func (s *Scanner) Len() int {
	s.store.RLock()
	defer s.store.RUnlock()
	return len(s.entries)
}
