package discoverable

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/netdisco/internal/logging"
)

// Factory builds the checker for one discoverable type
type Factory func(src Sources) (Checker, error)

// Registration describes one discoverable type
type Registration struct {
	// Name is the discoverable type name (e.g., "chromecast")
	Name string

	// MDNSServices lists the mDNS service types the checker needs browsed
	MDNSServices []string

	// Description is a one-line summary shown by "netdisco types"
	Description string

	Factory Factory
}

// namePattern restricts type names to the form used as map keys, CLI
// arguments and URL path segments
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidName reports whether name can be registered
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Catalog holds every discoverable type that can be loaded.
// Plugins add themselves from init; the coordinator selects from it.
type Catalog struct {
	mu   sync.RWMutex
	regs map[string]Registration
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{regs: make(map[string]Registration)}
}

// Default is the catalog built-in discoverables register into
var Default = NewCatalog()

// Register adds a registration to the Default catalog.
// It panics on invalid or duplicate names, like database/sql.Register.
func Register(reg Registration) {
	Default.Register(reg)
}

// Register adds a registration. It panics if the name is invalid or
// already taken, or if the factory is nil.
func (c *Catalog) Register(reg Registration) {
	if !ValidName(reg.Name) {
		panic(fmt.Sprintf("discoverable: invalid type name %q", reg.Name))
	}
	if reg.Factory == nil {
		panic(fmt.Sprintf("discoverable: Register %q with nil factory", reg.Name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.regs[reg.Name]; dup {
		panic(fmt.Sprintf("discoverable: Register called twice for %q", reg.Name))
	}
	reg.MDNSServices = append([]string(nil), reg.MDNSServices...)
	c.regs[reg.Name] = reg
}

// Names returns every registered type name, sorted
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.regs))
	for name := range c.regs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the registration for name
func (c *Catalog) Lookup(name string) (Registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.regs[name]
	return reg, ok
}

// Select returns the registrations allowed by limit, sorted by name.
// A nil limit selects everything. Names in limit that are not registered
// are returned separately so the caller can report them.
func (c *Catalog) Select(limit []string) (selected []Registration, unknown []string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit == nil {
		for _, reg := range c.regs {
			selected = append(selected, reg)
		}
	} else {
		seen := make(map[string]bool, len(limit))
		for _, name := range limit {
			if seen[name] {
				continue
			}
			seen[name] = true

			reg, ok := c.regs[name]
			if !ok {
				unknown = append(unknown, name)
				continue
			}
			selected = append(selected, reg)
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Name < selected[j].Name
	})
	return selected, unknown
}

// Load instantiates one checker per selected registration. Any factory
// failure aborts the load and no registry is returned.
func (c *Catalog) Load(limit []string, src Sources, logger *zap.Logger) (*Registry, error) {
	logger = logging.OrNop(logger)

	selected, unknown := c.Select(limit)
	for _, name := range unknown {
		logger.Warn("Ignoring unknown discoverable in limit", zap.String("name", name))
	}

	registry := &Registry{
		checkers: make(map[string]Checker, len(selected)),
	}

	for _, reg := range selected {
		checker, err := build(reg, src)
		if err != nil {
			logger.Error("Discoverable failed to load", zap.String("name", reg.Name), zap.Error(err))
			return nil, &LoadError{Name: reg.Name, Err: err}
		}

		registry.names = append(registry.names, reg.Name)
		registry.checkers[reg.Name] = checker
		registry.services = append(registry.services, reg.MDNSServices...)
	}
	registry.services = dedupe(registry.services)

	logger.Debug("Discoverables loaded",
		zap.Strings("names", registry.names),
		zap.Strings("mdns_services", registry.services),
	)
	return registry, nil
}

// build runs a factory, converting a panic or nil result into an error
func build(reg Registration, src Sources) (checker Checker, err error) {
	defer func() {
		if r := recover(); r != nil {
			checker = nil
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()

	checker, err = reg.Factory(src)
	if err != nil {
		return nil, err
	}
	if checker == nil {
		return nil, ErrNilChecker
	}
	return checker, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// MDNSServices returns the mDNS service types needed by the registrations
// limit selects. The coordinator uses it to configure the background
// scanner before any checker exists.
func (c *Catalog) MDNSServices(limit []string) []string {
	selected, _ := c.Select(limit)

	var services []string
	for _, reg := range selected {
		services = append(services, reg.MDNSServices...)
	}
	return dedupe(services)
}
