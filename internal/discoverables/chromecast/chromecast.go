// Package chromecast discovers Google Cast devices over mDNS.
package chromecast

import (
	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/mdns"
)

const (
	Name        = "chromecast"
	ServiceType = "_googlecast._tcp"
)

func init() {
	discoverable.Register(discoverable.Registration{
		Name:         Name,
		MDNSServices: []string{ServiceType},
		Description:  "Google Cast receivers (Chromecast, Nest speakers, Cast TVs)",
		Factory:      New,
	})
}

// New creates the chromecast checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	c := discoverable.NewMDNSChecker(src, ServiceType)
	c.Describe = describe
	return c, nil
}

// describe prefers the friendly name from the "fn" TXT key; the instance
// name of a cast device is an opaque id.
func describe(e mdns.Entry) discoverable.Info {
	info := discoverable.MDNSInfo(e)
	if fn := e.Property("fn"); fn != "" {
		info.Name = fn
	}
	info.Properties = map[string]string{}
	for txt, key := range map[string]string{"md": "model_name", "id": "uuid", "ve": "version", "rs": "status"} {
		if v := e.Property(txt); v != "" {
			info.Properties[key] = v
		}
	}
	return info
}
