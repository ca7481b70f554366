// Package airplay discovers AirPlay receivers over mDNS.
package airplay

import (
	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/mdns"
)

const (
	Name        = "airplay"
	ServiceType = "_airplay._tcp"
)

func init() {
	discoverable.Register(discoverable.Registration{
		Name:         Name,
		MDNSServices: []string{ServiceType},
		Description:  "AirPlay receivers (Apple TV, AirPlay speakers and TVs)",
		Factory:      New,
	})
}

// New creates the airplay checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	c := discoverable.NewMDNSChecker(src, ServiceType)
	c.Describe = func(e mdns.Entry) discoverable.Info {
		info := discoverable.MDNSInfo(e)
		info.Properties = map[string]string{}
		if v := e.Property("model"); v != "" {
			info.Properties["model_name"] = v
		}
		if v := e.Property("deviceid"); v != "" {
			info.Properties["device_id"] = v
		}
		if v := e.Property("srcvers"); v != "" {
			info.Properties["version"] = v
		}
		return info
	}
	return c, nil
}
