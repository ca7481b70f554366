// Package sonos discovers Sonos players.
package sonos

import (
	"strings"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/ssdp"
)

const (
	Name = "sonos"

	// DeviceType is the search target every Sonos zone player answers
	DeviceType = "urn:schemas-upnp-org:device:ZonePlayer:1"
)

func init() {
	discoverable.Register(discoverable.Registration{
		Name:        Name,
		Description: "Sonos zone players",
		Factory:     New,
	})
}

// New creates the sonos checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	c := discoverable.NewSSDPChecker(src, discoverable.MatchDeviceType(DeviceType))
	c.Describe = func(e ssdp.Entry) discoverable.Info {
		info := discoverable.SSDPInfo(e)
		// friendly names look like "192.168.1.30 - Sonos One"; the room
		// name travels in the X-RINCON household header instead
		if hh := e.Header("X-RINCON-HOUSEHOLD"); hh != "" {
			info.Properties["household"] = hh
		}
		if i := strings.Index(info.Name, " - "); i > 0 {
			info.Name = info.Name[i+3:]
		}
		return info
	}
	return c, nil
}
