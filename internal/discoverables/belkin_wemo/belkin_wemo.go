// Package belkin_wemo discovers Belkin WeMo switches, plugs and sensors.
package belkin_wemo

import (
	"strings"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/ssdp"
)

const Name = "belkin_wemo"

func init() {
	discoverable.Register(discoverable.Registration{
		Name:        Name,
		Description: "Belkin WeMo devices",
		Factory:     New,
	})
}

// New creates the belkin_wemo checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	c := discoverable.NewSSDPChecker(src, discoverable.MatchManufacturer("belkin"))
	c.Describe = func(e ssdp.Entry) discoverable.Info {
		info := discoverable.SSDPInfo(e)
		if d := e.Description; d != nil {
			// urn:Belkin:device:controllee:1 -> controllee
			parts := strings.Split(d.DeviceType, ":")
			if len(parts) >= 4 {
				info.Properties["kind"] = parts[3]
			}
		}
		return info
	}
	return c, nil
}
