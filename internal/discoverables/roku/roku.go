// Package roku discovers Roku players through their External Control
// Protocol search target.
package roku

import (
	"strings"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/ssdp"
)

const (
	Name = "roku"

	// SearchTarget is answered only by Roku devices
	SearchTarget = "roku:ecp"
)

func init() {
	discoverable.Register(discoverable.Registration{
		Name:        Name,
		Description: "Roku streaming players and TVs",
		Factory:     New,
	})
}

// New creates the roku checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	c := discoverable.NewSSDPChecker(src, discoverable.MatchST(SearchTarget))
	c.Describe = func(e ssdp.Entry) discoverable.Info {
		info := discoverable.SSDPInfo(e)
		if info.Name == SearchTarget {
			info.Name = "Roku"
		}
		// USN is "uuid:roku:ecp:<serial>"
		if serial, ok := strings.CutPrefix(e.USN, "uuid:roku:ecp:"); ok && serial != "" {
			info.Properties["serial"] = serial
		}
		return info
	}
	return c, nil
}
