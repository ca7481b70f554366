// Package philips_hue discovers Philips Hue bridges by their UPnP
// description.
package philips_hue

import (
	"github.com/muurk/netdisco/internal/discoverable"
)

const Name = "philips_hue"

func init() {
	discoverable.Register(discoverable.Registration{
		Name:        Name,
		Description: "Philips Hue bridges",
		Factory:     New,
	})
}

// New creates the philips_hue checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	return discoverable.NewSSDPChecker(src, discoverable.All(
		discoverable.MatchManufacturer("royal philips"),
		discoverable.MatchModelName("philips hue bridge"),
	)), nil
}
