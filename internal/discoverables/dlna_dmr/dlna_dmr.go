// Package dlna_dmr discovers DLNA digital media renderers.
package dlna_dmr

import (
	"github.com/muurk/netdisco/internal/discoverable"
)

const (
	Name = "dlna_dmr"

	DeviceType = "urn:schemas-upnp-org:device:MediaRenderer:1"
)

func init() {
	discoverable.Register(discoverable.Registration{
		Name:        Name,
		Description: "DLNA digital media renderers",
		Factory:     New,
	})
}

// New creates the dlna_dmr checker
func New(src discoverable.Sources) (discoverable.Checker, error) {
	return discoverable.NewSSDPChecker(src, discoverable.MatchDeviceType(DeviceType)), nil
}
