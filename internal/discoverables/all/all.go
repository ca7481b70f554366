// Package all registers every built-in discoverable type. Import it for
// its side effects:
//
//	import _ "github.com/muurk/netdisco/internal/discoverables/all"
package all

import (
	_ "github.com/muurk/netdisco/internal/discoverables/airplay"
	_ "github.com/muurk/netdisco/internal/discoverables/belkin_wemo"
	_ "github.com/muurk/netdisco/internal/discoverables/chromecast"
	_ "github.com/muurk/netdisco/internal/discoverables/dlna_dmr"
	_ "github.com/muurk/netdisco/internal/discoverables/homekit"
	_ "github.com/muurk/netdisco/internal/discoverables/philips_hue"
	_ "github.com/muurk/netdisco/internal/discoverables/roku"
	_ "github.com/muurk/netdisco/internal/discoverables/smartap"
	_ "github.com/muurk/netdisco/internal/discoverables/sonos"
)
