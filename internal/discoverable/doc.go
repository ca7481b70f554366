// Package discoverable defines the checker contract and the registry of
// discoverable types.
//
// A discoverable type is a category of device or service (a Chromecast, a
// Hue bridge, a Sonos speaker) with its own logic for recognising raw scan
// records. Each type registers a Factory in a Catalog from its package
// init function:
//
//	func init() {
//	    discoverable.Register(discoverable.Registration{
//	        Name:         "chromecast",
//	        MDNSServices: []string{"_googlecast._tcp"},
//	        Factory: func(src discoverable.Sources) (discoverable.Checker, error) {
//	            return discoverable.NewMDNSChecker(src, "_googlecast._tcp"), nil
//	        },
//	    })
//	}
//
// Importing a plugin package is all it takes to make a type available;
// the coordinator never names plugins directly.
//
// # Loading
//
// Catalog.Load builds one Checker per selected registration. The checker
// receives Sources, read-only views of the two scanners' stores, and reads
// them on demand. If any factory fails, returns nil or panics, the whole
// load fails with a *LoadError and no registry is produced.
package discoverable
