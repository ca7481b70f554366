// Package discovery coordinates local network discovery.
//
// NetworkDiscovery owns a background mDNS scanner, a foreground SSDP
// scanner and a registry of discoverable types. Its lifecycle has two
// states:
//
//	Idle --Scan--> Scanning --Stop--> Idle
//
// Scan starts the background scanner only when idle, but runs a
// foreground SSDP search on every call, so repeated Scan calls refresh
// SSDP results without restarting mDNS browsing.
//
// # Usage Example
//
//	err := discovery.Run(ctx, discovery.Options{Logger: logger},
//	    func(ctx context.Context, d *discovery.NetworkDiscovery) error {
//	        found, err := d.Discover()
//	        if err != nil {
//	            return err
//	        }
//	        for _, name := range found {
//	            info, _ := d.Info(name)
//	            fmt.Println(name, info)
//	        }
//	        return nil
//	    })
//
// Run stops the coordinator on every return path. Callers managing the
// lifecycle themselves should defer Close.
//
// # Errors
//
// Every operation returns *Error values that match the package sentinels
// with errors.Is:
//   - ErrInvalidState: Discover, Info or Entries called while idle
//   - ErrUnknownType: Info or Entries called with a name that is not loaded
//   - ErrPluginLoad: New could not construct one of the discoverables
//   - ErrScanTransport: the SSDP round trip failed; mDNS keeps running
//   - ErrBackgroundStart: mDNS browsing could not start
//
// # Thread Safety
//
// All methods are safe for concurrent use. Queries never block on a scan
// in progress; they read whatever the scanners currently hold.
package discovery
