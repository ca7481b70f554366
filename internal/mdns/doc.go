// Package mdns provides the background mDNS/DNS-SD scanner.
//
// The scanner browses a fixed set of service types (for example
// "_googlecast._tcp" or "_hap._tcp") using zeroconf and keeps the most
// recent record for every service instance it hears about. Browsing runs
// on its own goroutines from Start until Stop.
//
// # Records
//
// Each service instance is keyed by its full instance name, so a device
// re-announcing itself replaces its previous record rather than adding a
// duplicate. Goodbye packets (TTL 0) remove the instance. Records without
// any address are logged at debug level and dropped; a malformed responder
// never stops the browse.
//
// # Usage Example
//
//	scanner := mdns.NewScanner(mdns.Config{
//	    Services: []string{"_googlecast._tcp", "_hap._tcp"},
//	}, logger)
//	if err := scanner.Start(); err != nil {
//	    return err
//	}
//	defer scanner.Stop()
//
//	for _, entry := range scanner.Entries() {
//	    fmt.Println(entry)
//	}
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// Entries and Len may be called from any goroutine while the browse is
// updating the store. Start and Stop are serialized internally.
package mdns
