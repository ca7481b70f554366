// Package ssdp provides the foreground SSDP (UPnP discovery) scanner.
//
// A scan sends a single M-SEARCH to the SSDP multicast group and collects
// unicast responses for a fixed observation window. Responses are keyed by
// USN so a device answering twice does not produce duplicates. After the
// window closes, each distinct LOCATION is fetched once and the UPnP device
// description (manufacturer, model, friendly name) is attached to every
// entry that references it.
//
// # Result Set
//
// Every successful Scan replaces the previous result set. A failed scan
// (socket error, cancelled context) returns an error and leaves the
// previous entries in place. Receiving no responses is not an error.
//
// # Usage Example
//
//	scanner := ssdp.NewScanner(ssdp.DefaultConfig(), logger)
//	if err := scanner.Scan(ctx); err != nil {
//	    return fmt.Errorf("ssdp scan failed: %w", err)
//	}
//	for _, entry := range scanner.Entries() {
//	    fmt.Println(entry)
//	}
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Firewall must allow inbound UDP responses to an ephemeral port
package ssdp
