// Package server exposes network discovery results over HTTP.
//
// The server owns a discovery coordinator for its whole lifetime: it scans
// once on start, rescans on a fixed interval (or when asked through
// POST /api/scan), and stops discovery when it shuts down.
//
// # Routes
//
//	GET  /api/types                  loaded types and whether each is discovered
//	GET  /api/discover               discovered type names
//	GET  /api/types/{name}/info      summaries for one type
//	GET  /api/types/{name}/entries   raw records for one type
//	GET  /api/raw                    every record held by both scanners
//	POST /api/scan                   schedule an immediate rescan
//	GET  /ws                         WebSocket stream of Snapshot values
//
// Coordinator errors map to status codes: an unknown type name is 404,
// a query while discovery is idle is 409.
//
// # WebSocket Stream
//
// A client receives the current Snapshot on connect and another after
// every rescan. The server pings every 54 seconds and drops clients that
// miss a pong for 60 seconds or fall four snapshots behind.
package server
