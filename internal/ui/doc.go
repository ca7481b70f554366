// Package ui provides terminal output for the netdisco CLI.
//
// Output is styled with Lipgloss and sized to the terminal with x/term.
// One-shot commands print through a Printer: a Header describing the
// command, then a discovery Report, then a Result box. Failures from the
// coordinator are printed with the troubleshooting hints attached to
// their error type.
//
// # Reports
//
// Collect turns a running coordinator into a Report. WriteReport renders
// it in one of four formats:
//
//   - detailed: a section per discovered type with every device property
//   - compact: one aligned line per device
//   - json, yaml: machine-readable output
//
// # Watch view
//
// WatchModel is a Bubble Tea model that runs a ScanFunc on an interval,
// shows a spinner and a progress bar over the scan window while a scan is
// in flight, and keeps the previous results on screen when a scan fails.
// Press r to rescan immediately and q to quit.
//
//	m := ui.NewWatchModel(ctx, scan, 30*time.Second, 4*time.Second)
//	_, err := tea.NewProgram(m).Run()
//
// # Logging Integration
//
// Logging is controlled by --log-level or NETDISCO_LOG_LEVEL. When unset,
// zap logging is silent so the styled output is displayed cleanly.
package ui
