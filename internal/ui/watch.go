package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ScanFunc runs one discovery pass and reports what is discovered
type ScanFunc func(ctx context.Context) (Report, error)

// Messages for async operations
type scanCompleteMsg struct {
	seq    int
	report Report
	err    error
}

type autoRescanMsg struct{ seq int }

type progressTickMsg struct{}

const progressTickInterval = 100 * time.Millisecond

// watchKeyMap defines key bindings for the watch view
type watchKeyMap struct {
	Rescan key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Rescan, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Rescan}, {k.Help, k.Quit}}
}

// WatchModel rescans on an interval and shows the latest results
type WatchModel struct {
	ctx      context.Context
	scan     ScanFunc
	interval time.Duration
	window   time.Duration

	// seq identifies the current scan so stale timers are ignored
	seq       int
	scanning  bool
	started   time.Time
	report    Report
	haveScan  bool
	err       error
	lastError time.Time

	width   int
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    watchKeyMap
}

// NewWatchModel creates a watch view. window is the expected length of a
// scan, used for the progress bar. The view stops scanning when ctx ends.
func NewWatchModel(ctx context.Context, scan ScanFunc, interval, window time.Duration) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StatusScanningStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return WatchModel{
		ctx:      ctx,
		scan:     scan,
		interval: interval,
		window:   window,
		width:    GetTerminalWidth(),
		spinner:  s,
		bar:      bar,
		help:     help.New(),
		keys: watchKeyMap{
			Rescan: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "rescan"),
			),
			Help: key.NewBinding(
				key.WithKeys("?"),
				key.WithHelp("?", "more"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// Init starts the first scan
func (m WatchModel) Init() tea.Cmd {
	return func() tea.Msg { return autoRescanMsg{seq: 0} }
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Rescan):
			if !m.scanning {
				return m.startScan()
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)

	case autoRescanMsg:
		if msg.seq == m.seq && !m.scanning {
			return m.startScan()
		}

	case scanCompleteMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.scanning = false
		if msg.err != nil {
			// keep showing the previous results
			m.err = msg.err
			m.lastError = time.Now()
		} else {
			m.err = nil
			m.report = msg.report
			m.haveScan = true
		}
		seq := m.seq
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return autoRescanMsg{seq: seq} })

	case progressTickMsg:
		if m.scanning {
			return m, tickProgress()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// startScan runs the scan function in a command and starts the spinner
func (m WatchModel) startScan() (WatchModel, tea.Cmd) {
	m.seq++
	m.scanning = true
	m.started = time.Now()

	seq, scan, ctx := m.seq, m.scan, m.ctx
	run := func() tea.Msg {
		report, err := scan(ctx)
		return scanCompleteMsg{seq: seq, report: report, err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick, tickProgress())
}

func tickProgress() tea.Cmd {
	return tea.Tick(progressTickInterval, func(time.Time) tea.Msg { return progressTickMsg{} })
}

// Scanning reports whether a scan is in flight
func (m WatchModel) Scanning() bool {
	return m.scanning
}

// Report returns the latest successful scan
func (m WatchModel) Report() Report {
	return m.report
}

// View renders the watch screen
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(NewHeader("Network Discovery", "netdisco watch",
		Param{Key: "Interval", Value: m.interval.String()},
		Param{Key: "Scans", Value: fmt.Sprint(m.seq)},
	).SetWidth(m.width).Render())
	b.WriteString("\n\n")

	if m.scanning {
		b.WriteString(m.spinner.View() + " " + StatusScanningStyle.Render("Scanning...") + "\n")
		b.WriteString("  " + m.bar.ViewAs(m.scanProgress()) + "\n\n")
	} else if m.haveScan {
		b.WriteString(StatusIdleStyle.Render(fmt.Sprintf("Last scan %s, next in %s",
			m.report.Time.Format(time.TimeOnly), m.interval)) + "\n\n")
	}

	if m.err != nil {
		b.WriteString(ErrorMessageStyle.Render(fmt.Sprintf("%s Scan failed at %s: %v",
			FailureMarker, m.lastError.Format(time.TimeOnly), m.err)) + "\n\n")
	}

	if m.haveScan {
		b.WriteString(RenderCompact(m.report))
		b.WriteString("\n\n")
	}

	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// scanProgress is the elapsed fraction of the scan window
func (m WatchModel) scanProgress() float64 {
	if m.window <= 0 {
		return 0
	}
	p := float64(time.Since(m.started)) / float64(m.window)
	if p > 1 {
		return 1
	}
	return p
}
