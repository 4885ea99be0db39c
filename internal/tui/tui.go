// Package tui provides a Bubble Tea terminal user interface for hlsget.
package tui

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RealChuan/hlsget/internal/config"
	"github.com/RealChuan/hlsget/internal/download"
	"github.com/RealChuan/hlsget/internal/fetch"
	"github.com/RealChuan/hlsget/internal/keys"
	"github.com/RealChuan/hlsget/internal/model"
	"github.com/RealChuan/hlsget/internal/playlist"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	streamStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateResolving
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Download manager reference
	manager *download.Manager

	// Progress events arrive on eventCh from manager goroutines and
	// are drained into logs on each tick.
	eventCh chan download.ProgressEvent

	// Resolved playlist summary
	segments int
	duration float64
	output   string

	// Download progress
	totalSegments int32
	doneSegments  int32
	receivedBytes int64

	report *download.Report

	// Options
	bestEffort bool
	verbose    bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel() Model {
	ti := textinput.New()
	ti.Placeholder = "https://example.com/stream/index.m3u8"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  config.DefaultSettings(),
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		eventCh:   make(chan download.ProgressEvent, 256),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ResolveDoneMsg is sent when playlist resolution completes.
	ResolveDoneMsg struct {
		Media   *model.MediaPlaylist
		Manager *download.Manager
		Output  string
		Err     error
	}

	// DownloadDoneMsg is sent when the download finishes.
	DownloadDoneMsg struct {
		Report *download.Report
		Err    error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateResolving {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.state = StateResolving
				return m, tea.Batch(m.resolvePlaylist(), m.spinner.Tick)
			}

		case "b":
			if m.state == StateInput {
				m.bestEffort = !m.bestEffort
			}

		case "v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for new download
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.report = nil
				m.segments = 0
				m.duration = 0
				m.output = ""
				m.doneSegments = 0
				m.totalSegments = 0
				m.receivedBytes = 0
				m.manager = nil
				m.eventCh = make(chan download.ProgressEvent, 256)
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ResolveDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.segments = len(msg.Media.Segments)
			m.duration = msg.Media.TotalDuration()
			m.output = msg.Output
			m.manager = msg.Manager
			m.state = StateDownloading
			// Start the actual download and tick for progress updates
			cmds = append(cmds, m.startDownload(msg.Media), m.tickProgress())
		}

	case DownloadDoneMsg:
		m.drainEvents()
		m.report = msg.Report
		if msg.Err != nil && m.ctx.Err() == nil {
			m.state = StateError
			m.err = msg.Err
		} else if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		m.drainEvents()
		if m.manager != nil && m.state == StateDownloading {
			received, done, total := m.manager.GetProgress()
			m.receivedBytes = received
			m.doneSegments = done
			m.totalSegments = total

			// Calculate percentage and animate progress bar
			var percent float64
			if total > 0 {
				percent = float64(done) / float64(total)
			}
			progressCmd := m.progress.SetPercent(percent)
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// drainEvents moves buffered progress events into the visible log.
func (m *Model) drainEvents() {
	for {
		select {
		case event := <-m.eventCh:
			if event.Level == download.LevelVerbose && !m.verbose {
				continue
			}
			m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
			// Keep only last 10 logs
			if len(m.logs) > 10 {
				m.logs = m.logs[len(m.logs)-10:]
			}
		default:
			return
		}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("hlsget"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download HLS streams into a single file"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateResolving:
		b.WriteString(m.viewResolving())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter playlist URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	// Options
	bestEffortCheck := "[ ]"
	if m.bestEffort {
		bestEffortCheck = "[x]"
	}
	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[x]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Skip failed segments (b)\n", bestEffortCheck))
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Concurrency: %d, retries: %d", m.settings.Concurrency, m.settings.MaxRetries)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewResolving() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Resolving playlist..."))
	b.WriteString("\n\n")

	// Show logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	b.WriteString(streamStyle.Render(fmt.Sprintf("%d segments, %.0fs of media -> %s", m.segments, m.duration, m.output)))
	b.WriteString("\n\n")

	// Progress bar
	var percent float64
	if m.totalSegments > 0 {
		percent = float64(m.doneSegments) / float64(m.totalSegments)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Segments: %d/%d | Downloaded: %.2f MB",
		m.doneSegments,
		m.totalSegments,
		float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")

	// Logs
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	segments := int(m.doneSegments)
	var bytes int64 = m.receivedBytes
	skipped := 0
	output := m.output
	if m.report != nil {
		segments = m.report.Segments
		bytes = m.report.Bytes
		skipped = len(m.report.Skipped)
		output = m.report.Output
	}

	summary := fmt.Sprintf(
		"Download Complete!\n\n"+
			"Output: %s\n"+
			"Segments: %d\n"+
			"Size: %.2f MB",
		output,
		segments,
		float64(bytes)/1024/1024,
	)
	if skipped > 0 {
		summary += fmt.Sprintf("\nSkipped: %d", skipped)
	}
	b.WriteString(boxStyle.Render(summary))

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "-"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "x"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "+"
		case download.LevelInfo:
			style = infoStyle
			prefix = ">"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start | b: best-effort | v: verbose | esc: quit"
	case StateResolving, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download | q: quit"
	}
	return ""
}

// resolvePlaylist resolves the playlist and creates the manager.
func (m *Model) resolvePlaylist() tea.Cmd {
	ctx := m.ctx
	input := m.textInput.Value()
	settings := *m.settings
	settings.BestEffort = m.bestEffort
	eventCh := m.eventCh

	return func() tea.Msg {
		policy, err := playlist.PolicyByName(settings.VariantPolicy)
		if err != nil {
			return ResolveDoneMsg{Err: err}
		}

		client := fetch.NewClient(settings.Timeout(), settings.UserAgent, settings.Headers)
		resolver := playlist.NewResolver(playlist.GetFunc(client.Get), policy)

		media, err := resolver.Resolve(ctx, input)
		if err != nil {
			return ResolveDoneMsg{Err: err}
		}

		keyResolver := keys.NewResolver(keys.GetFunc(client.Get))
		if err := keys.ApplyOverride(keyResolver, media, settings.KeyOverride); err != nil {
			return ResolveDoneMsg{Err: err}
		}

		fetcher := fetch.NewFetcher(client, settings.RetryPolicy())
		manager := download.NewManager(&settings, fetcher, keyResolver, func(event download.ProgressEvent) {
			select {
			case eventCh <- event:
			default:
				// UI is behind; drop rather than stall a worker.
			}
		})

		return ResolveDoneMsg{
			Media:   media,
			Manager: manager,
			Output:  outputName(media.URL),
			Err:     nil,
		}
	}
}

// startDownload runs the download in the background.
func (m *Model) startDownload(media *model.MediaPlaylist) tea.Cmd {
	ctx := m.ctx
	manager := m.manager
	output := m.output

	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: fmt.Errorf("no manager")}
		}

		report, err := manager.Run(ctx, media, output)
		return DownloadDoneMsg{Report: report, Err: err}
	}
}

// outputName derives the output filename from the playlist URL.
func outputName(u *url.URL) string {
	if u != nil {
		name := path.Base(u.Path)
		if name != "" && name != "." && name != "/" {
			name = strings.TrimSuffix(name, path.Ext(name))
			if name != "" {
				return name + ".ts"
			}
		}
	}
	return "output.ts"
}

// Run starts the TUI application.
func Run() error {
	p := tea.NewProgram(NewModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
