package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runready/runready/internal/readiness"
)

// stopGrace bounds how long Stop waits for the program to exit before
// giving up, so Ctrl+C never hangs on a wedged terminal.
const stopGrace = 2 * time.Second

// TUIRenderer drives the live watch dashboard with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *watchModel
	state   *State
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It refuses non-TTY outputs;
// NewRenderer falls back to the plain renderer in that case.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	state := NewState()
	model := newWatchModel(state, cfg.ProjectDir)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		state: state,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.program = tea.NewProgram(r.model, r.programOptions()...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// programOptions picks the bubbletea options for the dashboard. The
// alternate screen buffer keeps redraws from scrolling the terminal.
func (r *TUIRenderer) programOptions() []tea.ProgramOption {
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	return opts
}

// UpdateReport implements Renderer.
func (r *TUIRenderer) UpdateReport(report *readiness.Report, took time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.SetReport(report, took)
	if r.program != nil {
		r.program.Send(reportMsg{})
	}
}

// AddEvent implements Renderer.
func (r *TUIRenderer) AddEvent(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.AddEvent(event)
	if r.program != nil {
		r.program.Send(eventMsg(event))
	}
}

// AddMemorySample implements Renderer. The periodic tick picks the new
// sample up on the next redraw.
func (r *TUIRenderer) AddMemorySample(availableGB float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.AddMemorySample(availableGB)
}

// Done implements Renderer. The channel closes when the TUI program
// exits, including user-initiated quit via 'q' or Ctrl+C.
func (r *TUIRenderer) Done() <-chan struct{} {
	return r.done
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	if r.program == nil {
		return nil
	}

	r.program.Quit()
	select {
	case <-r.done:
	case <-time.After(stopGrace):
	}
	return nil
}

// Messages into the bubbletea loop. reportMsg and eventMsg carry no
// payload beyond waking the redraw; the data already sits in State.
type (
	reportMsg struct{}
	eventMsg  Event
	tickMsg   time.Time
)

// watchModel is the bubbletea model behind the dashboard.
type watchModel struct {
	state      *State
	spinner    spinner.Model
	styles     Styles
	panel      lipgloss.Style
	width      int
	height     int
	quitting   bool
	projectDir string
}

func newWatchModel(state *State, projectDir string) *watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	return &watchModel{
		state:   state,
		spinner: s,
		styles:  DefaultStyles(),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		width:      80,
		height:     24,
		projectDir: projectDir,
	}
}

// Init implements tea.Model.
func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// tickCmd schedules a redraw every second so event timestamps and the
// status bar stay fresh between watcher events.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if s := msg.String(); s == "ctrl+c" || s == "q" {
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case reportMsg, eventMsg:
		// State already holds the data; returning redraws.

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *watchModel) View() string {
	if m.quitting {
		return "Stopped watching.\n"
	}

	snap := m.state.Snapshot()

	contentWidth := m.width - 4 // borders and padding
	if contentWidth < 40 {
		contentWidth = 40
	}

	divider := m.renderDivider(contentWidth)
	content := strings.Join([]string{
		m.renderVerdict(snap),
		divider,
		m.renderResources(snap),
		m.renderMemory(snap),
		divider,
		m.renderEvents(snap, contentWidth),
	}, "\n")

	title := "RunReady Watch"
	if m.projectDir != "" {
		title += " • " + m.projectDir
	}

	framed := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		m.panel.Width(contentWidth).Render(content),
	)

	return framed + "\n" + m.renderStatusBar(snap)
}

// renderVerdict renders the current verdict with its issues.
func (m *watchModel) renderVerdict(snap StateSnapshot) string {
	if snap.Report == nil {
		return m.spinner.View() + " " + m.styles.Dim.Render("Waiting for first analysis...")
	}

	v := snap.Report.Verdict
	if v.Ready {
		return m.styles.Ready.Render(readiness.ReadyText)
	}

	lines := []string{m.styles.Warning.Render("⚠️ Project may not run properly:")}
	for _, issue := range v.Issues {
		lines = append(lines, m.styles.Warning.Render("  • "+issue))
	}
	return strings.Join(lines, "\n")
}

// renderResources renders the host summary line.
func (m *watchModel) renderResources(snap StateSnapshot) string {
	if snap.Report == nil || snap.Report.Snapshot == nil {
		return m.styles.Dim.Render("host snapshot unavailable")
	}

	host := snap.Report.Snapshot
	parts := []string{
		m.styles.Label.Render(fmt.Sprintf("RAM %.1f GB free", host.Memory.AvailableGB)),
		m.styles.Label.Render(host.GPU.Description),
	}
	if snap.Report.Heavy != nil {
		switch n := len(snap.Report.Heavy.Findings); n {
		case 0:
			parts = append(parts, m.styles.Dim.Render("no heavy findings"))
		case 1:
			parts = append(parts, m.styles.Label.Render("1 heavy finding"))
		default:
			parts = append(parts, m.styles.Label.Render(fmt.Sprintf("%d heavy findings", n)))
		}
	}

	return strings.Join(parts, m.styles.Dim.Render("  •  "))
}

// renderMemory renders the available-memory sparkline.
func (m *watchModel) renderMemory(snap StateSnapshot) string {
	spark := m.styles.Sparkline.Render(m.state.RenderSparkline())
	label := m.styles.Dim.Render("mem")
	value := m.styles.Value.Render(fmt.Sprintf("%.1f GB", snap.MemoryGB))

	return spark + " " + label + " " + value
}

// renderEvents renders the most recent watch events, newest last.
func (m *watchModel) renderEvents(snap StateSnapshot, width int) string {
	const maxVisible = 6

	events := snap.Events
	if len(events) == 0 {
		return m.styles.Dim.Render("no events yet")
	}
	if len(events) > maxVisible {
		events = events[len(events)-maxVisible:]
	}

	var lines []string
	for _, e := range events {
		stamp := m.styles.Dim.Render(e.Time.Format("15:04:05"))
		lines = append(lines, stamp+" "+m.renderEvent(e, width-12))
	}
	return strings.Join(lines, "\n")
}

// renderEvent renders one event log line body.
func (m *watchModel) renderEvent(e Event, width int) string {
	switch e.Kind {
	case EventChange:
		return "changed: " + truncatePath(e.Path, width-9)
	case EventRescan:
		return m.styles.Label.Render("re-analyzing...")
	case EventReport:
		if e.Message == "ready" {
			return "report: " + m.styles.Ready.Render(e.Message)
		}
		return "report: " + m.styles.Warning.Render(e.Message)
	case EventError:
		return m.styles.Error.Render(fmt.Sprintf("error: %v", e.Err))
	case EventInfo:
		return m.styles.Dim.Render(e.Message)
	default:
		return e.Message
	}
}

func (m *watchModel) renderDivider(width int) string {
	return m.styles.Border.Render(strings.Repeat("─", width))
}

// renderStatusBar renders the bottom status bar.
func (m *watchModel) renderStatusBar(snap StateSnapshot) string {
	var parts []string
	if snap.Rescanning {
		parts = append(parts, m.spinner.View()+" analyzing")
	}
	if snap.Runs > 0 {
		parts = append(parts,
			m.styles.Label.Render(fmt.Sprintf("runs: %d", snap.Runs)),
			m.styles.Label.Render(fmt.Sprintf("last: %s", formatDuration(snap.LastTook))))
	}

	if len(parts) == 0 {
		// Nothing to report before the first run, just the key hint.
		return m.styles.Dim.Render("q to quit")
	}

	return strings.Join(parts, m.styles.Dim.Render("  │  ")) +
		m.styles.Dim.Render("  │  q to quit")
}

// formatDuration renders run timings compactly: "840ms", "3s", "2m 15s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		min, sec := int(d.Minutes()), int(d.Seconds())%60
		if sec == 0 {
			return fmt.Sprintf("%dm", min)
		}
		return fmt.Sprintf("%dm %ds", min, sec)
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncatePath shortens path to maxLen, keeping the filename visible
// and eliding the front of the directory part.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen < 4 {
		return "..."
	}

	base := path[strings.LastIndex(path, "/")+1:]
	if len(base)+4 > maxLen {
		// Even the filename overflows, keep its tail.
		return "..." + base[len(base)-maxLen+3:]
	}

	dir := path[:len(path)-len(base)] // keeps the trailing separator
	keep := maxLen - len(base) - 3
	return "..." + dir[len(dir)-keep:] + base
}

var _ Renderer = (*TUIRenderer)(nil)
