package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/manifest"
)

// refreshInterval is how often the manifest file is checked for growth.
const refreshInterval = time.Second

// kindColumnWidth aligns event kinds into a fixed column.
const kindColumnWidth = 10

// Options configures the manifest tail view.
type Options struct {
	ManifestPath string
	Limit        int // records kept on screen
}

// Model is the Bubble Tea model for the manifest tail view.
type Model struct {
	opts    Options
	spinner spinner.Model

	records []manifest.Record
	loaded  bool
	loadErr error

	// lastSize gates reloads: the manifest only ever grows, so an
	// unchanged size means nothing new to read.
	lastSize int64

	follow       bool
	scrollOffset int

	// Window dimensions
	width  int
	height int
}

// recordsMsg delivers a fresh snapshot of the manifest tail.
type recordsMsg struct {
	records []manifest.Record
	size    int64
}

// unchangedMsg reports that the manifest has not grown since last check.
type unchangedMsg struct{}

// loadErrMsg reports a manifest read failure.
type loadErrMsg struct{ err error }

// tickMsg schedules the next manifest check.
type tickMsg time.Time

// NewModel creates a new tail model for the given manifest.
func NewModel(opts Options) Model {
	if opts.Limit < 1 {
		opts.Limit = 200
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		opts:    opts,
		spinner: s,
		follow:  true,
		width:   80,
		height:  24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		checkManifest(m.opts.ManifestPath, -1, m.opts.Limit),
	)
}

// tick returns a command that schedules the next manifest check.
func (m Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// checkManifest reloads the manifest tail when the file has grown.
func checkManifest(path string, lastSize int64, limit int) tea.Cmd {
	return func() tea.Msg {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		if size == lastSize {
			return unchangedMsg{}
		}

		records, err := manifest.Tail(path, limit)
		if err != nil {
			return loadErrMsg{err: err}
		}
		return recordsMsg{records: records, size: size}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scrollOffset = m.clampScroll(m.scrollOffset)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, checkManifest(m.opts.ManifestPath, m.lastSize, m.opts.Limit)

	case recordsMsg:
		m.records = msg.records
		m.lastSize = msg.size
		m.loaded = true
		m.loadErr = nil
		if m.follow {
			m.scrollOffset = m.maxScroll()
		} else {
			m.scrollOffset = m.clampScroll(m.scrollOffset)
		}
		return m, m.tick()

	case unchangedMsg:
		return m, m.tick()

	case loadErrMsg:
		m.loaded = true
		m.loadErr = msg.err
		return m, m.tick()

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "f":
		m.follow = !m.follow
		if m.follow {
			m.scrollOffset = m.maxScroll()
		}

	case "up", "k":
		m.follow = false
		m.scrollOffset = m.clampScroll(m.scrollOffset - 1)

	case "down", "j":
		m.scrollOffset = m.clampScroll(m.scrollOffset + 1)
		if m.scrollOffset == m.maxScroll() {
			m.follow = true
		}

	case "pgup":
		m.follow = false
		m.scrollOffset = m.clampScroll(m.scrollOffset - m.visibleRows())

	case "pgdown":
		m.scrollOffset = m.clampScroll(m.scrollOffset + m.visibleRows())
		if m.scrollOffset == m.maxScroll() {
			m.follow = true
		}

	case "g":
		m.follow = false
		m.scrollOffset = 0

	case "G":
		m.follow = true
		m.scrollOffset = m.maxScroll()
	}

	return m, nil
}

// visibleRows is the number of record lines that fit on screen.
func (m Model) visibleRows() int {
	// Title, divider, divider, footer.
	rows := m.height - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

// maxScroll is the largest valid scroll offset.
func (m Model) maxScroll() int {
	max := len(m.records) - m.visibleRows()
	if max < 0 {
		return 0
	}
	return max
}

// clampScroll bounds a scroll offset to the valid range.
func (m Model) clampScroll(offset int) int {
	if offset < 0 {
		return 0
	}
	if max := m.maxScroll(); offset > max {
		return max
	}
	return offset
}

// View renders the UI.
func (m Model) View() string {
	if !m.loaded {
		return fmt.Sprintf("\n  %s Loading manifest...\n", m.spinner.View())
	}

	var b strings.Builder

	b.WriteString(m.renderTitle())
	b.WriteString("\n")
	b.WriteString(renderDivider(m.width))
	b.WriteString("\n")

	visibleRows := m.visibleRows()
	switch {
	case m.loadErr != nil:
		b.WriteString(errorTextStyle.Render("  Cannot read manifest: " + m.loadErr.Error()))
		b.WriteString("\n")
		for i := 1; i < visibleRows; i++ {
			b.WriteString("\n")
		}
	case len(m.records) == 0:
		b.WriteString(mutedTextStyle.Render("  No records yet. Waiting for events..."))
		b.WriteString("\n")
		for i := 1; i < visibleRows; i++ {
			b.WriteString("\n")
		}
	default:
		end := m.scrollOffset + visibleRows
		if end > len(m.records) {
			end = len(m.records)
		}
		visible := m.records[m.scrollOffset:end]
		for _, r := range visible {
			b.WriteString(m.renderRecord(r))
			b.WriteString("\n")
		}
		for i := len(visible); i < visibleRows; i++ {
			b.WriteString("\n")
		}
	}

	b.WriteString(renderDivider(m.width))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderTitle renders the header bar.
func (m Model) renderTitle() string {
	title := titleStyle.Render(" Manifest ")
	path := mutedTextStyle.Render(truncatePath(m.opts.ManifestPath, m.width-30))

	indicator := mutedTextStyle.Render(" paused ")
	if m.follow {
		indicator = followStyle.Render(" following ")
	}

	line := title + path
	padding := m.width - lipgloss.Width(line) - lipgloss.Width(indicator)
	if padding > 0 {
		line += strings.Repeat(" ", padding)
	}
	return line + indicator
}

// renderRecord renders a single manifest record line.
func (m Model) renderRecord(r manifest.Record) string {
	kind := string(r.Kind)
	if len(kind) > kindColumnWidth {
		kind = kind[:kindColumnWidth]
	}
	kind = kind + strings.Repeat(" ", kindColumnWidth-len(kind))

	digest := r.Digest
	if r.HasDigest() && len(digest) > 12 {
		digest = digest[:12]
	}
	digest = fmt.Sprintf("%-12s", digest)

	nameWidth := m.width - 8 - 1 - kindColumnWidth - 1 - 12 - 2
	name := r.Name
	if nameWidth > 3 && len(name) > nameWidth {
		name = name[:nameWidth-3] + "..."
	}

	return fmt.Sprintf(" %s %s %s %s",
		timeStyle.Render(r.Time.Format("15:04:05")),
		kindStyle(r.Kind).Render(kind),
		digestStyle.Render(digest),
		name,
	)
}

// renderFooter renders the key hints and position indicator.
func (m Model) renderFooter() string {
	hints := strings.Join([]string{
		keyStyle.Render("[f]") + keyDescStyle.Render(" follow"),
		keyStyle.Render("[↑/↓]") + keyDescStyle.Render(" scroll"),
		keyStyle.Render("[q]") + keyDescStyle.Render(" quit"),
	}, "  ")

	position := mutedTextStyle.Render(fmt.Sprintf(" %d records ", len(m.records)))

	padding := m.width - lipgloss.Width(hints) - lipgloss.Width(position) - 1
	line := " " + hints
	if padding > 0 {
		line += strings.Repeat(" ", padding)
	}
	return line + position
}

// Run starts the manifest tail view.
func Run(opts Options) error {
	model := NewModel(opts)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
