// Package tui provides a terminal tempo picker for grooveshift
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/grooveshift/pkg/export"
	"github.com/james-see/grooveshift/pkg/groove"
	"github.com/james-see/grooveshift/pkg/project"
)

// Phosphor color scheme
var (
	phosphorGreen = lipgloss.Color("#39FF14")
	amber         = lipgloss.Color("#FFBF00")
	silverGray    = lipgloss.Color("#C0C0C0")
	darkGray      = lipgloss.Color("#333333")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(phosphorGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(phosphorGreen).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(amber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(phosphorGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(phosphorGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateLoading State = iota
	StateTempos
	StateDetail
	StateFilePicker
	StateResult
)

const visibleTempos = 12

// Model represents the TUI model
type Model struct {
	state        State
	engine       *groove.Engine
	exporter     *export.Exporter
	domain       groove.Domain
	notesPerBeat int
	padding      groove.PaddingMode

	tempos []groove.TempoInfo
	index  int
	offset int

	selected     groove.Groove
	songName     string
	permutations []groove.Groove
	envelope     groove.Envelope

	filePicker filepicker.Model
	spinner    spinner.Model
	message    string
	err        error
	width      int
	height     int
}

// catalogMsg carries a freshly built tempo list
type catalogMsg struct {
	domain       groove.Domain
	notesPerBeat int
	tempos       []groove.TempoInfo
}

// songLoadedMsg signals a groove settings file was read
type songLoadedMsg struct {
	song project.Song
	err  error
}

// exportDoneMsg signals an export completed
type exportDoneMsg struct {
	path string
	err  error
}

// Options configure the initial picker state
type Options struct {
	Domain       groove.Domain
	NotesPerBeat int
	Padding      groove.PaddingMode
}

// New creates a new TUI model
func New(engine *groove.Engine, opts Options) Model {
	if opts.NotesPerBeat <= 0 {
		opts.NotesPerBeat = groove.CanonicalNotesPerBeat
	}

	// Initialize file picker
	fp := filepicker.New()
	fp.AllowedTypes = []string{".yaml", ".yml"}
	fp.CurrentDirectory, _ = os.Getwd()

	// Initialize spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(phosphorGreen)

	return Model{
		state:        StateLoading,
		engine:       engine,
		exporter:     export.New(engine),
		domain:       opts.Domain,
		notesPerBeat: opts.NotesPerBeat,
		padding:      opts.Padding,
		filePicker:   fp,
		spinner:      s,
	}
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCatalog())
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle file picker state first - it needs to receive all messages
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateTempos
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			return m, loadSong(path)
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.Height = msg.Height - 10
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateTempos:
			return m.updateTempos(msg)
		case StateDetail:
			return m.updateDetail(msg)
		case StateResult:
			return m.updateResult(msg)
		case StateLoading:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case catalogMsg:
		if msg.domain != m.domain || msg.notesPerBeat != m.notesPerBeat {
			return m, nil
		}
		m.tempos = msg.tempos
		m.index, m.offset = 0, 0
		m.state = StateTempos
		return m, nil

	case songLoadedMsg:
		if msg.err != nil {
			m.state = StateResult
			m.err = msg.err
			return m, nil
		}
		if msg.song.Domain != m.domain || msg.song.NotesPerBeat != m.notesPerBeat {
			m.tempos = nil
		}
		m.domain = msg.song.Domain
		m.notesPerBeat = msg.song.NotesPerBeat
		m.padding = msg.song.Padding
		m.songName = msg.song.Name
		return m.showDetail(msg.song.Groove), nil

	case exportDoneMsg:
		m.state = StateResult
		m.err = msg.err
		if msg.err == nil {
			m.message = fmt.Sprintf("Wrote %s", filepath.Base(msg.path))
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateTempos(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.index > 0 {
			m.index--
		}
	case "down", "j":
		if m.index < len(m.tempos)-1 {
			m.index++
		}
	case "tab":
		m.domain = m.domain.Other()
		return m.reload()
	case "+", "=":
		m.notesPerBeat++
		return m.reload()
	case "-":
		if m.notesPerBeat > 1 {
			m.notesPerBeat--
			return m.reload()
		}
	case "o":
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "enter":
		if len(m.tempos) > 0 {
			m.songName = ""
			return m.showDetail(m.tempos[m.index].Groove), nil
		}
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	m.scroll()
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "p":
		m.padding = groove.PaddingModes[(int(m.padding)+1)%len(groove.PaddingModes)]
		return m.showDetail(m.selected), nil
	case "w":
		return m, m.exportEnvelope()
	case "m":
		return m, m.exportPreview()
	case "esc", "backspace":
		m.state = StateTempos
		if len(m.tempos) == 0 {
			return m.reload()
		}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.err = nil
		m.message = ""
		if m.selected != nil {
			m.state = StateDetail
		} else {
			m.state = StateTempos
		}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

// reload switches to the loading view and rebuilds the catalog
func (m Model) reload() (tea.Model, tea.Cmd) {
	m.state = StateLoading
	m.tempos = nil
	return m, tea.Batch(m.spinner.Tick, m.loadCatalog())
}

func (m *Model) scroll() {
	if m.index < m.offset {
		m.offset = m.index
	}
	if m.index >= m.offset+visibleTempos {
		m.offset = m.index - visibleTempos + 1
	}
}

func (m Model) showDetail(g groove.Groove) Model {
	m.selected = g
	m.state = StateDetail
	m.err = nil

	perms, err := m.engine.Permutations(g)
	if err != nil {
		m.err = err
		return m
	}
	env, err := m.engine.EnvelopeSteps(g, m.padding, m.domain.IsPal())
	if err != nil {
		m.err = err
		return m
	}
	m.permutations = perms
	m.envelope = env
	return m
}

func (m Model) loadCatalog() tea.Cmd {
	engine, domain, npb := m.engine, m.domain, m.notesPerBeat
	return func() tea.Msg {
		return catalogMsg{
			domain:       domain,
			notesPerBeat: npb,
			tempos:       engine.Tempos(domain, npb),
		}
	}
}

func loadSong(path string) tea.Cmd {
	return func() tea.Msg {
		song, err := project.Load(path)
		return songLoadedMsg{song: song, err: err}
	}
}

func (m Model) exportEnvelope() tea.Cmd {
	req := export.EnvelopeRequest{Groove: m.selected, Padding: m.padding, SourceIsPal: m.domain.IsPal()}
	path := fmt.Sprintf("tempo-%s-%s.s", m.selected, m.domain)
	x := m.exporter
	return func() tea.Msg {
		return exportDoneMsg{path: path, err: x.EnvelopeFile(req, path)}
	}
}

func (m Model) exportPreview() tea.Cmd {
	req := export.PreviewRequest{
		Groove:       m.selected,
		Padding:      m.padding,
		Domain:       m.domain,
		NotesPerBeat: m.notesPerBeat,
	}
	path := fmt.Sprintf("groove-%s-%s.mid", m.selected, m.domain)
	x := m.exporter
	return func() tea.Msg {
		return exportDoneMsg{path: path, err: x.PreviewFile(req, path)}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	help := "↑/↓: navigate • enter: select • tab: ntsc/pal • +/-: notes per beat • o: open • q: quit"
	switch m.state {
	case StateLoading:
		s.WriteString(m.viewLoading())
	case StateTempos:
		s.WriteString(m.viewTempos())
	case StateDetail:
		s.WriteString(m.viewDetail())
		help = "p: padding • w: write envelope • m: write midi • esc: back • q: quit"
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
		help = "enter: open • esc: back"
	case StateResult:
		s.WriteString(m.viewResult())
		help = "enter: continue • q: quit"
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render(help))

	return s.String()
}

func (m Model) viewLoading() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" BUILDING TEMPOS "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Building %s catalog...\n", m.spinner.View(), strings.ToUpper(m.domain.String())))
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %d notes per beat", m.notesPerBeat)))

	return boxStyle.Render(s.String())
}

func (m Model) viewTempos() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" %s TEMPOS @ %d NOTES/BEAT ", strings.ToUpper(m.domain.String()), m.notesPerBeat)))
	s.WriteString("\n\n")

	end := m.offset + visibleTempos
	if end > len(m.tempos) {
		end = len(m.tempos)
	}
	for i := m.offset; i < end; i++ {
		t := m.tempos[i]
		line := fmt.Sprintf("%7.2f bpm  %s", t.BPM, t.Groove)
		if i == m.index {
			s.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			s.WriteString(menuStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}
	s.WriteString(statusStyle.Render(fmt.Sprintf("  %d/%d", m.index+1, len(m.tempos))))

	return boxStyle.Render(s.String())
}

func (m Model) viewDetail() string {
	var s strings.Builder

	title := fmt.Sprintf(" GROOVE %s ", m.selected)
	if m.songName != "" {
		title = fmt.Sprintf(" %s: %s ", strings.ToUpper(m.songName), m.selected)
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
		return boxStyle.Render(s.String())
	}

	other := m.domain.Other()
	s.WriteString(fmt.Sprintf("%-6s %7.2f bpm\n", strings.ToUpper(m.domain.String()), groove.ComputeBpm(m.domain, m.selected, m.notesPerBeat)))
	s.WriteString(fmt.Sprintf("%-6s %7.2f bpm\n", strings.ToUpper(other.String()), groove.ComputeBpm(other, m.selected, m.notesPerBeat)))
	s.WriteString(fmt.Sprintf("Padding: %s\n\n", m.padding))

	var perms []string
	for _, p := range m.permutations {
		perms = append(perms, p.String())
	}
	s.WriteString(fmt.Sprintf("Permutations: %s\n\n", strings.Join(perms, "  ")))

	s.WriteString(successStyle.Render(fmt.Sprintf("Envelope %s → %s", strings.ToUpper(m.domain.String()), strings.ToUpper(other.String()))))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%d source frames play as %d, %d adjustments\n",
		m.envelope.SourceFrames(), m.envelope.PlaybackFrames(), len(m.envelope.Adjustments())))
	s.WriteString(statusStyle.Render(envelopeHex(m.envelope.Bytes(), 16)))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" OPEN GROOVE SETTINGS "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())

	return s.String()
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ " + m.message))
	}

	return boxStyle.Render(s.String())
}

// envelopeHex formats envelope bytes, perLine to a row
func envelopeHex(raw []byte, perLine int) string {
	var lines []string
	for start := 0; start < len(raw); start += perLine {
		end := start + perLine
		if end > len(raw) {
			end = len(raw)
		}
		parts := make([]string, 0, end-start)
		for _, b := range raw[start:end] {
			parts = append(parts, fmt.Sprintf("%02x", b))
		}
		lines = append(lines, "  "+strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

func asciiLogo() string {
	logo := `
   __ _ _ __ ___   _____   _____  ___| |__ (_)/ _| |_
  / _' | '__/ _ \ / _ \ \ / / _ \/ __| '_ \| | |_| __|
 | (_| | | | (_) | (_) \ V /  __/\__ \ | | | |  _| |_
  \__, |_|  \___/ \___/ \_/ \___||___/_| |_|_|_|  \__|
  |___/
`
	return lipgloss.NewStyle().Foreground(phosphorGreen).Render(logo)
}

// Run starts the TUI application
func Run(engine *groove.Engine, opts Options) error {
	p := tea.NewProgram(New(engine, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
