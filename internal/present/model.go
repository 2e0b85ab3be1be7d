// Package present is presentation mode: full-screen, keyboard and mouse
// driven playback of a deck with speaker notes, a grid overview and an
// elapsed time counter.
package present

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"slidedeck/internal/fit"
	"slidedeck/internal/nav"
	"slidedeck/internal/render"
	"slidedeck/internal/slide"
	"slidedeck/internal/store"
	"slidedeck/internal/thumbnail"
)

// Width of the previous/next click zones at either side of the canvas.
const gutter = 3

// Loader fetches the deck to present.
type Loader func(ctx context.Context) (slide.Deck, error)

type state int

const (
	stateLoading state = iota
	stateReady
	stateEmpty
	stateNotFound
	stateFailed
)

type deckLoadedMsg struct{ deck slide.Deck }

type loadFailedMsg struct{ err error }

// Model is the presentation mode program. The notes, grid and fullscreen
// flags are independent of each other; the grid is modal and suspends
// canvas clicks while open.
type Model struct {
	load     Loader
	renderer *render.Renderer
	keys     KeyMap
	help     help.Model
	progress progress.Model
	clock    stopwatch.Model
	fit      *fit.Tracker
	nav      *nav.Controller
	grid     *thumbnail.Grid

	state  state
	deck   slide.Deck
	slides []slide.Slide
	start  int
	err    error

	notes      bool
	fullscreen bool
	showHelp   bool
	exited     bool

	width, height int
	areaH         int
	notesH        int
	canvasH       int
}

// Option configures a Model.
type Option func(*Model)

// WithStart restores the last viewed slide. Invalid indexes start at 0.
func WithStart(i int) Option { return func(m *Model) { m.start = i } }

// WithNotes opens the notes panel initially.
func WithNotes(on bool) Option { return func(m *Model) { m.notes = on } }

// WithFullscreen controls whether presentation mode takes over the
// terminal on start. It defaults to true.
func WithFullscreen(on bool) Option { return func(m *Model) { m.fullscreen = on } }

// WithKeyMap replaces the default key bindings.
func WithKeyMap(k KeyMap) Option { return func(m *Model) { m.keys = k } }

// New returns a presentation of the deck produced by load.
func New(load Loader, r *render.Renderer, opts ...Option) Model {
	m := Model{
		load:       load,
		renderer:   r,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		progress:   progress.New(progress.WithDefaultGradient()),
		clock:      stopwatch.NewWithInterval(time.Second),
		fit:        fit.NewTracker(fit.Cells),
		nav:        nav.New(0, 0),
		fullscreen: true,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadCmd(), m.clock.Init()}
	if m.fullscreen {
		cmds = append(cmds, tea.EnterAltScreen)
	}
	return tea.Batch(cmds...)
}

func (m Model) loadCmd() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		d, err := load(context.Background())
		if err != nil {
			return loadFailedMsg{err}
		}
		return deckLoadedMsg{d}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case deckLoadedMsg:
		m.deck = msg.deck
		m.slides = slide.Sorted(msg.deck.Slides)
		m.err = nil
		start := m.start
		if m.state == stateReady {
			start = m.nav.Current()
		}
		m.nav = nav.New(len(m.slides), start)
		if len(m.slides) == 0 {
			m.state = stateEmpty
			return m, nil
		}
		m.state = stateReady
		return m, m.progress.SetPercent(m.nav.Progress())

	case loadFailedMsg:
		m.err = msg.err
		if errors.Is(msg.err, store.ErrNotFound) {
			m.state = stateNotFound
		} else {
			m.state = stateFailed
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case stopwatch.TickMsg, stopwatch.StartStopMsg, stopwatch.ResetMsg:
		var cmd tea.Cmd
		m.clock, cmd = m.clock.Update(msg)
		return m, cmd

	// FrameMsg is sent when the progress bar wants to animate itself
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.exit()
	case key.Matches(msg, m.keys.Escape):
		if m.grid != nil {
			m.closeGrid()
			return m, nil
		}
		return m.exit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Notes):
		m.notes = !m.notes
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Fullscreen):
		m.fullscreen = !m.fullscreen
		if m.fullscreen {
			return m, tea.EnterAltScreen
		}
		return m, tea.ExitAltScreen
	case key.Matches(msg, m.keys.Retry):
		if m.state == stateFailed {
			m.state = stateLoading
			return m, m.loadCmd()
		}
		return m, nil
	}

	if m.state != stateReady {
		return m, nil
	}

	if key.Matches(msg, m.keys.Grid) {
		if m.grid != nil {
			m.closeGrid()
		} else {
			m.openGrid()
		}
		return m, nil
	}

	if m.grid != nil {
		switch {
		case key.Matches(msg, m.keys.Next):
			m.grid.Move(1)
		case key.Matches(msg, m.keys.Previous):
			m.grid.Move(-1)
		case key.Matches(msg, m.keys.Down):
			m.grid.MoveRow(1)
		case key.Matches(msg, m.keys.Up):
			m.grid.MoveRow(-1)
		case key.Matches(msg, m.keys.First):
			m.grid.Select(0)
		case key.Matches(msg, m.keys.Last):
			m.grid.Select(len(m.slides) - 1)
		case key.Matches(msg, m.keys.Select):
			return m.jumpFromGrid(m.grid.Selected())
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Next):
		return m.navigate(m.nav.Next())
	case key.Matches(msg, m.keys.Previous):
		return m.navigate(m.nav.Previous())
	case key.Matches(msg, m.keys.First):
		return m.navigate(m.nav.First())
	case key.Matches(msg, m.keys.Last):
		return m.navigate(m.nav.Last())
	}
	return m, nil
}

// Hit zones, top to bottom: canvas (with the arrow gutters at its sides) or
// grid, then the notes panel, then the status chrome. Only the canvas zone
// reaches the canvas click handler.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.state != stateReady {
		return m, nil
	}
	if msg.Y >= m.canvasH {
		return m, nil
	}

	if m.grid != nil {
		switch {
		case msg.Button == tea.MouseButtonWheelDown:
			m.grid.Scroll(1)
		case msg.Button == tea.MouseButtonWheelUp:
			m.grid.Scroll(-1)
		case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
			if i, ok := m.grid.At(msg.X, msg.Y); ok {
				return m.jumpFromGrid(i)
			}
		}
		return m, nil
	}

	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	if msg.X < gutter {
		return m.navigate(m.nav.Previous())
	}
	// The right gutter and the canvas both advance.
	return m.navigate(m.nav.Next())
}

func (m Model) navigate(moved bool) (tea.Model, tea.Cmd) {
	if !moved {
		return m, nil
	}
	return m, m.progress.SetPercent(m.nav.Progress())
}

func (m Model) jumpFromGrid(i int) (tea.Model, tea.Cmd) {
	moved := m.nav.GoTo(i)
	m.closeGrid()
	return m.navigate(moved)
}

func (m Model) exit() (tea.Model, tea.Cmd) {
	m.closeGrid()
	m.exited = true
	cmds := []tea.Cmd{m.clock.Stop()}
	if m.fullscreen {
		cmds = append(cmds, tea.ExitAltScreen)
	}
	cmds = append(cmds, tea.Quit)
	return m, tea.Sequence(cmds...)
}

func (m *Model) openGrid() {
	m.grid = thumbnail.NewGrid(m.renderer, m.slides, m.nav.Current())
	m.grid.Resize(m.width, m.canvasH)
}

func (m *Model) closeGrid() {
	if m.grid != nil {
		m.grid.Close()
		m.grid = nil
	}
}

// layout recomputes the zones and the fit. It runs on resize and when a
// toggle changes the space left for the canvas, never from View.
func (m *Model) layout() {
	helpH := 0
	if m.showHelp {
		m.help.Width = m.width
		helpH = lipgloss.Height(m.help.View(m.keys))
	}
	m.areaH = max(m.height-2-helpH, 0)
	m.notesH = 0
	if m.notes && m.areaH > 0 {
		m.notesH = min(max(m.areaH/3, 4), m.areaH)
	}
	m.canvasH = m.areaH - m.notesH
	m.fit.Resize(fit.Size{W: float64(max(m.width-2*gutter, 0)), H: float64(m.canvasH)})
	if m.grid != nil {
		m.grid.Resize(m.width, m.canvasH)
	}
	m.progress.Width = max(m.width-4, 0)
}

// Accessors used by the entrypoint and tests.

func (m Model) Current() int { return m.nav.Current() }

func (m Model) NotesVisible() bool { return m.notes }

func (m Model) GridOpen() bool { return m.grid != nil }

func (m Model) Fullscreen() bool { return m.fullscreen }

func (m Model) Exited() bool { return m.exited }

func (m Model) Elapsed() time.Duration { return m.clock.Elapsed() }

func (m Model) Err() error { return m.err }

func (m Model) Scale() float64 { return m.fit.Scale() }

var (
	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240")).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)
	arrowStyle   = lipgloss.NewStyle().Faint(true)
	notesStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(lipgloss.Color("240"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	stateStyle   = lipgloss.NewStyle().Bold(true)
	flagOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	flagOffStyle = lipgloss.NewStyle().Faint(true)
)

func (m Model) View() string {
	if m.exited {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading slides...\n\nPress 'q' to quit."
	}

	var area string
	switch m.state {
	case stateLoading:
		area = m.message("Loading slides...", "")
	case stateEmpty:
		area = m.message("This deck has no slides yet.", "")
	case stateNotFound:
		area = m.message("Presentation not found", "The link may be wrong or the deck is no longer shared.")
	case stateFailed:
		area = m.message("Could not load the presentation", noticeStyle.Render(m.err.Error())+"\n\nPress 'r' to retry.")
	default:
		if m.grid != nil {
			area = lipgloss.NewStyle().Width(m.width).Height(m.canvasH).MaxHeight(m.canvasH).Render(m.grid.View())
		} else {
			area = m.canvasView()
		}
		if m.notesH > 0 {
			area = lipgloss.JoinVertical(lipgloss.Left, area, m.notesView())
		}
	}

	out := []string{area, m.statusView(), m.progress.View()}
	if m.showHelp {
		out = append(out, m.help.View(m.keys))
	}
	return strings.Join(out, "\n")
}

func (m Model) message(title, detail string) string {
	block := stateStyle.Render(title)
	if detail != "" {
		block = lipgloss.JoinVertical(lipgloss.Center, block, "", detail)
	}
	return lipgloss.Place(m.width, m.areaH, lipgloss.Center, lipgloss.Center, block)
}

func (m Model) canvasView() string {
	size := m.fit.Fitted()
	cols, rows := int(size.W), int(size.H)
	s, ok := nav.Active(m.nav.Current(), m.slides)
	if !ok || cols <= 0 || rows <= 0 {
		return lipgloss.Place(m.width, m.canvasH, lipgloss.Center, lipgloss.Center, "Terminal too small")
	}
	canvas := m.renderer.Slide(s, cols, rows)
	inner := lipgloss.Place(max(m.width-2*gutter, 0), m.canvasH, lipgloss.Center, lipgloss.Center, canvas)

	left, right := " ", " "
	if !m.nav.AtStart() {
		left = "‹"
	}
	if !m.nav.AtEnd() {
		right = "›"
	}
	arrow := func(a string) string {
		return lipgloss.Place(gutter, m.canvasH, lipgloss.Center, lipgloss.Center, arrowStyle.Render(a))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, arrow(left), inner, arrow(right))
}

func (m Model) notesView() string {
	s, _ := nav.Active(m.nav.Current(), m.slides)
	body := m.renderer.Markdown(s.Notes, max(m.width-4, 1))
	if body == "" {
		body = flagOffStyle.Render("No speaker notes for this slide.")
	}
	h := max(m.notesH-1, 0)
	lines := strings.Split(body, "\n")
	if len(lines) > h {
		lines = lines[:h]
	}
	return notesStyle.Width(m.width).Height(h).Render(strings.Join(lines, "\n"))
}

func (m Model) statusView() string {
	left := "Slide 0/0"
	if m.nav.Count() > 0 {
		left = fmt.Sprintf("Slide %d/%d", m.nav.Current()+1, m.nav.Count())
	}
	if s, ok := nav.Active(m.nav.Current(), m.slides); ok && s.SectionName != "" {
		left += " · " + s.SectionName
	}
	flag := func(name string, on bool) string {
		if on {
			return flagOnStyle.Render(name)
		}
		return flagOffStyle.Render(name)
	}
	flags := strings.Join([]string{flag("notes", m.notes), flag("grid", m.grid != nil), flag("full", m.fullscreen)}, " ")
	clock := formatElapsed(m.clock.Elapsed())

	title := m.deck.Title
	if title == "" {
		title = "slidedeck"
	}

	// Truncate the title first when space runs out.
	avail := m.width - 2
	fixed := lipgloss.Width(left) + lipgloss.Width(flags) + lipgloss.Width(clock) + 6
	if room := avail - fixed; room < lipgloss.Width(title) {
		if room < 4 {
			title = ""
		} else {
			title = truncate(title, room)
		}
	}
	right := strings.TrimSpace(strings.Join([]string{title, clock, flags}, "  "))
	gap := max(avail-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return statusStyle.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	h, mnt, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%02d:%02d", mnt, s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
