package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"slidedeck/internal/ai"
	"slidedeck/internal/export"
	"slidedeck/internal/fit"
	"slidedeck/internal/history"
	"slidedeck/internal/nav"
	"slidedeck/internal/panel"
	"slidedeck/internal/render"
	"slidedeck/internal/share"
	"slidedeck/internal/slide"
)

const (
	requestTimeout  = 30 * time.Second
	generateTimeout = 2 * time.Minute
	noticeTTL       = 4 * time.Second
	listWidth       = 28
	panelHeight     = 8
)

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modePrompt
	modeComment
	modeCommentEdit
)

type sidePanel int

const (
	panelNone sidePanel = iota
	panelComments
	panelVersions
)

type (
	savedMsg struct {
		field slide.Field
		err   error
	}
	historyMsg struct {
		entry history.Entry
		ok    bool
		undo  bool
		err   error
	}
	generatedMsg struct {
		field slide.Field
		err   error
	}
	commentsOpenedMsg struct{ err error }
	commentEventMsg   struct {
		gen int
		ok  bool
	}
	commentsChangedMsg struct{ err error }
	commentWriteMsg    struct {
		what string
		err  error
	}
	versionsLoadedMsg struct{ err error }
	versionSavedMsg   struct {
		v   slide.Version
		err error
	}
	restoredMsg struct {
		from, to slide.Version
		err      error
	}
	sharedMsg struct {
		slug   string
		public bool
		err    error
	}
	exportedMsg struct {
		path string
		err  error
	}
	clearNoticeMsg struct{ id int }
)

// Model is the terminal editor for one deck. Every collaborator call runs
// as a command off the update loop and reports back with a message; the
// view only reads local state.
type Model struct {
	session  *Session
	comments *panel.Comments
	versions *panel.Versions
	renderer *render.Renderer
	keys     KeyMap
	help     help.Model

	nav   *nav.Controller
	fit   *fit.Tracker
	field int

	mode     mode
	panel    sidePanel
	textarea textarea.Model
	input    textinput.Model
	editing  string

	notice    string
	noticeErr bool
	noticeID  int
	pending   int

	shareBase string
	exportDir string
	copy      func(string) error

	showHelp      bool
	width, height int
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithShareBase sets the public address share links are built on.
func WithShareBase(base string) ModelOption { return func(m *Model) { m.shareBase = base } }

// WithExportDir sets where exported PDFs are written.
func WithExportDir(dir string) ModelOption { return func(m *Model) { m.exportDir = dir } }

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) ModelOption {
	return func(m *Model) { m.copy = write }
}

// NewModel returns the editor for s with its comment and version panels.
func NewModel(s *Session, comments *panel.Comments, versions *panel.Versions, r *render.Renderer, opts ...ModelOption) Model {
	ta := textarea.New()
	ta.Placeholder = "Write…"
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(panelHeight)

	in := textinput.New()
	in.CharLimit = 500

	m := Model{
		session:   s,
		comments:  comments,
		versions:  versions,
		renderer:  r,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		nav:       nav.New(len(s.Deck().Slides), 0),
		fit:       fit.NewTracker(fit.Cells),
		textarea:  ta,
		input:     in,
		shareBase: "http://localhost:8080",
		exportDir: ".",
		copy:      clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()

	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		return m.handleKey(msg)

	case savedMsg:
		m.pending--
		m.syncSlides()
		if msg.err != nil {
			return m.fail("Save "+fieldTitle(msg.field), msg.err)
		}
		return m.info("Saved " + fieldTitle(msg.field))

	case historyMsg:
		m.syncSlides()
		verb, action, done := "redo", "Redo", "Redid"
		if msg.undo {
			verb, action, done = "undo", "Undo", "Undid"
		}
		switch {
		case msg.err != nil:
			return m.fail(action, msg.err)
		case !msg.ok:
			return m.info("Nothing to " + verb)
		}
		notice := m.info(done + " " + fieldTitle(msg.entry.Field))
		if i := m.session.Deck().Index(msg.entry.SlideID); i >= 0 && i != m.nav.Current() && m.nav.GoTo(i) {
			return tea.Batch(m.followSlide(), notice)
		}
		return notice

	case generatedMsg:
		m.pending--
		m.syncSlides()
		switch {
		case errors.Is(msg.err, ErrStale):
			return m.info(fmt.Sprintf("Discarded an outdated %s suggestion", fieldTitle(msg.field)))
		case errors.Is(msg.err, ai.ErrMalformed):
			return m.fail("Generate "+fieldTitle(msg.field), errors.New("the AI returned an unusable response"))
		case msg.err != nil:
			return m.fail("Generate "+fieldTitle(msg.field), msg.err)
		}
		return m.info("Generated " + fieldTitle(msg.field))

	case commentsOpenedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, panel.ErrSuperseded) || errors.Is(msg.err, panel.ErrUnchanged) || errors.Is(msg.err, panel.ErrClosed) {
				return nil
			}
			return m.fail("Open comments", msg.err)
		}
		return m.waitForComment()

	case commentEventMsg:
		if !msg.ok || !m.comments.Current(msg.gen) {
			return nil
		}
		return tea.Batch(m.refreshComments(), m.waitForComment())

	case commentsChangedMsg:
		if msg.err != nil {
			return m.fail("Reload comments", msg.err)
		}

	case commentWriteMsg:
		if msg.err != nil {
			return m.fail(msg.what, msg.err)
		}

	case versionsLoadedMsg:
		if msg.err != nil && !errors.Is(msg.err, panel.ErrSuperseded) && !errors.Is(msg.err, panel.ErrClosed) {
			return m.fail("Load versions", msg.err)
		}

	case versionSavedMsg:
		if msg.err != nil {
			return m.fail("Save version", msg.err)
		}
		return tea.Batch(m.reloadVersions(), m.info(fmt.Sprintf("Saved version %d", msg.v.VersionNumber)))

	case restoredMsg:
		m.syncSlides()
		if msg.err != nil {
			return m.fail("Restore", msg.err)
		}
		return tea.Batch(m.reloadVersions(), m.info(fmt.Sprintf("Restored version %d as version %d", msg.from.VersionNumber, msg.to.VersionNumber)))

	case sharedMsg:
		if msg.err != nil {
			return m.fail("Share", msg.err)
		}
		if !msg.public {
			return m.info("Deck is private again")
		}
		link := share.SharedURL(m.shareBase, msg.slug)
		if err := m.copy(link); err != nil {
			return m.info("Shared at " + link)
		}
		return m.info("Shared at " + link + " (copied)")

	case exportedMsg:
		if msg.err != nil {
			return m.fail("Export", msg.err)
		}
		return m.info("Exported " + msg.path)

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice, m.noticeErr = "", false
		}

	default:
		// Cursor blinks and other widget messages.
		var cmd tea.Cmd
		switch m.mode {
		case modeEdit:
			m.textarea, cmd = m.textarea.Update(msg)
		case modePrompt, modeComment, modeCommentEdit:
			m.input, cmd = m.input.Update(msg)
		}
		return cmd
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closePanels()
		return tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		if m.panel != panelNone {
			m.closePanels()
			m.layout()
		}
		return nil
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.layout()
		return nil
	case key.Matches(msg, m.keys.Undo):
		return m.historyCmd(true)
	case key.Matches(msg, m.keys.Redo):
		return m.historyCmd(false)
	case key.Matches(msg, m.keys.Comments):
		return m.togglePanel(panelComments)
	case key.Matches(msg, m.keys.Versions):
		return m.togglePanel(panelVersions)
	case key.Matches(msg, m.keys.Share):
		return m.shareCmd()
	case key.Matches(msg, m.keys.Export):
		return m.exportCmd()
	}

	if m.panel != panelNone {
		if cmd, handled := m.handlePanelKey(msg); handled {
			return cmd
		}
	}

	cur, ok := m.current()
	if !ok {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.nav.Previous() {
			return m.followSlide()
		}
	case key.Matches(msg, m.keys.Down):
		if m.nav.Next() {
			return m.followSlide()
		}
	case key.Matches(msg, m.keys.NextField):
		m.field = (m.field + 1) % len(slide.Fields())
	case key.Matches(msg, m.keys.PrevField):
		m.field = (m.field + len(slide.Fields()) - 1) % len(slide.Fields())
	case key.Matches(msg, m.keys.Edit):
		f := m.currentField()
		if f == slide.FieldLayout {
			return m.editCmd(cur.ID, f, string(nextLayout(cur.Layout)))
		}
		m.textarea.SetValue(cur.Get(f))
		m.textarea.Placeholder = fieldTitle(f)
		return m.beginInput(modeEdit, cur.ID)
	case key.Matches(msg, m.keys.Generate):
		f := m.currentField()
		if f == slide.FieldLayout || f == slide.FieldImageURL {
			return m.info("Use 'i' to generate an image; layouts are picked with enter")
		}
		m.input.SetValue("")
		m.input.Placeholder = "Instructions for the " + fieldTitle(f) + " (optional)"
		return m.beginInput(modePrompt, cur.ID)
	case key.Matches(msg, m.keys.Image):
		return m.imageCmd(cur.ID)
	case key.Matches(msg, m.keys.Snapshot):
		return m.snapshotCmd(cur.ID)
	}
	return nil
}

// handlePanelKey routes the keys that only mean something while a side
// panel is open.
func (m *Model) handlePanelKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.PanelUp):
		m.movePanel(-1)
		return nil, true
	case key.Matches(msg, m.keys.PanelDown):
		m.movePanel(1)
		return nil, true
	}

	if m.panel == panelComments {
		switch {
		case key.Matches(msg, m.keys.Add):
			m.input.SetValue("")
			m.input.Placeholder = "Write a comment…"
			return m.beginInput(modeComment, m.comments.SlideID()), true
		case key.Matches(msg, m.keys.EditComment):
			c, ok := m.comments.Selected()
			if !ok {
				return nil, true
			}
			if !m.comments.Mine(c) {
				return m.fail("Edit comment", panel.ErrNotAuthor), true
			}
			m.input.SetValue(c.Content)
			m.input.CursorEnd()
			m.input.Placeholder = "Edit your comment…"
			return m.beginInput(modeCommentEdit, c.ID), true
		case key.Matches(msg, m.keys.Resolve):
			c, ok := m.comments.Selected()
			if !ok {
				return nil, true
			}
			comments := m.comments
			return commentCmd("Resolve comment", func(ctx context.Context) error {
				return comments.ToggleResolved(ctx, c.ID)
			}), true
		case key.Matches(msg, m.keys.Delete):
			c, ok := m.comments.Selected()
			if !ok {
				return nil, true
			}
			if !m.comments.Mine(c) {
				return m.fail("Delete comment", panel.ErrNotAuthor), true
			}
			comments := m.comments
			return commentCmd("Delete comment", func(ctx context.Context) error {
				return comments.Delete(ctx, c.ID)
			}), true
		}
	}

	if m.panel == panelVersions && key.Matches(msg, m.keys.Restore) {
		v, ok := m.versions.Selected()
		if !ok {
			return nil, true
		}
		return m.restoreCmd(v), true
	}
	return nil, false
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.endInput()
		return nil

	case m.mode == modeEdit && key.Matches(msg, m.keys.Save):
		value := m.textarea.Value()
		slideID, f := m.editing, m.currentField()
		m.endInput()
		return m.editCmd(slideID, f, value)

	case m.mode != modeEdit && msg.Type == tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		id, f, md := m.editing, m.currentField(), m.mode
		m.endInput()
		comments := m.comments
		switch md {
		case modeComment:
			return commentCmd("Add comment", func(ctx context.Context) error {
				return comments.Add(ctx, value)
			})
		case modeCommentEdit:
			return commentCmd("Edit comment", func(ctx context.Context) error {
				return comments.Edit(ctx, id, value)
			})
		}
		return m.generateCmd(id, f, value)
	}

	var cmd tea.Cmd
	if m.mode == modeEdit {
		m.textarea, cmd = m.textarea.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return cmd
}

func (m *Model) beginInput(md mode, slideID string) tea.Cmd {
	m.mode = md
	m.editing = slideID
	m.layout()
	if md == modeEdit {
		return m.textarea.Focus()
	}
	return m.input.Focus()
}

func (m *Model) endInput() {
	m.mode = modeBrowse
	m.editing = ""
	m.textarea.Blur()
	m.input.Blur()
	m.layout()
}

func (m *Model) togglePanel(p sidePanel) tea.Cmd {
	if m.panel == p {
		m.closePanels()
		m.layout()
		return nil
	}
	m.closePanels()
	cur, ok := m.current()
	if !ok {
		return m.info("This deck has no slides yet")
	}
	m.panel = p
	m.layout()
	if p == panelComments {
		return m.openComments(cur.ID)
	}
	return m.openVersions(cur.ID)
}

func (m *Model) closePanels() {
	m.comments.Close()
	m.versions.Close()
	m.panel = panelNone
}

func (m *Model) movePanel(delta int) {
	switch m.panel {
	case panelComments:
		m.comments.Move(delta)
	case panelVersions:
		m.versions.Move(delta)
	}
}

// followSlide moves an open panel to the newly selected slide.
func (m Model) followSlide() tea.Cmd {
	cur, ok := m.current()
	if !ok {
		return nil
	}
	switch m.panel {
	case panelComments:
		comments := m.comments
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return commentsOpenedMsg{comments.SetSlide(ctx, cur.ID)}
		}
	case panelVersions:
		versions := m.versions
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			return versionsLoadedMsg{versions.SetSlide(ctx, cur.ID)}
		}
	}
	return nil
}

func (m Model) openComments(slideID string) tea.Cmd {
	comments := m.comments
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return commentsOpenedMsg{comments.Open(ctx, slideID)}
	}
}

// waitForComment blocks on the live subscription until the next change
// event. A result for a generation that is no longer live is dropped by
// Update, so the waiter ends with the subscription.
func (m Model) waitForComment() tea.Cmd {
	ch, gen := m.comments.Events()
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		_, ok := <-ch
		return commentEventMsg{gen: gen, ok: ok}
	}
}

func (m Model) refreshComments() tea.Cmd {
	comments := m.comments
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return commentsChangedMsg{comments.Refresh(ctx)}
	}
}

func commentCmd(what string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return commentWriteMsg{what: what, err: fn(ctx)}
	}
}

func (m Model) openVersions(slideID string) tea.Cmd {
	versions := m.versions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return versionsLoadedMsg{versions.Open(ctx, slideID)}
	}
}

func (m Model) reloadVersions() tea.Cmd {
	if m.panel != panelVersions {
		return nil
	}
	versions := m.versions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return versionsLoadedMsg{versions.Reload(ctx)}
	}
}

func (m *Model) editCmd(slideID string, f slide.Field, value string) tea.Cmd {
	m.pending++
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_, err := s.Edit(ctx, slideID, f, value)
		return savedMsg{field: f, err: err}
	}
}

func (m Model) historyCmd(undo bool) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var (
			e   history.Entry
			ok  bool
			err error
		)
		if undo {
			e, ok, err = s.Undo(ctx)
		} else {
			e, ok, err = s.Redo(ctx)
		}
		return historyMsg{entry: e, ok: ok, undo: undo, err: err}
	}
}

func (m *Model) generateCmd(slideID string, f slide.Field, instruction string) tea.Cmd {
	m.pending++
	s := m.session
	return tea.Batch(m.info("Generating "+fieldTitle(f)+"…"), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()
		_, err := s.GenerateText(ctx, slideID, f, instruction)
		return generatedMsg{field: f, err: err}
	})
}

func (m *Model) imageCmd(slideID string) tea.Cmd {
	m.pending++
	s := m.session
	return tea.Batch(m.info("Generating image…"), func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
		defer cancel()
		_, err := s.GenerateImage(ctx, slideID)
		return generatedMsg{field: slide.FieldImageURL, err: err}
	})
}

func (m Model) snapshotCmd(slideID string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		v, err := s.SaveVersion(ctx, slideID)
		return versionSavedMsg{v: v, err: err}
	}
}

func (m Model) restoreCmd(v slide.Version) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		to, err := s.Restore(ctx, v)
		return restoredMsg{from: v, to: to, err: err}
	}
}

func (m Model) shareCmd() tea.Cmd {
	s := m.session
	public := s.Deck().IsPublic
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if public {
			return sharedMsg{public: false, err: s.Unpublish(ctx)}
		}
		slug, err := s.Publish(ctx)
		return sharedMsg{slug: slug, public: true, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	s := m.session
	path := filepath.Join(m.exportDir, exportName(s.Deck()))
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := s.ExportPDF(f, export.Options{Notes: true, PageNumbers: true}); err != nil {
			f.Close()
			return exportedMsg{err: err}
		}
		return exportedMsg{path: path, err: f.Close()}
	}
}

func (m *Model) info(text string) tea.Cmd {
	return m.setNotice(text, false)
}

func (m *Model) fail(what string, err error) tea.Cmd {
	return m.setNotice(fmt.Sprintf("%s failed: %v", what, err), true)
}

func (m *Model) setNotice(text string, isErr bool) tea.Cmd {
	m.noticeID++
	id := m.noticeID
	m.notice, m.noticeErr = text, isErr
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{id: id} })
}

// syncSlides picks up the session's slide list after a write settled.
func (m *Model) syncSlides() {
	m.nav.SetCount(len(m.session.Deck().Slides))
}

func (m *Model) layout() {
	previewW := max(m.width-listWidth-3, 0)
	previewH := max(m.height-m.chromeHeight(), 0)
	m.fit.Resize(fit.Size{W: float64(previewW), H: float64(previewH)})
	m.textarea.SetWidth(max(m.width-2, 10))
	m.input.Width = max(m.width-4, 10)
	m.help.Width = m.width
}

// chromeHeight is everything below the preview: fields, panel, input,
// notice and help.
func (m Model) chromeHeight() int {
	h := 3 + 1
	if m.panel != panelNone {
		h += panelHeight + 1
	}
	if m.mode == modeEdit {
		h += panelHeight + 2
	} else if m.mode != modeBrowse {
		h += 1
	}
	if m.showHelp {
		h += lipgloss.Height(m.help.View(m.keys))
	} else {
		h++
	}
	return h
}

func (m Model) current() (slide.Slide, bool) {
	return nav.Active(m.nav.Current(), m.session.Deck().Slides)
}

func (m Model) currentField() slide.Field {
	return slide.Fields()[m.field]
}

// Accessors used by the entrypoint and tests.

func (m Model) Selected() int { return m.nav.Current() }

func (m Model) Field() slide.Field { return m.currentField() }

func (m Model) Notice() string { return m.notice }

func (m Model) Editing() bool { return m.mode == modeEdit }

func (m Model) CommentsOpen() bool { return m.panel == panelComments }

func (m Model) VersionsOpen() bool { return m.panel == panelVersions }

func (m Model) Pending() int { return m.pending }

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	listStyle     = lipgloss.NewStyle().Width(listWidth).PaddingRight(1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).BorderForeground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func (m Model) View() string {
	if m.width == 0 {
		return "Loading editor..."
	}
	d := m.session.Deck()
	cur, ok := m.current()

	var preview string
	size := m.fit.Fitted()
	switch {
	case !ok:
		preview = faintStyle.Render("This deck has no slides yet.")
	case size.W <= 0 || size.H <= 0:
		preview = faintStyle.Render("Terminal too small")
	default:
		preview = m.renderer.Slide(cur, int(size.W), int(size.H))
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, m.listView(d), " ", preview)

	out := []string{top, m.fieldsView(cur)}
	switch m.panel {
	case panelComments:
		out = append(out, m.commentsView())
	case panelVersions:
		out = append(out, m.versionsView())
	}
	switch m.mode {
	case modeEdit:
		out = append(out, titleStyle.Render("Editing "+fieldTitle(m.currentField())+" (ctrl+s saves, esc cancels)"), m.textarea.View())
	case modePrompt, modeComment, modeCommentEdit:
		out = append(out, m.input.View())
	}
	out = append(out, m.statusView(d))
	if m.showHelp {
		out = append(out, m.help.View(m.keys))
	} else {
		out = append(out, m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return strings.Join(out, "\n")
}

func (m Model) listView(d slide.Deck) string {
	title := d.Title
	if title == "" {
		title = "Untitled deck"
	}
	lines := []string{titleStyle.Render(xansi.Truncate(title, listWidth-1, "…"))}
	for i, s := range d.Slides {
		label := s.Title
		if label == "" {
			label = "(untitled)"
		}
		line := xansi.Truncate(fmt.Sprintf("%2d %s", i+1, label), listWidth-3, "…")
		if i == m.nav.Current() {
			lines = append(lines, selectedStyle.Render("▸ "+line))
		} else {
			lines = append(lines, "  "+line)
		}
	}
	return listStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) fieldsView(cur slide.Slide) string {
	var names []string
	for i, f := range slide.Fields() {
		name := fieldTitle(f)
		if i == m.field {
			names = append(names, selectedStyle.Render("["+name+"]"))
		} else {
			names = append(names, faintStyle.Render(name))
		}
	}
	value := cur.Get(m.currentField())
	if value == "" {
		value = faintStyle.Render("(empty)")
	}
	value = strings.ReplaceAll(value, "\n", " ⏎ ")
	return strings.Join([]string{
		xansi.Truncate(strings.Join(names, " "), m.width, "…"),
		xansi.Truncate(value, m.width, "…"),
		"",
	}, "\n")
}

func (m Model) commentsView() string {
	header := titleStyle.Render("Comments")
	if m.comments.Loading() {
		return panelStyle.Width(m.width).Height(panelHeight).Render(header + "\n" + faintStyle.Render("Loading…"))
	}
	items := m.comments.Items()
	sel, _ := m.comments.Selected()
	lines := []string{header}
	if len(items) == 0 {
		lines = append(lines, faintStyle.Render("No comments yet. Press 'a' to add one."))
	}
	for _, c := range items {
		mark := " "
		if c.Resolved {
			mark = "✓"
		}
		who := c.AuthorID
		if m.comments.Mine(c) {
			who = "you"
		}
		line := xansi.Truncate(fmt.Sprintf("%s %s: %s", mark, who, c.Content), m.width-2, "…")
		if c.ID == sel.ID {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return panelStyle.Width(m.width).Height(panelHeight).Render(window(lines, panelHeight))
}

func (m Model) versionsView() string {
	items := m.versions.Items()
	sel, _ := m.versions.Selected()
	lines := []string{titleStyle.Render("Versions")}
	if len(items) == 0 {
		lines = append(lines, faintStyle.Render("No saved versions. Press 's' to save one."))
	}
	for _, v := range items {
		line := xansi.Truncate(fmt.Sprintf("v%d  %s  %s", v.VersionNumber, v.CreatedAt.Format("2006-01-02 15:04"), v.Title), m.width-2, "…")
		if v.ID == sel.ID {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return panelStyle.Width(m.width).Height(panelHeight).Render(window(lines, panelHeight))
}

func (m Model) statusView(d slide.Deck) string {
	var parts []string
	if m.notice != "" {
		if m.noticeErr {
			parts = append(parts, errorStyle.Render(m.notice))
		} else {
			parts = append(parts, infoStyle.Render(m.notice))
		}
	}
	if m.pending > 0 {
		parts = append(parts, faintStyle.Render(fmt.Sprintf("%d pending", m.pending)))
	}
	if d.IsPublic {
		parts = append(parts, faintStyle.Render("shared"))
	}
	return xansi.Truncate(strings.Join(parts, "  "), m.width, "…")
}

// window keeps the header and as many trailing lines as fit in h.
func window(lines []string, h int) string {
	if len(lines) > h {
		lines = append(lines[:1], lines[len(lines)-h+1:]...)
	}
	return strings.Join(lines, "\n")
}

func fieldTitle(f slide.Field) string {
	return strings.ReplaceAll(string(f), "_", " ")
}

func nextLayout(l slide.Layout) slide.Layout {
	all := slide.Layouts()
	l = slide.ParseLayout(string(l))
	for i, x := range all {
		if x == l {
			return all[(i+1)%len(all)]
		}
	}
	return slide.LayoutContent
}

func exportName(d slide.Deck) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '_':
			return '-'
		}
		return -1
	}, strings.TrimSpace(d.Title))
	if name == "" {
		name = d.ID
	}
	return name + ".pdf"
}
