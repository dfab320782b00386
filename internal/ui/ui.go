package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/bowlstone/internal/dnd"
	"github.com/desertthunder/bowlstone/internal/onboarding"
	"github.com/desertthunder/bowlstone/internal/reflection"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BoardView ViewState = iota
	FocusView
	AddView
	HelpView
)

// noticeTTL is how long a notice stays on screen.
const noticeTTL = 4 * time.Second

// Options configures a [Model]. Controller and Gate are required.
type Options struct {
	Controller        *dnd.Controller
	Gate              *onboarding.Gate
	Reflections       reflection.Generator
	ReflectionTimeout time.Duration
	HelpStyle         string
	Logger            *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx         context.Context
	view        ViewState
	prev        ViewState
	ctrl        *dnd.Controller
	gate        *onboarding.Gate
	reflections reflection.Generator
	timeout     time.Duration
	helpStyle   string
	logger      *log.Logger
	width       int
	height      int
	cursor      int
	held        string
	input       textinput.Model
	reflection  string
	notice      *shared.Notice
	noticeSeq   int
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	timeout := opts.ReflectionTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	input := textinput.New()
	input.Placeholder = "What needs doing?"
	input.CharLimit = 200

	m := &Model{
		ctx:         ctx,
		ctrl:        opts.Controller,
		gate:        opts.Gate,
		reflections: opts.Reflections,
		timeout:     timeout,
		helpStyle:   opts.HelpStyle,
		logger:      logger,
		width:       80,
		input:       input,
		help:        help.New(),
		keys:        newKeyMap(),
	}
	m.syncView()
	return m
}

// Init opens the help dialog when the gate says so and starts fetching the reflection.
func (m *Model) Init() tea.Cmd {
	if m.gate != nil && m.gate.Open(m.ctx, m.ctrl.Session().Tier) {
		m.openHelp()
	}
	return m.fetchReflection()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case HelpView:
			return m.handleHelpKeys(msg)
		case AddView:
			return m.handleAddKeys(msg)
		case FocusView:
			return m.handleFocusKeys(msg)
		default:
			return m.handleBoardKeys(msg)
		}

	case Msg:
		switch msg.kind {
		case MsgReflectionFetched:
			m.reflection = msg.data.(reflection.Reflection).Text
		case MsgSessionChanged:
			m.ctrl.SetContext(msg.data.(session.Context))
			m.syncView()
		case MsgNoticeExpired:
			if msg.data.(int) == m.noticeSeq {
				m.notice = nil
			}
		}
		return m, nil
	}

	if m.view == AddView {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case HelpView:
		body = m.renderHelp()
	case AddView:
		body = m.renderAdd()
	case FocusView:
		body = m.renderFocus()
	default:
		body = m.renderBoard()
	}

	if m.notice != nil {
		body = fmt.Sprintf("%s\n\n%s", styles.err.Render(m.notice.String()), body)
	}
	return body
}

func (m *Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	stones := m.ctrl.Board().Stones

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		m.cursor = max(0, m.cursor-1)
	case key.Matches(msg, m.keys.down):
		m.cursor = min(max(0, len(stones)-1), m.cursor+1)
	case key.Matches(msg, m.keys.grab):
		if len(stones) == 0 {
			return m, nil
		}
		if m.held == "" {
			m.held = stones[m.cursor].ID
			return m, nil
		}
		return m, m.release(dnd.OnTask(stones[m.cursor].ID))
	case key.Matches(msg, m.keys.bowl):
		if m.held == "" && len(stones) > 0 {
			m.held = stones[m.cursor].ID
		}
		return m, m.release(dnd.Slot())
	case key.Matches(msg, m.keys.cancel):
		if m.held != "" {
			return m, m.release(dnd.Target{})
		}
	case key.Matches(msg, m.keys.swap):
		if len(stones) > 0 {
			return m, m.apply(m.ctrl.Swap(stones[m.cursor].ID))
		}
	case key.Matches(msg, m.keys.add):
		return m, m.openAdd()
	case key.Matches(msg, m.keys.help):
		m.openHelp()
	}
	return m, nil
}

func (m *Model) handleFocusKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.done):
		return m, m.apply(m.ctrl.Complete())
	case key.Matches(msg, m.keys.add):
		return m, m.openAdd()
	case key.Matches(msg, m.keys.help):
		m.openHelp()
	}
	return m, nil
}

func (m *Model) handleAddKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.closeAdd()
		return m, nil
	case tea.KeyEnter:
		text := m.input.Value()
		m.closeAdd()
		return m, m.apply(m.ctrl.Add(text))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.hide):
		if !m.ctrl.Session().Tier.IsGuest() {
			m.gate.Confirm(m.ctx, m.ctrl.Session().Tier)
			m.closeHelp()
		}
	case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.help), key.Matches(msg, m.keys.quit),
		msg.Type == tea.KeyEnter:
		if m.gate != nil {
			m.gate.Close()
		}
		m.closeHelp()
	}
	return m, nil
}

// release drops the held stone over target and clears the gesture.
func (m *Model) release(target dnd.Target) tea.Cmd {
	g := dnd.Gesture{ActiveID: m.held, Over: target}
	m.held = ""
	return m.apply(m.ctrl.Drop(g))
}

// apply shows the outcome's notice, if any, and switches views when the bowl filled or emptied.
func (m *Model) apply(out dnd.Outcome) tea.Cmd {
	m.syncView()
	if out.Notice == nil {
		return nil
	}

	m.notice = out.Notice
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg(seq) })
}

// syncView picks the board or focus view from the bowl and keeps the cursor in range.
func (m *Model) syncView() {
	b := m.ctrl.Board()
	m.ctrl.SetFocusMode(b.Bowl != nil)
	m.cursor = min(m.cursor, max(0, len(b.Stones)-1))

	if m.view == HelpView || m.view == AddView {
		return
	}
	if b.Bowl != nil {
		m.view = FocusView
	} else {
		m.view = BoardView
	}
}

func (m *Model) openAdd() tea.Cmd {
	m.prev = m.view
	m.view = AddView
	m.input.Reset()
	return m.input.Focus()
}

func (m *Model) closeAdd() {
	m.input.Blur()
	m.view = m.prev
	m.syncView()
}

func (m *Model) openHelp() {
	if m.view != HelpView {
		m.prev = m.view
	}
	m.view = HelpView
}

func (m *Model) closeHelp() {
	m.view = m.prev
	m.syncView()
}

func (m *Model) fetchReflection() tea.Cmd {
	if m.reflections == nil {
		return nil
	}
	gen, timeout, ctx := m.reflections, m.timeout, m.ctx
	return func() tea.Msg {
		return reflectionFetchedMsg(reflection.Daily(ctx, gen, timeout))
	}
}

func (m *Model) header() string {
	sc := m.ctrl.Session()
	status := sc.Tier.String()
	if sc.Identity != nil {
		status = fmt.Sprintf("%s · %s", sc.Identity.Email, sc.Tier)
	}
	if limit, bounded := sc.Tier.Capacity(); bounded {
		status = fmt.Sprintf("%s · %d/%d stones", status, m.ctrl.Board().Load(), limit)
	}
	return styles.title.Render("Bowl and Stone") + "  " + styles.help.Render(status)
}

func (m *Model) renderBoard() string {
	b := m.ctrl.Board()
	stones := styles.pane.Render(renderStones(b.Stones, m.cursor, m.held))
	bowl := styles.pane.Render(renderBowl(b.Bowl, m.held != ""))

	var board string
	if m.width >= 72 {
		board = lipgloss.JoinHorizontal(lipgloss.Top, stones, bowl)
	} else {
		board = lipgloss.JoinVertical(lipgloss.Left, stones, "", bowl)
	}

	var limit string
	if m.ctrl.LimitReached() {
		limit = "\n" + styles.warn.Render(dnd.GuestLimitNotice.Description)
	}

	keys := []key.Binding{m.keys.grab, m.keys.bowl, m.keys.add, m.keys.help, m.keys.quit}
	if m.held != "" {
		keys = []key.Binding{m.keys.up, m.keys.down, m.keys.grab, m.keys.bowl, m.keys.cancel}
	}
	return fmt.Sprintf("%s\n%s%s\n\n%s", m.header(), board, limit, m.help.ShortHelpView(keys))
}

func (m *Model) renderFocus() string {
	b := m.ctrl.Board()
	task := ""
	if b.Bowl != nil {
		task = b.Bowl.Text
	}

	reflectionText := m.reflection
	if reflectionText == "" {
		reflectionText = "…"
	}

	keys := []key.Binding{m.keys.done, m.keys.add, m.keys.help, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s\n\n%s",
		m.header(),
		styles.help.Render("In the bowl"),
		styles.bowl.Render(task),
		styles.help.Render(reflectionText),
		m.help.ShortHelpView(keys),
	)
}

func (m *Model) renderAdd() string {
	keys := []key.Binding{m.keys.submit, m.keys.cancel}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", m.header(), styles.ok.Render("Add a stone"), m.input.View(), m.help.ShortHelpView(keys))
}

func (m *Model) renderHelp() string {
	guest := m.ctrl.Session().Tier.IsGuest()
	text, err := onboarding.RenderHelp(guest, max(20, m.width-4), m.helpStyle)
	if err != nil {
		m.logger.Warn("failed to render help", "error", err)
		text = onboarding.HelpMarkdown(guest)
	}

	keys := []key.Binding{m.keys.cancel}
	if !guest {
		keys = append([]key.Binding{m.keys.hide}, keys...)
	}
	return strings.TrimRight(text, "\n") + "\n\n" + m.help.ShortHelpView(keys)
}
