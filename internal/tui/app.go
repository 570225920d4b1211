// internal/tui/app.go
//
// This is the host TUI for the slayer suite. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// The host itself never edits signs. It lists the registered modules,
// switches between them, and drives the suite-wide undo history and
// project persistence. Everything else arrives as router events.

package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/slayer-suite/internal/eventbridge"
	"github.com/kingrea/slayer-suite/internal/module"
	"github.com/kingrea/slayer-suite/internal/suite"
)

const (
	eventPanelSize   = 8
	historyPanelSize = 8
	logPanelSize     = 6
)

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithContext sets the context passed to module activation and persistence.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// WithProjectPath overrides where save and load read and write. The suite's
// default path is used otherwise.
func WithProjectPath(path string) AppOption {
	return func(a *App) {
		a.projectPath = strings.TrimSpace(path)
	}
}

type eventMsg struct {
	event eventbridge.Event
}

type persistedMsg struct {
	verb   string
	failed int
	err    error
}

// moduleItem implements list.Item for a registered module.
type moduleItem struct {
	entry  module.Entry
	active bool
}

func (i moduleItem) Title() string {
	if i.active {
		return i.entry.Name + " ●"
	}
	return i.entry.Name
}

func (i moduleItem) Description() string {
	return fmt.Sprintf("v%s · %s · %s", i.entry.Version, i.entry.State, i.entry.Capability)
}

func (i moduleItem) FilterValue() string { return i.entry.Name }

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	suite       *suite.Suite
	ctx         context.Context
	projectPath string

	keys    keyMap
	help    help.Model
	modules list.Model

	feed   eventbridge.Feed
	recent []eventbridge.Event

	statusMsg string
	busy      bool

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp builds the host around an already wired suite. Close releases the
// event feed.
func NewApp(s *suite.Suite, opts ...AppOption) *App {
	modules := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	modules.Title = "Modules"
	modules.SetShowStatusBar(false)
	modules.SetFilteringEnabled(false)
	modules.SetShowHelp(false)
	modules.KeyMap.Quit.SetEnabled(false)

	app := &App{
		suite:   s,
		ctx:     context.Background(),
		keys:    defaultKeyMap(),
		help:    help.New(),
		modules: modules,
		feed:    s.Router.Watch(eventbridge.Wildcard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.refreshModules()
	app.statusMsg = s.LastAction()
	return app
}

// Close unsubscribes the host from the router.
func (a *App) Close() {
	a.feed.Close()
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.waitForEvent()
}

func (a *App) waitForEvent() tea.Cmd {
	events := a.feed.Events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg{event: event}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.modules.SetSize(max(0, msg.Width/2-6), max(0, msg.Height-12))
		return a, nil

	case eventMsg:
		a.recordEvent(msg.event)
		if isLifecycle(msg.event.Type) {
			a.refreshModules()
		}
		return a, a.waitForEvent()

	case persistedMsg:
		a.busy = false
		a.refreshModules()
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("%s failed: %v", titleCase(msg.verb), msg.err)
			return a, nil
		}
		a.statusMsg = a.suite.LastAction()
		if msg.failed > 0 {
			a.statusMsg += fmt.Sprintf(" · %d module(s) failed", msg.failed)
		}
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Switch):
			a.switchToSelected()
			return a, nil
		case key.Matches(msg, a.keys.Undo):
			if _, ok := a.suite.Undo(); !ok {
				a.statusMsg = "Nothing to undo"
				return a, nil
			}
			a.statusMsg = a.suite.LastAction()
			return a, nil
		case key.Matches(msg, a.keys.Redo):
			if _, ok := a.suite.Redo(); !ok {
				a.statusMsg = "Nothing to redo"
				return a, nil
			}
			a.statusMsg = a.suite.LastAction()
			return a, nil
		case key.Matches(msg, a.keys.Save):
			return a, a.persist("save")
		case key.Matches(msg, a.keys.Load):
			return a, a.persist("load")
		}
	}

	var cmd tea.Cmd
	a.modules, cmd = a.modules.Update(msg)
	return a, cmd
}

func (a *App) switchToSelected() {
	item, ok := a.modules.SelectedItem().(moduleItem)
	if !ok {
		return
	}
	if _, err := a.suite.SwitchTo(a.ctx, item.entry.Name); err != nil {
		a.statusMsg = fmt.Sprintf("%s: %v", a.suite.LastAction(), err)
	} else {
		a.statusMsg = a.suite.LastAction()
	}
	a.refreshModules()
}

// persist runs save or load off the UI loop. Only one runs at a time.
func (a *App) persist(verb string) tea.Cmd {
	if a.busy {
		a.statusMsg = "Waiting for the previous save or load"
		return nil
	}
	a.busy = true
	a.statusMsg = titleCase(verb) + "…"
	s, ctx, path := a.suite, a.ctx, a.projectPath
	return func() tea.Msg {
		if verb == "load" {
			result, err := s.Load(ctx, path)
			return persistedMsg{verb: verb, failed: len(result.Failed), err: err}
		}
		_, err := s.Save(ctx, path)
		return persistedMsg{verb: verb, err: err}
	}
}

func (a *App) refreshModules() {
	active, _ := a.suite.Registry.Active()
	entries := a.suite.Registry.Entries()
	items := make([]list.Item, len(entries))
	for i, entry := range entries {
		items[i] = moduleItem{entry: entry, active: entry.Name == active}
	}
	selected := a.modules.Index()
	a.modules.SetItems(items)
	if selected < len(items) {
		a.modules.Select(selected)
	}
}

func (a *App) recordEvent(event eventbridge.Event) {
	a.recent = append(a.recent, event)
	if over := len(a.recent) - eventPanelSize; over > 0 {
		a.recent = append([]eventbridge.Event(nil), a.recent[over:]...)
	}
}

func isLifecycle(eventType string) bool {
	switch eventType {
	case eventbridge.AppActivated, eventbridge.AppDeactivated, eventbridge.AppRegistered, eventbridge.AppUnregistered:
		return true
	}
	return false
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/2)
	leftWidth := width - rightWidth - 4
	if leftWidth < 30 {
		leftWidth = width - 4
		rightWidth = 0
	}
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render(fmt.Sprintf("⬡ SLAYER · %s", a.suite.ProjectName()))
	leftBox := panelStyle.Width(max(20, leftWidth)).Render(a.modules.View())
	body := leftBox
	if rightWidth > 0 {
		right := lipgloss.JoinVertical(lipgloss.Left,
			a.renderHistoryPanel(rightWidth-4),
			"",
			a.renderEventsPanel(rightWidth-4),
		)
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, panelStyle.Width(max(20, rightWidth)).Render(right))
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer, a.help.View(a.keys))
	return strings.Join(sections, "\n")
}
