// Package tui provides the BubbleTea-based terminal window browser.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/wlpanel/internal/config"
	"github.com/jmylchreest/wlpanel/internal/dbus"
)

// callTimeout bounds every bus call made by the TUI.
const callTimeout = 5 * time.Second

// WindowClient is the subset of the panel's bus API the TUI uses.
type WindowClient interface {
	ListWindows(ctx context.Context) ([]dbus.WindowInfo, error)
	Activate(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) error
	Minimize(ctx context.Context, id string) error
	CloseWindow(ctx context.Context, id string) error
}

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeSearch
	ModeHelp
)

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg    *config.Config
	client WindowClient

	// Current mode
	mode Mode

	// Components
	list        list.Model
	viewport    viewport.Model
	searchInput textinput.Model
	help        help.Model

	// State
	windows     []dbus.WindowInfo
	selected    *dbus.WindowInfo
	searchQuery string
	width       int
	height      int
	ready       bool
	now         func() time.Time

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool

	// Refresh channel subscription
	refreshCh <-chan struct{}
}

// windowItem wraps a window for the list component.
type windowItem struct {
	window dbus.WindowInfo
	now    time.Time
}

func (i windowItem) Title() string {
	if i.window.Title == "" {
		return "(untitled)"
	}
	return i.window.Title
}

func (i windowItem) Description() string {
	desc := "[" + i.window.AppID + "]"
	if len(i.window.States) > 0 {
		desc += " " + strings.Join(i.window.States, ",")
	}
	if i.window.FirstSeen > 0 {
		desc += " · " + humanize.RelTime(firstSeen(i.window), i.now, "ago", "from now")
	}
	return desc
}

func (i windowItem) FilterValue() string {
	return i.window.AppID + " " + i.window.Title
}

func firstSeen(w dbus.WindowInfo) time.Time {
	return time.Unix(int64(w.FirstSeen), 0)
}

// windowDelegate highlights the focused window and dims minimized ones.
type windowDelegate struct {
	list.DefaultDelegate
}

func newWindowDelegate() windowDelegate {
	return windowDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

// Render renders a list item.
func (d windowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	wi, ok := item.(windowItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	isSelected := index == m.Index()
	itemWidth := m.Width() - d.Styles.NormalTitle.GetHorizontalPadding()

	titleStyle, descStyle := d.Styles.NormalTitle, d.Styles.NormalDesc
	if isSelected {
		titleStyle, descStyle = d.Styles.SelectedTitle, d.Styles.SelectedDesc
	}

	switch {
	case wi.window.HasState("minimized"):
		titleStyle = titleStyle.Foreground(lipgloss.Color("8"))
		descStyle = descStyle.Foreground(lipgloss.Color("8"))
	case wi.window.HasState("activated"):
		titleStyle = titleStyle.Bold(true)
	}

	title := wi.Title()
	if wi.window.HasState("activated") {
		title = "● " + title
	}

	fmt.Fprint(w, titleStyle.Render(truncate(title, itemWidth)))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(truncate(wi.Description(), itemWidth)))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// New creates a new TUI model.
func New(cfg *config.Config, client WindowClient) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	l := list.New(nil, newWindowDelegate(), 0, 0)
	l.Title = "Windows"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	searchInput := textinput.New()
	searchInput.Placeholder = "app=firefox, state!=minimized or plain text"
	searchInput.CharLimit = 100

	return Model{
		cfg:         cfg,
		client:      client,
		mode:        ModeList,
		list:        l,
		searchInput: searchInput,
		help:        help.New(),
		keys:        DefaultKeyMap(),
		now:         time.Now,
	}
}

// WithRefresh makes the model reload the window list whenever ch delivers.
func (m Model) WithRefresh(ch <-chan struct{}) Model {
	m.refreshCh = ch
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadWindows, m.watchForChanges}
	if every := m.cfg.TUI.RefreshEvery.Duration(); every > 0 {
		cmds = append(cmds, tick(every))
	}
	return tea.Batch(cmds...)
}

type windowsMsg struct {
	windows []dbus.WindowInfo
	err     error
}

// loadWindows fetches the window list from the panel.
func (m Model) loadWindows() tea.Msg {
	if m.client == nil {
		return windowsMsg{err: fmt.Errorf("not connected")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	windows, err := m.client.ListWindows(ctx)
	return windowsMsg{windows: windows, err: err}
}

type refreshMsg struct{}

// watchForChanges waits for the next change notification.
func (m Model) watchForChanges() tea.Msg {
	if m.refreshCh == nil {
		return nil
	}
	if _, ok := <-m.refreshCh; !ok {
		return nil
	}
	return refreshMsg{}
}

type tickMsg struct{}

func tick(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(time.Time) tea.Msg { return tickMsg{} })
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type actionResultMsg struct {
	action string
	err    error
}

type copyResultMsg struct {
	err error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		m.help.Width = msg.Width

		return m, nil

	case windowsMsg:
		if msg.err != nil {
			return m, status("Failed to list windows: "+msg.err.Error(), true)
		}
		m.windows = msg.windows
		m.list.SetItems(m.buildListItems())
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.loadWindows, m.watchForChanges)

	case tickMsg:
		return m, tea.Batch(m.loadWindows, tick(m.cfg.TUI.RefreshEvery.Duration()))

	case actionResultMsg:
		if msg.err != nil {
			return m, status(msg.action+" failed: "+msg.err.Error(), true)
		}
		return m, tea.Batch(status(msg.action+" sent", false), m.loadWindows)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	// Update child components
	switch m.mode {
	case ModeList:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	case ModeDetail:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	case ModeSearch:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys. Typing in the search box must not quit or open help.
	if m.mode != ModeSearch {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			if m.mode == ModeHelp {
				m.mode = ModeList
			} else {
				m.mode = ModeHelp
			}
			return m, nil
		}
	} else if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeList:
		return m.handleListKey(msg)
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}

	return m, nil
}

func (m Model) selectedWindow() (dbus.WindowInfo, bool) {
	item, ok := m.list.SelectedItem().(windowItem)
	if !ok {
		return dbus.WindowInfo{}, false
	}
	return item.window, true
}

// handleWindowKey runs the window actions shared by list and detail mode.
func (m Model) handleWindowKey(msg tea.KeyMsg, w dbus.WindowInfo) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Activate):
		return m.act("Activate", w.ID, m.client.Activate), true
	case key.Matches(msg, m.keys.Toggle):
		return m.act("Toggle", w.ID, m.client.Toggle), true
	case key.Matches(msg, m.keys.Minimize):
		return m.act("Minimize", w.ID, m.client.Minimize), true
	case key.Matches(msg, m.keys.Close):
		return m.act("Close", w.ID, m.client.CloseWindow), true
	case key.Matches(msg, m.keys.CopyAppID):
		return m.copyToClipboard(w.AppID), true
	case key.Matches(msg, m.keys.CopyID):
		return m.copyToClipboard(w.ID), true
	}
	return nil, false
}

// handleListKey handles keys in list mode.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if w, ok := m.selectedWindow(); ok && m.client != nil {
		if cmd, handled := m.handleWindowKey(msg, w); handled {
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Details):
		if w, ok := m.selectedWindow(); ok {
			m.selected = &w
			m.mode = ModeDetail
			m.viewport.SetContent(m.renderDetail(w))
			m.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyAllJSON):
		data, err := json.MarshalIndent(m.visibleWindows(), "", "  ")
		if err != nil {
			return m, status("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.CopyAllYAML):
		data, err := yaml.Marshal(m.visibleWindows())
		if err != nil {
			return m, status("Failed to marshal YAML: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.Search):
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.list.SetItems(m.buildListItems())
		m.mode = ModeSearch
		m.searchInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadWindows
	}

	// Pass to list
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleDetailKey handles keys in detail mode.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.mode = ModeList
		m.selected = nil
		return m, nil
	}

	if m.selected != nil && m.client != nil {
		if cmd, handled := m.handleWindowKey(msg, *m.selected); handled {
			return m, cmd
		}
	}

	// Pass to viewport
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleSearchKey handles keys in search mode.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		// Esc exits search mode and clears search
		m.mode = ModeList
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.searchQuery = ""
		m.list.SetItems(m.buildListItems())
		return m, nil

	case tea.KeyEnter:
		// Enter keeps the filter and returns to the list
		m.mode = ModeList
		m.searchInput.Blur()
		return m, nil

	case tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)

	// Live filtering
	m.searchQuery = m.searchInput.Value()
	m.list.SetItems(m.buildListItems())

	return m, cmd
}

// act sends a window action to the panel.
func (m Model) act(name, id string, fn func(context.Context, string) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return actionResultMsg{action: name, err: fn(ctx, id)}
	}
}

// visibleWindows returns the windows that pass the current search.
func (m Model) visibleWindows() []dbus.WindowInfo {
	out := make([]dbus.WindowInfo, 0, len(m.windows))
	for _, w := range m.windows {
		if matchWindow(w, m.searchQuery) {
			out = append(out, w)
		}
	}
	return out
}

// buildListItems creates list items from the current windows.
func (m Model) buildListItems() []list.Item {
	now := m.now()
	windows := m.visibleWindows()
	items := make([]list.Item, len(windows))
	for i, w := range windows {
		items[i] = windowItem{window: w, now: now}
	}
	return items
}

// renderDetail renders the detail view for a window.
func (m Model) renderDetail(w dbus.WindowInfo) string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	sb.WriteString(headerStyle.Render(windowItem{window: w}.Title()) + "\n\n")

	sb.WriteString(labelStyle.Render("App: ") + w.AppID + "\n")
	sb.WriteString(labelStyle.Render("ID: ") + w.ID + "\n")
	states := "none"
	if len(w.States) > 0 {
		states = strings.Join(w.States, ", ")
	}
	sb.WriteString(labelStyle.Render("States: ") + states + "\n")
	if w.FirstSeen > 0 {
		seen := firstSeen(w)
		sb.WriteString(labelStyle.Render("First seen: ") +
			seen.Format(time.DateTime) + " (" + humanize.RelTime(seen, m.now(), "ago", "from now") + ")\n")
	}

	return sb.String()
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, m.cfg.TUI.ClipboardCommand)}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeDetail:
		return m.viewDetail()
	case ModeSearch:
		return m.viewSearch()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

func (m Model) viewList() string {
	s := m.list.View()

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += "\n" + statusStyle.Render(m.statusMsg)
	} else if m.cfg.TUI.ShowHelp {
		s += "\n" + m.buildKeybindBar(m.width, ModeList)
	}

	return s
}

func (m Model) viewDetail() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)

	header := headerStyle.Render("Window Detail")

	s := header + "\n" + m.viewport.View()
	if m.cfg.TUI.ShowHelp {
		s += "\n" + m.buildKeybindBar(m.width, ModeDetail)
	}
	return s
}

func (m Model) viewSearch() string {
	countStr := fmt.Sprintf("(%d matches)", len(m.list.Items()))

	searchBar := "Search: " + m.searchInput.View() + " " +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(countStr)

	return searchBar + "\n" + m.list.View() + "\n" + m.buildKeybindBar(m.width, ModeSearch)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.FullHelpView(m.keys.FullHelp()) + "\n\n"
	s += lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Search accepts app=, title=, state= and id= with =, != or ~, comma separated.\n" +
			"Anything else is matched fuzzily against app id and title.\n\n" +
			"Press ? or esc to return")

	return s
}

// keybind is one entry of the status bar.
type keybind struct {
	key  string
	desc string
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// Binds are listed most important first.
func (m Model) buildKeybindBar(width int, mode Mode) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case ModeList:
		binds = []keybind{
			{"q", "quit"},
			{"enter", "activate"},
			{"?", "help"},
			{"/", "search"},
			{"t", "toggle"},
			{"m", "minimize"},
			{"x", "close"},
			{"i", "details"},
			{"c", "copy app id"},
			{"r", "refresh"},
		}
	case ModeDetail:
		binds = []keybind{
			{"q", "quit"},
			{"esc", "back"},
			{"enter", "activate"},
			{"t", "toggle"},
			{"m", "minimize"},
			{"x", "close"},
		}
	case ModeSearch:
		binds = []keybind{
			{"enter", "apply"},
			{"esc", "clear"},
			{"↑/↓", "navigate"},
		}
	}

	// Add keybinds until we run out of space
	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		testLen := lipgloss.Width(b.key + " " + b.desc)
		if result != "" {
			testLen += lipgloss.Width(result) + len(separator)
		}

		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return style.Render(result)
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config *config.Config
	Client *dbus.Client
	// Watch reloads the list on WindowsChanged signals.
	Watch bool
}

// Run starts the TUI with the given options.
func Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(opts.Config, opts.Client)
	if opts.Watch {
		ch, err := opts.Client.Watch(ctx)
		if err != nil {
			return fmt.Errorf("failed to watch for window changes: %w", err)
		}
		m = m.WithRefresh(ch)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
