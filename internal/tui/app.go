package tui

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fennel-tools/tabdeck/internal/bridge"
	"github.com/fennel-tools/tabdeck/internal/navsync"
	"github.com/fennel-tools/tabdeck/internal/shortcut"
	"github.com/fennel-tools/tabdeck/internal/tabstore"
	"github.com/fennel-tools/tabdeck/internal/titles"
)

// SourceMode distinguishes the standalone simulator from live mode.
type SourceMode int

const (
	ModeStandalone SourceMode = iota
	ModeLive
)

// Messages from the bridge listener goroutine.
type wsIncomingMsg struct{ msg bridge.IncomingMsg }
type wsDisconnectedMsg struct{}

// titleResolvedMsg carries an asynchronously fetched page title.
type titleResolvedMsg struct {
	tabID string
	url   string
	title string
	err   error
}

var cmdCounter atomic.Int64

func nextCmdID() string {
	return fmt.Sprintf("cmd-%d", cmdCounter.Add(1))
}

// localRouter is the routing collaborator in standalone mode. NavigateTo
// synchronously echoes the location change back into the synchronizer, the
// worst case for re-entrancy: the guard must already be armed when the
// echo arrives.
type localRouter struct {
	sync *navsync.Synchronizer
}

func (r *localRouter) NavigateTo(path string) {
	if r.sync != nil {
		r.sync.HandleLocation(path)
	}
}

// bridgeRouter is the routing collaborator in live mode: NavigateTo sends
// a navigate command over the bridge; the front-end reports the resulting
// location.changed on its own time.
type bridgeRouter struct {
	srv *bridge.Server
}

func (r *bridgeRouter) NavigateTo(path string) {
	if err := r.srv.Send(bridge.OutgoingMsg{ID: nextCmdID(), Action: "navigate", Path: path}); err != nil {
		// Degraded bridge: the store already reflects the intent, the
		// front-end catches up on reconnect.
	}
}

// Model is the root bubbletea model: the tab strip, an address display,
// the page pane, and the open prompt. All tab mutations flow through the
// synchronizer on the Update goroutine.
type Model struct {
	sync     *navsync.Synchronizer
	dispatch *shortcut.Dispatcher
	resolver *titles.Resolver

	mode      SourceMode
	server    *bridge.Server
	connected bool

	workspace string
	input     textinput.Model
	typing    bool
	resolving map[string]bool // tab id -> title fetch in flight

	width  int
	height int
	err    error
}

// NewModel builds the root model. srv and resolver may be nil (standalone
// mode without a reachable console).
func NewModel(sync *navsync.Synchronizer, workspace string, mode SourceMode, srv *bridge.Server, resolver *titles.Resolver) Model {
	ti := textinput.New()
	ti.Placeholder = "/tickets/42"
	ti.Prompt = "open: "
	ti.CharLimit = 200

	return Model{
		sync:      sync,
		dispatch:  shortcut.NewDispatcher(),
		resolver:  resolver,
		mode:      mode,
		server:    srv,
		workspace: workspace,
		input:     ti,
		resolving: make(map[string]bool),
	}
}

// AttachRouter wires the standalone router back to the synchronizer.
// Construction order requires the router to exist before the synchronizer;
// the TUI closes the loop.
func AttachRouter(r *localRouter, sync *navsync.Synchronizer) {
	r.sync = sync
}

// NewLocalRouter returns the standalone routing collaborator.
func NewLocalRouter() *localRouter {
	return &localRouter{}
}

// NewBridgeRouter returns the live-mode routing collaborator.
func NewBridgeRouter(srv *bridge.Server) navsync.Navigator {
	return &bridgeRouter{srv: srv}
}

func (m Model) Init() tea.Cmd {
	if m.mode == ModeLive {
		return tea.Batch(
			listenBridge(m.server),
			startBridge(m.server),
		)
	}
	return nil
}

func startBridge(srv *bridge.Server) tea.Cmd {
	return func() tea.Msg {
		srv.ListenAndServe(context.Background())
		return wsDisconnectedMsg{}
	}
}

func listenBridge(srv *bridge.Server) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-srv.Messages()
		if !ok {
			return wsDisconnectedMsg{}
		}
		return wsIncomingMsg{msg: msg}
	}
}

func resolveTitle(resolver *titles.Resolver, tabID, url string) tea.Cmd {
	return func() tea.Msg {
		title, err := resolver.Resolve(url)
		return titleResolvedMsg{tabID: tabID, url: url, title: title, err: err}
	}
}

// pushSession mirrors the current tab state to the connected front-end.
func (m *Model) pushSession() {
	if m.server == nil {
		return
	}
	m.server.Send(bridge.OutgoingMsg{
		Action:  "session",
		Session: m.sync.Store().Session(),
	})
}

// afterMutation runs the common tail of every tab-strip mutation: mirror
// the state over the bridge and, when the active tab still carries a
// generic classifier title, start a title fetch for it.
func (m *Model) afterMutation() tea.Cmd {
	m.pushSession()

	if m.resolver == nil {
		return nil
	}
	tab := m.sync.Store().ActiveTab()
	if tab == nil || m.resolving[tab.ID] || titles.Skippable(tab.URL) {
		return nil
	}
	m.resolving[tab.ID] = true
	return resolveTitle(m.resolver, tab.ID, tab.URL)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 10
		return m, nil

	case tea.KeyMsg:
		// The open prompt owns the keyboard while active; shortcuts are
		// suppressed so typing "t" does not spawn tabs.
		if m.typing {
			switch msg.String() {
			case "esc":
				m.typing = false
				m.input.Blur()
				m.input.SetValue("")
				return m, nil
			case "enter":
				url := m.input.Value()
				m.typing = false
				m.input.Blur()
				m.input.SetValue("")
				if url != "" {
					m.sync.OpenTab(url, "")
					return m, m.afterMutation()
				}
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch m.dispatch.Resolve(msg, m.typing) {
		case shortcut.ActionNewTab:
			m.sync.NewTab()
			return m, m.afterMutation()
		case shortcut.ActionCloseTab:
			m.sync.CloseActive()
			return m, m.afterMutation()
		case shortcut.ActionJumpHome:
			m.sync.JumpHome()
			return m, m.afterMutation()
		case shortcut.ActionNextTab:
			m.sync.ActivateOffset(1)
			return m, m.afterMutation()
		case shortcut.ActionPrevTab:
			m.sync.ActivateOffset(-1)
			return m, m.afterMutation()
		case shortcut.ActionMoveLeft:
			m.sync.MoveActive(-1)
			m.pushSession()
			return m, nil
		case shortcut.ActionMoveRight:
			m.sync.MoveActive(1)
			m.pushSession()
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "o", "/":
			m.typing = true
			m.input.Focus()
			return m, textinput.Blink
		case "left", "h":
			m.sync.ActivateOffset(-1)
			return m, m.afterMutation()
		case "right", "l":
			m.sync.ActivateOffset(1)
			return m, m.afterMutation()
		case "x":
			m.sync.CloseActive()
			return m, m.afterMutation()
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			n := int(msg.String()[0] - '1')
			tabs := m.sync.Store().Tabs()
			if n < len(tabs) {
				m.sync.ActivateTab(tabs[n].ID)
				return m, m.afterMutation()
			}
		}
		return m, nil

	case wsIncomingMsg:
		cmd := m.handleBridge(msg.msg)
		return m, tea.Batch(cmd, listenBridge(m.server))

	case wsDisconnectedMsg:
		m.connected = false
		if m.mode == ModeLive && m.server != nil {
			return m, listenBridge(m.server)
		}
		return m, nil

	case titleResolvedMsg:
		delete(m.resolving, msg.tabID)
		if msg.err != nil {
			// Keep the classifier's title; a failed fetch is not an error
			// worth surfacing.
			return m, nil
		}
		m.sync.Store().Update(msg.tabID, patchTitle(msg.title))
		m.pushSession()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleBridge(in bridge.IncomingMsg) tea.Cmd {
	m.connected = true
	switch in.Type {
	case "location.changed":
		m.sync.HandleLocation(in.Path)
		return m.afterMutation()
	case "title.changed":
		if t := m.sync.Store().FindByURL(in.Path); t != nil {
			m.sync.Store().Update(t.ID, patchTitle(in.Title))
			m.pushSession()
		}
	case "session.request":
		m.pushSession()
	}
	return nil
}

func (m Model) View() string {
	connected := &m.connected
	if m.mode != ModeLive {
		connected = nil
	}

	store := m.sync.Store()
	strip := renderStrip(store.Tabs(), store.ActiveTabID(), connected, m.width)

	addressStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	address := ""
	if tab := store.ActiveTab(); tab != nil {
		address = addressStyle.Render(tab.URL)
	}

	pageHeight := m.height - 4 // strip + address + bottom bar
	if pageHeight < 1 {
		pageHeight = 1
	}
	page := renderPage(store.ActiveTab(), m.width, pageHeight)

	bottomStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	var bottom string
	if m.typing {
		bottom = m.input.View()
	} else {
		bottom = bottomStyle.Render(
			"←→/hl switch · 1-9 jump · o open · x/C-w close · C-t new · C-g home · M-←→ move · q quit")
	}

	return lipgloss.JoinVertical(lipgloss.Left, strip, address, page, bottom)
}

func patchTitle(title string) tabstore.Patch {
	return tabstore.Patch{Title: &title}
}
