package shortcut

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Action is a tab-strip operation resolved from a key event.
type Action int

const (
	ActionNone Action = iota
	ActionNewTab
	ActionCloseTab
	ActionJumpHome
	ActionNextTab
	ActionPrevTab
	ActionMoveLeft
	ActionMoveRight
)

// KeyMap defines the tab-strip key bindings. The combinations shadow the
// terminal's usual meanings the same way the web strip repurposes the
// browser's ctrl+t / ctrl+w.
type KeyMap struct {
	NewTab    key.Binding
	CloseTab  key.Binding
	JumpHome  key.Binding
	NextTab   key.Binding
	PrevTab   key.Binding
	MoveLeft  key.Binding
	MoveRight key.Binding
}

// DefaultKeyMap is the built-in binding set.
var DefaultKeyMap = KeyMap{
	NewTab: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "new tab"),
	),
	CloseTab: key.NewBinding(
		key.WithKeys("ctrl+w"),
		key.WithHelp("C-w", "close tab"),
	),
	JumpHome: key.NewBinding(
		key.WithKeys("ctrl+home", "ctrl+g"),
		key.WithHelp("C-g", "home"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("ctrl+right", "ctrl+n"),
		key.WithHelp("C-→", "next tab"),
	),
	PrevTab: key.NewBinding(
		key.WithKeys("ctrl+left", "ctrl+p"),
		key.WithHelp("C-←", "prev tab"),
	),
	MoveLeft: key.NewBinding(
		key.WithKeys("ctrl+shift+left", "alt+left"),
		key.WithHelp("M-←", "move tab left"),
	),
	MoveRight: key.NewBinding(
		key.WithKeys("ctrl+shift+right", "alt+right"),
		key.WithHelp("M-→", "move tab right"),
	),
}

// Dispatcher resolves global key events into tab-strip actions.
type Dispatcher struct {
	Keys KeyMap
}

// NewDispatcher returns a dispatcher with the default bindings.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{Keys: DefaultKeyMap}
}

// Resolve maps a key event to an action. While typing is true (focus is in
// a text-entry control) every event resolves to ActionNone so normal
// editing keys are never hijacked.
func (d *Dispatcher) Resolve(msg tea.KeyMsg, typing bool) Action {
	if typing {
		return ActionNone
	}
	switch {
	case key.Matches(msg, d.Keys.NewTab):
		return ActionNewTab
	case key.Matches(msg, d.Keys.CloseTab):
		return ActionCloseTab
	case key.Matches(msg, d.Keys.JumpHome):
		return ActionJumpHome
	case key.Matches(msg, d.Keys.NextTab):
		return ActionNextTab
	case key.Matches(msg, d.Keys.PrevTab):
		return ActionPrevTab
	case key.Matches(msg, d.Keys.MoveLeft):
		return ActionMoveLeft
	case key.Matches(msg, d.Keys.MoveRight):
		return ActionMoveRight
	}
	return ActionNone
}

// Help returns the bindings in display order for the bottom bar.
func (d *Dispatcher) Help() []key.Binding {
	return []key.Binding{
		d.Keys.NewTab, d.Keys.CloseTab, d.Keys.JumpHome,
		d.Keys.NextTab, d.Keys.PrevTab,
		d.Keys.MoveLeft, d.Keys.MoveRight,
	}
}
