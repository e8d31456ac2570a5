// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// DashboardKeyMap holds the dashboard bindings. It implements help.KeyMap.
type DashboardKeyMap struct {
	Toggle key.Binding
	Flush  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// Dashboard is the keymap used by `tokenwatt watch --tui`.
var Dashboard = DashboardKeyMap{
	Toggle: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "toggle logging"),
	),
	Flush: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "flush"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k DashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Flush, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k DashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Flush},
		{k.Help, k.Quit},
	}
}
