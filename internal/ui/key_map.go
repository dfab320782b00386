package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	grab   key.Binding
	bowl   key.Binding
	swap   key.Binding
	cancel key.Binding
	add    key.Binding
	done   key.Binding
	help   key.Binding
	hide   key.Binding
	submit key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		grab:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pick up/drop")),
		bowl:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "drop in bowl")),
		swap:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "swap into bowl")),
		cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add stone")),
		done:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "done")),
		help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "how to")),
		hide:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "don't show again")),
		submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.grab, k.bowl},
		{k.swap, k.add, k.done, k.cancel},
		{k.help, k.quit},
	}
}
