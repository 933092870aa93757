package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	tab     key.Binding
	quit    key.Binding
	toggle  key.Binding
	next    key.Binding
	prev    key.Binding
	rewind  key.Binding
	forward key.Binding
	louder  key.Binding
	quieter key.Binding
	mute    key.Binding
	hide    key.Binding
	expand  key.Binding
	viz     key.Binding
	edit    key.Binding
	create  key.Binding
	add     key.Binding
	remove  key.Binding
	raise   key.Binding
	lower   key.Binding
	rename  key.Binding
	save    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggle:  key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "play/pause")),
		next:    key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "next")),
		prev:    key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "previous")),
		rewind:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "-10s")),
		forward: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "+10s")),
		louder:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		quieter: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		mute:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
		hide:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close player")),
		expand:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "full player")),
		viz:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "visualizer")),
		edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		create:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new playlist")),
		add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to editor")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		raise:   key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move up")),
		lower:   key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move down")),
		rename:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "rename")),
		save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.next, k.prev, k.tab, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back, k.tab},
		{k.toggle, k.next, k.prev, k.rewind, k.forward},
		{k.louder, k.quieter, k.mute, k.hide, k.expand, k.viz},
		{k.edit, k.create, k.add, k.remove, k.raise, k.lower, k.rename, k.save},
		{k.quit},
	}
}
