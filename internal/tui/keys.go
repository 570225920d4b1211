package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Switch key.Binding
	Undo   key.Binding
	Redo   key.Binding
	Save   key.Binding
	Load   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Switch: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open module")),
		Undo:   key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		Redo:   key.NewBinding(key.WithKeys("r", "ctrl+y"), key.WithHelp("r", "redo")),
		Save:   key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		Load:   key.NewBinding(key.WithKeys("l", "ctrl+o"), key.WithHelp("l", "load")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Undo, k.Redo, k.Save, k.Load, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Switch}, {k.Undo, k.Redo}, {k.Save, k.Load}, {k.Quit}}
}
