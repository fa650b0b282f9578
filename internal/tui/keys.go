package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Switch  key.Binding
	Next    key.Binding
	Edit    key.Binding
	Accept  key.Binding
	Quit    key.Binding
	Help    key.Binding
	Cancel  key.Binding
	Confirm key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Switch, k.Edit, k.Accept, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Toggle, k.Switch, k.Next, k.Edit},
		{k.Accept, k.Quit, k.Help},
	}
}

func defaultKeys() keyMap {
	return keyMap{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:  key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle category")),
		Switch:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "new/existing")),
		Next:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next existing")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit code")),
		Accept:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "accept")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Cancel:  key.NewBinding(key.WithKeys("esc")),
		Confirm: key.NewBinding(key.WithKeys("enter")),
	}
}
