package console

import "github.com/charmbracelet/bubbles/key"

// keyMap is the operator key set. It satisfies help.KeyMap.
type keyMap struct {
	Toggle  key.Binding
	Run     key.Binding
	Respond key.Binding
	Abort   key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "go/no-go"),
		),
		Run: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run trial"),
		),
		Respond: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "respond"),
		),
		Abort: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "abort"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Run, k.Respond, k.Abort, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Run},
		{k.Respond, k.Abort, k.Quit},
	}
}
