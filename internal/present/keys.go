package present

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the presentation mode keyboard layout.
type KeyMap struct {
	Next       key.Binding
	Previous   key.Binding
	First      key.Binding
	Last       key.Binding
	Up         key.Binding
	Down       key.Binding
	Select     key.Binding
	Escape     key.Binding
	Notes      key.Binding
	Grid       key.Binding
	Fullscreen key.Binding
	Retry      key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("right", " ", "l"),
			key.WithHelp("→/space", "next"),
		),
		Previous: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "previous"),
		),
		First: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "first"),
		),
		Last: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "last"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "row up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "row down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open slide"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close grid / exit"),
		),
		Notes: key.NewBinding(
			key.WithKeys("n", "N"),
			key.WithHelp("n", "notes"),
		),
		Grid: key.NewBinding(
			key.WithKeys("g", "G"),
			key.WithHelp("g", "grid"),
		),
		Fullscreen: key.NewBinding(
			key.WithKeys("f", "F"),
			key.WithHelp("f", "fullscreen"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Previous, k.Notes, k.Grid, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Previous, k.First, k.Last},
		{k.Grid, k.Up, k.Down, k.Select},
		{k.Notes, k.Fullscreen, k.Escape},
		{k.Retry, k.Help, k.Quit},
	}
}
