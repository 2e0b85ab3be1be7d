package editor

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the editor's keyboard layout in browse mode. Text inputs take
// every key except Save and Cancel while they are focused.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	NextField   key.Binding
	PrevField   key.Binding
	Edit        key.Binding
	Undo        key.Binding
	Redo        key.Binding
	Generate    key.Binding
	Image       key.Binding
	Comments    key.Binding
	Versions    key.Binding
	PanelUp     key.Binding
	PanelDown   key.Binding
	Add         key.Binding
	EditComment key.Binding
	Resolve     key.Binding
	Delete      key.Binding
	Restore     key.Binding
	Snapshot    key.Binding
	Share       key.Binding
	Export      key.Binding
	Save        key.Binding
	Cancel      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous slide"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next slide"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter", "e"),
			key.WithHelp("enter", "edit field"),
		),
		Undo: key.NewBinding(
			key.WithKeys("ctrl+z", "u"),
			key.WithHelp("u", "undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("ctrl+y", "U"),
			key.WithHelp("U", "redo"),
		),
		Generate: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "generate field"),
		),
		Image: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "generate image"),
		),
		Comments: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "comments"),
		),
		Versions: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "versions"),
		),
		PanelUp: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "panel up"),
		),
		PanelDown: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "panel down"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add comment"),
		),
		EditComment: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "edit comment"),
		),
		Resolve: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "resolve"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete comment"),
		),
		Restore: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "restore version"),
		),
		Snapshot: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save version"),
		),
		Share: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "share"),
		),
		Export: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "export pdf"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
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
	return []key.Binding{k.Down, k.NextField, k.Edit, k.Undo, k.Generate, k.Comments, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextField, k.PrevField, k.Edit, k.Save, k.Cancel},
		{k.Undo, k.Redo, k.Generate, k.Image, k.Snapshot, k.Share, k.Export},
		{k.Comments, k.Versions, k.PanelUp, k.PanelDown, k.Add, k.EditComment, k.Resolve, k.Delete, k.Restore},
		{k.Help, k.Quit},
	}
}
