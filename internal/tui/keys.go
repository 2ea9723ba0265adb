package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Refresh     key.Binding
	Theme       key.Binding
	Menu        key.Binding
	Help        key.Binding
	CacheInfo   key.Binding
	AutoRefresh key.Binding
	Reconfigure key.Binding
	Details     key.Binding
	Up          key.Binding
	Down        key.Binding
	Select      key.Binding
	Close       key.Binding
	Quit        key.Binding
	ForceQuit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh now")),
		Theme:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "choose theme")),
		Menu:        key.NewBinding(key.WithKeys("/", ":"), key.WithHelp("/ :", "command menu")),
		Help:        key.NewBinding(key.WithKeys("h", "?"), key.WithHelp("h ?", "this help")),
		CacheInfo:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cache info")),
		AutoRefresh: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "toggle auto refresh")),
		Reconfigure: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "reconfigure token")),
		Details:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "error details")),
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k ↑", "scroll up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j ↓", "scroll down")),
		Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Close:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close dialog")),
		Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func (k keyMap) helpBindings() []key.Binding {
	return []key.Binding{
		k.Refresh, k.AutoRefresh, k.Theme, k.Menu, k.CacheInfo,
		k.Reconfigure, k.Details, k.Up, k.Down, k.Help, k.Close, k.Quit,
	}
}
