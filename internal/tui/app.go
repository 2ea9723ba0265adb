// Package tui provides the interactive Bubble Tea dashboard.
package tui

import (
	"time"

	"github.com/theirongolddev/copilot-usage/internal/refresh"
	"github.com/theirongolddev/copilot-usage/internal/tui/theme"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// tickInterval paces the render loop: each tick polls the coordinator once
// and advances the spinner.
const tickInterval = 50 * time.Millisecond

// Action tells the caller what to do after the program exits.
type Action int

const (
	ActionQuit Action = iota
	ActionReconfigure
)

// Settings are the user preferences the dashboard can pick up while running.
type Settings struct {
	Theme       string
	TTL         time.Duration
	AutoRefresh bool
}

// Options wires an App. Coordinator must already be started.
type Options struct {
	Coordinator  *refresh.Coordinator
	Themes       []theme.Theme
	Theme        string
	CacheBackend string
	OveragePrice float64
	Logger       *zap.Logger

	SaveTheme       func(name string) error
	SaveAutoRefresh func(on bool) error

	// ConfigChanged fires when the config file changes on disk; LoadSettings
	// is then called to pick up the new values.
	ConfigChanged <-chan struct{}
	LoadSettings  func() (Settings, error)

	Now func() time.Time
}

// App is the root Bubble Tea model.
type App struct {
	coord *refresh.Coordinator
	opts  Options
	log   *zap.Logger
	keys  keyMap

	themes   []theme.Theme
	themeIdx int

	// UI state
	width       int
	height      int
	now         time.Time
	frame       int
	modal       Modal
	themeCursor int
	menuCursor  int
	tableOffset int
	showDetail  bool

	state  refresh.State
	action Action
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// NewApp creates the dashboard model.
func NewApp(opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	themes := opts.Themes
	if len(themes) == 0 {
		themes = theme.Builtin
	}
	idx := theme.Index(themes, theme.Find(themes, opts.Theme).Name)

	return App{
		coord:    opts.Coordinator,
		opts:     opts,
		log:      opts.Logger,
		keys:     defaultKeyMap(),
		themes:   themes,
		themeIdx: idx,
		now:      opts.Now(),
		state:    opts.Coordinator.State(),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tickCmd()
}

// Action reports why the program ended.
func (a App) Action() Action { return a.action }

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tickMsg:
		a.now = a.opts.Now()
		a.coord.Tick()
		a.reloadSettings()
		a.state = a.coord.State()
		a.frame++
		return a, tickCmd()

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.ForceQuit) {
			return a.quit(ActionQuit)
		}
		if a.modal != ModalNone {
			return a.updateModal(msg)
		}
		return a.updateMain(msg)
	}
	return a, nil
}

func (a App) quit(action Action) (tea.Model, tea.Cmd) {
	a.action = action
	return a, tea.Quit
}

func (a App) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a.quit(ActionQuit)
	case key.Matches(msg, a.keys.Refresh):
		a.coord.Refresh(refresh.TriggerManual)
		a.state = a.coord.State()
	case key.Matches(msg, a.keys.Theme):
		a.modal = ModalThemePicker
		a.themeCursor = a.themeIdx
	case key.Matches(msg, a.keys.Menu):
		a.modal = ModalCommandMenu
		a.menuCursor = 0
	case key.Matches(msg, a.keys.Help):
		a.modal = ModalHelp
	case key.Matches(msg, a.keys.CacheInfo):
		a.modal = ModalCacheInfo
	case key.Matches(msg, a.keys.AutoRefresh):
		a.toggleAutoRefresh()
	case key.Matches(msg, a.keys.Reconfigure):
		return a.quit(ActionReconfigure)
	case key.Matches(msg, a.keys.Details):
		a.showDetail = !a.showDetail
	case key.Matches(msg, a.keys.Close):
		a.showDetail = false
	case key.Matches(msg, a.keys.Down):
		a.scrollTable(1)
	case key.Matches(msg, a.keys.Up):
		a.scrollTable(-1)
	}
	return a, nil
}

func (a App) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.modal {
	case ModalHelp, ModalCacheInfo:
		a.modal = ModalNone

	case ModalThemePicker:
		switch {
		case key.Matches(msg, a.keys.Down):
			a.themeCursor = (a.themeCursor + 1) % len(a.themes)
		case key.Matches(msg, a.keys.Up):
			a.themeCursor = (a.themeCursor - 1 + len(a.themes)) % len(a.themes)
		case key.Matches(msg, a.keys.Select):
			a.themeIdx = a.themeCursor
			a.modal = ModalNone
			a.persistTheme()
		case key.Matches(msg, a.keys.Close, a.keys.Quit):
			a.modal = ModalNone
		}

	case ModalCommandMenu:
		switch {
		case key.Matches(msg, a.keys.Down):
			a.menuCursor = (a.menuCursor + 1) % len(commandMenu)
		case key.Matches(msg, a.keys.Up):
			a.menuCursor = (a.menuCursor - 1 + len(commandMenu)) % len(commandMenu)
		case key.Matches(msg, a.keys.Select):
			a.modal = ModalNone
			return a.run(commandMenu[a.menuCursor].cmd)
		case key.Matches(msg, a.keys.Close, a.keys.Quit):
			a.modal = ModalNone
		}
	}
	return a, nil
}

func (a App) run(c command) (tea.Model, tea.Cmd) {
	switch c {
	case cmdRefresh:
		a.coord.Refresh(refresh.TriggerManual)
		a.state = a.coord.State()
	case cmdTheme:
		a.modal = ModalThemePicker
		a.themeCursor = a.themeIdx
	case cmdAutoRefresh:
		a.toggleAutoRefresh()
	case cmdCacheInfo:
		a.modal = ModalCacheInfo
	case cmdReconfigure:
		return a.quit(ActionReconfigure)
	case cmdHelp:
		a.modal = ModalHelp
	case cmdQuit:
		return a.quit(ActionQuit)
	}
	return a, nil
}

func (a *App) toggleAutoRefresh() {
	on := !a.coord.AutoRefresh()
	a.coord.SetAutoRefresh(on)
	a.log.Info("auto refresh toggled", zap.Bool("enabled", on))
	if a.opts.SaveAutoRefresh != nil {
		if err := a.opts.SaveAutoRefresh(on); err != nil {
			a.log.Warn("saving auto refresh setting", zap.Error(err))
		}
	}
}

func (a *App) persistTheme() {
	name := a.themes[a.themeIdx].Name
	if a.opts.SaveTheme == nil {
		return
	}
	if err := a.opts.SaveTheme(name); err != nil {
		a.log.Warn("saving theme", zap.String("theme", name), zap.Error(err))
	}
}

func (a *App) scrollTable(delta int) {
	snap, ok := refresh.SnapshotOf(a.state)
	if !ok {
		return
	}
	last := max(len(snap.Breakdown)-1, 0)
	a.tableOffset = min(max(a.tableOffset+delta, 0), last)
}

// reloadSettings applies config file edits without blocking the loop.
func (a *App) reloadSettings() {
	if a.opts.ConfigChanged == nil || a.opts.LoadSettings == nil {
		return
	}
	select {
	case _, ok := <-a.opts.ConfigChanged:
		if !ok {
			a.opts.ConfigChanged = nil
			return
		}
	default:
		return
	}
	s, err := a.opts.LoadSettings()
	if err != nil {
		a.log.Warn("reloading config", zap.Error(err))
		return
	}
	if i := theme.Index(a.themes, s.Theme); a.themes[i].Name == s.Theme {
		a.themeIdx = i
	}
	if s.TTL > 0 {
		a.coord.SetTTL(s.TTL)
	}
	a.coord.SetAutoRefresh(s.AutoRefresh)
	a.log.Info("config reloaded", zap.String("theme", s.Theme), zap.Duration("ttl", s.TTL))
}

// activeTheme is the theme to draw with. While the picker is open the
// highlighted theme is previewed.
func (a App) activeTheme() theme.Theme {
	if a.modal == ModalThemePicker {
		return a.themes[a.themeCursor]
	}
	return a.themes[a.themeIdx]
}

func (a App) frameOf() Frame {
	return Frame{
		State:        a.state,
		Modal:        a.modal,
		Theme:        a.activeTheme(),
		Width:        a.width,
		Height:       a.height,
		Now:          a.now,
		SpinnerFrame: a.frame,
		Fetching:     a.coord.InFlight(),
		AutoRefresh:  a.coord.AutoRefresh(),
		TTL:          a.coord.TTL(),
		LastUpdated:  a.coord.LastUpdated(),
		CachePath:    a.coord.CachePath(),
		CacheBackend: a.opts.CacheBackend,
		OveragePrice: a.opts.OveragePrice,
		ThemeNames:   theme.Names(a.themes),
		ThemeCursor:  a.themeCursor,
		MenuCursor:   a.menuCursor,
		TableOffset:  a.tableOffset,
		ShowDetail:   a.showDetail,
		Keys:         a.keys,
	}
}

// View implements tea.Model.
func (a App) View() string {
	return Render(a.frameOf())
}
