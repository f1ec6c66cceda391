package tui

import (
	"time"

	"burnpace/internal/service"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenWeek
	ScreenWeekday
	ScreenSync
	ScreenHelp
)

// Services bundles what the screens read from. Warm and Sync may be nil.
type Services struct {
	Refresher Refresher
	Query     *service.QueryService
	Warm      *service.WarmService
	Sync      *service.SyncService
}

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	dashboard  DashboardModel
	week       WeekModel
	weekday    WeekdayDetailModel
	syncScreen SyncModel
	help       HelpModel

	services Services
	units    Units
	now      func() time.Time

	width  int
	height int

	status string
}

// NewApp creates a new App with all dependencies
func NewApp(services Services, units Units, now func() time.Time) *App {
	return &App{
		screen:     ScreenDashboard,
		services:   services,
		units:      units,
		now:        now,
		dashboard:  NewDashboardModel(services.Refresher, units, now),
		week:       NewWeekModel(services.Query, services.Warm, units, now),
		syncScreen: NewSyncModel(services.Sync, now),
		help:       NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.dashboard.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings (unless in sync mode)
		if a.screen != ScreenSync || !a.syncScreen.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				return a, nil
			case "2":
				a.screen = ScreenWeek
				a.week = NewWeekModel(a.services.Query, a.services.Warm, a.units, a.now)
				return a, a.week.Init()
			case "3", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
				// Let 's' fall through to sync screen when already there
			case "?":
				a.prevScreen = a.screen
				a.screen = ScreenHelp
				return a, nil
			case "esc":
				switch a.screen {
				case ScreenHelp:
					a.screen = a.prevScreen
					return a, nil
				case ScreenWeekday:
					a.screen = ScreenWeek
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.dashboard = a.updateDashboard(msg)
		if a.screen == ScreenWeekday {
			m, _ := a.weekday.Update(msg)
			a.weekday = m.(WeekdayDetailModel)
		}
		return a, nil

	case openWeekdayMsg:
		a.screen = ScreenWeekday
		a.weekday = NewWeekdayDetailModel(a.services.Query, a.units, a.now, msg.weekday, a.width, a.height)
		return a, a.weekday.Init()

	case SyncCompleteMsg:
		// New samples change today's numbers
		a.status = "Sync finished at " + a.now().Format("15:04")
		return a, func() tea.Msg { return refreshNowMsg{} }

	// Dashboard traffic keeps flowing while another screen is shown
	case summaryMsg, autoRefreshMsg, refreshNowMsg, spinner.TickMsg:
		m, cmd := a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
		return a, cmd
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenWeek:
		var m tea.Model
		m, cmd = a.week.Update(msg)
		a.week = m.(WeekModel)
	case ScreenWeekday:
		var m tea.Model
		m, cmd = a.weekday.Update(msg)
		a.weekday = m.(WeekdayDetailModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

func (a *App) updateDashboard(msg tea.Msg) DashboardModel {
	m, _ := a.dashboard.Update(msg)
	return m.(DashboardModel)
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenWeek:
		content = a.week.View()
	case ScreenWeekday:
		content = a.weekday.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("burnpace  " + a.now().Format("Monday, January 2"))
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Week", ScreenWeek},
		{"3", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		active := a.screen == item.screen || (item.screen == ScreenWeek && a.screen == ScreenWeekday)
		if active {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}

// SyncCompleteMsg is sent when sync finishes
type SyncCompleteMsg struct{}
