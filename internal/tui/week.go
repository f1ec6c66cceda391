package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	"burnpace/internal/analysis"
	"burnpace/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const warmTimeout = 2 * time.Minute

// WeekModel is the weekday overview screen model
type WeekModel struct {
	queryService *service.QueryService
	warmService  *service.WarmService
	units        Units
	now          func() time.Time
	stats        []service.WeekdayStat
	loading      bool
	warming      bool
	warmResult   *service.WarmResult
	err          error
	cursor       int
}

// NewWeekModel creates a new week model. warm may be nil.
func NewWeekModel(qs *service.QueryService, warm *service.WarmService, units Units, now func() time.Time) WeekModel {
	return WeekModel{
		queryService: qs,
		warmService:  warm,
		units:        units,
		now:          now,
		loading:      true,
		cursor:       int(analysis.WeekdayOf(now())) - 1,
	}
}

// Init initializes the week screen
func (m WeekModel) Init() tea.Cmd {
	return m.loadWeek
}

type weekLoadedMsg struct {
	stats []service.WeekdayStat
	err   error
}

type warmDoneMsg struct {
	result *service.WarmResult
	err    error
}

// openWeekdayMsg asks the app to show one weekday in detail
type openWeekdayMsg struct {
	weekday analysis.Weekday
}

func (m WeekModel) loadWeek() tea.Msg {
	stats, err := m.queryService.GetWeekOverview(m.now())
	return weekLoadedMsg{stats: stats, err: err}
}

func (m WeekModel) warm() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
	defer cancel()

	result, err := m.warmService.WarmWeekdays(ctx, m.now())
	return warmDoneMsg{result: result, err: err}
}

// Update handles messages
func (m WeekModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case weekLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.stats = msg.stats

	case warmDoneMsg:
		m.warming = false
		m.warmResult = msg.result
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.loading = true
		return m, m.loadWeek

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadWeek
		case "w":
			if m.warmService != nil && !m.warming {
				m.warming = true
				m.err = nil
				return m, m.warm
			}
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.stats)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.stats) && !m.stats[m.cursor].Missing {
				wd := m.stats[m.cursor].Weekday
				return m, func() tea.Msg { return openWeekdayMsg{weekday: wd} }
			}
		}
	}
	return m, nil
}

// View renders the week screen
func (m WeekModel) View() string {
	if m.loading {
		return "\n  Loading weekdays..."
	}

	var sections []string
	title := cardTitleStyle.Render(fmt.Sprintf("Your usual week (%s)", m.units.EnergyLabel()))
	sections = append(sections, title)

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-10s  %9s  %5s  %-16s",
		"Weekday", "Projected", "Days", "Computed"))
	sections = append(sections, header)

	today := analysis.WeekdayOf(m.now())
	for i, s := range m.stats {
		projected, days, computed := "-", "-", "not cached"
		if !s.Missing {
			projected = m.units.FormatEnergyValue(s.ProjectedTotal)
			days = fmt.Sprintf("%d", s.DaysSampled)
			computed = humanize.RelTime(s.ComputedAt, m.now(), "ago", "from now")
		}

		name := s.Name
		if s.Weekday == today {
			name += " *"
		}

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-10s  %9s  %5s  %-16s", cursor, name, projected, days, computed)
		switch {
		case i == m.cursor:
			sections = append(sections, tableSelectedStyle.Render(row))
		case s.Missing || s.Stale:
			sections = append(sections, tableRowStyle.Foreground(mutedColor).Render(row))
		default:
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	if best, ok := busiestWeekday(m.stats); ok {
		sections = append(sections, "", mutedStyle.Render(fmt.Sprintf("  Busiest day: %s, %s", best.Name, m.units.FormatEnergy(best.ProjectedTotal))))
	}

	if m.warming {
		sections = append(sections, warningStyle.Render("\n  Recomputing every weekday..."))
	} else if m.warmResult != nil {
		line := fmt.Sprintf("\n  Recomputed %d weekdays", m.warmResult.Written)
		if n := len(m.warmResult.Errors); n > 0 {
			line += fmt.Sprintf(", %d failed", n)
		}
		sections = append(sections, successStyle.Render(line))
	}

	help := "\n  j/k: navigate  enter: details  r: reload"
	if m.warmService != nil {
		help += "  w: recompute all"
	}
	sections = append(sections, statusStyle.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// busiestWeekday returns the cached weekday with the highest projection.
func busiestWeekday(stats []service.WeekdayStat) (service.WeekdayStat, bool) {
	cached := make([]service.WeekdayStat, 0, len(stats))
	for _, s := range stats {
		if !s.Missing {
			cached = append(cached, s)
		}
	}
	if len(cached) == 0 {
		return service.WeekdayStat{}, false
	}
	sort.SliceStable(cached, func(i, j int) bool {
		return cached[i].ProjectedTotal > cached[j].ProjectedTotal
	})
	return cached[0], true
}
