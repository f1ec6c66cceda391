package tui

import (
	"fmt"
	"time"

	"burnpace/internal/analysis"
	"burnpace/internal/service"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// WeekdayDetailModel shows one weekday's cached average curve
type WeekdayDetailModel struct {
	queryService *service.QueryService
	units        Units
	now          func() time.Time
	weekday      analysis.Weekday
	stat         *service.WeekdayStat
	viewport     viewport.Model
	loading      bool
	err          error
	ready        bool
}

// NewWeekdayDetailModel creates a new weekday detail model
func NewWeekdayDetailModel(qs *service.QueryService, units Units, now func() time.Time, weekday analysis.Weekday, width, height int) WeekdayDetailModel {
	m := WeekdayDetailModel{
		queryService: qs,
		units:        units,
		now:          now,
		weekday:      weekday,
		loading:      true,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6)
		m.ready = true
	}
	return m
}

// Init initializes the weekday detail screen
func (m WeekdayDetailModel) Init() tea.Cmd {
	return m.loadDetail
}

type weekdayLoadedMsg struct {
	stat *service.WeekdayStat
	err  error
}

func (m WeekdayDetailModel) loadDetail() tea.Msg {
	stat, err := m.queryService.GetWeekday(m.weekday, m.now())
	return weekdayLoadedMsg{stat: stat, err: err}
}

// Update handles messages
func (m WeekdayDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case weekdayLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.stat = msg.stat
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.stat != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, m.loadDetail
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the weekday detail screen
func (m WeekdayDetailModel) View() string {
	if m.loading {
		return "\n  Loading " + m.weekday.String() + "..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  esc: back to week  j/k or arrows: scroll  r: reload")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m WeekdayDetailModel) renderContent() string {
	if m.stat == nil || m.stat.Missing {
		return "\n  No cached projection for " + m.weekday.String() + " yet."
	}
	s := m.stat

	var sections []string
	title := cardTitleStyle.Render("Usual " + s.Name)

	lines := []string{
		RenderMetric("Projected total", m.units.FormatEnergy(s.ProjectedTotal), ""),
		RenderMetric("Days averaged", fmt.Sprintf("%d", s.DaysSampled), ""),
		RenderMetric("Computed", s.ComputedAt.Format("Mon Jan 2 15:04"), ""),
	}
	if s.Stale {
		lines = append(lines, warningStyle.Render("Older than today, refresh to recompute"))
	}
	sections = append(sections, cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...))))

	if data := hourlyValues(s.Average); len(data) > 2 {
		chartTitle := cardTitleStyle.Render("Running total by hour (" + m.units.EnergyLabel() + ")")
		chart := asciigraph.Plot(m.units.ConvertAll(data),
			asciigraph.Height(8),
			asciigraph.Width(50),
			asciigraph.Precision(0),
		)
		sections = append(sections, cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, chartTitle, chart)))
	}

	sections = append(sections, m.renderHourTable(s.Average))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// hourlyValues returns the on-hour values of a curve, starting from zero at
// midnight.
func hourlyValues(points []service.Point) []float64 {
	out := []float64{0}
	for _, p := range service.HourPoints(points) {
		if p.IsOnHour() {
			out = append(out, p.Value)
		}
	}
	return out
}

func (m WeekdayDetailModel) renderHourTable(points []service.Point) string {
	header := tableHeaderStyle.Render(fmt.Sprintf("%-7s  %10s  %10s", "Hour", "This hour", "By then"))
	rows := []string{header}

	var prev float64
	for _, p := range service.HourPoints(points) {
		if !p.IsOnHour() {
			continue
		}
		label := p.Time.Add(-time.Hour).Format("15:04")
		rows = append(rows, tableRowStyle.Render(fmt.Sprintf("%-7s  %10s  %10s",
			label, m.units.FormatEnergyValue(p.Value-prev), m.units.FormatEnergyValue(p.Value))))
		prev = p.Value
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
