package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"burnpace/internal/analysis"
	"burnpace/internal/service"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
)

const (
	autoRefreshInterval = time.Minute
	refreshTimeout      = 30 * time.Second
)

// Refresher produces a fresh summary for now
type Refresher interface {
	Refresh(ctx context.Context, now time.Time) (*service.Summary, error)
}

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	refresher Refresher
	units     Units
	now       func() time.Time
	spinner   spinner.Model
	summary   *service.Summary
	loading   bool
	err       error
	width     int
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(r Refresher, units Units, now func() time.Time) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return DashboardModel{
		refresher: r,
		units:     units,
		now:       now,
		spinner:   s,
		loading:   true,
	}
}

// Init starts the first refresh and the auto refresh timer
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh, scheduleAutoRefresh())
}

type summaryMsg struct {
	summary *service.Summary
	err     error
}

type autoRefreshMsg struct{}

// refreshNowMsg refreshes without touching the auto refresh timer
type refreshNowMsg struct{}

func scheduleAutoRefresh() tea.Cmd {
	return tea.Tick(autoRefreshInterval, func(time.Time) tea.Msg {
		return autoRefreshMsg{}
	})
}

func (m DashboardModel) refresh() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	summary, err := m.refresher.Refresh(ctx, m.now())
	return summaryMsg{summary: summary, err: err}
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryMsg:
		m.loading = false
		m.err = msg.err
		// Keep showing the last good summary when a refresh fails
		if msg.err == nil {
			m.summary = msg.summary
		}

	case autoRefreshMsg:
		if m.loading {
			return m, scheduleAutoRefresh()
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.refresh, scheduleAutoRefresh())

	case refreshNowMsg:
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.refresh)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.refresh)
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.summary == nil {
		if m.loading {
			return "\n  " + m.spinner.View() + " Loading today's energy..."
		}
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)) +
				"\n" + statusStyle.Render("  Press 'r' to try again")
		}
		return "\n  No data available. Press 's' to sync."
	}

	s := m.summary
	var sections []string

	if s.Freshness == analysis.Unauthorized {
		sections = append(sections, m.renderUnauthorized())
	} else {
		todayCard := m.renderTodayCard()
		statusCard := m.renderStatusCard()
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, todayCard, "  ", statusCard))
		if chart := m.renderChart(); chart != "" {
			sections = append(sections, chart)
		}
	}

	if s.Crossing != nil {
		title, body := s.Crossing.Message()
		style := successStyle
		if s.Crossing.Direction == analysis.AboveToBelow {
			style = warningStyle
		}
		sections = append(sections, style.Render("  "+title+". "+body))
	}

	if s.Degraded() {
		sections = append(sections, m.renderDegraded())
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("  Refresh failed: %v", m.err)))
	}

	help := "Press 'r' to refresh, 's' to sync, '2' for the week"
	if m.loading {
		help = m.spinner.View() + " Refreshing...  " + help
	}
	sections = append(sections, statusStyle.Render(help))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderTodayCard() string {
	s := m.summary
	title := cardTitleStyle.Render("Today")

	progress := s.GoalProgress()
	lines := []string{
		RenderMetric("Active energy", m.units.FormatEnergy(s.TodayTotal), ""),
		RenderMetric("Move goal", m.units.FormatEnergy(s.MoveGoal), ""),
		RenderProgressBar(progress, 30) + fmt.Sprintf(" %3.0f%%", progress*100),
		"",
		RenderMetric("Usual by now", m.units.FormatEnergy(s.AverageAtNow), ""),
	}
	if s.Freshness.ShowsToday() {
		lines = append(lines, RenderMetric("Versus usual", "", m.units.FormatDelta(s.TodayTotal-s.AverageAtNow)))
	}
	lines = append(lines, RenderMetric("Projected total", m.units.FormatEnergy(s.ProjectedTotal), paceTrend(s)))

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(46).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

// paceTrend marks whether the projection clears the goal.
func paceTrend(s *service.Summary) string {
	if s.MoveGoal <= 0 || s.ProjectedTotal <= 0 {
		return ""
	}
	if s.ProjectedTotal >= s.MoveGoal {
		return "↑ on pace"
	}
	return "↓ behind"
}

func (m DashboardModel) renderStatusCard() string {
	s := m.summary
	title := cardTitleStyle.Render(s.Weekday.String())

	lines := []string{
		freshnessLine(s),
		"",
		RenderMetric("Days averaged", fmt.Sprintf("%d", s.DaysSampled), ""),
		RenderMetric("Refreshes", humanize.Comma(s.RefreshCount), ""),
		mutedStyle.Render("Updated " + s.GeneratedAt.Format("15:04:05")),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

// freshnessLine describes how current today's data is.
func freshnessLine(s *service.Summary) string {
	switch s.Freshness {
	case analysis.Fresh:
		if s.LatestSample == nil {
			return successStyle.Render("Up to date")
		}
		return successStyle.Render("Up to date, data as of " + s.LatestSample.Format("15:04"))
	case analysis.Delayed:
		if s.LatestSample == nil {
			return warningStyle.Render("Delayed")
		}
		return warningStyle.Render(fmt.Sprintf("Delayed, data as of %s (%s)",
			s.LatestSample.Format("15:04"),
			humanize.RelTime(*s.LatestSample, s.GeneratedAt, "ago", "from now")))
	case analysis.StaleOtherDay:
		return warningStyle.Render("No data yet today, showing your usual " + s.Weekday.String())
	default:
		return errorStyle.Render("No read access")
	}
}

func (m DashboardModel) renderUnauthorized() string {
	title := cardTitleStyle.Render("Health data access needed")
	lines := []string{
		"burnpace cannot read your active energy.",
		"Grant read access in your health data settings, then press 'r'.",
	}
	if m.summary.MoveGoal > 0 {
		lines = append(lines, "", RenderMetric("Last move goal", m.units.FormatEnergy(m.summary.MoveGoal), ""))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderChart() string {
	today, average := chartSeries(m.summary)
	if len(average) < 2 && len(today) < 2 {
		return ""
	}

	var series [][]float64
	var colors []asciigraph.AnsiColor
	var legend []string
	if len(average) >= 2 {
		series = append(series, m.units.ConvertAll(average))
		colors = append(colors, asciigraph.Gray)
		legend = append(legend, "usual")
	}
	if len(today) >= 2 {
		series = append(series, m.units.ConvertAll(today))
		colors = append(colors, asciigraph.DarkOrange)
		legend = append(legend, "today")
	}

	width := 48
	if m.width > 70 {
		width = m.width - 22
	}

	title := cardTitleStyle.Render("Running total by hour (" + m.units.EnergyLabel() + ")")
	graph := asciigraph.PlotMany(series,
		asciigraph.Height(10),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(strings.Join(legend, " vs ")+", midnight to midnight"),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

// chartSeries samples the summary curves on every hour of the day. The
// average covers the whole day, today stops at the last hour it has data
// for and ends on its latest value.
func chartSeries(s *service.Summary) (today, average []float64) {
	day := analysis.StartOfDay(s.GeneratedAt)

	if len(s.AverageHourly) > 0 {
		basis := withMidnight(day, service.HourPoints(s.AverageHourly))
		for h := 0; h <= analysis.HoursPerDay; h++ {
			v, _ := analysis.InterpolatedValue(basis, day.Add(time.Duration(h)*time.Hour))
			average = append(average, v)
		}
	}

	if len(s.TodayHourly) > 0 {
		points := service.HourPoints(s.TodayHourly)
		last := points[len(points)-1]
		basis := withMidnight(day, points)
		for h := 0; h <= analysis.HoursPerDay; h++ {
			at := day.Add(time.Duration(h) * time.Hour)
			if at.After(last.Time) {
				break
			}
			v, _ := analysis.InterpolatedValue(basis, at)
			today = append(today, v)
		}
		if !last.IsOnHour() {
			today = append(today, last.Value)
		}
	}
	return today, average
}

// withMidnight anchors a running total at zero on the start of the day.
func withMidnight(day time.Time, points []analysis.HourPoint) []analysis.HourPoint {
	if len(points) > 0 && !points[0].Time.After(day) {
		return points
	}
	return append([]analysis.HourPoint{{Time: day}}, points...)
}

func (m DashboardModel) renderDegraded() string {
	fields := make([]string, 0, len(m.summary.FieldErrors))
	for field := range m.summary.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return warningStyle.Render("  Showing cached values for: " + strings.Join(fields, ", "))
}
