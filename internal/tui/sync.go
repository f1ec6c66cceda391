package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"burnpace/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const syncTimeout = 10 * time.Minute

// SyncModel is the sync screen model
type SyncModel struct {
	syncService *service.SyncService
	now         func() time.Time
	syncing     bool
	progress    <-chan service.SyncProgress
	done        <-chan SyncDoneMsg
	last        service.SyncProgress
	result      *service.SyncResult
	err         error
	finished    bool
}

// NewSyncModel creates a new sync model. ss is nil when no remote is
// configured.
func NewSyncModel(ss *service.SyncService, now func() time.Time) SyncModel {
	return SyncModel{
		syncService: ss,
		now:         now,
	}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

type syncProgressMsg service.SyncProgress

// waitForSync delivers the next progress update, then the final result
// once the progress channel is closed.
func waitForSync(progress <-chan service.SyncProgress, done <-chan SyncDoneMsg) tea.Cmd {
	return func() tea.Msg {
		if p, ok := <-progress; ok {
			return syncProgressMsg(p)
		}
		return <-done
	}
}

func (m SyncModel) start() (SyncModel, tea.Cmd) {
	progress := make(chan service.SyncProgress, 16)
	done := make(chan SyncDoneMsg, 1)

	ss, now := m.syncService, m.now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		result, err := ss.Sync(ctx, now, progress)
		done <- SyncDoneMsg{Result: result, Err: err}
	}()

	m.syncing = true
	m.finished = false
	m.err = nil
	m.result = nil
	m.last = service.SyncProgress{}
	m.progress = progress
	m.done = done
	return m, waitForSync(progress, done)
}

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case syncProgressMsg:
		m.last = service.SyncProgress(msg)
		return m, waitForSync(m.progress, m.done)

	case SyncDoneMsg:
		m.syncing = false
		m.finished = true
		m.result = msg.Result
		m.err = msg.Err
		return m, func() tea.Msg { return SyncCompleteMsg{} }

	case tea.KeyMsg:
		if m.syncService != nil && !m.syncing {
			switch msg.String() {
			case "enter", "s":
				return m.start()
			}
		}
	}
	return m, nil
}

// View renders the sync screen
func (m SyncModel) View() string {
	var sections []string
	sections = append(sections, cardTitleStyle.Render("Sync"))

	if m.syncService == nil {
		sections = append(sections, "\n  No remote health API configured.",
			statusStyle.Render("  Set remote.base_url in the config file to sync samples."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)))
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	switch {
	case m.syncing:
		sections = append(sections, m.renderProgress())
	case m.finished:
		sections = append(sections, successStyle.Render("\n  Sync complete!"))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to go to dashboard, 's' to sync again"))
	default:
		sections = append(sections, m.renderStartPrompt())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	lines := []string{
		"",
		"  This will copy your active energy samples:",
		"",
		"  1. Fetch samples since the last sync, one day at a time",
		"  2. Update your move goal",
		"  3. Drop samples older than the lookback window",
		"",
	}

	if short, daily, ok := m.syncService.RateLimitStatus(); ok {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  API requests left: %d (short window), %d (daily)", short, daily)))
		lines = append(lines, "")
	}
	lines = append(lines, statusStyle.Render("  Press 's' or Enter to start sync"))

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderProgress() string {
	p := m.last
	lines := []string{"", "  Syncing..."}

	switch p.Phase {
	case "samples":
		fraction := 0.0
		if p.Total > 0 {
			fraction = float64(p.Completed) / float64(p.Total)
		}
		lines = append(lines, "",
			"  "+RenderProgressBar(fraction, 30)+fmt.Sprintf(" %d/%d days", p.Completed, p.Total))
		if !p.Window.IsZero() {
			lines = append(lines, mutedStyle.Render("  Last window: "+p.Window.Format("Mon Jan 2")))
		}
	case "goal":
		lines = append(lines, "", "  Updating move goal")
	}
	if p.Error != nil {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %v", p.Error)))
	}

	lines = append(lines, "", statusStyle.Render("  This may take a moment..."))
	return strings.Join(lines, "\n")
}

func (m SyncModel) renderSummary() string {
	if m.result == nil {
		return ""
	}

	r := m.result
	lines := []string{""}

	if r.SamplesStored > 0 {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %s samples stored over %d days", humanize.Comma(int64(r.SamplesStored)), r.Windows)))
	} else {
		lines = append(lines, statusStyle.Render("  No new samples"))
	}
	if r.GoalUpdated {
		lines = append(lines, successStyle.Render("  Move goal updated"))
	}
	if r.Pruned > 0 {
		lines = append(lines, statusStyle.Render(fmt.Sprintf("  %s old samples removed", humanize.Comma(r.Pruned))))
	}

	if len(r.Errors) > 0 {
		lines = append(lines, "")
		lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d errors occurred", len(r.Errors))))
		for i, err := range r.Errors {
			if i == 3 {
				lines = append(lines, mutedStyle.Render(fmt.Sprintf("    ...and %d more", len(r.Errors)-3)))
				break
			}
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("    %v", err)))
		}
	}

	return strings.Join(lines, "\n")
}
