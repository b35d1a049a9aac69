package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/studycompanion/internal/analytics"
	"github.com/sadopc/studycompanion/internal/store"
)

type analyticsModel struct {
	store  *store.Store
	width  int
	height int

	subjects     []store.Subject
	today        analytics.DayStats
	progress     []analytics.Progress
	distribution []analytics.Share
	history      []analytics.Day
	offset       int // first history day shown

	chart barchart.Model
}

func newAnalyticsModel(s *store.Store) analyticsModel {
	return analyticsModel{
		store: s,
		chart: barchart.New(60, 10),
	}
}

func (a *analyticsModel) setSize(w, h int) {
	a.width = w
	a.height = h
	a.buildChart()
}

type analyticsDataMsg struct {
	subjects []store.Subject
	logs     []store.SessionLog
}

func (a analyticsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return analyticsDataMsg{subjects: a.store.ListSubjects(), logs: a.store.ListSessions()}
	}
}

func (a analyticsModel) update(msg tea.Msg) (analyticsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case analyticsDataMsg:
		a.subjects = msg.subjects
		a.today = analytics.Today(msg.logs, time.Now())
		a.progress = analytics.GoalProgress(msg.subjects)
		a.distribution = analytics.Distribution(msg.subjects)
		a.history = analytics.History(msg.logs, time.Local)
		a.offset = min(a.offset, max(len(a.history)-1, 0))
		a.buildChart()
		return a, nil

	case engineEventMsg:
		return a, a.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if a.offset > 0 {
				a.offset--
			}
		case key.Matches(msg, keys.Down):
			if a.offset < len(a.history)-1 {
				a.offset++
			}
		}
	}
	return a, nil
}

// buildChart draws one bar per subject: percent of its goal reached.
func (a *analyticsModel) buildChart() {
	chartWidth := max(a.width-8, 20)
	chartHeight := 10
	if a.height > 40 {
		chartHeight = 14
	}

	a.chart = barchart.New(chartWidth, chartHeight, barchart.WithMaxValue(100))

	var bars []barchart.BarData
	for _, p := range a.progress {
		bars = append(bars, barchart.BarData{
			Label: truncate(p.Subject.Name, 10),
			Values: []barchart.BarValue{{
				Name:  p.Subject.Name,
				Value: float64(p.Percent),
				Style: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Subject.Color)),
			}},
		})
	}
	if len(bars) == 0 {
		return
	}
	a.chart.PushAll(bars)
	a.chart.Draw()
}

func (a analyticsModel) view() string {
	w := a.width - 4

	today := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Analytics"), "  ",
		highlightStyle.Render(fmt.Sprintf("Today: %s, %d sessions",
			formatMinutes(a.today.Minutes), a.today.Sessions)),
	)

	sections := []string{today, "", sectionStyle.Render("Goal progress")}
	if len(a.progress) == 0 {
		sections = append(sections, mutedStyle.Render("  No subjects with a goal"))
	} else {
		sections = append(sections, a.chart.View(), a.renderLegend())
	}

	sections = append(sections, "", sectionStyle.Render("Time by subject"), a.renderDistribution(w))
	sections = append(sections, "", sectionStyle.Render("Session history"), a.renderHistory(w))
	sections = append(sections, "", mutedStyle.Render("  ↑/↓: scroll history"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (a analyticsModel) renderLegend() string {
	var items []string
	for _, p := range a.progress {
		items = append(items, fmt.Sprintf("%s %s %d%%", dot(p.Subject.Color), p.Subject.Name, p.Percent))
	}
	return "  " + strings.Join(items, "  ")
}

func (a analyticsModel) renderDistribution(w int) string {
	if len(a.distribution) == 0 {
		return mutedStyle.Render("  Nothing studied yet")
	}
	barWidth := min(max(w-50, 10), 30)
	var rows []string
	for _, s := range a.distribution {
		rows = append(rows, fmt.Sprintf("  %s %-18s %s %5.1f%%  %s",
			dot(s.Subject.Color), truncate(s.Subject.Name, 18),
			bar(s.Fraction, barWidth), s.Fraction*100, mutedStyle.Render(formatMinutes(s.Minutes))))
	}
	return strings.Join(rows, "\n")
}

// renderHistory lists days from the scroll offset until the panel is
// full.
func (a analyticsModel) renderHistory(w int) string {
	if len(a.history) == 0 {
		return mutedStyle.Render("  No sessions logged")
	}
	budget := max(a.height-30, 6)

	var rows []string
	for _, day := range a.history[a.offset:] {
		if len(rows) >= budget {
			break
		}
		rows = append(rows, fmt.Sprintf("  %s  %s",
			normalItemStyle.Bold(true).Render(day.Title), mutedStyle.Render(formatMinutes(day.Minutes))))
		for _, l := range day.Logs {
			name, color := store.SubjectLabel(a.subjects, l.SubjectID)
			rows = append(rows, fmt.Sprintf("    %s  %s %-20s %s",
				mutedStyle.Render(l.Date.Local().Format("15:04")), dot(color),
				truncate(name, 20), formatMinutes(l.Duration)))
		}
	}
	if a.offset+1 < len(a.history) || a.offset > 0 {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  day %d of %d", a.offset+1, len(a.history))))
	}
	return truncateLines(rows, w)
}

func truncateLines(rows []string, w int) string {
	for i := range rows {
		rows[i] = truncate(rows[i], max(w-4, 10))
	}
	return strings.Join(rows, "\n")
}
