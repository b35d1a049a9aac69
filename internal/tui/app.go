package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/studycompanion/internal/export"
	"github.com/sadopc/studycompanion/internal/notify"
	"github.com/sadopc/studycompanion/internal/pomodoro"
	"github.com/sadopc/studycompanion/internal/store"
)

var exportFormats = []export.Format{export.FormatCSV, export.FormatJSON, export.FormatYAML}

// App is the root Bubble Tea model.
type App struct {
	store    *store.Store
	engine   *pomodoro.Engine
	notifier *notify.Notifier
	events   <-chan pomodoro.Event
	width    int
	height   int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	askPermission bool

	timer     timerModel
	subjects  subjectsModel
	tasks     tasksModel
	notes     notesModel
	analytics analyticsModel
	settings  settingsModel

	help        help.Model
	status      string
	statusError bool
}

// NewApp builds the UI over an engine that is already started. The app
// subscribes to engine events for its whole lifetime.
func NewApp(s *store.Store, e *pomodoro.Engine, n *notify.Notifier) App {
	h := help.New()
	h.ShowAll = false

	return App{
		store:         s,
		engine:        e,
		notifier:      n,
		events:        e.Subscribe(16),
		activeView:    viewTimer,
		askPermission: n.NeedsPrompt(),
		timer:         newTimerModel(s, e),
		subjects:      newSubjectsModel(s),
		tasks:         newTasksModel(s),
		notes:         newNotesModel(s),
		analytics:     newAnalyticsModel(s),
		settings:      newSettingsModel(s, e, n),
		help:          h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.timer.refresh(),
		waitForEvent(a.events),
	)
}

// waitForEvent delivers the next engine event. The App re-arms it after
// every event; a closed subscription ends the loop.
func waitForEvent(events <-chan pomodoro.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return engineEventMsg(ev)
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.timer.setSize(a.width, contentHeight)
		a.subjects.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		a.notes.setSize(a.width, contentHeight)
		a.analytics.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.askPermission {
			return a.updatePermissionPrompt(msg)
		}
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewTimer)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewSubjects)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewTasks)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewNotes)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewAnalytics)
		case key.Matches(msg, keys.Tab6):
			return a.switchTo(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case engineEventMsg:
		cmds := []tea.Cmd{waitForEvent(a.events)}
		var cmd tea.Cmd
		// The timer model always tracks the engine; the footer reads it.
		a.timer, cmd = a.timer.update(msg)
		cmds = append(cmds, cmd)
		if msg.Type == pomodoro.EventTransition {
			a.status = pomodoro.ModeLabel(msg.Ended) + " finished. Up next: " + pomodoro.ModeLabel(msg.Snapshot.State.Mode)
			a.statusError = false
			if a.activeView != viewTimer {
				var model tea.Model
				model, cmd = a.updateActiveView(msg)
				a = model.(App)
				cmds = append(cmds, cmd)
			}
		}
		return a, tea.Batch(cmds...)

	case dataResetMsg:
		a.status = "All data has been reset"
		a.statusError = false
		return a, tea.Batch(
			a.timer.refresh(),
			a.subjects.refresh(),
			a.tasks.refresh(),
			a.notes.refresh(),
			a.analytics.refresh(),
			a.settings.refresh(),
		)

	case statusMsg:
		a.status = msg.text
		a.statusError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusError = false
		a.exportPicking = false
		return a, nil

	// Data messages go to their owner whichever tab is showing.
	case timerDataMsg:
		var cmd tea.Cmd
		a.timer, cmd = a.timer.update(msg)
		return a, cmd
	case subjectsDataMsg:
		var cmd tea.Cmd
		a.subjects, cmd = a.subjects.update(msg)
		return a, cmd
	case tasksDataMsg:
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.update(msg)
		return a, cmd
	case notesDataMsg:
		var cmd tea.Cmd
		a.notes, cmd = a.notes.update(msg)
		return a, cmd
	case analyticsDataMsg:
		var cmd tea.Cmd
		a.analytics, cmd = a.analytics.update(msg)
		return a, cmd
	case settingsDataMsg:
		var cmd tea.Cmd
		a.settings, cmd = a.settings.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.timer, cmd = a.timer.update(msg)
	case viewSubjects:
		a.subjects, cmd = a.subjects.update(msg)
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewNotes:
		a.notes, cmd = a.notes.update(msg)
	case viewAnalytics:
		a.analytics, cmd = a.analytics.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTimer:
		return a.timer.picking
	case viewSubjects:
		return a.subjects.captured()
	case viewTasks:
		return a.tasks.formActive
	case viewNotes:
		return a.notes.captured()
	case viewSettings:
		return a.settings.captured()
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTimer:
		return a.timer.refresh()
	case viewSubjects:
		return a.subjects.refresh()
	case viewTasks:
		return a.tasks.refresh()
	case viewNotes:
		return a.notes.refresh()
	case viewAnalytics:
		return a.analytics.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.timer.view()
	case viewSubjects:
		content = a.subjects.view()
	case viewTasks:
		content = a.tasks.view()
	case viewNotes:
		content = a.notes.view()
	case viewAnalytics:
		content = a.analytics.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	contentHeight := max(a.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	switch {
	case a.askPermission:
		content = a.renderPermissionPrompt()
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(label))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("studycompanion")
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Timer indicator in footer
	snap := a.timer.snap
	label := pomodoro.ModeLabel(snap.State.Mode)
	timerInfo := warningStyle.Render(" ⏸ " + snap.Formatted() + " " + label)
	if snap.Running() {
		timerInfo = lipgloss.NewStyle().Foreground(modeColor(snap.State.Mode)).
			Render(" ● " + snap.Formatted() + " " + label)
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderPermissionPrompt() string {
	rows := []string{
		titleStyle.Render("Notifications"),
		"",
		"Show a desktop notification when a work session or break ends?",
		mutedStyle.Render("You can change this later in Settings."),
		"",
		mutedStyle.Render("  y: allow  n: not now"),
	}
	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updatePermissionPrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Confirm):
		a.notifier.RequestPermission(true)
		a.askPermission = false
		a.status = "Desktop notifications enabled"
	case key.Matches(msg, keys.New), key.Matches(msg, keys.Back):
		a.notifier.RequestPermission(false)
		a.askPermission = false
		a.status = "Desktop notifications disabled"
	}
	return a, nil
}

func (a App) renderExportPicker() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Export Sessions"), "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.ToUpper(string(f))))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(exportFormats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(f export.Format) tea.Cmd {
	return func() tea.Msg {
		home, err := os.UserHomeDir()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		name := fmt.Sprintf("studycompanion-export-%s.%s", time.Now().Format("2006-01-02"), f.Ext())
		path := filepath.Join(home, name)

		if err := export.ToFile(path, f, a.store.ListSessions(), a.store.ListSubjects()); err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
